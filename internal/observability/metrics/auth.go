// Copyright 2026 The Memberhub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics records authentication and feature authorization decisions
type AuthMetrics struct {
	logins        metric.Int64Counter
	featureChecks metric.Int64Counter
	loginDuration metric.Float64Histogram
}

// NewAuthMetrics registers the decision instruments on m
func NewAuthMetrics(m *Meter) (*AuthMetrics, error) {
	logins, err := m.CreateCounter("auth_login_total", "Login attempts by outcome")
	if err != nil {
		return nil, err
	}
	checks, err := m.CreateCounter("auth_feature_checks_total", "Feature authorization checks by result")
	if err != nil {
		return nil, err
	}
	duration, err := m.CreateHistogram("auth_login_duration_ms", "Time spent deciding a login", "ms")
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{logins: logins, featureChecks: checks, loginDuration: duration}, nil
}

// RecordLogin counts one login decision. A nil receiver records nothing.
func (a *AuthMetrics) RecordLogin(ctx context.Context, outcome string, elapsed time.Duration) {
	if a == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	a.logins.Add(ctx, 1, attrs)
	a.loginDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// RecordFeatureCheck counts one feature authorization
func (a *AuthMetrics) RecordFeatureCheck(ctx context.Context, feature string, allowed bool) {
	if a == nil {
		return
	}
	a.featureChecks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("feature", feature),
		attribute.String("allowed", strconv.FormatBool(allowed)),
	))
}
