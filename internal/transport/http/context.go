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

package http

import (
	"context"

	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/session"
)

type contextKey string

const (
	membershipKey contextKey = "membership"
	claimsKey     contextKey = "claims"
)

func withSession(ctx context.Context, m *identity.Membership, claims *session.Claims) context.Context {
	ctx = context.WithValue(ctx, membershipKey, m)
	return context.WithValue(ctx, claimsKey, claims)
}

// GetMembership retrieves the authenticated membership from context.
func GetMembership(ctx context.Context) *identity.Membership {
	if val, ok := ctx.Value(membershipKey).(*identity.Membership); ok {
		return val
	}
	return nil
}

// GetPrincipal retrieves the authenticated principal from context.
func GetPrincipal(ctx context.Context) *identity.Principal {
	if m := GetMembership(ctx); m != nil {
		return m.Principal
	}
	return nil
}

// GetClaims retrieves the verified session claims from context.
func GetClaims(ctx context.Context) *session.Claims {
	if val, ok := ctx.Value(claimsKey).(*session.Claims); ok {
		return val
	}
	return nil
}
