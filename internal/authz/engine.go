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

// Package authz decides who may authenticate and which features they may use.
package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/feature"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/mfa"
	"github.com/memberhub/memberhub/internal/observability/logger"
	"github.com/memberhub/memberhub/internal/observability/metrics"
	"github.com/memberhub/memberhub/internal/observability/tracing"
	"github.com/memberhub/memberhub/internal/session"
	"github.com/memberhub/memberhub/internal/tenant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultDecisionTimeout bounds a single decision when none is configured
const DefaultDecisionTimeout = 5 * time.Second

// CredentialVerifier checks a secret against a stored one-way hash
type CredentialVerifier interface {
	Verify(secret, hash string) (bool, error)
}

// Deps are the collaborators of the Engine
type Deps struct {
	Principals identity.Repository
	Verifier   CredentialVerifier
	// DecoyHash is verified against when the email is unknown, so both
	// credential failures cost the same.
	DecoyHash string
	Policy    *identity.AdminPolicy
	Features  *feature.Store
	Challenge *mfa.Challenge
	Sessions  *session.Issuer
	Audit     audit.Logger
	Metrics   *metrics.AuthMetrics
	Tracer    *tracing.Tracer
	Timeout   time.Duration
}

// Engine is the authorization engine
type Engine struct {
	principals identity.Repository
	verifier   CredentialVerifier
	decoyHash  string
	policy     *identity.AdminPolicy
	features   *feature.Store
	challenge  *mfa.Challenge
	sessions   *session.Issuer
	audit      audit.Logger
	metrics    *metrics.AuthMetrics
	tracer     *tracing.Tracer
	timeout    time.Duration
	now        func() time.Time
}

// NewEngine creates a new authorization engine
func NewEngine(d Deps) *Engine {
	if d.Timeout <= 0 {
		d.Timeout = DefaultDecisionTimeout
	}
	if d.Audit == nil {
		d.Audit = audit.NopLogger{}
	}
	return &Engine{
		principals: d.Principals,
		verifier:   d.Verifier,
		decoyHash:  d.DecoyHash,
		policy:     d.Policy,
		features:   d.Features,
		challenge:  d.Challenge,
		sessions:   d.Sessions,
		audit:      d.Audit,
		metrics:    d.Metrics,
		tracer:     d.Tracer,
		timeout:    d.Timeout,
		now:        time.Now,
	}
}

// Outcome is a successful authentication step: either a session or a request
// for the second factor.
type Outcome struct {
	MFARequired bool
	Credential  *session.Credential
	Principal   *identity.Principal
}

// Identification is what the pre-login step may disclose
type Identification struct {
	Exists     bool            `json:"exists"`
	TenantName string          `json:"tenant_name,omitempty"`
	Branding   tenant.Branding `json:"branding"`
}

// Login outcome labels
const (
	OutcomeSuccess     = "success"
	OutcomeMFARequired = "mfa_required"
)

// Authenticate runs the login decision for email and secret. mfaCode may be
// empty; when the principal has MFA enabled that yields Outcome.MFARequired.
func (e *Engine) Authenticate(ctx context.Context, email, secret, mfaCode string) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx, span := e.tracer.Start(ctx, "authz.Authenticate")
	start := e.now()

	out, err := e.authenticate(ctx, email, secret, mfaCode)

	label := outcomeLabel(out, err)
	e.metrics.RecordLogin(ctx, label, e.now().Sub(start))
	span.SetAttributes(attribute.String("auth.outcome", label))
	if fault.IsKind(err, fault.KindTransient) || fault.IsKind(err, fault.KindInternal) {
		tracing.End(span, err)
	} else {
		span.End()
	}
	return out, err
}

func (e *Engine) authenticate(ctx context.Context, email, secret, mfaCode string) (*Outcome, error) {
	// 1. principal and tenant, one snapshot
	m, err := e.principals.GetMembershipByEmail(ctx, email)
	if errors.Is(err, identity.ErrPrincipalNotFound) {
		_, _ = e.verifier.Verify(secret, e.decoyHash)
		e.logFailure(ctx, "", "", "unknown_email")
		return nil, fault.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fault.Transient(err)
	}
	p := m.Principal

	// 2. secret
	ok, err := e.verifier.Verify(secret, p.CredentialHash)
	if err != nil {
		slog.ErrorContext(ctx, "stored credential hash is unusable", logger.PrincipalID(string(p.ID)), logger.Error(err))
	}
	if !ok {
		e.logFailure(ctx, p.ID, p.TenantRef(), "wrong_secret")
		return nil, fault.ErrInvalidCredentials
	}

	// 3. membership and tenant gate
	if d := m.CanAuthenticate(); !d.Allowed {
		e.logFailure(ctx, p.ID, p.TenantRef(), string(d.Reason))
		return nil, d.Err()
	}

	// 4-5. second factor
	if e.challenge.IsRequired(p) {
		mfaCode = strings.TrimSpace(mfaCode)
		if mfaCode == "" {
			e.audit.Log(ctx, audit.Event{
				Type:     audit.TypeMFAChallenged,
				TenantID: p.TenantRef(),
				ActorID:  string(p.ID),
				Resource: "session",
			})
			return &Outcome{MFARequired: true}, nil
		}
		if !e.challenge.Verify(p, mfaCode) {
			e.logFailure(ctx, p.ID, p.TenantRef(), "invalid_mfa_code")
			return nil, fault.New(fault.KindInvalidMFACode, "invalid verification code")
		}
	}

	// 6. best effort
	now := e.now()
	if err := e.principals.Update(ctx, p.ID, identity.PrincipalUpdate{LastAuthenticatedAt: &now}); err != nil {
		slog.WarnContext(ctx, "failed to record last authentication",
			logger.PrincipalID(string(p.ID)), logger.Error(err))
	} else {
		p.LastAuthenticatedAt = &now
	}

	// 7. session
	cred, err := e.sessions.Issue(p)
	if err != nil {
		return nil, fault.Transient(err)
	}

	e.audit.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: p.TenantRef(),
		ActorID:  string(p.ID),
		Resource: "session",
		Metadata: map[string]any{"session_id": cred.Claims.ID},
	})
	return &Outcome{Credential: cred, Principal: p}, nil
}

func (e *Engine) logFailure(ctx context.Context, id identity.PrincipalID, tenantID, reason string) {
	actor := string(id)
	if actor == "" {
		actor = audit.ActorAnonymous
	}
	e.audit.Log(ctx, audit.Event{
		Type:     audit.TypeLoginFailed,
		TenantID: tenantID,
		ActorID:  actor,
		Resource: "session",
		Metadata: map[string]any{audit.AttrReason: reason},
	})
}

func outcomeLabel(out *Outcome, err error) string {
	switch {
	case err != nil:
		return string(fault.KindOf(err))
	case out != nil && out.MFARequired:
		return OutcomeMFARequired
	default:
		return OutcomeSuccess
	}
}

// Identify discloses whether email belongs to a principal allowed to log in,
// and which branding to show. Unknown emails get the platform branding.
func (e *Engine) Identify(ctx context.Context, email string) (*Identification, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx, span := e.tracer.Start(ctx, "authz.Identify")
	defer span.End()

	m, err := e.principals.GetMembershipByEmail(ctx, email)
	if errors.Is(err, identity.ErrPrincipalNotFound) {
		return &Identification{Exists: false, Branding: tenant.PlatformBranding}, nil
	}
	if err != nil {
		return nil, fault.Transient(err)
	}

	if d := m.CanAuthenticate(); !d.Allowed {
		return nil, d.Err()
	}

	id := &Identification{Exists: true, Branding: tenant.BrandingFor(m.Tenant)}
	if m.Tenant != nil {
		id.TenantName = m.Tenant.Name
	}
	return id, nil
}

// IsGlobalAdmin reports whether p may administer the whole platform
func (e *Engine) IsGlobalAdmin(p *identity.Principal) bool {
	return e.policy.IsGlobalAdmin(p)
}

// AuthorizeFeature reports whether p may use key in tenantID's context. The
// answer is the resolved flag; administrators get no bypass. Principals that
// are not global admins may only evaluate their own tenant.
func (e *Engine) AuthorizeFeature(ctx context.Context, tenantID *string, key string, p *identity.Principal) (bool, error) {
	k, err := feature.ParseKey(key)
	if err != nil {
		return false, err
	}
	if p == nil {
		e.metrics.RecordFeatureCheck(ctx, string(k), false)
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx, span := e.tracer.Start(ctx, "authz.AuthorizeFeature", trace.WithAttributes(attribute.String("feature", string(k))))

	if !e.policy.IsGlobalAdmin(p) && feature.ScopeFor(tenantID) != feature.ScopeFor(p.TenantID) {
		span.End()
		e.metrics.RecordFeatureCheck(ctx, string(k), false)
		return false, nil
	}

	allowed, err := e.features.Enabled(ctx, tenantID, k)
	tracing.End(span, err)
	if err != nil {
		return false, err
	}
	e.metrics.RecordFeatureCheck(ctx, string(k), allowed)
	return allowed, nil
}

// Membership reloads the principal behind a verified session and re-applies
// the authentication gate, so suspension or tenant deactivation takes effect
// before the token expires.
func (e *Engine) Membership(ctx context.Context, claims *session.Claims) (*identity.Membership, error) {
	id, err := claims.PrincipalID()
	if err != nil {
		return nil, session.ErrInvalidSession
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	m, err := e.principals.GetMembershipByID(ctx, id)
	if errors.Is(err, identity.ErrPrincipalNotFound) {
		return nil, session.ErrInvalidSession
	}
	if err != nil {
		return nil, fault.Transient(err)
	}
	if d := m.CanAuthenticate(); !d.Allowed {
		return nil, d.Err()
	}
	return m, nil
}
