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

// Package session issues and verifies stateless signed session credentials.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/identity"
)

// DefaultTTL is the session horizon when none is configured
const DefaultTTL = 8 * time.Hour

// ErrInvalidSession covers malformed, forged, expired and revoked tokens alike
var ErrInvalidSession = fault.New(fault.KindInvalidCredentials, "invalid or expired session")

// Claims is the signed payload of a session credential
type Claims struct {
	jwt.RegisteredClaims
	Role     identity.Role `json:"role"`
	TenantID *string       `json:"tenant_id,omitempty"`
}

// PrincipalID returns the normalized subject
func (c *Claims) PrincipalID() (identity.PrincipalID, error) {
	return identity.ParsePrincipalID(c.Subject)
}

// Credential is an issued session
type Credential struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Claims    *Claims   `json:"-"`
}

// Signer seals and opens claims
type Signer interface {
	Sign(claims *Claims) (string, error)
	Parse(token string, now time.Time) (*Claims, error)
}

// DenyList remembers, per principal, the instant before which every issued
// session is void.
type DenyList interface {
	RevokeBefore(ctx context.Context, id identity.PrincipalID, at time.Time, ttl time.Duration) error
	RevokedBefore(ctx context.Context, id identity.PrincipalID) (at time.Time, ok bool, err error)
}

// Issuer creates session credentials for authenticated principals. It holds
// no per-session state.
type Issuer struct {
	signer Signer
	ttl    time.Duration
	deny   DenyList
	now    func() time.Time
}

// NewIssuer creates a new issuer. A non-positive ttl selects DefaultTTL.
func NewIssuer(signer Signer, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{signer: signer, ttl: ttl, now: time.Now}
}

// WithDenyList enables revocation checks on Verify
func (i *Issuer) WithDenyList(d DenyList) *Issuer {
	i.deny = d
	return i
}

// TTL returns the session horizon
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a credential carrying p's id, role and tenant id
func (i *Issuer) Issue(p *identity.Principal) (*Credential, error) {
	if p == nil {
		return nil, errors.New("session: principal is required")
	}
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   string(p.ID),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: p.Role,
	}
	if ref := p.TenantRef(); ref != "" {
		claims.TenantID = &ref
	}

	token, err := i.signer.Sign(claims)
	if err != nil {
		return nil, fault.Transient(fmt.Errorf("failed to sign session: %w", err))
	}
	return &Credential{Token: token, ExpiresAt: expiresAt, Claims: claims}, nil
}

// Verify checks signature, expiry and revocation of token
func (i *Issuer) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := i.signer.Parse(token, i.now())
	if err != nil {
		return nil, ErrInvalidSession
	}
	if _, err := claims.PrincipalID(); err != nil {
		return nil, ErrInvalidSession
	}
	if i.deny == nil {
		return claims, nil
	}

	id, _ := claims.PrincipalID()
	revokedAt, ok, err := i.deny.RevokedBefore(ctx, id)
	if err != nil {
		return nil, fault.Transient(err)
	}
	if ok && claims.IssuedAt != nil && !claims.IssuedAt.Time.After(revokedAt) {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// RevokeAll voids every session issued to id up to now
func (i *Issuer) RevokeAll(ctx context.Context, id identity.PrincipalID) error {
	if i.deny == nil {
		return errors.New("session revocation is not configured")
	}
	return i.deny.RevokeBefore(ctx, id, i.now().UTC().Truncate(time.Second), i.ttl)
}
