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

package mfa

import (
	"context"
	"fmt"

	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Enrollment is a freshly generated TOTP secret awaiting confirmation
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// Service manages a principal's second factor
type Service struct {
	repo        identity.Repository
	challenge   *Challenge
	issuer      string
	auditLogger audit.Logger
}

// NewService creates a new MFA enrollment service. issuer is shown by
// authenticator apps next to the account name.
func NewService(repo identity.Repository, challenge *Challenge, issuer string, auditLogger audit.Logger) *Service {
	return &Service{repo: repo, challenge: challenge, issuer: issuer, auditLogger: auditLogger}
}

// Enroll generates and stores a new secret for id. MFA stays disabled until
// Confirm succeeds.
func (s *Service) Enroll(ctx context.Context, id identity.PrincipalID) (*Enrollment, error) {
	m, err := s.repo.GetMembershipByID(ctx, id)
	if err != nil {
		return nil, fault.Transient(err)
	}
	if m.Principal.MFAEnabled {
		return nil, fault.Validation("multi-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: m.Principal.Email,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	secret := key.Secret()
	if err := s.repo.Update(ctx, id, identity.PrincipalUpdate{MFASecret: &secret}); err != nil {
		return nil, fault.Transient(err)
	}
	return &Enrollment{Secret: secret, URL: key.URL()}, nil
}

// Confirm enables MFA once the principal proves possession of the secret
func (s *Service) Confirm(ctx context.Context, id identity.PrincipalID, code string) error {
	m, err := s.repo.GetMembershipByID(ctx, id)
	if err != nil {
		return fault.Transient(err)
	}
	p := m.Principal
	if p.MFASecret == "" {
		return fault.Validation("no pending multi-factor enrollment")
	}
	if !s.challenge.Verify(p, code) {
		return fault.New(fault.KindInvalidMFACode, "invalid verification code")
	}

	enabled := true
	if err := s.repo.Update(ctx, id, identity.PrincipalUpdate{MFAEnabled: &enabled}); err != nil {
		return fault.Transient(err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMFAEnabled,
		TenantID: p.TenantRef(),
		ActorID:  string(id),
		Resource: string(id),
	})
	return nil
}

// Disable turns MFA off after a final valid code and discards the secret
func (s *Service) Disable(ctx context.Context, id identity.PrincipalID, code string) error {
	m, err := s.repo.GetMembershipByID(ctx, id)
	if err != nil {
		return fault.Transient(err)
	}
	p := m.Principal
	if !p.MFAEnabled {
		return fault.Validation("multi-factor authentication is not enabled")
	}
	if !s.challenge.Verify(p, code) {
		return fault.New(fault.KindInvalidMFACode, "invalid verification code")
	}

	disabled, empty := false, ""
	if err := s.repo.Update(ctx, id, identity.PrincipalUpdate{MFAEnabled: &disabled, MFASecret: &empty}); err != nil {
		return fault.Transient(err)
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMFADisabled,
		TenantID: p.TenantRef(),
		ActorID:  string(id),
		Resource: string(id),
	})
	return nil
}
