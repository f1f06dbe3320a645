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

package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/observability/logger"
	"github.com/memberhub/memberhub/internal/tenant"
)

// RegisterInput is a self-service membership request
type RegisterInput struct {
	TenantID string
	Email    string
	Password string
	FullName string
}

func (in RegisterInput) validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.TenantID, validation.Required),
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 256)),
		validation.Field(&in.FullName, validation.Required, validation.Length(1, 200)),
	)
	if err != nil {
		return fault.Validation("registration: %v", err)
	}
	return nil
}

// Service provides membership lifecycle business logic
type Service struct {
	repo        Repository
	tenants     tenant.Repository
	hasher      *PasswordHasher
	policy      *AdminPolicy
	auditLogger audit.Logger
	revoker     SessionRevoker
	now         func() time.Time
}

// NewService creates a new identity service
func NewService(
	repo Repository,
	tenants tenant.Repository,
	hasher *PasswordHasher,
	policy *AdminPolicy,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		tenants:     tenants,
		hasher:      hasher,
		policy:      policy,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// WithSessionRevoker makes suspensions invalidate outstanding sessions
func (s *Service) WithSessionRevoker(r SessionRevoker) *Service {
	s.revoker = r
	return s
}

// Register records a PENDING membership request for an active association.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Principal, error) {
	in.Email = NormalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	in.TenantID = strings.TrimSpace(in.TenantID)
	if err := in.validate(); err != nil {
		return nil, err
	}

	t, err := s.tenants.GetByID(ctx, in.TenantID)
	if err != nil {
		return nil, fault.Transient(err)
	}
	if !t.IsActive() {
		return nil, fault.New(fault.KindTenantInactive, "association is not accepting members")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate principal id: %w", err)
	}

	now := s.now()
	tenantID := t.ID
	p := &Principal{
		ID:             PrincipalID(id.String()),
		Email:          in.Email,
		CredentialHash: hash,
		FullName:       in.FullName,
		Role:           RoleMember,
		Status:         StatusPending,
		TenantID:       &tenantID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fault.Transient(err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberRegistered,
		TenantID: tenantID,
		ActorID:  string(p.ID),
		Resource: "principal",
		Metadata: map[string]any{audit.AttrEmail: p.Email},
	})
	return p, nil
}

// GetMember returns a principal. Members may read themselves; anyone else
// needs global administration rights.
func (s *Service) GetMember(ctx context.Context, actor *Principal, id PrincipalID) (*Principal, error) {
	if actor == nil || (actor.ID != id && !s.policy.IsGlobalAdmin(actor)) {
		return nil, fault.Permission("not allowed to read this member")
	}
	m, err := s.repo.GetMembershipByID(ctx, id)
	if err != nil {
		return nil, fault.Transient(err)
	}
	return m.Principal, nil
}

// ListMembers lists the principals of an association, optionally by status
func (s *Service) ListMembers(ctx context.Context, actor *Principal, tenantID string, status *Status, limit, offset int) ([]*Principal, error) {
	if !s.policy.IsGlobalAdmin(actor) {
		return nil, fault.Permission("global administrator required")
	}
	if status != nil && !status.Known() {
		return nil, fault.Validation("unknown membership status %q", *status)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	tid := strings.TrimSpace(tenantID)
	filter := ListFilter{Status: status, Limit: limit, Offset: offset}
	if tid != "" {
		filter.TenantID = &tid
	}
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fault.Transient(err)
	}
	return list, nil
}

// Approve admits a PENDING membership request
func (s *Service) Approve(ctx context.Context, actor *Principal, id PrincipalID) (*Principal, error) {
	return s.transition(ctx, actor, id, []Status{StatusPending}, StatusApproved, "", audit.TypeMemberApproved)
}

// Reject refuses a PENDING request. reason is mandatory and kept on record.
func (s *Service) Reject(ctx context.Context, actor *Principal, id PrincipalID, reason string) (*Principal, error) {
	return s.transition(ctx, actor, id, []Status{StatusPending}, StatusRejected, reason, audit.TypeMemberRejected)
}

// Suspend blocks an APPROVED member and revokes outstanding sessions
func (s *Service) Suspend(ctx context.Context, actor *Principal, id PrincipalID, reason string) (*Principal, error) {
	return s.transition(ctx, actor, id, []Status{StatusApproved}, StatusSuspended, reason, audit.TypeMemberSuspended)
}

// Reinstate returns a SUSPENDED member to APPROVED
func (s *Service) Reinstate(ctx context.Context, actor *Principal, id PrincipalID) (*Principal, error) {
	return s.transition(ctx, actor, id, []Status{StatusSuspended}, StatusApproved, "", audit.TypeMemberReinstated)
}

func (s *Service) transition(
	ctx context.Context,
	actor *Principal,
	id PrincipalID,
	from []Status,
	to Status,
	reason string,
	eventType string,
) (*Principal, error) {
	if !s.policy.IsGlobalAdmin(actor) {
		return nil, fault.Permission("global administrator required")
	}
	if actor.ID == id {
		return nil, fault.Permission("administrators cannot change their own membership")
	}

	m, err := s.repo.GetMembershipByID(ctx, id)
	if err != nil {
		return nil, fault.Transient(err)
	}
	p := m.Principal
	current := p.Status

	if !slices.Contains(from, current) {
		return nil, fault.Validation("membership cannot move from %s to %s", current, to)
	}
	reason = strings.TrimSpace(reason)
	if err := ValidateTransition(current, to, reason); err != nil {
		return nil, err
	}

	now := s.now()
	upd := PrincipalUpdate{
		ExpectedStatus:  &current,
		Status:          &to,
		StatusChangedAt: &now,
	}
	if to == StatusRejected || to == StatusSuspended {
		upd.RejectionReason = &reason
	}
	if err := s.repo.Update(ctx, id, upd); err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, err
		}
		return nil, fault.Transient(err)
	}

	p.Status = to
	p.StatusChangedAt = &now
	p.UpdatedAt = now
	if upd.RejectionReason != nil {
		p.RejectionReason = reason
	}

	metadata := map[string]any{audit.AttrFrom: string(current), audit.AttrTo: string(to)}
	if reason != "" {
		metadata[audit.AttrReason] = reason
	}

	// The suspension is already stored. Outstanding tokens are refused on
	// their next request by the membership re-check, so a revocation failure
	// is reported but does not undo or fail the transition.
	if to == StatusSuspended && s.revoker != nil {
		if err := s.revoker.RevokeAll(ctx, id); err != nil {
			slog.WarnContext(ctx, "sessions not revoked after suspension",
				logger.PrincipalID(string(id)),
				logger.Error(err),
			)
			metadata[audit.AttrRevoked] = false
		} else {
			s.auditLogger.Log(ctx, audit.Event{
				Type:     audit.TypeSessionsRevoked,
				TenantID: p.TenantRef(),
				ActorID:  string(actor.ID),
				Resource: string(id),
			})
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     eventType,
		TenantID: p.TenantRef(),
		ActorID:  string(actor.ID),
		Resource: string(id),
		Metadata: metadata,
	})
	return p, nil
}
