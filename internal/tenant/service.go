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

package tenant

import (
	"context"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
)

// Service provides tenant management business logic.
// Callers are responsible for establishing that actorID may manage tenants;
// the service records who acted.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new tenant service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CreateTenant creates a new ACTIVE association
func (s *Service) CreateTenant(ctx context.Context, actorID, name string, branding Branding, contact Contact) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, validation.Required, validation.Length(1, 200)); err != nil {
		return nil, fault.Validation("tenant name: %v", err)
	}
	if err := validateBranding(branding); err != nil {
		return nil, err
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate tenant id: %w", err)
	}

	now := s.now()
	t := &Tenant{
		ID:        id.String(),
		Name:      name,
		Status:    StatusActive,
		Branding:  branding,
		Contact:   contact,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", fault.Transient(err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: t.ID,
		ActorID:  actorID,
		Resource: "tenant",
		Metadata: map[string]any{"name": t.Name},
	})

	return t, nil
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTenants lists tenants with pagination
func (s *Service) ListTenants(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// SetStatus activates or deactivates an association. Deactivation blocks
// every member login from the next decision on.
func (s *Service) SetStatus(ctx context.Context, actorID, id string, status Status) (*Tenant, error) {
	status = ParseStatus(string(status))
	if status != StatusActive && status != StatusInactive {
		return nil, fault.Validation("unsupported tenant status %q", status)
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := t.Status
	if previous == status {
		return t, nil
	}

	t.Status = status
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant status: %w", fault.Transient(err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantStatusChange,
		TenantID: t.ID,
		ActorID:  actorID,
		Resource: "tenant",
		Metadata: map[string]any{audit.AttrFrom: string(previous), audit.AttrTo: string(status)},
	})

	return t, nil
}

// UpdateBranding replaces the branding of an association. Empty fields fall
// back to the platform defaults when displayed.
func (s *Service) UpdateBranding(ctx context.Context, actorID, id string, branding Branding) (*Tenant, error) {
	if err := validateBranding(branding); err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Branding = branding
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant branding: %w", fault.Transient(err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantBranding,
		TenantID: t.ID,
		ActorID:  actorID,
		Resource: "tenant",
	})

	return t, nil
}

// UpdateContact replaces the contact fields of an association
func (s *Service) UpdateContact(ctx context.Context, actorID, id string, contact Contact) (*Tenant, error) {
	if err := validateContact(contact); err != nil {
		return nil, err
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	t.Contact = contact
	t.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to update tenant contact: %w", fault.Transient(err))
	}
	return t, nil
}

func validateBranding(b Branding) error {
	err := validation.ValidateStruct(&b,
		validation.Field(&b.LogoLight, validation.Length(0, 2048)),
		validation.Field(&b.LogoDark, validation.Length(0, 2048)),
		validation.Field(&b.PrimaryColor, is.HexColor),
	)
	if err != nil {
		return fault.Validation("branding: %v", err)
	}
	return nil
}

func validateContact(c Contact) error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Email, is.EmailFormat),
		validation.Field(&c.Phone, validation.Length(0, 32)),
		validation.Field(&c.Website, is.URL),
	)
	if err != nil {
		return fault.Validation("contact: %v", err)
	}
	return nil
}
