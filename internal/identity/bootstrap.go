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
	"strings"

	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/audit"
)

// BootstrapInput names the first platform administrator
type BootstrapInput struct {
	Email    string
	Password string
	FullName string
}

// BootstrapService manages the initial initialization of the system
type BootstrapService struct {
	identityService *Service
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(identityService *Service) *BootstrapService {
	return &BootstrapService{identityService: identityService}
}

// Bootstrap creates an APPROVED platform-level global administrator when
// in.Email is set and no principal holds that email yet. It returns the
// principal id that now carries the role, or "" when nothing was configured.
func (b *BootstrapService) Bootstrap(ctx context.Context, in BootstrapInput) (PrincipalID, error) {
	s := b.identityService
	email := NormalizeEmail(in.Email)
	if email == "" {
		return "", nil
	}

	existing, err := s.repo.GetMembershipByEmail(ctx, email)
	switch {
	case err == nil:
		return existing.Principal.ID, nil
	case !errors.Is(err, ErrPrincipalNotFound):
		return "", fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	if len(in.Password) < 12 {
		return "", fmt.Errorf("bootstrap admin password must have at least 12 characters")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash bootstrap password: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate principal id: %w", err)
	}

	name := strings.TrimSpace(in.FullName)
	if name == "" {
		name = "Platform Administrator"
	}
	now := s.now()
	p := &Principal{
		ID:              PrincipalID(id.String()),
		Email:           email,
		CredentialHash:  hash,
		FullName:        name,
		Role:            RoleGlobalAdmin,
		Status:          StatusApproved,
		StatusChangedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return "", fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeMemberApproved,
		ActorID:  audit.ActorSystem,
		Resource: string(p.ID),
		Metadata: map[string]any{audit.AttrEmail: email, audit.AttrScope: "platform"},
	})
	return p.ID, nil
}
