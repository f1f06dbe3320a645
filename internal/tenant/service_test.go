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
	"testing"

	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Tenant), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, t *Tenant) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRepo) List(ctx context.Context, limit, offset int) ([]*Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*Tenant), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

// TestPurpose: Validates that tenant creation generates UUIDv7 identifiers and starts ACTIVE.
// Scope: Unit Test
// Security: Traceability and unique identification of tenants
// Expected: A new tenant is created with a valid UUIDv7 ID, the provided name and ACTIVE status.
// Test Case ID: TEN-01
func TestTenant_Service_CreateTenant_UUIDv7(t *testing.T) {
	repo := new(mockRepo)
	auditLogger := new(mockAudit)
	service := NewService(repo, auditLogger)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(t *Tenant) bool {
		uid, err := uuid.Parse(t.ID)
		return err == nil && uid.Version() == 7 && t.Name == "Associação Central"
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeTenantCreated && e.ActorID == "admin-1"
	})).Return()

	created, err := service.CreateTenant(ctx, "admin-1", "  Associação Central ", Branding{}, Contact{})

	require.NoError(t, err)
	assert.Equal(t, "Associação Central", created.Name)
	assert.Equal(t, StatusActive, created.Status)
	repo.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

// TestPurpose: Validates branding input validation on tenant creation.
// Scope: Unit Test
// Expected: A malformed primary colour is rejected with a ValidationError before storage is touched.
// Test Case ID: TEN-02
func TestTenant_Service_CreateTenant_RejectsBadColor(t *testing.T) {
	repo := new(mockRepo)
	service := NewService(repo, audit.NopLogger{})

	_, err := service.CreateTenant(context.Background(), "admin-1", "Assoc", Branding{PrimaryColor: "blue-ish"}, Contact{})

	assert.True(t, fault.IsKind(err, fault.KindValidation))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// TestPurpose: Validates tenant deactivation and rejection of unsupported status values.
// Scope: Unit Test
// Security: Tenant lifecycle gate
// Expected: INACTIVE is persisted and audited; arbitrary status strings are rejected.
// Test Case ID: TEN-03
func TestTenant_Service_SetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivate", func(t *testing.T) {
		repo := new(mockRepo)
		auditLogger := new(mockAudit)
		service := NewService(repo, auditLogger)

		repo.On("GetByID", ctx, "t-1").Return(&Tenant{ID: "t-1", Status: StatusActive}, nil)
		repo.On("Update", ctx, mock.MatchedBy(func(t *Tenant) bool { return t.Status == StatusInactive })).Return(nil)
		auditLogger.On("Log", ctx, mock.Anything).Return()

		updated, err := service.SetStatus(ctx, "admin-1", "t-1", "inactive")
		require.NoError(t, err)
		assert.Equal(t, StatusInactive, updated.Status)
		repo.AssertExpectations(t)
	})

	t.Run("unsupported", func(t *testing.T) {
		service := NewService(new(mockRepo), audit.NopLogger{})
		_, err := service.SetStatus(ctx, "admin-1", "t-1", "ARCHIVED")
		assert.True(t, fault.IsKind(err, fault.KindValidation))
	})

	t.Run("unknown tenant", func(t *testing.T) {
		repo := new(mockRepo)
		service := NewService(repo, audit.NopLogger{})
		repo.On("GetByID", ctx, "missing").Return(nil, ErrTenantNotFound)

		_, err := service.SetStatus(ctx, "admin-1", "missing", StatusInactive)
		assert.ErrorIs(t, err, fault.ErrNotFound)
	})
}

func TestTenant_Status_OnlyActiveAdmits(t *testing.T) {
	assert.True(t, ParseStatus(" active ").IsActive())
	assert.True(t, ParseStatus("ACTIVE").IsActive())
	for _, raw := range []string{"INACTIVE", "inactive", "", "SUSPENDED", "ativo"} {
		assert.False(t, ParseStatus(raw).IsActive(), raw)
	}
	var missing *Tenant
	assert.False(t, missing.IsActive())
}
