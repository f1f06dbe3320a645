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
	"testing"

	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, p *Principal) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) GetMembershipByEmail(ctx context.Context, email string) (*Membership, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *mockRepo) GetMembershipByID(ctx context.Context, id PrincipalID) (*Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Membership), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, id PrincipalID, upd PrincipalUpdate) error {
	return m.Called(ctx, id, upd).Error(0)
}

func (m *mockRepo) List(ctx context.Context, filter ListFilter) ([]*Principal, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*Principal), args.Error(1)
}

type mockTenants struct {
	mock.Mock
}

func (m *mockTenants) Create(ctx context.Context, t *tenant.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTenants) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tenant.Tenant), args.Error(1)
}

func (m *mockTenants) Update(ctx context.Context, t *tenant.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTenants) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*tenant.Tenant), args.Error(1)
}

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) RevokeAll(ctx context.Context, id PrincipalID) error {
	return m.Called(ctx, id).Error(0)
}

type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func newTestService(repo *mockRepo, tenants *mockTenants) *Service {
	policy, _ := NewAdminPolicy("")
	hasher := NewPasswordHasher(8*1024, 1, 1, 16, 32)
	return NewService(repo, tenants, hasher, policy, audit.NopLogger{})
}

var admin = &Principal{ID: "1", Role: RoleGlobalAdmin, Status: StatusApproved}

func member(id PrincipalID, status Status) *Membership {
	tid := "t-1"
	return &Membership{
		Principal: &Principal{ID: id, Role: RoleMember, Status: status, TenantID: &tid},
		Tenant:    &tenant.Tenant{ID: tid, Status: tenant.StatusActive},
	}
}

// TestPurpose: Validates self-service registration.
// Scope: Unit Test
// Security: New members start PENDING and cannot authenticate until approved
// Expected: The stored principal is PENDING, a member, bound to the tenant, with a hashed credential.
// Test Case ID: IDN-05
func TestIdentity_Service_Register(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	tenants := new(mockTenants)
	s := newTestService(repo, tenants)

	tenants.On("GetByID", ctx, "t-1").Return(&tenant.Tenant{ID: "t-1", Status: tenant.StatusActive}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(p *Principal) bool {
		return p.Status == StatusPending && p.Role == RoleMember && p.TenantRef() == "t-1" &&
			p.Email == "Ana@Example.org" && p.CredentialHash != "" && p.CredentialHash != "longenough"
	})).Return(nil)

	p, err := s.Register(ctx, RegisterInput{TenantID: "t-1", Email: " Ana@Example.org ", Password: "longenough", FullName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, p.Status)
	assert.False(t, CanAuthenticate(p, &tenant.Tenant{ID: "t-1", Status: tenant.StatusActive}).Allowed)
	repo.AssertExpectations(t)

	t.Run("inactive association", func(t *testing.T) {
		tenants := new(mockTenants)
		tenants.On("GetByID", ctx, "t-2").Return(&tenant.Tenant{ID: "t-2", Status: tenant.StatusInactive}, nil)
		s := newTestService(new(mockRepo), tenants)
		_, err := s.Register(ctx, RegisterInput{TenantID: "t-2", Email: "b@example.org", Password: "longenough", FullName: "B"})
		assert.ErrorIs(t, err, fault.ErrTenantInactive)
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newTestService(new(mockRepo), new(mockTenants))
		_, err := s.Register(ctx, RegisterInput{TenantID: "t-1", Email: "not-an-email", Password: "short", FullName: "B"})
		assert.True(t, fault.IsKind(err, fault.KindValidation))
	})
}

// TestPurpose: Validates administrative membership transitions.
// Scope: Unit Test
// Security: Only global administrators move members through the lifecycle
// Expected: Approve/Reject/Suspend/Reinstate apply with compare-and-set; non-admins get PermissionError; rejection needs a reason.
// Test Case ID: IDN-06
func TestIdentity_Service_Transitions(t *testing.T) {
	ctx := context.Background()

	t.Run("approve", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusPending), nil)
		repo.On("Update", ctx, PrincipalID("9"), mock.MatchedBy(func(u PrincipalUpdate) bool {
			return *u.ExpectedStatus == StatusPending && *u.Status == StatusApproved && u.RejectionReason == nil
		})).Return(nil)

		p, err := s.Approve(ctx, admin, "9")
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, p.Status)
		repo.AssertExpectations(t)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusPending), nil)

		_, err := s.Reject(ctx, admin, "9", " ")
		assert.True(t, fault.IsKind(err, fault.KindValidation))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reject keeps reason", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusPending), nil)
		repo.On("Update", ctx, PrincipalID("9"), mock.MatchedBy(func(u PrincipalUpdate) bool {
			return *u.Status == StatusRejected && *u.RejectionReason == "incomplete documents"
		})).Return(nil)

		p, err := s.Reject(ctx, admin, "9", "incomplete documents")
		require.NoError(t, err)
		assert.Equal(t, "incomplete documents", p.RejectionReason)
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusRejected), nil)

		_, err := s.Approve(ctx, admin, "9")
		assert.True(t, fault.IsKind(err, fault.KindValidation))
		_, err = s.Reinstate(ctx, admin, "9")
		assert.True(t, fault.IsKind(err, fault.KindValidation))
	})

	t.Run("suspend revokes sessions", func(t *testing.T) {
		repo := new(mockRepo)
		revoker := new(mockRevoker)
		s := newTestService(repo, new(mockTenants)).WithSessionRevoker(revoker)
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusApproved), nil)
		repo.On("Update", ctx, PrincipalID("9"), mock.Anything).Return(nil)
		revoker.On("RevokeAll", ctx, PrincipalID("9")).Return(nil)

		p, err := s.Suspend(ctx, admin, "9", "")
		require.NoError(t, err)
		assert.Equal(t, StatusSuspended, p.Status)
		revoker.AssertExpectations(t)
	})

	t.Run("suspend survives revocation failure", func(t *testing.T) {
		repo := new(mockRepo)
		revoker := new(mockRevoker)
		events := &recordingAudit{}
		policy, _ := NewAdminPolicy("")
		s := NewService(repo, new(mockTenants), NewPasswordHasher(8*1024, 1, 1, 16, 32), policy, events).
			WithSessionRevoker(revoker)
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusApproved), nil)
		repo.On("Update", ctx, PrincipalID("9"), mock.Anything).Return(nil).Once()
		revoker.On("RevokeAll", ctx, PrincipalID("9")).Return(errors.New("redis: connection refused"))

		p, err := s.Suspend(ctx, admin, "9", "unpaid dues")
		require.NoError(t, err)
		assert.Equal(t, StatusSuspended, p.Status)

		require.Len(t, events.events, 1)
		assert.Equal(t, audit.TypeMemberSuspended, events.events[0].Type)
		assert.Equal(t, false, events.events[0].Metadata[audit.AttrRevoked])
		repo.AssertExpectations(t)
	})

	t.Run("concurrent change", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(member("9", StatusSuspended), nil)
		repo.On("Update", ctx, PrincipalID("9"), mock.Anything).Return(ErrStatusConflict)

		_, err := s.Reinstate(ctx, admin, "9")
		assert.ErrorIs(t, err, ErrStatusConflict)
	})

	t.Run("storage failure is transient", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		repo.On("GetMembershipByID", ctx, PrincipalID("9")).Return(nil, errors.New("connection reset"))

		_, err := s.Approve(ctx, admin, "9")
		assert.ErrorIs(t, err, fault.ErrTransient)
	})

	t.Run("member cannot approve", func(t *testing.T) {
		repo := new(mockRepo)
		s := newTestService(repo, new(mockTenants))
		socio := &Principal{ID: "5", Role: "SOCIO", Status: StatusApproved}

		_, err := s.Approve(ctx, socio, "9")
		assert.ErrorIs(t, err, fault.ErrPermission)
		repo.AssertNotCalled(t, "GetMembershipByID", mock.Anything, mock.Anything)
	})

	t.Run("admin cannot suspend self", func(t *testing.T) {
		s := newTestService(new(mockRepo), new(mockTenants))
		_, err := s.Suspend(ctx, admin, admin.ID, "")
		assert.ErrorIs(t, err, fault.ErrPermission)
	})
}

func TestIdentity_Service_ListMembers(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	s := newTestService(repo, new(mockTenants))
	pending := StatusPending
	repo.On("List", ctx, mock.MatchedBy(func(f ListFilter) bool {
		return f.TenantID != nil && *f.TenantID == "t-1" && *f.Status == StatusPending && f.Limit == 50
	})).Return([]*Principal{member("9", StatusPending).Principal}, nil)

	list, err := s.ListMembers(ctx, admin, "t-1", &pending, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	bogus := Status("WHATEVER")
	_, err = s.ListMembers(ctx, admin, "t-1", &bogus, 0, 0)
	assert.True(t, fault.IsKind(err, fault.KindValidation))

	_, err = s.ListMembers(ctx, &Principal{ID: "5", Role: RoleMember}, "t-1", nil, 0, 0)
	assert.ErrorIs(t, err, fault.ErrPermission)
}

func TestIdentity_Bootstrap(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	s := newTestService(repo, new(mockTenants))
	b := NewBootstrapService(s)

	id, err := b.Bootstrap(ctx, BootstrapInput{})
	require.NoError(t, err)
	assert.Empty(t, id)

	repo.On("GetMembershipByEmail", ctx, "root@example.org").Return(nil, ErrPrincipalNotFound).Once()
	repo.On("Create", ctx, mock.MatchedBy(func(p *Principal) bool {
		return p.Role == RoleGlobalAdmin && p.Status == StatusApproved && p.TenantID == nil
	})).Return(nil)

	id, err = b.Bootstrap(ctx, BootstrapInput{Email: " root@example.org ", Password: "a-long-passphrase"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	repo.On("GetMembershipByEmail", ctx, "root@example.org").Return(&Membership{Principal: &Principal{ID: id}}, nil).Once()
	again, err := b.Bootstrap(ctx, BootstrapInput{Email: "root@example.org", Password: "a-long-passphrase"})
	require.NoError(t, err)
	assert.Equal(t, id, again)
	repo.AssertNumberOfCalls(t, "Create", 1)
}
