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

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_MembershipSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	tid := "t-1"
	require.NoError(t, s.Tenants().Create(ctx, &tenant.Tenant{ID: tid, Name: "Assoc", Status: tenant.StatusActive}))
	require.NoError(t, s.Principals().Create(ctx, &identity.Principal{
		ID: "1", Email: "a@a.com.br", Role: "SOCIO", Status: identity.StatusApproved, TenantID: &tid,
	}))

	m, err := s.Principals().GetMembershipByEmail(ctx, "a@a.com.br")
	require.NoError(t, err)
	assert.Equal(t, identity.RoleMember, m.Principal.Role)
	require.NotNil(t, m.Tenant)
	assert.Equal(t, "Assoc", m.Tenant.Name)

	// exact match only
	_, err = s.Principals().GetMembershipByEmail(ctx, "A@a.com.br")
	assert.ErrorIs(t, err, identity.ErrPrincipalNotFound)

	// returned values are copies
	m.Tenant.Status = tenant.StatusInactive
	again, _ := s.Principals().GetMembershipByID(ctx, "1")
	assert.Equal(t, tenant.StatusActive, again.Tenant.Status)
}

func TestMemory_UpdateCompareAndSet(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Principals().Create(ctx, &identity.Principal{ID: "1", Email: "x@y.z", Status: identity.StatusPending}))

	pending, approved := identity.StatusPending, identity.StatusApproved
	now := time.Now()
	require.NoError(t, s.Principals().Update(ctx, "1", identity.PrincipalUpdate{
		ExpectedStatus: &pending, Status: &approved, StatusChangedAt: &now,
	}))
	err := s.Principals().Update(ctx, "1", identity.PrincipalUpdate{ExpectedStatus: &pending, Status: &approved})
	assert.ErrorIs(t, err, identity.ErrStatusConflict)

	err = s.Principals().Create(ctx, &identity.Principal{ID: "2", Email: "x@y.z"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestMemory_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	tid := "t-1"
	base := time.Now()
	for i, st := range []identity.Status{identity.StatusPending, identity.StatusPending, identity.StatusApproved} {
		require.NoError(t, s.Principals().Create(ctx, &identity.Principal{
			ID:        identity.PrincipalID(string(rune('1' + i))),
			Email:     string(rune('a'+i)) + "@x.org",
			Status:    st,
			TenantID:  &tid,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	pending := identity.StatusPending
	list, err := s.Principals().List(ctx, identity.ListFilter{TenantID: &tid, Status: &pending, Limit: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, identity.PrincipalID("1"), list[0].ID)

	list, err = s.Principals().List(ctx, identity.ListFilter{TenantID: &tid, Status: &pending, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, identity.PrincipalID("2"), list[0].ID)
}
