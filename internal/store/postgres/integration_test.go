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

//go:build integration

package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/feature"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbURL := os.Getenv("MEMBERHUB_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("MEMBERHUB_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := New(ctx, Config{URL: dbURL, QueryTimeout: 5 * time.Second})
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(MigrateUp))
	_, err = db.pool.Exec(ctx, `TRUNCATE principals, tenants, feature_sets`)
	require.NoError(t, err)
	return db
}

func seedTenant(t *testing.T, db *DB, id string, status tenant.Status) *tenant.Tenant {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	tn := &tenant.Tenant{ID: id, Name: "Association " + id, Status: status, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, NewTenantRepository(db).Create(context.Background(), tn))
	return tn
}

func newPrincipal(email string, tenantID *string) *identity.Principal {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &identity.Principal{
		ID:             identity.PrincipalID(uuid.Must(uuid.NewV7()).String()),
		Email:          email,
		CredentialHash: "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
		Role:           identity.RoleMember,
		Status:         identity.StatusPending,
		TenantID:       tenantID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// TestPurpose: Validates that a membership read returns the principal and its tenant from a single statement.
// Scope: Database Integration Test
// Security: Authentication gate input integrity
// Expected: The tenant status and branding arrive with the principal; exact email matching applies.
// Test Case ID: PG-01
func TestPrincipalRepository_Membership(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	tn := seedTenant(t, db, "t-1", tenant.StatusInactive)

	repo := NewPrincipalRepository(db)
	p := newPrincipal("a@a.com.br", &tn.ID)
	require.NoError(t, repo.Create(ctx, p))

	m, err := repo.GetMembershipByEmail(ctx, "a@a.com.br")
	require.NoError(t, err)
	assert.Equal(t, p.ID, m.Principal.ID)
	require.NotNil(t, m.Tenant)
	assert.Equal(t, tenant.StatusInactive, m.Tenant.Status)

	_, err = repo.GetMembershipByEmail(ctx, "A@A.com.br")
	assert.ErrorIs(t, err, identity.ErrPrincipalNotFound)

	err = repo.Create(ctx, newPrincipal("a@a.com.br", nil))
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

// TestPurpose: Validates compare-and-set status updates.
// Scope: Database Integration Test
// Security: Race-free membership transitions
// Expected: An update whose expected status no longer matches reports a conflict; a missing id reports not found.
// Test Case ID: PG-02
func TestPrincipalRepository_CompareAndSet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewPrincipalRepository(db)
	p := newPrincipal("cas@example.com", nil)
	require.NoError(t, repo.Create(ctx, p))

	pending, approved, rejected := identity.StatusPending, identity.StatusApproved, identity.StatusRejected
	require.NoError(t, repo.Update(ctx, p.ID, identity.PrincipalUpdate{ExpectedStatus: &pending, Status: &approved}))

	err := repo.Update(ctx, p.ID, identity.PrincipalUpdate{ExpectedStatus: &pending, Status: &rejected})
	assert.ErrorIs(t, err, identity.ErrStatusConflict)

	err = repo.Update(ctx, identity.PrincipalID("404"), identity.PrincipalUpdate{Status: &approved})
	assert.ErrorIs(t, err, identity.ErrPrincipalNotFound)

	m, err := repo.GetMembershipByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, identity.StatusApproved, m.Principal.Status)
	assert.Nil(t, m.Tenant)
}

// TestPurpose: Validates that concurrent first reads create the global feature set once.
// Scope: Database Integration Test
// Security: Feature flag consistency
// Expected: Every caller observes the same global set and exactly one row exists.
// Test Case ID: PG-03
func TestFeatureRepository_EnsureGlobal(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewFeatureRepository(db)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := repo.EnsureGlobal(ctx, feature.BuiltinDefaults())
			assert.NoError(t, err)
			assert.Equal(t, feature.BuiltinDefaults(), entry.Set)
			assert.Equal(t, int64(1), entry.Version)
		}()
	}
	wg.Wait()

	var rows int
	require.NoError(t, db.pool.QueryRow(ctx, `SELECT count(*) FROM feature_sets`).Scan(&rows))
	assert.Equal(t, 1, rows)

	tenantID := "t-9"
	scope := feature.ScopeFor(&tenantID)
	version, err := repo.Put(ctx, scope, feature.Set{feature.KeyVoting: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	version, err = repo.Put(ctx, scope, feature.Set{feature.KeyVoting: false})
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	entry, err := repo.Get(ctx, scope)
	require.NoError(t, err)
	assert.True(t, entry.Found)
	assert.Equal(t, int64(2), entry.Version)
	assert.Equal(t, feature.Set{feature.KeyVoting: false}, entry.Set)
}
