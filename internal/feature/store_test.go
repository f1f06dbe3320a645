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

package feature_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/feature"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/store/memory"
	"github.com/memberhub/memberhub/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *feature.Store
	features *memory.FeatureRepository
	tenantID string
}

func newFixture(t *testing.T, bootstrapID string) *fixture {
	t.Helper()
	mem := memory.New()
	tenantID := "t-1"
	require.NoError(t, mem.Tenants().Create(context.Background(), &tenant.Tenant{ID: tenantID, Status: tenant.StatusActive}))
	policy, err := identity.NewAdminPolicy(bootstrapID)
	require.NoError(t, err)
	return &fixture{
		store:    feature.NewStore(mem.Features(), mem.Tenants(), policy, feature.BuiltinDefaults(), audit.NopLogger{}),
		features: mem.Features(),
		tenantID: tenantID,
	}
}

var globalAdmin = &identity.Principal{ID: "1", Role: "GLOBAL_ADMIN", Status: identity.StatusApproved}

// TestPurpose: Validates that feature reads are idempotent and the global set is created at most once.
// Scope: Unit Test
// Expected: Repeated and concurrent reads return identical sets; exactly one global insert happens.
// Test Case ID: FEA-01
func TestFeature_Store_LazyGlobalOnce(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]feature.Set, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set, err := f.store.Get(ctx, nil)
			assert.NoError(t, err)
			results[i] = set
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, feature.BuiltinDefaults(), r)
	}
	first, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	second, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.features.GlobalInserts())
}

// TestPurpose: Validates write/read round trip and per-key fallback.
// Scope: Unit Test
// Expected: A tenant read after a write returns the written keys, with unwritten keys from the global set then the built-in table.
// Test Case ID: FEA-02
func TestFeature_Store_RoundTrip(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.store.Set(ctx, nil, map[string]bool{"marketplace": true}, globalAdmin)
	require.NoError(t, err)

	written, err := f.store.Set(ctx, &f.tenantID, map[string]bool{"voting": false, "finance": false}, globalAdmin)
	require.NoError(t, err)

	got, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.Equal(t, written, got)
	assert.False(t, got[feature.KeyVoting])
	assert.False(t, got[feature.KeyFinance])
	assert.True(t, got[feature.KeyMarketplace], "falls back to global set")
	assert.True(t, got[feature.KeyMembers], "falls back to built-in table")
	assert.Len(t, got, len(feature.Keys))

	// replacing drops keys that are no longer written
	_, err = f.store.Set(ctx, &f.tenantID, map[string]bool{"finance": false}, globalAdmin)
	require.NoError(t, err)
	got, err = f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.True(t, got[feature.KeyVoting])
}

// TestPurpose: Validates authorization of feature writes.
// Scope: Unit Test
// Security: Only global administrators change features
// Expected: A SOCIO member gets PermissionError; the configured bootstrap id succeeds whatever its role.
// Test Case ID: FEA-03
func TestFeature_Store_SetPermission(t *testing.T) {
	f := newFixture(t, "77")
	ctx := context.Background()

	socio := &identity.Principal{ID: "5", Role: "SOCIO", Status: identity.StatusApproved}
	_, err := f.store.Set(ctx, &f.tenantID, map[string]bool{"voting": false}, socio)
	assert.ErrorIs(t, err, fault.ErrPermission)

	_, err = f.store.Set(ctx, &f.tenantID, map[string]bool{"voting": false}, nil)
	assert.ErrorIs(t, err, fault.ErrPermission)

	bootstrap := &identity.Principal{ID: identity.MustPrincipalID("0077"), Role: "SOCIO"}
	set, err := f.store.Set(ctx, &f.tenantID, map[string]bool{"voting": false}, bootstrap)
	require.NoError(t, err)
	assert.False(t, set[feature.KeyVoting])
}

// TestPurpose: Validates rejection of unknown keys and tenants.
// Scope: Unit Test
// Expected: ValidationError and the stored set is left untouched.
// Test Case ID: FEA-04
func TestFeature_Store_SetValidation(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	_, err := f.store.Set(ctx, &f.tenantID, map[string]bool{"votng": false, "members": false}, globalAdmin)
	assert.True(t, fault.IsKind(err, fault.KindValidation))
	got, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.True(t, got[feature.KeyMembers])

	missing := "nope"
	_, err = f.store.Set(ctx, &missing, map[string]bool{"members": false}, globalAdmin)
	assert.True(t, fault.IsKind(err, fault.KindValidation))
}

type failingRepo struct{ feature.Repository }

func (failingRepo) Get(context.Context, feature.Scope) (feature.Entry, error) {
	return feature.Entry{}, errors.New("connection refused")
}

func TestFeature_Store_TransientFailure(t *testing.T) {
	policy, _ := identity.NewAdminPolicy("")
	s := feature.NewStore(failingRepo{}, nil, policy, nil, audit.NopLogger{})
	_, err := s.Get(context.Background(), nil)
	assert.ErrorIs(t, err, fault.ErrTransient)
}

// TestPurpose: Validates concurrent writes to one scope never produce a mixed set.
// Scope: Unit Test
// Expected: The final stored set equals one of the written sets in full.
// Test Case ID: FEA-05
func TestFeature_Store_ConcurrentWritesAreAtomic(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	a := map[string]bool{"voting": false, "finance": false, "events": false}
	b := map[string]bool{"voting": true, "finance": true, "events": true}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := a
			if i%2 == 0 {
				w = b
			}
			_, err := f.store.Set(ctx, &f.tenantID, w, globalAdmin)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.True(t, got[feature.KeyVoting] == got[feature.KeyFinance] && got[feature.KeyFinance] == got[feature.KeyEvents])
}

type recordingCache struct {
	mu          sync.Mutex
	entries     map[feature.Scope]feature.Entry
	invalidated []feature.Scope
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: map[feature.Scope]feature.Entry{}}
}

func (c *recordingCache) Get(_ context.Context, scope feature.Scope) (feature.Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[scope]
	return e, ok, nil
}

func (c *recordingCache) Put(_ context.Context, scope feature.Scope, e feature.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[scope]; ok && cur.Version > e.Version {
		return nil
	}
	c.entries[scope] = e
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, scope feature.Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, scope)
	c.invalidated = append(c.invalidated, scope)
	return nil
}

func (c *recordingCache) entry(scope feature.Scope) (feature.Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[scope]
	return e, ok
}

// TestPurpose: Validates that a feature write refreshes the cache with the written set.
// Scope: Unit Test
// Expected: The cached entry for the scope carries the new set and version; the next read sees it.
// Test Case ID: FEA-06
func TestFeature_Store_CacheWriteThrough(t *testing.T) {
	f := newFixture(t, "")
	cache := newRecordingCache()
	f.store.WithCache(cache)
	ctx := context.Background()
	scope := feature.ScopeFor(&f.tenantID)

	_, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	entry, ok := cache.entry(scope)
	require.True(t, ok)
	assert.False(t, entry.Found)

	_, err = f.store.Set(ctx, &f.tenantID, map[string]bool{"voting": false}, globalAdmin)
	require.NoError(t, err)
	entry, ok = cache.entry(scope)
	require.True(t, ok)
	assert.True(t, entry.Found)
	assert.Equal(t, int64(1), entry.Version)
	assert.Empty(t, cache.invalidated)

	got, err := f.store.Get(ctx, &f.tenantID)
	require.NoError(t, err)
	assert.False(t, got[feature.KeyVoting])
}

// stallingRepo holds the first read of one scope after fetching it, until
// released, to interleave a write between a reader's fetch and its cache fill.
type stallingRepo struct {
	feature.Repository
	scope   feature.Scope
	once    sync.Once
	fetched chan struct{}
	release chan struct{}
}

func (r *stallingRepo) Get(ctx context.Context, scope feature.Scope) (feature.Entry, error) {
	entry, err := r.Repository.Get(ctx, scope)
	if scope == r.scope {
		r.once.Do(func() {
			close(r.fetched)
			<-r.release
		})
	}
	return entry, err
}

// TestPurpose: Validates that a reader holding a pre-write row cannot leave it in the cache.
// Scope: Unit Test
// Security: Feature changes take effect immediately when a cache is configured
// Expected: After a write that races a cache-missing read, reads return the written set.
// Test Case ID: FEA-07
func TestFeature_Store_SlowReaderDoesNotShadowWrite(t *testing.T) {
	mem := memory.New()
	tenantID := "t-1"
	ctx := context.Background()
	require.NoError(t, mem.Tenants().Create(ctx, &tenant.Tenant{ID: tenantID, Status: tenant.StatusActive}))
	policy, err := identity.NewAdminPolicy("")
	require.NoError(t, err)

	repo := &stallingRepo{
		Repository: mem.Features(),
		scope:      feature.ScopeFor(&tenantID),
		fetched:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	cache := newRecordingCache()
	store := feature.NewStore(repo, mem.Tenants(), policy, feature.BuiltinDefaults(), audit.NopLogger{}).WithCache(cache)

	done := make(chan struct{})
	go func() {
		defer close(done)
		set, err := store.Get(ctx, &tenantID)
		assert.NoError(t, err)
		assert.True(t, set[feature.KeyVoting], "reader observed the row before the write")
	}()

	<-repo.fetched
	_, err = store.Set(ctx, &tenantID, map[string]bool{"voting": false}, globalAdmin)
	require.NoError(t, err)
	close(repo.release)
	<-done

	got, err := store.Get(ctx, &tenantID)
	require.NoError(t, err)
	assert.False(t, got[feature.KeyVoting])
}
