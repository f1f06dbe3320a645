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

package feature

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/memberhub/memberhub/internal/audit"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/observability/logger"
	"github.com/memberhub/memberhub/internal/tenant"
	"golang.org/x/sync/singleflight"
)

// Store resolves and updates feature sets
type Store struct {
	repo        Repository
	tenants     *tenant.Resolver
	policy      *identity.AdminPolicy
	defaults    Set
	cache       Cache
	auditLogger audit.Logger
	group       singleflight.Group
}

// NewStore creates a feature store. defaults is the built-in table, possibly
// overridden by host configuration.
func NewStore(
	repo Repository,
	tenants tenant.Repository,
	policy *identity.AdminPolicy,
	defaults Set,
	auditLogger audit.Logger,
) *Store {
	if defaults == nil {
		defaults = BuiltinDefaults()
	}
	return &Store{
		repo:        repo,
		tenants:     tenant.NewResolver(tenants),
		policy:      policy,
		defaults:    defaults.Clone(),
		auditLogger: auditLogger,
	}
}

// WithCache puts a read-through cache in front of the repository
func (s *Store) WithCache(c Cache) *Store {
	s.cache = c
	return s
}

// Defaults returns a copy of the built-in table in use
func (s *Store) Defaults() Set {
	return s.defaults.Clone()
}

// Get returns the fully resolved feature set for tenantID, or the global set
// when tenantID is nil. The global set is created on first use.
func (s *Store) Get(ctx context.Context, tenantID *string) (Set, error) {
	global, err := s.global(ctx)
	if err != nil {
		return nil, err
	}
	scope := ScopeFor(tenantID)
	if scope.IsGlobal() {
		return Resolve(nil, global, s.defaults), nil
	}
	entry, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	return Resolve(entry.Set, global, s.defaults), nil
}

// Enabled resolves a single key for tenantID
func (s *Store) Enabled(ctx context.Context, tenantID *string, key Key) (bool, error) {
	set, err := s.Get(ctx, tenantID)
	if err != nil {
		return false, err
	}
	return set[key], nil
}

// Set replaces the stored set for tenantID (the global set when nil) with
// updates. Keys omitted from updates fall back on the next read. It returns
// the resolved result of the write.
func (s *Store) Set(ctx context.Context, tenantID *string, updates map[string]bool, actor *identity.Principal) (Set, error) {
	if !s.policy.IsGlobalAdmin(actor) {
		return nil, fault.Permission("global administrator required to change features")
	}
	written, err := ValidateUpdates(updates)
	if err != nil {
		return nil, err
	}

	scope := ScopeFor(tenantID)
	if !scope.IsGlobal() {
		if _, err := s.tenants.Resolve(ctx, tenantID); err != nil {
			if errors.Is(err, fault.ErrNotFound) {
				return nil, fault.Validation("unknown association %q", *tenantID)
			}
			return nil, fault.Transient(err)
		}
	}

	version, err := s.repo.Put(ctx, scope, written)
	if err != nil {
		return nil, fault.Transient(err)
	}
	if !s.remember(ctx, scope, Entry{Set: written, Found: true, Version: version}) {
		s.invalidate(ctx, scope)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeFeaturesUpdated,
		TenantID: tenantRef(tenantID),
		ActorID:  string(actor.ID),
		Resource: "features",
		Metadata: map[string]any{audit.AttrScope: string(scope), audit.AttrFeatures: written.String()},
	})

	if scope.IsGlobal() {
		return Resolve(nil, written, s.defaults), nil
	}
	global, err := s.global(ctx)
	if err != nil {
		return nil, err
	}
	return Resolve(written, global, s.defaults), nil
}

// global loads the platform set, creating it from the defaults if absent.
// Concurrent first reads share one creation attempt.
func (s *Store) global(ctx context.Context) (Set, error) {
	entry, err := s.load(ctx, GlobalScope)
	if err != nil {
		return nil, err
	}
	if entry.Found {
		return entry.Set, nil
	}

	v, err, _ := s.group.Do(string(GlobalScope), func() (any, error) {
		return s.repo.EnsureGlobal(ctx, s.defaults.Clone())
	})
	if err != nil {
		return nil, fault.Transient(err)
	}
	created := v.(Entry)
	s.remember(ctx, GlobalScope, created)
	return created.Set.Clone(), nil
}

func (s *Store) load(ctx context.Context, scope Scope) (Entry, error) {
	if s.cache != nil {
		entry, hit, err := s.cache.Get(ctx, scope)
		if err != nil {
			slog.WarnContext(ctx, "feature cache read failed", logger.Scope(string(scope)), logger.Error(err))
		} else if hit {
			return entry, nil
		}
	}

	entry, err := s.repo.Get(ctx, scope)
	if err != nil {
		return Entry{}, fault.Transient(err)
	}
	// A missing global set is never cached; it is about to be created.
	if entry.Found || !scope.IsGlobal() {
		s.remember(ctx, scope, entry)
	}
	return entry, nil
}

// remember offers entry to the cache; the cache keeps whichever version is
// newer. It reports false only when the cache write failed.
func (s *Store) remember(ctx context.Context, scope Scope, entry Entry) bool {
	if s.cache == nil {
		return true
	}
	if err := s.cache.Put(ctx, scope, entry); err != nil {
		slog.WarnContext(ctx, "feature cache write failed", logger.Scope(string(scope)), logger.Error(err))
		return false
	}
	return true
}

func (s *Store) invalidate(ctx context.Context, scope Scope) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, scope); err != nil {
		slog.WarnContext(ctx, "feature cache invalidation failed", logger.Scope(string(scope)), logger.Error(err))
	}
}

func tenantRef(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return strings.TrimSpace(*tenantID)
}
