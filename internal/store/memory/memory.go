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

// Package memory provides in-process repositories for tests and single-node
// development. All repositories created from one Store share a lock, so a
// membership read observes principal and tenant at the same instant.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/memberhub/memberhub/internal/feature"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/tenant"
)

// Store holds all in-memory state
type Store struct {
	mu         sync.RWMutex
	principals map[identity.PrincipalID]*identity.Principal
	byEmail    map[string]identity.PrincipalID
	tenants    map[string]*tenant.Tenant
	features   map[feature.Scope]feature.Entry

	globalInserts int
}

// New creates an empty store
func New() *Store {
	return &Store{
		principals: make(map[identity.PrincipalID]*identity.Principal),
		byEmail:    make(map[string]identity.PrincipalID),
		tenants:    make(map[string]*tenant.Tenant),
		features:   make(map[feature.Scope]feature.Entry),
	}
}

// Principals returns the identity.Repository view of the store
func (s *Store) Principals() *PrincipalRepository { return &PrincipalRepository{s: s} }

// Tenants returns the tenant.Repository view of the store
func (s *Store) Tenants() *TenantRepository { return &TenantRepository{s: s} }

// Features returns the feature.Repository view of the store
func (s *Store) Features() *FeatureRepository { return &FeatureRepository{s: s} }

// PrincipalRepository implements identity.Repository
type PrincipalRepository struct{ s *Store }

func (r *PrincipalRepository) Create(ctx context.Context, p *identity.Principal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.byEmail[p.Email]; ok {
		return identity.ErrEmailTaken
	}
	cp := clonePrincipal(p)
	r.s.principals[p.ID] = cp
	r.s.byEmail[p.Email] = p.ID
	return nil
}

func (r *PrincipalRepository) GetMembershipByEmail(ctx context.Context, email string) (*identity.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byEmail[email]
	if !ok {
		return nil, identity.ErrPrincipalNotFound
	}
	return r.s.membership(id)
}

func (r *PrincipalRepository) GetMembershipByID(ctx context.Context, id identity.PrincipalID) (*identity.Membership, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.membership(id)
}

func (r *PrincipalRepository) Update(ctx context.Context, id identity.PrincipalID, upd identity.PrincipalUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.principals[id]
	if !ok {
		return identity.ErrPrincipalNotFound
	}
	if upd.ExpectedStatus != nil && p.Status != *upd.ExpectedStatus {
		return identity.ErrStatusConflict
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	if upd.RejectionReason != nil {
		p.RejectionReason = *upd.RejectionReason
	}
	if upd.StatusChangedAt != nil {
		t := *upd.StatusChangedAt
		p.StatusChangedAt = &t
	}
	if upd.LastAuthenticatedAt != nil {
		t := *upd.LastAuthenticatedAt
		p.LastAuthenticatedAt = &t
	}
	if upd.MFAEnabled != nil {
		p.MFAEnabled = *upd.MFAEnabled
	}
	if upd.MFASecret != nil {
		p.MFASecret = *upd.MFASecret
	}
	if upd.CredentialHash != nil {
		p.CredentialHash = *upd.CredentialHash
	}
	if upd.Role != nil {
		p.Role = *upd.Role
	}
	return nil
}

func (r *PrincipalRepository) List(ctx context.Context, f identity.ListFilter) ([]*identity.Principal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*identity.Principal
	for _, p := range r.s.principals {
		if f.TenantID != nil && p.TenantRef() != *f.TenantID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		out = append(out, clonePrincipal(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, f.Limit, f.Offset), nil
}

// membership must be called with the lock held
func (s *Store) membership(id identity.PrincipalID) (*identity.Membership, error) {
	p, ok := s.principals[id]
	if !ok {
		return nil, identity.ErrPrincipalNotFound
	}
	m := &identity.Membership{Principal: clonePrincipal(p)}
	if ref := p.TenantRef(); ref != "" {
		if t, ok := s.tenants[ref]; ok {
			cp := *t
			m.Tenant = &cp
		}
	}
	return m, nil
}

func clonePrincipal(p *identity.Principal) *identity.Principal {
	cp := *p
	if p.TenantID != nil {
		tid := *p.TenantID
		cp.TenantID = &tid
	}
	cp.Role = identity.ParseRole(string(p.Role))
	cp.Status = identity.ParseStatus(string(p.Status))
	return &cp
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// TenantRepository implements tenant.Repository
type TenantRepository struct{ s *Store }

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *t
	r.s.tenants[t.ID] = &cp
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tenants[t.ID]; !ok {
		return tenant.ErrTenantNotFound
	}
	cp := *t
	r.s.tenants[t.ID] = &cp
	return nil
}

func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*tenant.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return page(out, limit, offset), nil
}

// FeatureRepository implements feature.Repository
type FeatureRepository struct{ s *Store }

func (r *FeatureRepository) Get(ctx context.Context, scope feature.Scope) (feature.Entry, error) {
	if err := ctx.Err(); err != nil {
		return feature.Entry{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	entry, ok := r.s.features[scope]
	if !ok {
		return feature.Entry{}, nil
	}
	return cloneEntry(entry), nil
}

func (r *FeatureRepository) EnsureGlobal(ctx context.Context, defaults feature.Set) (feature.Entry, error) {
	if err := ctx.Err(); err != nil {
		return feature.Entry{}, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry, ok := r.s.features[feature.GlobalScope]; ok {
		return cloneEntry(entry), nil
	}
	entry := feature.Entry{Set: defaults.Clone(), Found: true, Version: 1}
	r.s.features[feature.GlobalScope] = entry
	r.s.globalInserts++
	return cloneEntry(entry), nil
}

func (r *FeatureRepository) Put(ctx context.Context, scope feature.Scope, set feature.Set) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	version := r.s.features[scope].Version + 1
	r.s.features[scope] = feature.Entry{Set: set.Clone(), Found: true, Version: version}
	return version, nil
}

func cloneEntry(e feature.Entry) feature.Entry {
	e.Set = e.Set.Clone()
	return e
}

// GlobalInserts reports how many times the global set was created
func (r *FeatureRepository) GlobalInserts() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.globalInserts
}
