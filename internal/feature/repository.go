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
	"strings"
)

// Scope identifies a stored feature set: the platform-wide set or one
// association's overrides.
type Scope string

// GlobalScope is the platform default set
const GlobalScope Scope = "global"

// ScopeFor maps an optional tenant id to its scope
func ScopeFor(tenantID *string) Scope {
	if tenantID == nil || strings.TrimSpace(*tenantID) == "" {
		return GlobalScope
	}
	return Scope("tenant:" + strings.TrimSpace(*tenantID))
}

// IsGlobal reports whether s is the platform scope
func (s Scope) IsGlobal() bool { return s == GlobalScope }

// Repository defines the interface for feature set storage
type Repository interface {
	// Get returns the stored entry for scope; Found is false when none exists.
	Get(ctx context.Context, scope Scope) (Entry, error)
	// EnsureGlobal stores defaults as the global set unless one already
	// exists, and returns whichever entry is stored afterwards.
	EnsureGlobal(ctx context.Context, defaults Set) (Entry, error)
	// Put replaces the stored set for scope in a single write and returns
	// the version it was stored under.
	Put(ctx context.Context, scope Scope, set Set) (int64, error)
}

// Entry is a stored or cached lookup result, including confirmed absence.
// Version grows with every write to the scope; an absent set is version 0.
type Entry struct {
	Set     Set   `json:"set,omitempty"`
	Found   bool  `json:"found"`
	Version int64 `json:"version"`
}

// Cache is an optional read-through cache in front of the Repository.
// Put must not replace a cached entry whose Version is higher than the one
// offered, so a reader holding an old row cannot shadow a newer write.
type Cache interface {
	Get(ctx context.Context, scope Scope) (entry Entry, hit bool, err error)
	Put(ctx context.Context, scope Scope, entry Entry) error
	Invalidate(ctx context.Context, scope Scope) error
}
