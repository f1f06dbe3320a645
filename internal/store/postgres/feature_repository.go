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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/memberhub/memberhub/internal/feature"
)

// FeatureRepository implements feature.Repository over the feature_sets table
type FeatureRepository struct {
	db *DB
}

// NewFeatureRepository creates a new feature repository
func NewFeatureRepository(db *DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

// Get returns the stored entry for scope
func (r *FeatureRepository) Get(ctx context.Context, scope feature.Scope) (feature.Entry, error) {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()

	entry, err := r.scanEntry(ctx, scope)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return feature.Entry{}, nil
		}
		return feature.Entry{}, fmt.Errorf("failed to get feature set: %w", err)
	}
	return entry, nil
}

// EnsureGlobal inserts the global set when absent and returns whichever row won
func (r *FeatureRepository) EnsureGlobal(ctx context.Context, defaults feature.Set) (feature.Entry, error) {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()

	if _, err := r.db.pool.Exec(ctx, `
		INSERT INTO feature_sets (scope, flags) VALUES ($1, $2)
		ON CONFLICT (scope) DO NOTHING
	`, string(feature.GlobalScope), fromSet(defaults)); err != nil {
		return feature.Entry{}, fmt.Errorf("failed to create global feature set: %w", err)
	}

	entry, err := r.scanEntry(ctx, feature.GlobalScope)
	if err != nil {
		return feature.Entry{}, fmt.Errorf("failed to read global feature set: %w", err)
	}
	return entry, nil
}

// Put replaces the set stored for scope and bumps its version
func (r *FeatureRepository) Put(ctx context.Context, scope feature.Scope, set feature.Set) (int64, error) {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()

	var version int64
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO feature_sets (scope, flags, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (scope) DO UPDATE
		SET flags = EXCLUDED.flags, version = feature_sets.version + 1, updated_at = EXCLUDED.updated_at
		RETURNING version
	`, string(scope), fromSet(set)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to store feature set: %w", err)
	}
	return version, nil
}

func (r *FeatureRepository) scanEntry(ctx context.Context, scope feature.Scope) (feature.Entry, error) {
	var flags map[string]bool
	var version int64
	err := r.db.pool.QueryRow(ctx, `SELECT flags, version FROM feature_sets WHERE scope = $1`, string(scope)).Scan(&flags, &version)
	if err != nil {
		return feature.Entry{}, err
	}
	return feature.Entry{Set: toSet(flags), Found: true, Version: version}, nil
}

// Stored keys outside the closed set are ignored.
func toSet(flags map[string]bool) feature.Set {
	set := make(feature.Set, len(flags))
	for raw, on := range flags {
		if key, err := feature.ParseKey(raw); err == nil {
			set[key] = on
		}
	}
	return set
}

func fromSet(set feature.Set) map[string]bool {
	flags := make(map[string]bool, len(set))
	for key, on := range set {
		flags[string(key)] = on
	}
	return flags
}
