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
	"strings"
)

// Resolver maps a principal's tenant reference to the association it belongs to.
type Resolver struct {
	repo Repository
}

// NewResolver creates a new tenant resolver
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve loads the tenant behind tenantID. A nil or blank reference denotes a
// platform-level principal and resolves to (nil, nil).
func (r *Resolver) Resolve(ctx context.Context, tenantID *string) (*Tenant, error) {
	if tenantID == nil || strings.TrimSpace(*tenantID) == "" {
		return nil, nil
	}
	return r.repo.GetByID(ctx, strings.TrimSpace(*tenantID))
}

// BrandingFor returns the branding to display for t, falling back to the
// platform branding when t is nil.
func BrandingFor(t *Tenant) Branding {
	if t == nil {
		return PlatformBranding
	}
	return t.Branding.WithDefaults()
}
