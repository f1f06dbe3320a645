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

package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/feature"
)

// FeaturesResponse is a resolved feature set
type FeaturesResponse struct {
	Scope    feature.Scope `json:"scope"`
	Features feature.Set   `json:"features"`
}

// FeaturesRequest replaces the stored set of a scope
type FeaturesRequest struct {
	Features map[string]bool `json:"features"`
}

// GetFeatures returns the resolved set for ?tenant_id=, or the global set.
// Anonymous callers may only read the global set; members only their own
// tenant.
func (h *Handler) GetFeatures(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantQuery(r)
	if tenantID != nil {
		p := GetPrincipal(r.Context())
		if p == nil {
			respondError(w, http.StatusUnauthorized, string(fault.KindInvalidCredentials), "not authenticated")
			return
		}
		if !h.engine.IsGlobalAdmin(p) && feature.ScopeFor(tenantID) != feature.ScopeFor(p.TenantID) {
			respondFault(w, r, fault.Permission("cannot read another association's features"))
			return
		}
	}

	set, err := h.features.Get(r.Context(), tenantID)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, FeaturesResponse{Scope: feature.ScopeFor(tenantID), Features: set})
}

// PutFeatures replaces the feature set of ?tenant_id=, or the global set
func (h *Handler) PutFeatures(w http.ResponseWriter, r *http.Request) {
	var req FeaturesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	tenantID := tenantQuery(r)
	set, err := h.features.Set(r.Context(), tenantID, req.Features, GetPrincipal(r.Context()))
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, FeaturesResponse{Scope: feature.ScopeFor(tenantID), Features: set})
}

// FeatureAccess reports whether the caller may use a feature. The tenant
// defaults to the caller's own.
func (h *Handler) FeatureAccess(w http.ResponseWriter, r *http.Request) {
	p := GetPrincipal(r.Context())
	tenantID := tenantQuery(r)
	if tenantID == nil {
		tenantID = p.TenantID
	}

	key := chi.URLParam(r, "key")
	allowed, err := h.engine.AuthorizeFeature(r.Context(), tenantID, key, p)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"feature": strings.ToLower(key),
		"allowed": allowed,
	})
}

func tenantQuery(r *http.Request) *string {
	v := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if v == "" {
		return nil
	}
	return &v
}
