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
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/memberhub/memberhub/internal/tenant"
)

// CreateTenantRequest represents tenant creation data
type CreateTenantRequest struct {
	Name     string          `json:"name"`
	Branding tenant.Branding `json:"branding"`
	Contact  tenant.Contact  `json:"contact"`
}

// TenantStatusRequest activates or deactivates an association
type TenantStatusRequest struct {
	Status string `json:"status"`
}

// CreateTenant handles tenant creation
func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tenantService.CreateTenant(r.Context(), actorID(r), req.Name, req.Branding, req.Contact)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, t)
}

// ListTenants lists associations with ?limit= and ?offset=
func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	tenants, err := h.tenantService.ListTenants(r.Context(), limit, offset)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	if tenants == nil {
		tenants = []*tenant.Tenant{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// GetTenant returns one association
func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.tenantService.GetTenant(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// SetTenantStatus activates or deactivates an association
func (h *Handler) SetTenantStatus(w http.ResponseWriter, r *http.Request) {
	var req TenantStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tenantService.SetStatus(r.Context(), actorID(r), chi.URLParam(r, "tenantID"), tenant.Status(req.Status))
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// UpdateTenantBranding replaces an association's branding
func (h *Handler) UpdateTenantBranding(w http.ResponseWriter, r *http.Request) {
	var req tenant.Branding
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tenantService.UpdateBranding(r.Context(), actorID(r), chi.URLParam(r, "tenantID"), req)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

// UpdateTenantContact replaces an association's contact fields
func (h *Handler) UpdateTenantContact(w http.ResponseWriter, r *http.Request) {
	var req tenant.Contact
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.tenantService.UpdateContact(r.Context(), actorID(r), chi.URLParam(r, "tenantID"), req)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, t)
}

func actorID(r *http.Request) string {
	if p := GetPrincipal(r.Context()); p != nil {
		return p.ID.String()
	}
	return ""
}
