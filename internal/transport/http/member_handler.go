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
	"github.com/memberhub/memberhub/internal/identity"
)

// ReasonRequest carries the justification for a rejection or suspension
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// GetMember returns a member; members may only read themselves
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := memberID(w, r)
	if !ok {
		return
	}
	p, err := h.identityService.GetMember(r.Context(), GetPrincipal(r.Context()), id)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ListMembers lists an association's members, optionally by ?status=
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	var status *identity.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := identity.ParseStatus(raw)
		status = &s
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	members, err := h.identityService.ListMembers(r.Context(), GetPrincipal(r.Context()), chi.URLParam(r, "tenantID"), status, limit, offset)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	if members == nil {
		members = []*identity.Principal{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// ApproveMember moves a PENDING or SUSPENDED member to APPROVED
func (h *Handler) ApproveMember(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *identity.Principal, id identity.PrincipalID, _ string) (*identity.Principal, error) {
		return h.identityService.Approve(r.Context(), actor, id)
	}, false)
}

// RejectMember moves a PENDING member to REJECTED; a reason is required
func (h *Handler) RejectMember(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *identity.Principal, id identity.PrincipalID, reason string) (*identity.Principal, error) {
		return h.identityService.Reject(r.Context(), actor, id, reason)
	}, true)
}

// SuspendMember moves an APPROVED member to SUSPENDED and revokes its sessions
func (h *Handler) SuspendMember(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *identity.Principal, id identity.PrincipalID, reason string) (*identity.Principal, error) {
		return h.identityService.Suspend(r.Context(), actor, id, reason)
	}, true)
}

// ReinstateMember moves a SUSPENDED member back to APPROVED
func (h *Handler) ReinstateMember(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(actor *identity.Principal, id identity.PrincipalID, _ string) (*identity.Principal, error) {
		return h.identityService.Reinstate(r.Context(), actor, id)
	}, false)
}

func (h *Handler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(actor *identity.Principal, id identity.PrincipalID, reason string) (*identity.Principal, error),
	withReason bool,
) {
	id, ok := memberID(w, r)
	if !ok {
		return
	}

	var req ReasonRequest
	if withReason && !decodeJSON(w, r, &req) {
		return
	}

	p, err := apply(GetPrincipal(r.Context()), id, req.Reason)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func memberID(w http.ResponseWriter, r *http.Request) (identity.PrincipalID, bool) {
	id, err := identity.ParsePrincipalID(chi.URLParam(r, "memberID"))
	if err != nil {
		respondFault(w, r, err)
		return "", false
	}
	return id, true
}
