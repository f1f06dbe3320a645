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
	"time"

	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/tenant"
)

// IdentifyRequest is the pre-login lookup
type IdentifyRequest struct {
	Email string `json:"email"`
}

// Identify tells the login page whether to ask for a password and which
// branding to show
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
	var req IdentifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.engine.Identify(r.Context(), identity.NormalizeEmail(req.Email))
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, id)
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	MFACode  string `json:"mfa_code,omitempty"`
}

// LoginResponse carries an issued session
type LoginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Principal *identity.Principal `json:"principal"`
}

// Login authenticates a member and issues a session. A principal with MFA
// enabled and no code gets 202 and must retry with mfa_code.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.engine.Authenticate(r.Context(), identity.NormalizeEmail(req.Email), req.Password, req.MFACode)
	if err != nil {
		respondFault(w, r, err)
		return
	}

	if out.MFARequired {
		respondJSON(w, http.StatusAccepted, map[string]bool{"mfa_required": true})
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     out.Credential.Token,
		ExpiresAt: out.Credential.ExpiresAt,
		Principal: out.Principal,
	})
}

// RegisterRequest represents a self-service membership request
type RegisterRequest struct {
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// Register files a PENDING membership in an active association
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.identityService.Register(r.Context(), identity.RegisterInput{
		TenantID: req.TenantID,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

// CurrentMemberResponse is the authenticated caller's view of itself
type CurrentMemberResponse struct {
	Principal *identity.Principal `json:"principal"`
	Tenant    *tenant.Tenant      `json:"tenant,omitempty"`
	Branding  tenant.Branding     `json:"branding"`
	IsAdmin   bool                `json:"is_global_admin"`
}

// GetCurrentMember returns the authenticated principal
func (h *Handler) GetCurrentMember(w http.ResponseWriter, r *http.Request) {
	m := GetMembership(r.Context())
	respondJSON(w, http.StatusOK, CurrentMemberResponse{
		Principal: m.Principal,
		Tenant:    m.Tenant,
		Branding:  tenant.BrandingFor(m.Tenant),
		IsAdmin:   h.engine.IsGlobalAdmin(m.Principal),
	})
}

// MFACodeRequest carries a one-time code
type MFACodeRequest struct {
	Code string `json:"code"`
}

// EnrollMFA generates a TOTP secret for the caller
func (h *Handler) EnrollMFA(w http.ResponseWriter, r *http.Request) {
	enrollment, err := h.mfaService.Enroll(r.Context(), GetPrincipal(r.Context()).ID)
	if err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, enrollment)
}

// ConfirmMFA enables MFA once the caller proves possession of the secret
func (h *Handler) ConfirmMFA(w http.ResponseWriter, r *http.Request) {
	var req MFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.mfaService.Confirm(r.Context(), GetPrincipal(r.Context()).ID, req.Code); err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": true})
}

// DisableMFA turns MFA off for the caller
func (h *Handler) DisableMFA(w http.ResponseWriter, r *http.Request) {
	var req MFACodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.mfaService.Disable(r.Context(), GetPrincipal(r.Context()).ID, req.Code); err != nil {
		respondFault(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"mfa_enabled": false})
}
