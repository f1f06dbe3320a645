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

package identity

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/tenant"
	"golang.org/x/text/cases"
)

// PrincipalID is the canonical textual form of a principal identifier.
// Legacy records carry small integers, newer ones UUIDs; both normalize to a
// single comparable string.
type PrincipalID string

func (id PrincipalID) String() string { return string(id) }

// ParsePrincipalID normalizes raw into a PrincipalID. Decimal integers lose
// leading zeros and UUIDs are lower-cased into their canonical hyphenated form.
func ParsePrincipalID(raw string) (PrincipalID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fault.Validation("principal id is required")
	}
	if isDecimal(s) {
		n, err := strconv.ParseUint(s, 10, 63)
		if err != nil {
			return "", fault.Validation("principal id %q is out of range", raw)
		}
		return PrincipalID(strconv.FormatUint(n, 10)), nil
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fault.Validation("principal id %q is neither an integer nor a UUID", raw)
	}
	return PrincipalID(u.String()), nil
}

// MustPrincipalID is ParsePrincipalID for identifiers known to be valid.
func MustPrincipalID(raw string) PrincipalID {
	id, err := ParsePrincipalID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

func isDecimal(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Role is the normalized role of a principal
type Role string

const (
	RoleGlobalAdmin Role = "global_admin"
	RoleAdmin       Role = "admin"
	RoleMember      Role = "member"
)

// roleSynonyms maps case-folded stored labels onto the internal role set.
// Anything not listed is a member.
var roleSynonyms = map[string]Role{
	"global_admin":   RoleGlobalAdmin,
	"globaladmin":    RoleGlobalAdmin,
	"super_admin":    RoleGlobalAdmin,
	"superadmin":     RoleGlobalAdmin,
	"platform_admin": RoleGlobalAdmin,
	"admin":          RoleAdmin,
	"administrator":  RoleAdmin,
	"administrador":  RoleAdmin,
	"member":         RoleMember,
	"socio":          RoleMember,
	"sócio":          RoleMember,
	"associado":      RoleMember,
	"user":           RoleMember,
}

// ParseRole folds a stored role label onto the internal role set.
func ParseRole(raw string) Role {
	// Casers carry state and are not shared between goroutines.
	key := strings.TrimSpace(cases.Fold().String(raw))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if r, ok := roleSynonyms[key]; ok {
		return r
	}
	return RoleMember
}

// Status is the membership lifecycle state of a principal
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusSuspended Status = "SUSPENDED"
	// StatusUnknown stands in for stored values outside the lifecycle. It
	// never authenticates.
	StatusUnknown Status = "UNKNOWN"
)

// ParseStatus upper-cases raw and maps anything unrecognized to StatusUnknown.
func ParseStatus(raw string) Status {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Known() {
		return StatusUnknown
	}
	return s
}

// Known reports whether s is one of the lifecycle states
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSuspended:
		return true
	}
	return false
}

// Principal is an authenticatable member or administrator
type Principal struct {
	ID                  PrincipalID `json:"id"`
	Email               string      `json:"email"`
	CredentialHash      string      `json:"-"`
	FullName            string      `json:"full_name"`
	Role                Role        `json:"role"`
	Status              Status      `json:"status"`
	TenantID            *string     `json:"tenant_id,omitempty"`
	MFAEnabled          bool        `json:"mfa_enabled"`
	MFASecret           string      `json:"-"`
	RejectionReason     string      `json:"rejection_reason,omitempty"`
	LastAuthenticatedAt *time.Time  `json:"last_authenticated_at,omitempty"`
	StatusChangedAt     *time.Time  `json:"status_changed_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// TenantRef returns the tenant id or "" for platform-level principals
func (p *Principal) TenantRef() string {
	if p == nil || p.TenantID == nil {
		return ""
	}
	return *p.TenantID
}

// Membership is a principal together with the tenant it belongs to, read as
// one consistent snapshot.
type Membership struct {
	Principal *Principal
	Tenant    *tenant.Tenant
}

// NormalizeEmail trims surrounding whitespace. Emails are otherwise matched
// exactly as stored.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
