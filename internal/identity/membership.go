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
	"strings"

	"github.com/memberhub/memberhub/internal/fault"
	"github.com/memberhub/memberhub/internal/tenant"
)

// transitions lists the allowed membership moves. REJECTED has no exits.
var transitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected},
	StatusApproved:  {StatusSuspended},
	StatusSuspended: {StatusApproved},
}

// CanTransition reports whether from -> to is an allowed move
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks a requested membership move. Rejections must
// carry a non-empty reason.
func ValidateTransition(from, to Status, reason string) error {
	if !CanTransition(from, to) {
		return fault.Validation("membership cannot move from %s to %s", from, to)
	}
	if to == StatusRejected && strings.TrimSpace(reason) == "" {
		return fault.Validation("a rejection reason is required")
	}
	return nil
}

// BlockReason explains why a principal may not authenticate
type BlockReason string

const (
	ReasonNone           BlockReason = ""
	ReasonNoPrincipal    BlockReason = "no_principal"
	ReasonPending        BlockReason = "pending"
	ReasonRejected       BlockReason = "rejected"
	ReasonSuspended      BlockReason = "suspended"
	ReasonUnknownStatus  BlockReason = "unknown_status"
	ReasonTenantInactive BlockReason = "tenant_inactive"
	ReasonTenantMissing  BlockReason = "tenant_missing"
)

// Decision is the outcome of the authentication gate
type Decision struct {
	Allowed bool
	Reason  BlockReason
}

// Err maps a denied decision onto its error kind: tenant problems surface as
// TenantInactive, everything else as AccountBlocked.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonTenantInactive || d.Reason == ReasonTenantMissing:
		return fault.New(fault.KindTenantInactive, "association is inactive")
	default:
		return fault.New(fault.KindAccountBlocked, "account is not active: "+string(d.Reason))
	}
}

// CanAuthenticate is the single gate shared by identification and login.
// It admits only APPROVED principals whose tenant, if any, is ACTIVE. A
// tenant reference that does not resolve is treated as inactive.
func CanAuthenticate(p *Principal, t *tenant.Tenant) Decision {
	if p == nil {
		return Decision{Reason: ReasonNoPrincipal}
	}
	switch p.Status {
	case StatusApproved:
	case StatusPending:
		return Decision{Reason: ReasonPending}
	case StatusRejected:
		return Decision{Reason: ReasonRejected}
	case StatusSuspended:
		return Decision{Reason: ReasonSuspended}
	default:
		return Decision{Reason: ReasonUnknownStatus}
	}
	if p.TenantRef() == "" {
		return Decision{Allowed: true}
	}
	if t == nil {
		return Decision{Reason: ReasonTenantMissing}
	}
	if !t.IsActive() {
		return Decision{Reason: ReasonTenantInactive}
	}
	return Decision{Allowed: true}
}

// CanAuthenticate applies the gate to the snapshot
func (m *Membership) CanAuthenticate() Decision {
	if m == nil {
		return Decision{Reason: ReasonNoPrincipal}
	}
	return CanAuthenticate(m.Principal, m.Tenant)
}
