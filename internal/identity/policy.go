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

import "strings"

// AdminPolicy decides global administration rights.
type AdminPolicy struct {
	bootstrapID PrincipalID
}

// NewAdminPolicy creates a policy. bootstrapID names a principal that is
// always a global admin regardless of its stored role; empty disables it.
func NewAdminPolicy(bootstrapID string) (*AdminPolicy, error) {
	p := &AdminPolicy{}
	if strings.TrimSpace(bootstrapID) == "" {
		return p, nil
	}
	id, err := ParsePrincipalID(bootstrapID)
	if err != nil {
		return nil, err
	}
	p.bootstrapID = id
	return p, nil
}

// IsGlobalAdmin reports whether p may administer the whole platform
func (a *AdminPolicy) IsGlobalAdmin(p *Principal) bool {
	if p == nil {
		return false
	}
	switch ParseRole(string(p.Role)) {
	case RoleGlobalAdmin, RoleAdmin:
		return true
	}
	return a != nil && a.bootstrapID != "" && p.ID == a.bootstrapID
}
