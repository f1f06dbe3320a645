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
	"strings"
	"time"
)

// Status is the lifecycle state of an association.
type Status string

// Status constants. Only StatusActive admits logins; every other value blocks.
const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// ParseStatus normalizes a stored status value.
func ParseStatus(raw string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(raw)))
}

// IsActive reports whether members of the tenant may authenticate.
func (s Status) IsActive() bool {
	return s == StatusActive
}

// Branding defaults applied per field when a tenant leaves one unset.
const (
	DefaultLogoLight    = "/static/branding/logo-light.svg"
	DefaultLogoDark     = "/static/branding/logo-dark.svg"
	DefaultPrimaryColor = "#1D4ED8"
)

// PlatformBranding is shown to principals without a tenant and to unknown
// identities. It is a constant, never tenant data.
var PlatformBranding = Branding{
	LogoLight:    DefaultLogoLight,
	LogoDark:     DefaultLogoDark,
	PrimaryColor: DefaultPrimaryColor,
}

// Branding holds the visual identity of an association
type Branding struct {
	LogoLight    string `json:"logo_light"`
	LogoDark     string `json:"logo_dark"`
	PrimaryColor string `json:"primary_color"`
}

// WithDefaults fills every empty field from the platform defaults.
func (b Branding) WithDefaults() Branding {
	if strings.TrimSpace(b.LogoLight) == "" {
		b.LogoLight = DefaultLogoLight
	}
	if strings.TrimSpace(b.LogoDark) == "" {
		b.LogoDark = DefaultLogoDark
	}
	if strings.TrimSpace(b.PrimaryColor) == "" {
		b.PrimaryColor = DefaultPrimaryColor
	}
	return b
}

// Contact holds the public contact fields of an association
type Contact struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

// Tenant represents an association owning members and configuration
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Branding  Branding  `json:"branding"`
	Contact   Contact   `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether members of t may authenticate.
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status.IsActive()
}
