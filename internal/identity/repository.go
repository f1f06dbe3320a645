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
	"context"
	"time"

	"github.com/memberhub/memberhub/internal/fault"
)

var (
	ErrPrincipalNotFound = fault.NotFound("principal not found")
	ErrEmailTaken        = fault.Validation("email is already registered")
	// ErrStatusConflict means the stored status changed between read and write.
	ErrStatusConflict = fault.Validation("membership status changed concurrently")
)

// PrincipalUpdate carries the fields to change on a principal. Nil fields are
// left untouched. When ExpectedStatus is set the write only applies if the
// stored status still equals it.
type PrincipalUpdate struct {
	ExpectedStatus      *Status
	Status              *Status
	RejectionReason     *string
	StatusChangedAt     *time.Time
	LastAuthenticatedAt *time.Time
	MFAEnabled          *bool
	MFASecret           *string
	CredentialHash      *string
	Role                *Role
}

// ListFilter narrows a principal listing
type ListFilter struct {
	TenantID *string
	Status   *Status
	Limit    int
	Offset   int
}

// Repository defines the interface for principal storage.
// The membership reads return the principal and its tenant from a single
// consistent read.
type Repository interface {
	Create(ctx context.Context, p *Principal) error
	GetMembershipByEmail(ctx context.Context, email string) (*Membership, error)
	GetMembershipByID(ctx context.Context, id PrincipalID) (*Membership, error)
	Update(ctx context.Context, id PrincipalID, upd PrincipalUpdate) error
	List(ctx context.Context, filter ListFilter) ([]*Principal, error)
}

// SessionRevoker invalidates sessions already issued to a principal
type SessionRevoker interface {
	RevokeAll(ctx context.Context, id PrincipalID) error
}
