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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/memberhub/memberhub/internal/identity"
	"github.com/memberhub/memberhub/internal/tenant"
)

const uniqueViolation = "23505"

// PrincipalRepository implements identity.Repository
type PrincipalRepository struct {
	db *DB
}

// NewPrincipalRepository creates a new principal repository
func NewPrincipalRepository(db *DB) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

// Principal and tenant come from one statement so that status changes to
// either cannot interleave between two reads.
const membershipSelect = `
	SELECT p.id, p.email, p.credential_hash, p.full_name, p.role, p.status, p.tenant_id,
		p.mfa_enabled, p.mfa_secret, p.rejection_reason, p.last_authenticated_at,
		p.status_changed_at, p.created_at, p.updated_at,
		t.id, t.name, t.status, t.logo_light, t.logo_dark, t.primary_color,
		t.contact_email, t.contact_phone, t.website, t.created_at, t.updated_at
	FROM principals p
	LEFT JOIN tenants t ON t.id = p.tenant_id
`

// Create creates a new principal
func (r *PrincipalRepository) Create(ctx context.Context, p *identity.Principal) error {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO principals (
			id, email, credential_hash, full_name, role, status, tenant_id,
			mfa_enabled, mfa_secret, rejection_reason, status_changed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		string(p.ID), p.Email, p.CredentialHash, p.FullName, string(p.Role), string(p.Status), p.TenantID,
		p.MFAEnabled, p.MFASecret, p.RejectionReason, p.StatusChangedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return identity.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert principal: %w", err)
	}
	return nil
}

// GetMembershipByEmail retrieves a principal and its tenant by exact email
func (r *PrincipalRepository) GetMembershipByEmail(ctx context.Context, email string) (*identity.Membership, error) {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()
	return scanMembership(r.db.pool.QueryRow(ctx, membershipSelect+` WHERE p.email = $1`, email))
}

// GetMembershipByID retrieves a principal and its tenant by id
func (r *PrincipalRepository) GetMembershipByID(ctx context.Context, id identity.PrincipalID) (*identity.Membership, error) {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()
	return scanMembership(r.db.pool.QueryRow(ctx, membershipSelect+` WHERE p.id = $1`, string(id)))
}

// Update applies the non-nil fields of upd in one statement
func (r *PrincipalRepository) Update(ctx context.Context, id identity.PrincipalID, upd identity.PrincipalUpdate) error {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()

	sets := []string{"updated_at = $2"}
	args := []any{string(id), time.Now()}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.RejectionReason != nil {
		add("rejection_reason", *upd.RejectionReason)
	}
	if upd.StatusChangedAt != nil {
		add("status_changed_at", *upd.StatusChangedAt)
	}
	if upd.LastAuthenticatedAt != nil {
		add("last_authenticated_at", *upd.LastAuthenticatedAt)
	}
	if upd.MFAEnabled != nil {
		add("mfa_enabled", *upd.MFAEnabled)
	}
	if upd.MFASecret != nil {
		add("mfa_secret", *upd.MFASecret)
	}
	if upd.CredentialHash != nil {
		add("credential_hash", *upd.CredentialHash)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}

	query := `UPDATE principals SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	if upd.ExpectedStatus != nil {
		args = append(args, string(*upd.ExpectedStatus))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	tag, err := r.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update principal: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM principals WHERE id = $1)`, string(id)).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check principal: %w", err)
	}
	if !exists {
		return identity.ErrPrincipalNotFound
	}
	return identity.ErrStatusConflict
}

// List lists principals, oldest first
func (r *PrincipalRepository) List(ctx context.Context, f identity.ListFilter) ([]*identity.Principal, error) {
	ctx, cancel := r.db.bound(ctx)
	defer cancel()

	var tenantID, status *string
	if f.TenantID != nil {
		tenantID = f.TenantID
	}
	if f.Status != nil {
		s := string(*f.Status)
		status = &s
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.pool.Query(ctx, membershipSelect+`
		WHERE ($1::text IS NULL OR p.tenant_id = $1)
		  AND ($2::text IS NULL OR p.status = $2)
		ORDER BY p.created_at, p.id
		LIMIT $3 OFFSET $4
	`, tenantID, status, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list principals: %w", err)
	}
	defer rows.Close()

	var out []*identity.Principal
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m.Principal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate principals: %w", err)
	}
	return out, nil
}

func scanMembership(row pgx.Row) (*identity.Membership, error) {
	var (
		p                        identity.Principal
		id, role, status         string
		tenantRef                *string
		tID, tName, tStatus      *string
		tLight, tDark, tColor    *string
		tEmail, tPhone, tWebsite *string
		tCreatedAt, tUpdatedAt   *time.Time
	)
	err := row.Scan(
		&id, &p.Email, &p.CredentialHash, &p.FullName, &role, &status, &tenantRef,
		&p.MFAEnabled, &p.MFASecret, &p.RejectionReason, &p.LastAuthenticatedAt,
		&p.StatusChangedAt, &p.CreatedAt, &p.UpdatedAt,
		&tID, &tName, &tStatus, &tLight, &tDark, &tColor,
		&tEmail, &tPhone, &tWebsite, &tCreatedAt, &tUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to scan principal: %w", err)
	}

	p.ID = identity.PrincipalID(id)
	if normalized, err := identity.ParsePrincipalID(id); err == nil {
		p.ID = normalized
	}
	p.Role = identity.ParseRole(role)
	p.Status = identity.ParseStatus(status)
	p.TenantID = tenantRef

	m := &identity.Membership{Principal: &p}
	if tID != nil {
		m.Tenant = &tenant.Tenant{
			ID:     *tID,
			Name:   deref(tName),
			Status: tenant.ParseStatus(deref(tStatus)),
			Branding: tenant.Branding{
				LogoLight:    deref(tLight),
				LogoDark:     deref(tDark),
				PrimaryColor: deref(tColor),
			},
			Contact: tenant.Contact{
				Email:   deref(tEmail),
				Phone:   deref(tPhone),
				Website: deref(tWebsite),
			},
		}
		if tCreatedAt != nil {
			m.Tenant.CreatedAt = *tCreatedAt
		}
		if tUpdatedAt != nil {
			m.Tenant.UpdatedAt = *tUpdatedAt
		}
	}
	return m, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
