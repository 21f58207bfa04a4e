// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"intekcms/internal/models"
)

const adminTable = "admins"

var adminColumns = []string{
	"id", "name", "email", "password_hash", "role", "status",
	"totp_secret", "totp_enabled", "last_login_at", "created_at", "updated_at",
}

// AdminStore handles admin account persistence. Password hashing happens
// in the account service; the store only sees hashes.
type AdminStore struct {
	pool *pgxpool.Pool
}

// NewAdminStore returns a new AdminStore.
func NewAdminStore(pool *pgxpool.Pool) *AdminStore {
	return &AdminStore{pool: pool}
}

// FindByEmail returns the admin with the given address, compared case
// insensitively. Returns nil if not found.
func (s *AdminStore) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	q := psql().Select(adminColumns...).From(adminTable).
		Where(sq.Expr("lower(email) = lower(?)", email)).
		Limit(1)

	a, err := s.getAdmin(ctx, q)
	if errors.Is(err, models.ErrAdminNotFound) {
		return nil, nil
	}
	return a, err
}

// FindByID returns the admin or models.ErrAdminNotFound.
func (s *AdminStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	q := psql().Select(adminColumns...).From(adminTable).Where(sq.Eq{"id": id}).Limit(1)
	return s.getAdmin(ctx, q)
}

// Count returns the number of admin accounts.
func (s *AdminStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql().Select("COUNT(*)").From(adminTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to generate count query: %w", err)
	}

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

// Create inserts a and fills in the generated id and timestamps. An address
// already on file yields models.ErrEmailInUse.
func (s *AdminStore) Create(ctx context.Context, a *models.Admin) error {
	query, args, err := psql().Insert(adminTable).SetMap(map[string]any{
		"name":          a.Name,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          a.Role,
		"status":        string(a.Status),
	}).Suffix("RETURNING id, created_at, updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert query: %w", err)
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return models.ErrEmailInUse
	}
	if err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

// Update writes the profile fields of a (name, email, password hash, role
// and status) and advances a.UpdatedAt.
func (s *AdminStore) Update(ctx context.Context, a *models.Admin) error {
	query, args, err := psql().Update(adminTable).SetMap(map[string]any{
		"name":          a.Name,
		"email":         a.Email,
		"password_hash": a.PasswordHash,
		"role":          a.Role,
		"status":        string(a.Status),
		"updated_at":    time.Now(),
	}).Where(sq.Eq{"id": a.ID}).Suffix("RETURNING updated_at").ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update query for admin %s: %w", a.ID, err)
	}

	err = s.pool.QueryRow(ctx, query, args...).Scan(&a.UpdatedAt)
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return models.ErrEmailInUse
	case errors.Is(err, pgx.ErrNoRows):
		return models.ErrAdminNotFound
	default:
		return fmt.Errorf("failed to update admin %s: %w", a.ID, err)
	}
}

// TouchLogin records a successful sign-in.
func (s *AdminStore) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.exec(ctx, "record login", id, map[string]any{"last_login_at": at})
}

// SetTOTPSecret stores a freshly generated secret. 2FA stays disabled until
// the first code is verified.
func (s *AdminStore) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	return s.exec(ctx, "set totp secret", id, map[string]any{
		"totp_secret":  secret,
		"totp_enabled": false,
		"updated_at":   time.Now(),
	})
}

// EnableTOTP marks 2FA as enabled after the first successful verification.
func (s *AdminStore) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "enable totp", id, map[string]any{
		"totp_enabled": true,
		"updated_at":   time.Now(),
	})
}

// ResetTOTP clears the secret and disables 2FA.
func (s *AdminStore) ResetTOTP(ctx context.Context, id uuid.UUID) error {
	return s.exec(ctx, "reset totp", id, map[string]any{
		"totp_secret":  nil,
		"totp_enabled": false,
		"updated_at":   time.Now(),
	})
}

// Delete removes an admin account.
func (s *AdminStore) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql().Delete(adminTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete query: %w", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAdminNotFound
	}
	return nil
}

func (s *AdminStore) exec(ctx context.Context, op string, id uuid.UUID, set map[string]any) error {
	query, args, err := psql().Update(adminTable).SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate %s query: %w", op, err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s for admin %s: %w", op, id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrAdminNotFound
	}
	return nil
}

func (s *AdminStore) getAdmin(ctx context.Context, q sq.SelectBuilder) (*models.Admin, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate admin query: %w", err)
	}

	var a models.Admin
	err = pgxscan.Get(ctx, s.pool, &a, query, args...)
	if pgxscan.NotFound(err) {
		return nil, models.ErrAdminNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch admin: %w", err)
	}
	return &a, nil
}
