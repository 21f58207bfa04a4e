// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAdminNotFound = errors.New("admin not found")
	ErrEmailInUse    = errors.New("admin email already in use")
)

// RoleAdmin is the only role the CMS grants.
const RoleAdmin = "admin"

// AdminStatus is the account state. Inactive admins keep their record but
// cannot sign in or use a previously issued token.
type AdminStatus string

const (
	AdminActive   AdminStatus = "active"
	AdminInactive AdminStatus = "inactive"
)

// Admin is a CMS operator account.
type Admin struct {
	ID           uuid.UUID   `db:"id" json:"id"`
	Name         string      `db:"name" json:"name"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	Role         string      `db:"role" json:"role"`
	Status       AdminStatus `db:"status" json:"status"`
	TOTPSecret   *string     `db:"totp_secret" json:"-"` // set during 2FA setup
	TOTPEnabled  bool        `db:"totp_enabled" json:"totpEnabled"`
	LastLoginAt  *time.Time  `db:"last_login_at" json:"lastLogin"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updatedAt"`
}

// IsActive reports whether the account may authenticate.
func (a *Admin) IsActive() bool {
	return a.Status == AdminActive
}

// LoginInput is the body of a sign-in request. Code is the TOTP code and is
// only required once two-factor authentication is enabled.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"omitempty,len=6"`
}

// RegisterInput creates an admin account. bcrypt ignores bytes past 72.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// CredentialsInput changes the caller's own profile. Absent fields are
// left alone; every change requires the current password.
type CredentialsInput struct {
	Name            *string `json:"name" validate:"omitempty,max=100"`
	Email           *string `json:"email" validate:"omitempty,email,max=254"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"omitempty,min=8,max=72"`
}

// NormalizeEmail folds an address to the form stored and compared.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
