// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"intekcms/internal/account"
	"intekcms/internal/apperr"
	"intekcms/internal/middleware"
	"intekcms/internal/models"
)

// AccountService is the admin account API the auth handlers depend on. It
// is satisfied by *account.Service.
type AccountService interface {
	Login(ctx context.Context, in models.LoginInput) (*account.Session, error)
	Register(ctx context.Context, in models.RegisterInput) (*account.Session, error)
	UpdateCredentials(ctx context.Context, id uuid.UUID, in models.CredentialsInput) (*account.Session, error)
	Profile(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	SetupTwoFactor(ctx context.Context, id uuid.UUID) (*account.TwoFactorSetup, error)
	EnableTwoFactor(ctx context.Context, id uuid.UUID, code string) error
}

// Auth groups the admin authentication handlers.
type Auth struct {
	accounts AccountService
	dev      bool
}

// NewAuth creates the Auth handler group.
func NewAuth(accounts AccountService, env string) *Auth {
	return &Auth{accounts: accounts, dev: env == "development"}
}

// Login exchanges email, password and, once enabled, a TOTP code for a
// bearer token.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err, h.dev)
		return
	}
	sess, err := h.accounts.Login(r.Context(), in)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	okMessage(w, "Login successful", sess)
}

// Verify returns the account behind the caller's token.
func (h *Auth) Verify(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	admin, err := h.accounts.Profile(r.Context(), id)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	ok(w, http.StatusOK, admin)
}

// Register creates another admin account. Only signed-in admins reach it.
func (h *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err, h.dev)
		return
	}
	sess, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Message: "Admin registered successfully", Data: sess})
}

// UpdateCredentials changes the caller's own name, email or password.
func (h *Auth) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	var in models.CredentialsInput
	if err := decode(w, r, &in); err != nil {
		fail(w, r, err, h.dev)
		return
	}
	sess, err := h.accounts.UpdateCredentials(r.Context(), id, in)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	okMessage(w, "Credentials updated successfully", sess)
}

// SetupTwoFactor starts TOTP enrollment for the caller.
func (h *Auth) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	setup, err := h.accounts.SetupTwoFactor(r.Context(), id)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	ok(w, http.StatusOK, setup)
}

type twoFactorRequest struct {
	Code string `json:"code"`
}

// EnableTwoFactor confirms enrollment with a first code.
func (h *Auth) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		fail(w, r, err, h.dev)
		return
	}
	var req twoFactorRequest
	if err := decode(w, r, &req); err != nil {
		fail(w, r, err, h.dev)
		return
	}
	if err := h.accounts.EnableTwoFactor(r.Context(), id, req.Code); err != nil {
		fail(w, r, err, h.dev)
		return
	}
	okMessage(w, "Two-factor authentication enabled", nil)
}

// callerID returns the account id stored by RequireAdmin.
func callerID(r *http.Request) (uuid.UUID, error) {
	identity := middleware.AdminFromCtx(r.Context())
	if identity == nil {
		return uuid.Nil, apperr.New(apperr.Unauthorized, "Authentication required")
	}
	id, err := uuid.Parse(identity.Subject)
	if err != nil {
		return uuid.Nil, apperr.New(apperr.Unauthorized, "Invalid token")
	}
	return id, nil
}
