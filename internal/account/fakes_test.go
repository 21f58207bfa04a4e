// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"intekcms/internal/models"
)

// memRepo is an in-memory Repository with the store's email uniqueness
// rule. Reads hand out copies.
type memRepo struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]*models.Admin
	failAll   error
	failTouch error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[uuid.UUID]*models.Admin)}
}

func cloneAdmin(a *models.Admin) *models.Admin {
	cp := *a
	if a.TOTPSecret != nil {
		secret := *a.TOTPSecret
		cp.TOTPSecret = &secret
	}
	return &cp
}

func (r *memRepo) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	for _, a := range r.rows {
		if models.NormalizeEmail(a.Email) == models.NormalizeEmail(email) {
			return cloneAdmin(a), nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return nil, r.failAll
	}
	a, ok := r.rows[id]
	if !ok {
		return nil, models.ErrAdminNotFound
	}
	return cloneAdmin(a), nil
}

func (r *memRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return 0, r.failAll
	}
	return len(r.rows), nil
}

func (r *memRepo) emailTaken(email string, except uuid.UUID) bool {
	for _, a := range r.rows {
		if a.ID != except && models.NormalizeEmail(a.Email) == models.NormalizeEmail(email) {
			return true
		}
	}
	return false
}

func (r *memRepo) Create(_ context.Context, a *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(a.Email, uuid.Nil) {
		return models.ErrEmailInUse
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	r.rows[a.ID] = cloneAdmin(a)
	return nil
}

func (r *memRepo) Update(_ context.Context, a *models.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[a.ID]
	if !ok {
		return models.ErrAdminNotFound
	}
	if r.emailTaken(a.Email, a.ID) {
		return models.ErrEmailInUse
	}
	stored.Name, stored.Email, stored.PasswordHash = a.Name, a.Email, a.PasswordHash
	stored.Role, stored.Status = a.Role, a.Status
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memRepo) TouchLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.mutate(id, func(a *models.Admin) error {
		if r.failTouch != nil {
			return r.failTouch
		}
		a.LastLoginAt = &at
		return nil
	})
}

func (r *memRepo) SetTOTPSecret(_ context.Context, id uuid.UUID, secret string) error {
	return r.mutate(id, func(a *models.Admin) error {
		a.TOTPSecret, a.TOTPEnabled = &secret, false
		return nil
	})
}

func (r *memRepo) EnableTOTP(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(a *models.Admin) error {
		a.TOTPEnabled = true
		return nil
	})
}

func (r *memRepo) ResetTOTP(_ context.Context, id uuid.UUID) error {
	return r.mutate(id, func(a *models.Admin) error {
		a.TOTPSecret, a.TOTPEnabled = nil, false
		return nil
	})
}

func (r *memRepo) mutate(id uuid.UUID, fn func(*models.Admin) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.rows[id]
	if !ok {
		return models.ErrAdminNotFound
	}
	return fn(a)
}

func (r *memRepo) get(id uuid.UUID) *models.Admin {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAdmin(r.rows[id])
}

// fakeTokens issues readable tokens and records the last subject.
type fakeTokens struct {
	subject string
	ttl     time.Duration
	err     error
}

func (f *fakeTokens) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.subject, f.ttl = subject, ttl
	return fmt.Sprintf("token:%s:%s", role, subject), nil
}

var errBoom = errors.New("connection refused")
