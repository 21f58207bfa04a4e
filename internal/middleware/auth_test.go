// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
)

// okHandler records the identity it was called with.
func okHandler() (http.Handler, **AdminIdentity) {
	var seen *AdminIdentity
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AdminFromCtx(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return h, &seen
}

func serveWithToken(t *testing.T, h http.Handler, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/categories", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRequireAdmin_AcceptsAdminToken(t *testing.T) {
	auth := NewAuthenticator("test-secret", nil)
	token, err := auth.IssueToken("ops@intek", RoleAdmin, time.Hour)
	require.NoError(t, err)

	next, seen := okHandler()
	rr := serveWithToken(t, auth.RequireAdmin(next), "Bearer "+token)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, *seen)
	assert.Equal(t, "ops@intek", (*seen).Subject)
	assert.Equal(t, RoleAdmin, (*seen).Role)
}

func TestRequireAdmin_Rejections(t *testing.T) {
	auth := NewAuthenticator("test-secret", nil)
	editor, err := auth.IssueToken("editor", "editor", time.Hour)
	require.NoError(t, err)
	foreign, err := NewAuthenticator("other-secret", nil).IssueToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	past := NewAuthenticator("test-secret", nil)
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := past.IssueToken("ops", RoleAdmin, time.Hour)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, AdminClaims{Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"unsigned", "Bearer " + none, http.StatusUnauthorized},
		{"non-admin role", "Bearer " + editor, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, seen := okHandler()
			rr := serveWithToken(t, auth.RequireAdmin(next), tt.header)

			assert.Equal(t, tt.want, rr.Code)
			assert.Nil(t, *seen, "next handler must not run")
			assert.Contains(t, rr.Body.String(), `"success":false`)
		})
	}
}

func TestRequireAdmin_SchemeIsCaseInsensitive(t *testing.T) {
	auth := NewAuthenticator("test-secret", nil)
	token, err := auth.IssueToken("ops", RoleAdmin, time.Minute)
	require.NoError(t, err)

	next, _ := okHandler()
	rr := serveWithToken(t, auth.RequireAdmin(next), "bearer "+token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestIssueToken_Validation(t *testing.T) {
	auth := NewAuthenticator("test-secret", nil)

	_, err := auth.IssueToken("", RoleAdmin, time.Hour)
	assert.Error(t, err)
	_, err = auth.IssueToken("ops", RoleAdmin, 0)
	assert.Error(t, err)
}

func TestVerify_Claims(t *testing.T) {
	auth := NewAuthenticator("test-secret", nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return fixed }

	token, err := auth.IssueToken("ops", RoleAdmin, 30*time.Minute)
	require.NoError(t, err)

	claims, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, tokenIssuer, claims.Issuer)
	assert.Equal(t, fixed.Add(30*time.Minute), claims.ExpiresAt.Time)
}

func TestAdminFromCtx(t *testing.T) {
	assert.Nil(t, AdminFromCtx(context.Background()))
	assert.Nil(t, AdminFromCtx(context.WithValue(context.Background(), AdminKey, "not-an-identity")))

	id := &AdminIdentity{Subject: "ops", Role: RoleAdmin}
	assert.Same(t, id, AdminFromCtx(context.WithValue(context.Background(), AdminKey, id)))
}

// stubAccounts resolves subjects from a fixed table.
type stubAccounts struct {
	admins map[string]*models.Admin
	err    error
}

func (s *stubAccounts) Authenticate(_ context.Context, subject string) (*models.Admin, error) {
	if s.err != nil {
		return nil, s.err
	}
	a, ok := s.admins[subject]
	switch {
	case !ok:
		return nil, apperr.New(apperr.Unauthorized, "Invalid token")
	case !a.IsActive():
		return nil, apperr.New(apperr.Forbidden, "Account is inactive")
	}
	return a, nil
}

func TestRequireAdmin_AccountChecks(t *testing.T) {
	active := &models.Admin{ID: uuid.New(), Email: "ops@intek.example", Role: models.RoleAdmin, Status: models.AdminActive}
	inactive := &models.Admin{ID: uuid.New(), Email: "gone@intek.example", Role: models.RoleAdmin, Status: models.AdminInactive}
	accounts := &stubAccounts{admins: map[string]*models.Admin{
		active.ID.String():   active,
		inactive.ID.String(): inactive,
	}}
	auth := NewAuthenticator("test-secret", accounts)

	tests := []struct {
		name    string
		subject string
		want    int
		message string
	}{
		{"active account", active.ID.String(), http.StatusOK, ""},
		{"missing account", uuid.NewString(), http.StatusUnauthorized, "Invalid token"},
		{"inactive account", inactive.ID.String(), http.StatusForbidden, "Account is inactive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := auth.IssueToken(tt.subject, RoleAdmin, time.Hour)
			require.NoError(t, err)

			next, seen := okHandler()
			rr := serveWithToken(t, auth.RequireAdmin(next), "Bearer "+token)
			assert.Equal(t, tt.want, rr.Code)

			if tt.want != http.StatusOK {
				assert.Nil(t, *seen)
				assert.Contains(t, rr.Body.String(), `"message":"`+tt.message+`"`)
				return
			}
			require.NotNil(t, *seen)
			assert.Equal(t, active.ID.String(), (*seen).Subject)
			assert.Equal(t, active.Email, (*seen).Email)
		})
	}
}

func TestRequireAdmin_AccountLookupFailure(t *testing.T) {
	auth := NewAuthenticator("test-secret", &stubAccounts{err: errors.New("connection refused")})
	token, err := auth.IssueToken(uuid.NewString(), RoleAdmin, time.Hour)
	require.NoError(t, err)

	next, seen := okHandler()
	rr := serveWithToken(t, auth.RequireAdmin(next), "Bearer "+token)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Nil(t, *seen)
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestWithAccounts_SharesSecret(t *testing.T) {
	admin := &models.Admin{ID: uuid.New(), Role: models.RoleAdmin, Status: models.AdminActive}
	base := NewAuthenticator("test-secret", nil)
	guarded := base.WithAccounts(&stubAccounts{admins: map[string]*models.Admin{admin.ID.String(): admin}})

	token, err := base.IssueToken(admin.ID.String(), RoleAdmin, time.Hour)
	require.NoError(t, err)
	stranger, err := base.IssueToken(uuid.NewString(), RoleAdmin, time.Hour)
	require.NoError(t, err)

	next, _ := okHandler()
	assert.Equal(t, http.StatusOK, serveWithToken(t, guarded.RequireAdmin(next), "Bearer "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, serveWithToken(t, guarded.RequireAdmin(next), "Bearer "+stranger).Code)
	assert.Equal(t, http.StatusOK, serveWithToken(t, base.RequireAdmin(next), "Bearer "+stranger).Code, "base is unchanged")
}
