// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
)

// RoleAdmin is the role claim required on admin routes.
const RoleAdmin = models.RoleAdmin

const tokenIssuer = "intekcms"

type contextKey string

// AdminKey is the context key under which RequireAdmin stores the caller.
const AdminKey contextKey = "admin"

// AdminIdentity is the verified caller of an admin route.
type AdminIdentity struct {
	Subject string
	Role    string
	Email   string
}

// AdminClaims is the JWT payload of an admin bearer token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var errMissingToken = errors.New("missing bearer token")

// AccountResolver loads the account behind a token subject. It returns an
// apperr Unauthorized error for unknown subjects and Forbidden for accounts
// that may not sign in. It is satisfied by *account.Service.
type AccountResolver interface {
	Authenticate(ctx context.Context, subject string) (*models.Admin, error)
}

// Authenticator issues and verifies HS256 bearer tokens.
type Authenticator struct {
	secret   []byte
	accounts AccountResolver
	now      func() time.Time
}

// NewAuthenticator creates an Authenticator signing with secret. When
// accounts is set, RequireAdmin also checks that the token's subject is an
// existing, active admin; tokens then stop working as soon as the account
// is deactivated or removed.
func NewAuthenticator(secret string, accounts AccountResolver) *Authenticator {
	return &Authenticator{secret: []byte(secret), accounts: accounts, now: time.Now}
}

// WithAccounts returns a copy of a that also resolves each token's subject
// through accounts. It lets the account service, which issues tokens with
// a, be wired in after both exist.
func (a *Authenticator) WithAccounts(accounts AccountResolver) *Authenticator {
	cp := *a
	cp.accounts = accounts
	return &cp
}

// IssueToken signs a token for subject with the given role, valid for ttl.
func (a *Authenticator) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := a.now()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a signed token and returns its claims.
func (a *Authenticator) Verify(token string) (*AdminClaims, error) {
	claims := new(AdminClaims)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid bearer token (401), whose
// token lacks the admin role (403), or whose account is missing (401) or
// inactive (403). On success the caller is stored in the request context.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		claims, err := a.Verify(token)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"path":   r.URL.Path,
				"remote": clientIP(r),
			}).WithError(err).Warn("rejected bearer token")
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if claims.Role != RoleAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}

		identity := &AdminIdentity{Subject: claims.Subject, Role: claims.Role}
		if a.accounts != nil {
			admin, err := a.accounts.Authenticate(r.Context(), claims.Subject)
			if err != nil {
				a.rejectAccount(w, r, claims.Subject, err)
				return
			}
			identity = &AdminIdentity{Subject: admin.ID.String(), Role: admin.Role, Email: admin.Email}
		}

		ctx := context.WithValue(r.Context(), AdminKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) rejectAccount(w http.ResponseWriter, r *http.Request, subject string, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.Internal {
		logrus.WithError(err).WithField("subject", subject).Error("account lookup failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	logrus.WithFields(logrus.Fields{
		"path":    r.URL.Path,
		"subject": subject,
		"reason":  appErr.Message,
	}).Warn("rejected admin account")
	writeError(w, appErr.Kind.Status(), appErr.Message)
}

// AdminFromCtx returns the caller stored by RequireAdmin, or nil.
func AdminFromCtx(ctx context.Context) *AdminIdentity {
	id, _ := ctx.Value(AdminKey).(*AdminIdentity)
	return id
}

func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingToken
	}
	return token, nil
}
