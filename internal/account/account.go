// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package account manages admin accounts: password sign-in, optional TOTP
// two-factor authentication, profile changes and the account checks behind
// every admin request. Passwords are stored as bcrypt hashes.
package account

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/crypto/bcrypt"

	"intekcms/internal/apperr"
	"intekcms/internal/models"
	"intekcms/internal/validate"
)

// TokenTTL is the lifetime of a token issued at sign-in.
const TokenTTL = 24 * time.Hour

const (
	totpIssuer = "Intek CMS"
	qrSize     = 256
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgInactive           = "Account is inactive"
	msgInvalidToken       = "Invalid token"
	msgEmailInUse         = "Email already in use"
	msgAdminNotFound      = "Admin not found"
	msgTwoFactorEnabled   = "Two-factor authentication is already enabled"
)

// Repository persists admin accounts. It is satisfied by *store.AdminStore.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, a *models.Admin) error
	Update(ctx context.Context, a *models.Admin) error
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
	ResetTOTP(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer signs bearer tokens. It is satisfied by
// *middleware.Authenticator.
type TokenIssuer interface {
	IssueToken(subject, role string, ttl time.Duration) (string, error)
}

// Session is the result of a sign-in: a bearer token and the account it
// belongs to.
type Session struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

// TwoFactorSetup is what an authenticator app needs to enroll.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauthUrl"`
	QRCode string `json:"qrCode"` // base64 PNG
}

// Service implements admin account operations.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	cost   int
	now    func() time.Time
}

// New creates a Service.
func New(repo Repository, tokens TokenIssuer) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		cost:   bcrypt.DefaultCost,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Login checks email and password and, when the account has two-factor
// authentication enabled, the TOTP code. Unknown addresses and wrong
// passwords get the same answer.
func (s *Service) Login(ctx context.Context, in models.LoginInput) (*Session, error) {
	in.Email = models.NormalizeEmail(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}

	a, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error during login", err)
	}
	if a == nil || !checkPassword(a, in.Password) {
		logrus.WithField("email", in.Email).Warn("failed login attempt")
		return nil, apperr.New(apperr.Unauthorized, msgInvalidCredentials)
	}
	if !a.IsActive() {
		return nil, apperr.New(apperr.Forbidden, msgInactive)
	}

	if a.TOTPEnabled {
		if in.Code == "" {
			return nil, apperr.Validation(apperr.FieldError{Field: "code", Message: "Two-factor code is required"})
		}
		if a.TOTPSecret == nil || !totp.Validate(in.Code, *a.TOTPSecret) {
			return nil, apperr.New(apperr.Unauthorized, "Invalid two-factor code")
		}
	}

	now := s.now()
	if err := s.repo.TouchLogin(ctx, a.ID, now); err != nil {
		logrus.WithError(err).WithField("admin_id", a.ID).Warn("failed to record login")
	} else {
		a.LastLoginAt = &now
	}

	logrus.WithField("admin_id", a.ID).Info("admin signed in")
	return s.session(a)
}

// CreateAdmin adds an active admin account.
func (s *Service) CreateAdmin(ctx context.Context, in models.RegisterInput) (*models.Admin, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = models.NormalizeEmail(in.Email)
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Error creating admin", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.Conflict, msgEmailInUse)
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	a := &models.Admin{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.AdminActive,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, storeError(err, "Error creating admin")
	}

	logrus.WithField("admin_id", a.ID).Info("admin created")
	return a, nil
}

// Register creates an admin account and returns a session for it.
func (s *Service) Register(ctx context.Context, in models.RegisterInput) (*Session, error) {
	a, err := s.CreateAdmin(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(a)
}

// UpdateCredentials changes the name, email or password of admin id. The
// current password is always required. A fresh token is returned because
// the profile it was issued for changed.
func (s *Service) UpdateCredentials(ctx context.Context, id uuid.UUID, in models.CredentialsInput) (*Session, error) {
	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		*in.Email = models.NormalizeEmail(*in.Email)
	}
	if err := validate.Struct(&in); err != nil {
		return nil, err
	}
	if err := validate.RequirePresent("name", in.Name); err != nil {
		return nil, err
	}
	if err := validate.RequirePresent("email", in.Email); err != nil {
		return nil, err
	}
	if in.CurrentPassword == "" {
		return nil, &apperr.Error{
			Kind:    apperr.ValidationFailed,
			Message: "Current password is required",
			Fields:  []apperr.FieldError{{Field: "currentPassword", Message: "Current password is required"}},
		}
	}

	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !checkPassword(a, in.CurrentPassword) {
		return nil, &apperr.Error{
			Kind:    apperr.ValidationFailed,
			Message: "Current password is incorrect",
			Fields:  []apperr.FieldError{{Field: "currentPassword", Message: "Current password is incorrect"}},
		}
	}

	if in.Email != nil && *in.Email != a.Email {
		other, err := s.repo.FindByEmail(ctx, *in.Email)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Error updating credentials", err)
		}
		if other != nil && other.ID != a.ID {
			return nil, apperr.New(apperr.Conflict, msgEmailInUse)
		}
		a.Email = *in.Email
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.NewPassword != "" {
		hash, err := s.hash(in.NewPassword)
		if err != nil {
			return nil, err
		}
		a.PasswordHash = hash
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, storeError(err, "Error updating credentials")
	}
	logrus.WithField("admin_id", a.ID).Info("admin credentials updated")
	return s.session(a)
}

// Profile returns admin id.
func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	return s.find(ctx, id)
}

// Authenticate resolves the subject of a verified token to its account. A
// subject with no account is Unauthorized; an inactive account or one
// without the admin role is Forbidden.
func (s *Service) Authenticate(ctx context.Context, subject string) (*models.Admin, error) {
	id, err := uuid.Parse(subject)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, msgInvalidToken)
	}

	a, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, models.ErrAdminNotFound) {
		return nil, apperr.New(apperr.Unauthorized, msgInvalidToken)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error during authentication", err)
	}
	if !a.IsActive() {
		return nil, apperr.New(apperr.Forbidden, msgInactive)
	}
	if a.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "Admin access required")
	}
	return a, nil
}

// SetupTwoFactor generates a new TOTP secret for admin id. Two-factor
// authentication is not enforced until EnableTwoFactor confirms a code.
func (s *Service) SetupTwoFactor(ctx context.Context, id uuid.UUID) (*TwoFactorSetup, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.TOTPEnabled {
		return nil, apperr.New(apperr.Conflict, msgTwoFactorEnabled)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: a.Email,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not generate two-factor secret", err)
	}
	if err := s.repo.SetTOTPSecret(ctx, a.ID, key.Secret()); err != nil {
		return nil, storeError(err, "Could not save two-factor secret")
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not render QR code", err)
	}
	return &TwoFactorSetup{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRCode: base64.StdEncoding.EncodeToString(png),
	}, nil
}

// EnableTwoFactor turns on two-factor authentication once code matches the
// secret from SetupTwoFactor.
func (s *Service) EnableTwoFactor(ctx context.Context, id uuid.UUID, code string) error {
	a, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if a.TOTPEnabled {
		return apperr.New(apperr.Conflict, msgTwoFactorEnabled)
	}
	if a.TOTPSecret == nil {
		return apperr.New(apperr.Conflict, "Two-factor setup has not been started")
	}
	if !totp.Validate(strings.TrimSpace(code), *a.TOTPSecret) {
		return apperr.Validation(apperr.FieldError{Field: "code", Message: "Invalid code. Please try again."})
	}

	if err := s.repo.EnableTOTP(ctx, a.ID); err != nil {
		return storeError(err, "Could not enable two-factor authentication")
	}
	logrus.WithField("admin_id", a.ID).Info("two-factor authentication enabled")
	return nil
}

// SetStatus activates or deactivates the admin with the given email.
// Deactivation takes effect on the account's next request.
func (s *Service) SetStatus(ctx context.Context, email string, status models.AdminStatus) (*models.Admin, error) {
	if status != models.AdminActive && status != models.AdminInactive {
		return nil, apperr.Validation(apperr.FieldError{Field: "status", Message: "status must be active or inactive"})
	}
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	a.Status = status
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, storeError(err, "Error updating admin")
	}
	logrus.WithFields(logrus.Fields{"admin_id": a.ID, "status": status}).Info("admin status changed")
	return a, nil
}

// ResetTwoFactor clears the TOTP secret of the admin with the given email,
// for operators who lost their authenticator.
func (s *Service) ResetTwoFactor(ctx context.Context, email string) error {
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.repo.ResetTOTP(ctx, a.ID); err != nil {
		return storeError(err, "Could not reset two-factor authentication")
	}
	logrus.WithField("admin_id", a.ID).Info("two-factor authentication reset")
	return nil
}

// IssueToken signs a token for the active admin with the given email.
func (s *Service) IssueToken(ctx context.Context, email string, ttl time.Duration) (string, error) {
	a, err := s.findByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !a.IsActive() {
		return "", apperr.New(apperr.Forbidden, msgInactive)
	}
	return s.tokens.IssueToken(a.ID.String(), a.Role, ttl)
}

// HasAdmins reports whether any account exists.
func (s *Service) HasAdmins(ctx context.Context) (bool, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, "Error counting admins", err)
	}
	return n > 0, nil
}

func (s *Service) session(a *models.Admin) (*Session, error) {
	token, err := s.tokens.IssueToken(a.ID.String(), a.Role, TokenTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Could not issue token", err)
	}
	return &Session{Token: token, Admin: a}, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Error fetching admin")
	}
	return a, nil
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.Admin, error) {
	a, err := s.repo.FindByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Error fetching admin", err)
	}
	if a == nil {
		return nil, apperr.New(apperr.NotFound, msgAdminNotFound)
	}
	return a, nil
}

func (s *Service) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "Could not hash password", err)
	}
	return string(hash), nil
}

func checkPassword(a *models.Admin, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, models.ErrAdminNotFound):
		return apperr.New(apperr.NotFound, msgAdminNotFound)
	case errors.Is(err, models.ErrEmailInUse):
		return apperr.New(apperr.Conflict, msgEmailInUse)
	default:
		return apperr.Wrap(apperr.Internal, msg, err)
	}
}
