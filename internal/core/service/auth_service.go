package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-api/internal/core/domain"
	"github.com/99minutos/accounts-api/internal/core/ports"
)

const (
	maxDisplayNameLen = 100
	maxEmailLen       = 254
)

// AuthService implements registration, login, logout, profile management and
// bearer-token authentication.
type AuthService struct {
	store    ports.Store
	tokens   ports.TokenIssuer
	hasher   ports.PasswordHasher
	throttle ports.LoginThrottle
	audit    ports.AuditSink
	admins   map[string]struct{}
	now      func() time.Time
	log      zerolog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// AuthOption customises an AuthService.
type AuthOption func(*AuthService)

// WithLoginThrottle enables failed-login throttling.
func WithLoginThrottle(t ports.LoginThrottle) AuthOption {
	return func(s *AuthService) {
		if t != nil {
			s.throttle = t
		}
	}
}

// WithAuditSink sends audit events to sink.
func WithAuditSink(sink ports.AuditSink) AuthOption {
	return func(s *AuthService) {
		if sink != nil {
			s.audit = sink
		}
	}
}

// WithAdminEmails marks accounts registered with one of these emails as
// global admins.
func WithAdminEmails(emails []string) AuthOption {
	return func(s *AuthService) {
		for _, e := range emails {
			if n := domain.NormalizeEmail(e); n != "" {
				s.admins[n] = struct{}{}
			}
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) AuthOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(store ports.Store, tokens ports.TokenIssuer, hasher ports.PasswordHasher, log zerolog.Logger, opts ...AuthOption) *AuthService {
	s := &AuthService{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		throttle: nopThrottle{},
		audit:    nopAudit{},
		admins:   make(map[string]struct{}),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, domain.Validation("email and password are required")
	}
	if err := checkText("email", email, maxEmailLen); err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = domain.DefaultDisplayName(email)
	}
	if err := checkText("display name", displayName, maxDisplayNameLen); err != nil {
		return nil, err
	}

	if _, err := s.store.Users().FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	_, isAdmin := s.admins[email]
	user, err := s.store.Users().Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
		IsActive:     true,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(auditEvent(now, domain.AuditUserRegistered, user.ID, "user", user.ID, nil))
	s.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Login verifies credentials and opens a session. Unknown emails and wrong
// passwords produce the same error and take comparable time.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Validation("email and password are required")
	}
	if err := checkText("email", email, maxEmailLen); err != nil {
		return nil, err
	}

	if blocked, err := s.throttle.Blocked(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("login throttle unavailable")
	} else if blocked {
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.burnCompare(password)
		s.loginFailed(ctx, email, "", "unknown_email")
		return nil, domain.ErrInvalidCredentials
	}

	if s.hasher.Compare(user.PasswordHash, password) != nil {
		s.loginFailed(ctx, email, user.ID, "bad_password")
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.loginFailed(ctx, email, user.ID, "inactive")
		return nil, domain.ErrLoginInactive
	}

	issued, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	err = s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if _, err := tx.Sessions().Create(ctx, &domain.Session{
			UserID:    user.ID,
			Token:     issued.Token,
			ExpiresAt: issued.ExpiresAt,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		return tx.Users().TouchLastLogin(ctx, user.ID, now)
	})
	if err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	if err := s.throttle.Reset(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("login throttle reset failed")
	}
	s.audit.Record(auditEvent(now, domain.AuditLoginSucceeded, user.ID, "user", user.ID, nil))

	return &domain.LoginResult{Token: issued.Token, ExpiresAt: issued.ExpiresAt, User: user}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, email, userID, reason string) {
	if err := s.throttle.RecordFailure(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("login throttle record failed")
	}
	s.audit.Record(auditEvent(s.now(), domain.AuditLoginFailed, userID, "user", userID,
		map[string]string{"reason": reason}))
}

// burnCompare runs a hash comparison against a throwaway hash so unknown
// emails cost as much as wrong passwords.
func (s *AuthService) burnCompare(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("not-a-real-password")
		if err != nil {
			s.log.Warn().Err(err).Msg("dummy hash generation failed")
			return
		}
		s.dummyHash = h
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}

// Logout revokes the session for token. Absent or unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.Sessions().DeleteByToken(ctx, token); err != nil {
		return err
	}
	s.audit.Record(auditEvent(s.now(), domain.AuditLogout, "", "session", "", nil))
	return nil
}

// Authenticate runs the full trust chain: signature and expiry, then a live
// session, then an active account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, domain.ErrMissingToken
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	session, err := s.store.Sessions().FindActiveByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, domain.ErrTokenInvalid
	}

	user, err := s.store.Users().FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}

	return &domain.Principal{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: session.ID,
	}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.store.Users().FindByID(ctx, userID)
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID, displayName string) (*domain.User, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, domain.Validation("display name is required")
	}
	if err := checkText("display name", displayName, maxDisplayNameLen); err != nil {
		return nil, err
	}

	user, err := s.store.Users().UpdateProfile(ctx, userID, displayName)
	if err != nil {
		return nil, err
	}
	s.audit.Record(auditEvent(s.now(), domain.AuditProfileUpdated, userID, "user", userID, nil))
	return user, nil
}

// ChangePassword replaces the password hash and revokes every session of the
// user in the same transaction.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return domain.Validation("current password and new password are required")
	}

	user, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if s.hasher.Compare(user.PasswordHash, currentPassword) != nil {
		return domain.ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	var revoked int64
	err = s.store.WithTx(ctx, func(ctx context.Context, tx ports.Repositories) error {
		if err := tx.Users().UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		n, err := tx.Sessions().DeleteAllForUser(ctx, userID)
		revoked = n
		return err
	})
	if err != nil {
		return err
	}

	s.audit.Record(auditEvent(s.now(), domain.AuditPasswordChanged, userID, "user", userID, nil))
	s.log.Info().Str("user_id", userID).Int64("sessions_revoked", revoked).Msg("password changed")
	return nil
}

var (
	_ ports.AuthService   = (*AuthService)(nil)
	_ ports.Authenticator = (*AuthService)(nil)
	_ ports.TokenIssuer   = (*TokenService)(nil)
)
