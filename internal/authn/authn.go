// Package authn handles the single-admin login flow and bearer-token
// sessions. Any visitor may read auction state; only a session whose
// email exactly matches the configured admin email may mutate it.
package authn

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kameshai/premier-auction/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
)

// Session is a logged-in identity.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// SessionStore persists issued sessions.
type SessionStore interface {
	Put(ctx context.Context, s Session, ttl time.Duration) error
	// Get returns the session for a token, or ErrSessionNotFound.
	Get(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Service authenticates the admin account and manages sessions.
type Service struct {
	adminEmail string
	adminHash  string
	ttl        time.Duration
	sessions   SessionStore
	logger     *slog.Logger
}

// NewService creates an authentication service from config.
func NewService(cfg config.AuthConfig, sessions SessionStore, logger *slog.Logger) *Service {
	return &Service{
		adminEmail: cfg.AdminEmail,
		adminHash:  cfg.AdminPasswordHash,
		ttl:        cfg.SessionTTL,
		sessions:   sessions,
		logger:     logger,
	}
}

// Login verifies the credentials against the configured admin account
// and issues a session token. Email comparison is exact, including
// case, so a mismatched-case login is rejected.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	if email != s.adminEmail {
		return Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.adminHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return Session{}, fmt.Errorf("generating session token: %w", err)
	}
	sess := Session{Token: token, Email: email}
	if err := s.sessions.Put(ctx, sess, s.ttl); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}

	s.logger.InfoContext(ctx, "admin logged in", slog.String("email", email))
	return sess, nil
}

// GuestLogin issues a viewer session for any email without a password.
// The admin email is refused so a guest can never acquire admin rights.
func (s *Service) GuestLogin(ctx context.Context, email string) (Session, error) {
	if email == "" || email == s.adminEmail {
		return Session{}, ErrInvalidCredentials
	}

	token, err := newToken()
	if err != nil {
		return Session{}, fmt.Errorf("generating session token: %w", err)
	}
	sess := Session{Token: token, Email: email}
	if err := s.sessions.Put(ctx, sess, s.ttl); err != nil {
		return Session{}, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// Identify resolves a bearer token to its session.
func (s *Service) Identify(ctx context.Context, token string) (Session, error) {
	return s.sessions.Get(ctx, token)
}

// Logout revokes a session token. Revoking an unknown token is not an
// error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// IsAdmin reports whether the session belongs to the admin account.
// The comparison is exact and case-sensitive.
func (s *Service) IsAdmin(sess Session) bool {
	return sess.Email == s.adminEmail
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
