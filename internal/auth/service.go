// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mileusna/useragent"

	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/store"
)

// ErrUnauthorized is returned for an unknown email or a wrong password.
// The two cases are deliberately indistinguishable to the caller.
var ErrUnauthorized = errors.New("invalid email or password")

// UserStore is the subset of the store used by the login flow.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	CreateEvent(ctx context.Context, p store.CreateEventParams) error
}

// CountryLookup resolves an IP to a country code for audit records.
type CountryLookup interface {
	Country(ip string) string
}

// LoginRequest carries the credentials and the caller's request metadata.
type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      model.User
}

// Service implements login on top of a UserStore and a TokenManager.
type Service struct {
	users  UserStore
	tokens *TokenManager
	logger *slog.Logger
	geo    CountryLookup

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a login service.
func NewService(users UserStore, tokens *TokenManager, logger *slog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger}
}

// SetCountryLookup adds the caller's country to login audit events.
func (s *Service) SetCountryLookup(geo CountryLookup) { s.geo = geo }

// Tokens returns the token manager used to sign login tokens.
func (s *Service) Tokens() *TokenManager { return s.tokens }

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	email := model.NormalizeEmail(req.Email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Spend the same hashing time as a real check.
		_, _ = CheckPassword(req.Password, s.dummy())
		s.audit(ctx, model.EventLevelWarning, "login failed: unknown email", nil, req)
		return LoginResult{}, ErrUnauthorized
	}
	if err != nil {
		return LoginResult{}, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := CheckPassword(req.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return LoginResult{}, ErrUnauthorized
	}
	if !ok {
		s.audit(ctx, model.EventLevelWarning, "login failed: wrong password", &user.ID, req)
		return LoginResult{}, ErrUnauthorized
	}

	if NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, req.Password)
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issuing token: %w", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record last login", "user_id", user.ID, "error", err)
	}
	s.audit(ctx, model.EventLevelInfo, "login succeeded", &user.ID, req)

	return LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *Service) rehash(ctx context.Context, userID int64, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", "user_id", userID, "error", err)
		return
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.logger.Warn("failed to store rehashed password", "user_id", userID, "error", err)
		return
	}
	s.logger.Info("upgraded password hash", "user_id", userID)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = HashPassword("wingsite-dummy-password")
	})
	return s.dummyHash
}

// audit records a login attempt with the parsed user agent.
func (s *Service) audit(ctx context.Context, level, message string, userID *int64, req LoginRequest) {
	ua := useragent.Parse(req.UserAgent)
	meta := map[string]string{
		"email":   model.NormalizeEmail(req.Email),
		"browser": ua.Name,
		"os":      ua.OS,
		"device":  deviceType(ua),
	}
	if ua.Bot {
		meta["bot"] = "true"
	}
	if s.geo != nil {
		if c := s.geo.Country(req.IP); c != "" {
			meta["country"] = c
		}
	}
	b, _ := json.Marshal(meta)

	err := s.users.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  model.EventCategoryAuth,
		Message:   message,
		UserID:    userID,
		IPAddress: req.IP,
		Metadata:  string(b),
	})
	if err != nil {
		s.logger.Warn("failed to record auth event", "error", err)
	}
}

func deviceType(ua useragent.UserAgent) string {
	switch {
	case ua.Mobile:
		return "mobile"
	case ua.Tablet:
		return "tablet"
	case ua.Desktop:
		return "desktop"
	case ua.Bot:
		return "bot"
	}
	return "unknown"
}
