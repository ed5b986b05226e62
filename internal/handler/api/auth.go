package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olegiv/wingsite/internal/auth"
	"github.com/olegiv/wingsite/internal/middleware"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/util"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful login.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

// VerifyResponse is returned for a valid token.
type VerifyResponse struct {
	Valid bool         `json:"valid"`
	User  *auth.Claims `json:"user"`
}

// Login verifies credentials and issues a token. Accounts locked after
// repeated failures get 429 with Retry-After.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "is required"
	}
	if req.Password == "" {
		fields["password"] = "is required"
	}
	if len(fields) > 0 {
		WriteValidationError(w, fields)
		return
	}

	email := model.NormalizeEmail(req.Email)
	if h.LoginGuard != nil {
		if locked, remaining := h.LoginGuard.IsLocked(email); locked {
			writeLocked(w, remaining)
			return
		}
	}

	res, err := h.Auth.Login(r.Context(), auth.LoginRequest{
		Email:     email,
		Password:  req.Password,
		IP:        util.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) && h.LoginGuard != nil {
			if locked, d := h.LoginGuard.RecordFailure(email); locked {
				writeLocked(w, d)
				return
			}
		}
		h.writeServiceError(w, r, err)
		return
	}

	if h.LoginGuard != nil {
		h.LoginGuard.RecordSuccess(email)
	}
	WriteSuccess(w, LoginResponse{Token: res.Token, ExpiresAt: res.ExpiresAt, User: res.User})
}

func writeLocked(w http.ResponseWriter, d time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(d.Seconds())+1))
	WriteError(w, http.StatusTooManyRequests, "account_locked",
		"Too many failed login attempts. Please try again later.", nil)
}

// Verify checks the bearer token and returns its claims.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	raw, ok := middleware.BearerToken(r)
	if !ok {
		WriteUnauthorized(w, "Missing or malformed Authorization header")
		return
	}
	claims, err := h.Auth.Tokens().Verify(raw)
	if err != nil {
		middleware.WriteTokenError(w, err)
		return
	}
	WriteSuccess(w, VerifyResponse{Valid: true, User: claims})
}
