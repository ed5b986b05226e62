// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mailer sends contact form messages through a transactional email
// HTTP API compatible with Resend's POST /emails.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Delivery configuration constants
const (
	DefaultAPIURL   = "https://api.resend.com"
	MaxAttempts     = 3
	InitialBackoff  = 250 * time.Millisecond
	RequestTimeout  = 15 * time.Second
	MaxResponseLen  = 10 * 1024
	UserAgent       = "wingsite-mailer/1.0"
	maxSubjectRunes = 200
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("email service is not configured")

// UpstreamError is a failure reported by the email provider. Message is the
// provider's own message and is safe to show to the caller.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return "email provider: " + e.Message
	}
	return fmt.Sprintf("email provider returned %d: %s", e.StatusCode, e.Message)
}

// retryable reports whether another attempt may succeed.
func (e *UpstreamError) retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config configures the Client.
type Config struct {
	APIURL    string
	APIKey    string
	From      string
	Recipient string
}

// Client sends email through the provider API.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *slog.Logger
	backoff func() retry.Backoff
}

// New creates a Client. A nil httpClient uses one with RequestTimeout.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: RequestTimeout}
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger, backoff: newBackoff}
}

// Enabled reports whether the client can send.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.Recipient != ""
}

// Email is the provider request body.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type sendResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// SendContact validates and delivers a contact form message to the
// configured recipient. It returns the provider's message id.
func (c *Client) SendContact(ctx context.Context, msg ContactMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	if !c.Enabled() {
		return "", ErrNotConfigured
	}

	html, err := RenderContactHTML(msg)
	if err != nil {
		return "", fmt.Errorf("rendering email: %w", err)
	}

	return c.Send(ctx, Email{
		From:    c.cfg.From,
		To:      []string{c.cfg.Recipient},
		ReplyTo: strings.TrimSpace(msg.Email),
		Subject: msg.subject(),
		HTML:    html,
		Text:    RenderContactText(msg),
	})
}

// Send posts an email, retrying network failures, 408, 429 and 5xx with
// exponential backoff.
func (c *Client) Send(ctx context.Context, e Email) (string, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return "", err
	}

	attempt := 0
	id, err := retry.DoValue(ctx, c.backoff(), func(ctx context.Context) (string, error) {
		attempt++
		id, err := c.attempt(ctx, body)
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.retryable() {
			c.logger.Warn("email send failed", "attempt", attempt, "error", err)
			return "", retry.RetryableError(err)
		}
		return id, err
	})
	if err != nil {
		return "", err
	}
	c.logger.Info("email sent", "id", id, "attempt", attempt)
	return id, nil
}

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &UpstreamError{Message: "request failed: " + err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var out sendResponse
		_ = json.Unmarshal(raw, &out)
		return out.ID, nil
	}

	msg := http.StatusText(resp.StatusCode)
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil && er.Message != "" {
		msg = er.Message
	}
	return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
}

// newBackoff doubles from InitialBackoff and allows MaxAttempts calls in total.
func newBackoff() retry.Backoff {
	return retry.WithMaxRetries(MaxAttempts-1, retry.NewExponential(InitialBackoff))
}
