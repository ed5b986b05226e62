// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package client is the Go client of the content API. Reads fall back to
// locally persisted values merged over compiled-in defaults when the API is
// unreachable; writes go through to the API and record divergence locally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/olegiv/wingsite/internal/defaults"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/util"
)

// Client defaults
const (
	DefaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
	readRetries      = 2
	readRetryBase    = 200 * time.Millisecond
	headerUpdatedAt  = "X-Updated-At"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// ErrNotLoggedIn is returned by writes made without a stored token.
var ErrNotLoggedIn = errors.New("not logged in")

// User is the profile returned on login.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Client talks to the content API and keeps a local copy of settings.
type Client struct {
	baseURL  string
	http     *http.Client
	store    LocalStore
	logger   *slog.Logger
	now      func() time.Time
	localDev bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithLocalDev overrides local development detection. In local development
// reads skip the network and serve local values over defaults.
func WithLocalDev(on bool) Option {
	return func(c *Client) { c.localDev = on }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, store LocalStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: DefaultTimeout},
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		localDev: util.IsLocalHost(u.Hostname()),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Login authenticates and persists the token and user profile.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	body := map[string]string{"email": email, "password": password}
	if _, err := c.call(ctx, http.MethodPost, "/api/auth/login", "", body, &resp); err != nil {
		return User{}, err
	}

	if err := c.putJSON(KeyAuthToken, resp.Token, false); err != nil {
		return User{}, err
	}
	if err := c.putJSON(KeyAuthUser, resp.User, false); err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Logout forgets the stored token and user.
func (c *Client) Logout() error {
	return errors.Join(c.store.Delete(KeyAuthToken), c.store.Delete(KeyAuthUser))
}

// Token returns the stored token, or "".
func (c *Client) Token() string {
	var tok string
	if ok, _ := c.getJSON(KeyAuthToken, &tok); !ok {
		return ""
	}
	return tok
}

// CurrentUser returns the stored user profile.
func (c *Client) CurrentUser() (User, bool) {
	var u User
	ok, _ := c.getJSON(KeyAuthUser, &u)
	return u, ok
}

// SiteSettings returns the local site settings merged over the defaults.
// It never touches the network.
func (c *Client) SiteSettings() map[string]any {
	return c.localMerged(KeySiteSettings, defaults.SiteSettings())
}

// ContactConfig returns the local contact config merged over the defaults.
// It never touches the network.
func (c *Client) ContactConfig() map[string]any {
	return c.localMerged(KeyContactConfig, defaults.ContactConfig())
}

// FetchSiteSettings reads site settings from the API, falling back to
// SiteSettings when the API fails or in local development.
func (c *Client) FetchSiteSettings(ctx context.Context) map[string]any {
	return c.fetchConfig(ctx, KeySiteSettings, model.ConfigSiteSettings, defaults.SiteSettings())
}

// FetchContactConfig reads the contact config from the API, falling back to
// ContactConfig when the API fails or in local development.
func (c *Client) FetchContactConfig(ctx context.Context) map[string]any {
	return c.fetchConfig(ctx, KeyContactConfig, model.ConfigContactConfig, defaults.ContactConfig())
}

func (c *Client) fetchConfig(ctx context.Context, key string, ck model.ConfigKey, base map[string]any) map[string]any {
	if c.localDev {
		return c.localMerged(key, base)
	}

	value, updated, err := c.getConfig(ctx, ck)
	if err != nil {
		if !IsNotFound(err) {
			c.logger.Warn("config fetch failed, using local copy", "key", ck, "error", err)
		}
		return c.localMerged(key, base)
	}

	// Keep an offline copy unless a local write is still pending.
	if rec, ok, _ := c.store.Get(key); !ok || !rec.Dirty {
		if err := c.store.Put(key, Record{Value: value, UpdatedAt: updated}); err != nil {
			c.logger.Warn("failed to cache config locally", "key", key, "error", err)
		}
	}

	merged, err := defaults.MergeJSON(base, value)
	if err != nil {
		c.logger.Warn("server config is not an object", "key", ck, "error", err)
		return c.localMerged(key, base)
	}
	return merged
}

// FetchContent returns the raw JSON for a content type.
func (c *Client) FetchContent(ctx context.Context, t model.ContentType) (json.RawMessage, error) {
	var data json.RawMessage
	if _, err := c.read(ctx, "/api/content/"+url.PathEscape(string(t)), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// SaveSiteSettings writes site settings to the API and to the local store.
// The local copy is always written; it is marked dirty when the API write
// failed, and the API error is returned.
func (c *Client) SaveSiteSettings(ctx context.Context, settings map[string]any) error {
	return c.save(ctx, KeySiteSettings, model.ConfigSiteSettings, settings)
}

// SaveContactConfig writes the contact config like SaveSiteSettings.
func (c *Client) SaveContactConfig(ctx context.Context, cfg map[string]any) error {
	return c.save(ctx, KeyContactConfig, model.ConfigContactConfig, cfg)
}

func (c *Client) save(ctx context.Context, key string, ck model.ConfigKey, value map[string]any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	netErr := c.putConfig(ctx, ck, raw)
	if netErr != nil {
		c.logger.Warn("config write failed, kept locally", "key", ck, "error", netErr)
	}
	localErr := c.store.Put(key, Record{Value: raw, UpdatedAt: c.now().UTC(), Dirty: netErr != nil})
	return errors.Join(netErr, localErr)
}

// Divergent returns the config keys with local writes the API has not accepted.
func (c *Client) Divergent() ([]string, error) {
	var out []string
	for _, key := range []string{KeySiteSettings, KeyContactConfig} {
		rec, ok, err := c.store.Get(key)
		if err != nil {
			return nil, err
		}
		if ok && rec.Dirty {
			out = append(out, key)
		}
	}
	return out, nil
}

// SyncResult lists the keys pushed to and pulled from the API.
type SyncResult struct {
	Pushed []string
	Pulled []string
}

// Sync resolves every divergent key by last writer wins: a local value newer
// than the server's last write is pushed, otherwise the server value replaces
// the local one.
func (c *Client) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult
	dirty, err := c.Divergent()
	if err != nil {
		return res, err
	}

	var errs []error
	for _, key := range dirty {
		pushed, err := c.syncKey(ctx, key)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		case pushed:
			res.Pushed = append(res.Pushed, key)
		default:
			res.Pulled = append(res.Pulled, key)
		}
	}
	return res, errors.Join(errs...)
}

func (c *Client) syncKey(ctx context.Context, key string) (pushed bool, err error) {
	ck := configKeyFor(key)
	local, _, err := c.store.Get(key)
	if err != nil {
		return false, err
	}

	remote, remoteUpdated, err := c.getConfig(ctx, ck)
	localUpdated := local.UpdatedAt
	if remoteUpdated.Equal(remoteUpdated.Truncate(time.Second)) {
		// Whole-second server time, possibly from Last-Modified; compare
		// at that precision and let the server win ties.
		localUpdated = localUpdated.Truncate(time.Second)
	}
	switch {
	case IsNotFound(err):
		// Nothing on the server yet; the local value wins.
	case err != nil:
		return false, err
	case !localUpdated.After(remoteUpdated):
		return false, c.store.Put(key, Record{Value: remote, UpdatedAt: remoteUpdated})
	}

	if err := c.putConfig(ctx, ck, local.Value); err != nil {
		return false, err
	}
	local.Dirty = false
	return true, c.store.Put(key, local)
}

func configKeyFor(key string) model.ConfigKey {
	if key == KeyContactConfig {
		return model.ConfigContactConfig
	}
	return model.ConfigSiteSettings
}

// Status returns the site status reported by the API. It is not retried;
// the poller asks again on its next tick.
func (c *Client) Status(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if _, err := c.call(ctx, http.MethodGet, "/api/status", "", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) getConfig(ctx context.Context, k model.ConfigKey) (json.RawMessage, time.Time, error) {
	var value json.RawMessage
	h, err := c.read(ctx, "/api/config/"+string(k), &value)
	if err != nil {
		return nil, time.Time{}, err
	}
	return value, serverUpdatedAt(h), nil
}

// serverUpdatedAt reads the last write time of a config value, preferring the
// full-precision header over Last-Modified.
func serverUpdatedAt(h http.Header) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, h.Get(headerUpdatedAt)); err == nil {
		return t
	}
	t, _ := http.ParseTime(h.Get("Last-Modified"))
	return t
}

func (c *Client) putConfig(ctx context.Context, k model.ConfigKey, value json.RawMessage) error {
	tok := c.Token()
	if tok == "" {
		return ErrNotLoggedIn
	}
	_, err := c.call(ctx, http.MethodPut, "/api/config/"+string(k), tok, map[string]json.RawMessage{"value": value}, nil)
	return err
}

// read performs a GET, retrying network failures and 5xx responses.
func (c *Client) read(ctx context.Context, path string, out any) (http.Header, error) {
	var h http.Header
	b := retry.WithMaxRetries(readRetries, retry.NewExponential(readRetryBase))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		var err error
		h, err = c.call(ctx, http.MethodGet, path, "", nil, out)
		var ae *APIError
		if err != nil && (!errors.As(err, &ae) || ae.StatusCode >= 500) && ctx.Err() == nil {
			return retry.RetryableError(err)
		}
		return err
	})
	return h, err
}

// call sends one request and decodes the data member of the envelope into out.
func (c *Client) call(ctx context.Context, method, path, token string, body, out any) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, decodeAPIError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return resp.Header, nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return resp.Header, fmt.Errorf("decoding response: %w", err)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return resp.Header, fmt.Errorf("decoding response data: %w", err)
	}
	return resp.Header, nil
}

func decodeAPIError(status int, raw []byte) error {
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	ae := &APIError{StatusCode: status, Message: http.StatusText(status)}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		ae.Code = env.Error.Code
		ae.Message = env.Error.Message
	}
	return ae
}

func (c *Client) localMerged(key string, base map[string]any) map[string]any {
	rec, ok, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("reading local store failed", "key", key, "error", err)
	}
	if !ok {
		return base
	}
	merged, err := defaults.MergeJSON(base, rec.Value)
	if err != nil {
		c.logger.Warn("local value is not an object", "key", key, "error", err)
		return base
	}
	return merged
}

func (c *Client) putJSON(key string, v any, dirty bool) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Put(key, Record{Value: b, UpdatedAt: c.now().UTC(), Dirty: dirty})
}

func (c *Client) getJSON(key string, v any) (bool, error) {
	rec, ok, err := c.store.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(rec.Value, v); err != nil {
		return false, err
	}
	return true, nil
}
