// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service holds the content, config, user and event logic that sits
// between the HTTP handlers and the store.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/olegiv/wingsite/internal/cache"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/store"
)

// DefaultCacheTTL bounds how long a cached read may be served.
const DefaultCacheTTL = 5 * time.Minute

// ContentService reads and writes site content, dispatching each content type
// to its storage path: a JSON blob, a typed list table or the settings adapter.
// Reads are cached by key and every write drops the key before returning.
type ContentService struct {
	store   *store.Store
	lists   map[model.ContentType]listAccessor
	cache   *cache.TypedCache[json.RawMessage]
	configs *ConfigService
	logger  *slog.Logger
}

// NewContentService creates a ContentService. A nil cache disables caching.
func NewContentService(s *store.Store, c cache.Cache, ttl time.Duration, logger *slog.Logger) *ContentService {
	return &ContentService{
		store:   s,
		lists:   newListAccessors(s),
		cache:   newTypedCache[json.RawMessage](c, ttl),
		configs: NewConfigService(s, c, ttl, logger),
		logger:  logger,
	}
}

// Configs returns the config service sharing this service's cache.
func (s *ContentService) Configs() *ConfigService { return s.configs }

func newTypedCache[T any](c cache.Cache, ttl time.Duration) *cache.TypedCache[T] {
	if c == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return cache.NewTypedCache[T](c, ttl)
}

func contentCacheKey(t model.ContentType) string { return "content:" + string(t) }

// Get returns the JSON for a content type. Blob types without a stored row
// return store.ErrNotFound. Typed lists and settings always have a value.
func (s *ContentService) Get(ctx context.Context, t model.ContentType) (json.RawMessage, error) {
	if s.cache == nil {
		return s.load(ctx, t)
	}
	return s.cache.GetOrLoad(ctx, contentCacheKey(t), func(ctx context.Context) (json.RawMessage, error) {
		return s.load(ctx, t)
	})
}

func (s *ContentService) load(ctx context.Context, t model.ContentType) (json.RawMessage, error) {
	switch t.Kind() {
	case model.KindSettings:
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(settings)

	case model.KindList:
		items, err := s.lists[t].Load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	}

	entry, err := s.store.GetContent(ctx, string(t))
	if err != nil {
		return nil, err
	}
	return entry.Data, nil
}

func (s *ContentService) loadSettings(ctx context.Context) (model.LegacySettings, error) {
	rows, socials, err := s.store.LoadSettings(ctx)
	if err != nil {
		return model.LegacySettings{}, err
	}
	return model.ExpandSettings(rows, socials), nil
}

// Put stores data for a content type and returns the value a following Get
// would return. For typed lists that includes the newly assigned ids.
func (s *ContentService) Put(ctx context.Context, t model.ContentType, data json.RawMessage) (json.RawMessage, error) {
	if isAbsent(data) {
		return nil, NewValidationError("data", "is required")
	}
	if !json.Valid(data) {
		return nil, NewValidationError("data", "must be valid JSON")
	}

	var err error
	switch t.Kind() {
	case model.KindSettings:
		err = s.putSettings(ctx, data)
	case model.KindList:
		err = s.lists[t].Save(ctx, data)
	default:
		err = s.store.UpsertContent(ctx, string(t), compact(data))
	}
	invalidate(ctx, s.cache, s.logger, contentCacheKey(t))
	if err != nil {
		return nil, err
	}

	// Read back from the store; the cache fills on the next Get.
	return s.load(ctx, t)
}

func (s *ContentService) putSettings(ctx context.Context, data json.RawMessage) error {
	var patch model.SettingsPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return NewValidationError("data", "must be a settings object")
	}
	kvs := model.FlattenSettings(patch)
	socials := model.PatchSocials(patch)
	if len(kvs) == 0 && len(socials) == 0 {
		return nil
	}
	return s.store.SaveSettings(ctx, kvs, socials)
}

// Delete resets a content type. Blobs lose their row, typed lists become
// empty, and settings cannot be deleted.
func (s *ContentService) Delete(ctx context.Context, t model.ContentType) error {
	var err error
	switch t.Kind() {
	case model.KindSettings:
		return fmt.Errorf("deleting %s: %w", t, ErrMethodNotAllowed)
	case model.KindList:
		err = s.lists[t].Save(ctx, json.RawMessage("[]"))
	default:
		err = s.store.DeleteContent(ctx, string(t))
	}
	invalidate(ctx, s.cache, s.logger, contentCacheKey(t))
	return err
}

// Bulk is the full content and config map exchanged by the bulk endpoints.
type Bulk struct {
	Content map[string]json.RawMessage `json:"content"`
	Config  map[string]json.RawMessage `json:"config"`
}

// BulkGet returns every stored content blob and config entry.
func (s *ContentService) BulkGet(ctx context.Context) (Bulk, error) {
	out := Bulk{
		Content: make(map[string]json.RawMessage),
		Config:  make(map[string]json.RawMessage),
	}

	blobs, err := s.store.ListContent(ctx)
	if err != nil {
		return out, err
	}
	for _, e := range blobs {
		out.Content[e.Key] = e.Data
	}

	configs, err := s.store.ListConfig(ctx)
	if err != nil {
		return out, err
	}
	for _, e := range configs {
		out.Config[e.Key] = e.Data
	}
	return out, nil
}

// ImportResult reports the outcome of a bulk import per key. Keys are
// prefixed with "content." or "config.".
type ImportResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// BulkImport writes each content and config key independently, in sorted
// order. It is not atomic: a failing key is reported and later keys are
// still written, so earlier successes persist.
func (s *ContentService) BulkImport(ctx context.Context, in Bulk) ImportResult {
	res := ImportResult{Updated: []string{}}
	fail := func(key string, err error) {
		if res.Failed == nil {
			res.Failed = make(map[string]string)
		}
		res.Failed[key] = importFailure(err)
		s.logger.Warn("bulk import key failed", "category", model.EventCategoryContent, "key", key, "error", err)
	}

	for _, name := range sortedKeys(in.Content) {
		key := "content." + name
		t, err := model.ParseContentType(name)
		if err != nil {
			fail(key, err)
			continue
		}
		if _, err := s.Put(ctx, t, in.Content[name]); err != nil {
			fail(key, err)
			continue
		}
		res.Updated = append(res.Updated, key)
	}

	for _, name := range sortedKeys(in.Config) {
		key := "config." + name
		k, err := model.ParseConfigKey(name)
		if err != nil {
			fail(key, err)
			continue
		}
		if err := s.configs.Put(ctx, k, in.Config[name]); err != nil {
			fail(key, err)
			continue
		}
		res.Updated = append(res.Updated, key)
	}
	return res
}

// importFailure keeps internal error detail out of the import report.
func importFailure(err error) string {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.Is(err, model.ErrInvalidType), errors.Is(err, model.ErrInvalidKey):
		return err.Error()
	}
	return "internal error"
}

func invalidate[T any](ctx context.Context, c *cache.TypedCache[T], logger *slog.Logger, key string) {
	if c == nil {
		return
	}
	if err := c.Delete(ctx, key); err != nil {
		logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
}

// isAbsent reports whether a request left data out entirely.
func isAbsent(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func compact(data json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data
	}
	return buf.Bytes()
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
