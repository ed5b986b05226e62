package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/wingsite/internal/cache"
	"github.com/olegiv/wingsite/internal/model"
	"github.com/olegiv/wingsite/internal/store"
)

// ConfigService reads and writes the config entries. Values are opaque JSON.
type ConfigService struct {
	store  *store.Store
	cache  *cache.TypedCache[store.Entry]
	logger *slog.Logger
}

// NewConfigService creates a ConfigService. A nil cache disables caching.
func NewConfigService(s *store.Store, c cache.Cache, ttl time.Duration, logger *slog.Logger) *ConfigService {
	return &ConfigService{store: s, cache: newTypedCache[store.Entry](c, ttl), logger: logger}
}

func configCacheKey(k model.ConfigKey) string { return "config:" + string(k) }

// Get returns the stored value with its last write time, or store.ErrNotFound.
func (s *ConfigService) Get(ctx context.Context, k model.ConfigKey) (store.Entry, error) {
	load := func(ctx context.Context) (store.Entry, error) {
		return s.store.GetConfig(ctx, string(k))
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.GetOrLoad(ctx, configCacheKey(k), load)
}

// Put upserts the value for a key. Last write wins.
func (s *ConfigService) Put(ctx context.Context, k model.ConfigKey, value json.RawMessage) error {
	if isAbsent(value) {
		return NewValidationError("value", "is required")
	}
	if !json.Valid(value) {
		return NewValidationError("value", "must be valid JSON")
	}

	err := s.store.UpsertConfig(ctx, string(k), compact(value))
	invalidate(ctx, s.cache, s.logger, configCacheKey(k))
	return err
}
