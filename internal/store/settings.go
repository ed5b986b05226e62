package store

import (
	"context"
	"fmt"

	"github.com/olegiv/wingsite/internal/model"
)

// LoadSettings returns the normalized settings rows and social platforms.
func (s *Store) LoadSettings(ctx context.Context) (map[string]string, []model.SocialPlatform, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT setting_key, setting_value FROM site_settings`)
	if err != nil {
		return nil, nil, fmt.Errorf("loading settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	settings := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, nil, fmt.Errorf("scanning setting: %w", err)
		}
		settings[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	socials, err := s.ListSocialPlatforms(ctx)
	if err != nil {
		return nil, nil, err
	}
	return settings, socials, nil
}

// ListSocialPlatforms returns social platforms in display order.
func (s *Store) ListSocialPlatforms(ctx context.Context) ([]model.SocialPlatform, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, platform_name, url, icon_name, order_index FROM social_platforms ORDER BY order_index, id`)
	if err != nil {
		return nil, fmt.Errorf("listing social platforms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var platforms []model.SocialPlatform
	for rows.Next() {
		var p model.SocialPlatform
		if err := rows.Scan(&p.ID, &p.PlatformName, &p.URL, &p.IconName, &p.OrderIndex); err != nil {
			return nil, fmt.Errorf("scanning social platform: %w", err)
		}
		platforms = append(platforms, p)
	}
	return platforms, rows.Err()
}

// SaveSettings writes a settings patch in one transaction: every provided key
// is upserted, then each social link updates the platform matching its name
// case-insensitively or is inserted after the last one.
func (s *Store) SaveSettings(ctx context.Context, kvs []model.SettingKV, socials []model.SocialLink) error {
	upsert := s.dialect.Upsert("site_settings", "setting_key", "setting_value", "updated_at")

	err := s.InTx(ctx, func(tx DBTX) error {
		ts := now()
		for _, kv := range kvs {
			if _, err := tx.ExecContext(ctx, upsert, kv.Key, kv.Value, ts); err != nil {
				return fmt.Errorf("upserting %s: %w", kv.Key, err)
			}
		}

		for _, link := range socials {
			if err := saveSocial(ctx, tx, link); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

func saveSocial(ctx context.Context, tx DBTX, link model.SocialLink) error {
	key := model.SocialKey(link.Name)

	// Matching happens in Go: SQL LOWER is ASCII-only on SQLite.
	id, found, err := findSocial(ctx, tx, key)
	if err != nil {
		return fmt.Errorf("finding social %s: %w", key, err)
	}
	if found {
		if _, err := tx.ExecContext(ctx, `UPDATE social_platforms SET url = ? WHERE id = ?`, link.URL, id); err != nil {
			return fmt.Errorf("updating social %s: %w", key, err)
		}
		return nil
	}

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(order_index), -1) + 1 FROM social_platforms`).Scan(&next); err != nil {
		return fmt.Errorf("ordering social %s: %w", key, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO social_platforms (platform_name, url, icon_name, order_index) VALUES (?, ?, ?, ?)`,
		link.Name, link.URL, key, next)
	if err != nil {
		return fmt.Errorf("inserting social %s: %w", key, err)
	}
	return nil
}

// findSocial returns the oldest platform whose name has the given match key.
func findSocial(ctx context.Context, tx DBTX, key string) (int64, bool, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, platform_name FROM social_platforms ORDER BY id`)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return 0, false, err
		}
		if model.SocialKey(name) == key {
			return id, true, nil
		}
	}
	return 0, false, rows.Err()
}

// SettingsEmpty reports whether no settings rows exist yet.
func (s *Store) SettingsEmpty(ctx context.Context) (bool, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM site_settings`).Scan(&n); err != nil {
		return false, fmt.Errorf("counting settings: %w", err)
	}
	return n == 0, nil
}
