// Package defaults holds the compiled-in fallback site data and the nested
// merge used to lay stored values over it.
package defaults

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/olegiv/wingsite/internal/model"
)

// SiteSettings returns the shipped site settings in the legacy shape.
// Each call returns a fresh copy.
func SiteSettings() map[string]any {
	return map[string]any{
		"schemaVersion": model.SettingsSchemaVersion,
		"siteName":      "Wingsite",
		"tagline":       "Services that take flight",
		"description":   "A company organised in wings, each delivering one line of service.",
		"logoUrl":       "/logo.svg",
		"businessHours": "Mon-Fri 9:00-18:00",
		"address": map[string]any{
			"street":  "",
			"city":    "",
			"state":   "",
			"zip":     "",
			"country": "",
		},
		"contact": map[string]any{
			"email":    "hello@example.com",
			"phone":    "",
			"whatsapp": "",
		},
		"socials": map[string]any{
			"linkedin":  "",
			"instagram": "",
			"facebook":  "",
			"x":         "",
		},
	}
}

// ContactConfig returns the shipped contact form configuration.
func ContactConfig() map[string]any {
	return map[string]any{
		"email":       "hello@example.com",
		"phone":       "",
		"whatsapp":    "",
		"formEnabled": true,
		"subjects": []any{
			"General inquiry",
			"Project proposal",
			"Partnership",
		},
		"successMessage": "Thanks, we will get back to you soon.",
	}
}

// Merge returns base with overlay laid over it. Nested objects merge key by
// key; any other overlay value, including arrays and null, replaces the base
// value. Neither input is modified.
func Merge(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range overlay {
		bm, baseIsMap := out[k].(map[string]any)
		om, overlayIsMap := v.(map[string]any)
		if baseIsMap && overlayIsMap {
			out[k] = Merge(bm, om)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := maps.Clone(t)
		for k, inner := range m {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// MergeJSON merges a stored JSON object over base. Empty or null raw
// leaves base unchanged.
func MergeJSON(base map[string]any, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Merge(base, nil), nil
	}
	var overlay map[string]any
	if err := json.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("decoding stored object: %w", err)
	}
	return Merge(base, overlay), nil
}

// SettingsPatch returns the shipped site settings as a patch, used to seed
// an empty database.
func SettingsPatch() (model.SettingsPatch, error) {
	var p model.SettingsPatch
	b, err := json.Marshal(SiteSettings())
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("decoding default settings: %w", err)
	}
	return p, nil
}
