// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"testing"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		in       string
		wantKind ContentKind
		wantErr  bool
	}{
		{"wings", KindList, false},
		{"projects", KindList, false},
		{"team", KindList, false},
		{"techStack", KindList, false},
		{"settings", KindSettings, false},
		{"hero", KindBlob, false},
		{"footer", KindBlob, false},
		{"techstack", 0, true},
		{"", 0, true},
		{"users", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContentType(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidType) {
					t.Fatalf("ParseContentType(%q) error = %v, want ErrInvalidType", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseContentType(%q) error = %v", tt.in, err)
			}
			if got.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", got.Kind(), tt.wantKind)
			}
		})
	}
}

func TestParseConfigKey(t *testing.T) {
	for _, k := range []string{"siteSettings", "contactConfig"} {
		if _, err := ParseConfigKey(k); err != nil {
			t.Errorf("ParseConfigKey(%q) error = %v", k, err)
		}
	}
	if _, err := ParseConfigKey("theme"); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("ParseConfigKey(theme) error = %v, want ErrInvalidKey", err)
	}
}

func TestTypeListsAreDisjoint(t *testing.T) {
	seen := map[ContentType]bool{TypeSettings: true}
	for _, ct := range append(ListTypes(), BlobTypes()...) {
		if seen[ct] {
			t.Errorf("content type %q listed twice", ct)
		}
		seen[ct] = true
	}
}
