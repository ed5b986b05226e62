// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "errors"

var (
	// ErrInvalidType is returned for a content type outside the fixed enum.
	ErrInvalidType = errors.New("invalid content type")
	// ErrInvalidKey is returned for a config key outside the fixed enum.
	ErrInvalidKey = errors.New("invalid config key")
)

// ContentType identifies one section of site content.
type ContentType string

// Typed-list content, stored in dedicated tables.
const (
	TypeWings     ContentType = "wings"
	TypeProjects  ContentType = "projects"
	TypePartners  ContentType = "partners"
	TypeTeam      ContentType = "team"
	TypeTechStack ContentType = "techStack"
)

// TypeSettings is served by the legacy settings adapter.
const TypeSettings ContentType = "settings"

// Blob content, stored as opaque JSON in content_blobs.
const (
	TypeHero         ContentType = "hero"
	TypeAbout        ContentType = "about"
	TypeServices     ContentType = "services"
	TypeStats        ContentType = "stats"
	TypeTestimonials ContentType = "testimonials"
	TypeProcess      ContentType = "process"
	TypeCTA          ContentType = "cta"
	TypeFooter       ContentType = "footer"
)

// ContentKind says which storage path serves a content type.
type ContentKind int

const (
	KindBlob ContentKind = iota
	KindList
	KindSettings
)

var listTypes = []ContentType{TypeWings, TypeProjects, TypePartners, TypeTeam, TypeTechStack}

var blobTypes = []ContentType{
	TypeHero, TypeAbout, TypeServices, TypeStats,
	TypeTestimonials, TypeProcess, TypeCTA, TypeFooter,
}

// ListTypes returns the typed-list content types.
func ListTypes() []ContentType {
	return append([]ContentType(nil), listTypes...)
}

// BlobTypes returns the content types stored as JSON blobs.
func BlobTypes() []ContentType {
	return append([]ContentType(nil), blobTypes...)
}

// ParseContentType validates s against the fixed enum.
func ParseContentType(s string) (ContentType, error) {
	t := ContentType(s)
	if t == TypeSettings {
		return t, nil
	}
	for _, v := range listTypes {
		if v == t {
			return t, nil
		}
	}
	for _, v := range blobTypes {
		if v == t {
			return t, nil
		}
	}
	return "", ErrInvalidType
}

// Kind returns how the type is stored. Only meaningful for parsed types.
func (t ContentType) Kind() ContentKind {
	if t == TypeSettings {
		return KindSettings
	}
	for _, v := range listTypes {
		if v == t {
			return KindList
		}
	}
	return KindBlob
}

// ConfigKey identifies a config entry.
type ConfigKey string

// Config keys
const (
	ConfigSiteSettings  ConfigKey = "siteSettings"
	ConfigContactConfig ConfigKey = "contactConfig"
)

// ConfigKeys returns every valid config key.
func ConfigKeys() []ConfigKey {
	return []ConfigKey{ConfigSiteSettings, ConfigContactConfig}
}

// ParseConfigKey validates s against the fixed enum.
func ParseConfigKey(s string) (ConfigKey, error) {
	for _, k := range ConfigKeys() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", ErrInvalidKey
}
