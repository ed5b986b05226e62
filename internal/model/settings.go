// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"sort"
	"strings"
)

// SettingsSchemaVersion is the version of the legacy settings shape served by
// the settings adapter. Bump it when a field moves.
const SettingsSchemaVersion = 1

// LegacySettings is the pre-normalization settings object the frontend reads.
type LegacySettings struct {
	SchemaVersion int               `json:"schemaVersion"`
	SiteName      string            `json:"siteName"`
	Tagline       string            `json:"tagline"`
	Description   string            `json:"description"`
	LogoURL       string            `json:"logoUrl"`
	BusinessHours string            `json:"businessHours"`
	Address       Address           `json:"address"`
	Contact       Contact           `json:"contact"`
	Socials       map[string]string `json:"socials"`
}

// Address is the nested postal address of LegacySettings.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Contact is the nested contact block of LegacySettings.
type Contact struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp"`
}

// SettingsPatch is a partial LegacySettings; nil fields are left untouched.
type SettingsPatch struct {
	SiteName      *string           `json:"siteName,omitempty"`
	Tagline       *string           `json:"tagline,omitempty"`
	Description   *string           `json:"description,omitempty"`
	LogoURL       *string           `json:"logoUrl,omitempty"`
	BusinessHours *string           `json:"businessHours,omitempty"`
	Address       *AddressPatch     `json:"address,omitempty"`
	Contact       *ContactPatch     `json:"contact,omitempty"`
	Socials       map[string]string `json:"socials,omitempty"`
}

// AddressPatch is a partial Address.
type AddressPatch struct {
	Street  *string `json:"street,omitempty"`
	City    *string `json:"city,omitempty"`
	State   *string `json:"state,omitempty"`
	Zip     *string `json:"zip,omitempty"`
	Country *string `json:"country,omitempty"`
}

// ContactPatch is a partial Contact.
type ContactPatch struct {
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	WhatsApp *string `json:"whatsapp,omitempty"`
}

// SettingKV is one normalized site_settings row.
type SettingKV struct {
	Key   string
	Value string
}

// SocialPlatform is one social_platforms row.
type SocialPlatform struct {
	ID           int64
	PlatformName string
	URL          string
	IconName     string
	OrderIndex   int
}

// SocialLink is a social entry taken from a patch, keyed case-insensitively.
type SocialLink struct {
	Name string // as written by the client
	URL  string
}

// settingField binds a normalized key to its place in the legacy shape.
type settingField struct {
	Key   string
	Field string
	get   func(p *SettingsPatch) *string
	set   func(s *LegacySettings, v string)
}

// settingFields is the translation table between site_settings keys and the
// legacy shape. Order is the write order.
var settingFields = []settingField{
	{"site_name", "siteName",
		func(p *SettingsPatch) *string { return p.SiteName },
		func(s *LegacySettings, v string) { s.SiteName = v }},
	{"site_tagline", "tagline",
		func(p *SettingsPatch) *string { return p.Tagline },
		func(s *LegacySettings, v string) { s.Tagline = v }},
	{"site_description", "description",
		func(p *SettingsPatch) *string { return p.Description },
		func(s *LegacySettings, v string) { s.Description = v }},
	{"logo_url", "logoUrl",
		func(p *SettingsPatch) *string { return p.LogoURL },
		func(s *LegacySettings, v string) { s.LogoURL = v }},
	{"business_hours", "businessHours",
		func(p *SettingsPatch) *string { return p.BusinessHours },
		func(s *LegacySettings, v string) { s.BusinessHours = v }},
	{"address_street", "address.street",
		func(p *SettingsPatch) *string { return addr(p, func(a *AddressPatch) *string { return a.Street }) },
		func(s *LegacySettings, v string) { s.Address.Street = v }},
	{"address_city", "address.city",
		func(p *SettingsPatch) *string { return addr(p, func(a *AddressPatch) *string { return a.City }) },
		func(s *LegacySettings, v string) { s.Address.City = v }},
	{"address_state", "address.state",
		func(p *SettingsPatch) *string { return addr(p, func(a *AddressPatch) *string { return a.State }) },
		func(s *LegacySettings, v string) { s.Address.State = v }},
	{"address_zip", "address.zip",
		func(p *SettingsPatch) *string { return addr(p, func(a *AddressPatch) *string { return a.Zip }) },
		func(s *LegacySettings, v string) { s.Address.Zip = v }},
	{"address_country", "address.country",
		func(p *SettingsPatch) *string { return addr(p, func(a *AddressPatch) *string { return a.Country }) },
		func(s *LegacySettings, v string) { s.Address.Country = v }},
	{"contact_email", "contact.email",
		func(p *SettingsPatch) *string { return contact(p, func(c *ContactPatch) *string { return c.Email }) },
		func(s *LegacySettings, v string) { s.Contact.Email = v }},
	{"contact_phone", "contact.phone",
		func(p *SettingsPatch) *string { return contact(p, func(c *ContactPatch) *string { return c.Phone }) },
		func(s *LegacySettings, v string) { s.Contact.Phone = v }},
	{"contact_whatsapp", "contact.whatsapp",
		func(p *SettingsPatch) *string { return contact(p, func(c *ContactPatch) *string { return c.WhatsApp }) },
		func(s *LegacySettings, v string) { s.Contact.WhatsApp = v }},
}

func addr(p *SettingsPatch, f func(*AddressPatch) *string) *string {
	if p.Address == nil {
		return nil
	}
	return f(p.Address)
}

func contact(p *SettingsPatch, f func(*ContactPatch) *string) *string {
	if p.Contact == nil {
		return nil
	}
	return f(p.Contact)
}

// SettingKeys returns the normalized keys known to the translation table.
func SettingKeys() []string {
	keys := make([]string, len(settingFields))
	for i, f := range settingFields {
		keys[i] = f.Key
	}
	return keys
}

// FlattenSettings turns a patch into the site_settings rows to upsert, in
// translation-table order. Fields absent from the patch produce no row.
func FlattenSettings(p SettingsPatch) []SettingKV {
	var rows []SettingKV
	for _, f := range settingFields {
		if v := f.get(&p); v != nil {
			rows = append(rows, SettingKV{Key: f.Key, Value: *v})
		}
	}
	return rows
}

// PatchSocials returns the patch's social links with case-insensitive
// duplicates collapsed. Links are sorted by lower-cased name; on a collision
// the lexically greatest original spelling wins.
func PatchSocials(p SettingsPatch) []SocialLink {
	names := make([]string, 0, len(p.Socials))
	for name := range p.Socials {
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	byKey := make(map[string]SocialLink, len(names))
	for _, name := range names {
		byKey[SocialKey(name)] = SocialLink{Name: strings.TrimSpace(name), URL: p.Socials[name]}
	}

	links := make([]SocialLink, 0, len(byKey))
	for _, l := range byKey {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return SocialKey(links[i].Name) < SocialKey(links[j].Name) })
	return links
}

// SocialKey is the case-insensitive match key for a platform name.
func SocialKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ExpandSettings builds the legacy shape from normalized rows and social
// platforms. Unknown keys are ignored; missing keys stay empty.
func ExpandSettings(rows map[string]string, socials []SocialPlatform) LegacySettings {
	s := LegacySettings{
		SchemaVersion: SettingsSchemaVersion,
		Socials:       make(map[string]string, len(socials)),
	}
	for _, f := range settingFields {
		if v, ok := rows[f.Key]; ok {
			f.set(&s, v)
		}
	}
	for _, sp := range socials {
		s.Socials[SocialKey(sp.PlatformName)] = sp.URL
	}
	return s
}
