// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestFlattenSettings_OnlyProvidedFields(t *testing.T) {
	rows := FlattenSettings(SettingsPatch{
		SiteName: strPtr("X"),
		Address:  &AddressPatch{Street: strPtr("S")},
	})

	assert.Equal(t, []SettingKV{
		{Key: "site_name", Value: "X"},
		{Key: "address_street", Value: "S"},
	}, rows)
}

func TestFlattenSettings_EmptyStringIsProvided(t *testing.T) {
	rows := FlattenSettings(SettingsPatch{Tagline: strPtr("")})
	require.Len(t, rows, 1)
	assert.Equal(t, SettingKV{Key: "site_tagline", Value: ""}, rows[0])
}

func TestFlattenExpand_RoundTrip(t *testing.T) {
	full := SettingsPatch{
		SiteName:      strPtr("Wings"),
		Tagline:       strPtr("We build"),
		Description:   strPtr("desc"),
		LogoURL:       strPtr("/logo.svg"),
		BusinessHours: strPtr("Mon-Fri 9-5"),
		Address: &AddressPatch{
			Street: strPtr("1 Main St"), City: strPtr("Lagos"), State: strPtr("LA"),
			Zip: strPtr("100001"), Country: strPtr("NG"),
		},
		Contact: &ContactPatch{Email: strPtr("hi@example.com"), Phone: strPtr("+1"), WhatsApp: strPtr("+2")},
	}

	rows := map[string]string{}
	for _, kv := range FlattenSettings(full) {
		rows[kv.Key] = kv.Value
	}
	assert.Len(t, rows, len(SettingKeys()))

	got := ExpandSettings(rows, nil)
	assert.Equal(t, SettingsSchemaVersion, got.SchemaVersion)
	assert.Equal(t, "Wings", got.SiteName)
	assert.Equal(t, "We build", got.Tagline)
	assert.Equal(t, "desc", got.Description)
	assert.Equal(t, "/logo.svg", got.LogoURL)
	assert.Equal(t, "Mon-Fri 9-5", got.BusinessHours)
	assert.Equal(t, Address{Street: "1 Main St", City: "Lagos", State: "LA", Zip: "100001", Country: "NG"}, got.Address)
	assert.Equal(t, Contact{Email: "hi@example.com", Phone: "+1", WhatsApp: "+2"}, got.Contact)
}

func TestExpandSettings_SocialsLowerCased(t *testing.T) {
	got := ExpandSettings(map[string]string{"unknown_key": "ignored"}, []SocialPlatform{
		{PlatformName: "LinkedIn", URL: "https://linkedin.com/x"},
		{PlatformName: "twitter", URL: "https://x.com/x"},
	})

	assert.Equal(t, map[string]string{
		"linkedin": "https://linkedin.com/x",
		"twitter":  "https://x.com/x",
	}, got.Socials)
	assert.Empty(t, got.SiteName)
}

func TestPatchSocials_CollapsesCaseInsensitiveDuplicates(t *testing.T) {
	links := PatchSocials(SettingsPatch{Socials: map[string]string{
		"LinkedIn":  "a",
		"linkedin":  "b",
		"Instagram": "c",
		"  ":        "ignored",
	}})

	require.Len(t, links, 2)
	assert.Equal(t, "Instagram", links[0].Name)
	// "linkedin" sorts after "LinkedIn", so its value wins.
	assert.Equal(t, SocialLink{Name: "linkedin", URL: "b"}, links[1])
}

func TestSettingsPatch_JSONDistinguishesMissingFromEmpty(t *testing.T) {
	var p SettingsPatch
	require.NoError(t, json.Unmarshal([]byte(`{"siteName":"","address":{"city":"Abuja"}}`), &p))

	require.NotNil(t, p.SiteName)
	assert.Equal(t, "", *p.SiteName)
	assert.Nil(t, p.Tagline)
	require.NotNil(t, p.Address)
	assert.Nil(t, p.Address.Street)
	assert.Equal(t, "Abuja", *p.Address.City)
}
