package defaults

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/wingsite/internal/model"
)

func TestMerge_Nested(t *testing.T) {
	base := map[string]any{
		"siteName": "Base",
		"address":  map[string]any{"street": "Old", "city": "Town"},
		"tags":     []any{"a", "b"},
	}
	overlay := map[string]any{
		"siteName": "Over",
		"address":  map[string]any{"street": "New"},
		"tags":     []any{"c"},
		"extra":    1.0,
	}

	got := Merge(base, overlay)

	assert.Equal(t, "Over", got["siteName"])
	assert.Equal(t, map[string]any{"street": "New", "city": "Town"}, got["address"])
	assert.Equal(t, []any{"c"}, got["tags"])
	assert.Equal(t, 1.0, got["extra"])
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	base := map[string]any{"address": map[string]any{"street": "Old"}}
	overlay := map[string]any{"address": map[string]any{"street": "New"}}

	got := Merge(base, overlay)
	got["address"].(map[string]any)["city"] = "X"

	assert.Equal(t, map[string]any{"street": "Old"}, base["address"])
	assert.Equal(t, map[string]any{"street": "New"}, overlay["address"])
}

func TestMerge_ScalarReplacesObject(t *testing.T) {
	got := Merge(map[string]any{"contact": map[string]any{"email": "a"}}, map[string]any{"contact": nil})
	assert.Nil(t, got["contact"])
}

func TestSiteSettings_FreshCopies(t *testing.T) {
	a := SiteSettings()
	a["address"].(map[string]any)["street"] = "changed"
	assert.Empty(t, SiteSettings()["address"].(map[string]any)["street"])
}

func TestMergeJSON(t *testing.T) {
	got, err := MergeJSON(ContactConfig(), json.RawMessage(`{"phone":"+1 555","formEnabled":false}`))
	require.NoError(t, err)
	assert.Equal(t, "+1 555", got["phone"])
	assert.Equal(t, false, got["formEnabled"])
	assert.Equal(t, "hello@example.com", got["email"])

	got, err = MergeJSON(ContactConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, ContactConfig(), got)

	_, err = MergeJSON(ContactConfig(), json.RawMessage(`[1]`))
	assert.Error(t, err)
}

func TestSettingsPatch(t *testing.T) {
	p, err := SettingsPatch()
	require.NoError(t, err)
	require.NotNil(t, p.SiteName)
	assert.Equal(t, "Wingsite", *p.SiteName)
	require.NotNil(t, p.Contact)
	assert.Equal(t, "hello@example.com", *p.Contact.Email)

	kvs := model.FlattenSettings(p)
	assert.NotEmpty(t, kvs)
	assert.Len(t, model.PatchSocials(p), 4)
}
