package weather

import (
	"os"
	"path/filepath"
	"testing"

	"agri-assistant-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLookupPrefersRegionFile(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "texas.json", `{"avg_temp_c": 28, "scope": "region"}`)
	writeJSON(t, dir, "tx.json", `{"avg_temp_c": 26, "scope": "state"}`)
	writeJSON(t, dir, "default.json", `{"scope": "default"}`)

	record := NewLoader(dir).Lookup(store.Context{"region": "Texas", "state": "TX"})
	assert.Equal(t, "region", record["scope"])
}

func TestLookupFallsBackToState(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "tx.json", `{"scope": "state"}`)
	writeJSON(t, dir, "default.json", `{"scope": "default"}`)

	record := NewLoader(dir).Lookup(store.Context{"region": "Texas", "state": "TX"})
	assert.Equal(t, "state", record["scope"])
}

func TestLookupFallsBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "default.json", `{"scope": "default"}`)

	record := NewLoader(dir).Lookup(store.Context{"region": "Texas", "state": "TX"})
	assert.Equal(t, "default", record["scope"])
}

func TestLookupSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "texas.json", `{not json`)
	writeJSON(t, dir, "default.json", `{"scope": "default"}`)

	record := NewLoader(dir).Lookup(store.Context{"region": "Texas"})
	assert.Equal(t, "default", record["scope"])
}

func TestLookupNoteWhenNothingFound(t *testing.T) {
	record := NewLoader(t.TempDir()).Lookup(store.Context{})
	assert.Contains(t, record, "note")
}

func TestLookupSlugifiesRegionName(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "rio_grande_valley.json", `{"scope": "region"}`)

	record := NewLoader(dir).Lookup(store.Context{"region": "Rio Grande Valley"})
	assert.Equal(t, "region", record["scope"])
}
