package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"add meter readings":  "add_meter_readings",
		"Add-Penalty-Configs": "add_penalty_configs",
		"billing__index":      "billing_index",
		"   spaces   ":        "spaces",
		"drop!@#$table":       "droptable",
		"_leading":            "leading",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeName(in), in)
	}
}

func TestCreate_SequentialVersions(t *testing.T) {
	dir := t.TempDir()

	first, err := Create(dir, "init ledger", "Tables for leases and billings")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_init_ledger.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Tables for leases and billings")
	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "(rollback)")

	second, err := Create(dir, "reading index", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	entries, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{1, "init_ledger"}, {2, "reading_index"}}, entries)
}

func TestCreate_RejectsEmptyName(t *testing.T) {
	_, err := Create(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestList_MissingDirectory(t *testing.T) {
	entries, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestList_RepositoryMigrations(t *testing.T) {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := List(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, uint(1), entries[0].Version)
	for i := range entries {
		_, err := os.Stat(filepath.Join(dir, entries[i].fileBase()+".down.sql"))
		assert.NoError(t, err, "missing down migration for %s", entries[i].Name)
	}
}
