package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add waybill index", "add_waybill_index"},
		{"Add-Waybill-Index", "add_waybill_index"},
		{"add__manifest__logs", "add_manifest_logs"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "special_chars"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_Sequential(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create orders", "Orders and manifest ledger")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_create_orders.up.sql"), first.UpPath)

	body, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- create_orders (up)")
	assert.Contains(t, string(body), "-- Orders and manifest ledger")

	second, err := CreateMigration(dir, "Add waybill index", "")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)
	assert.FileExists(t, second.DownPath)

	names, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_orders", "000002_add_waybill_index"}, names)
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		names, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("orders numerically and ignores other files", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000010_late.up.sql", "000010_late.down.sql",
			"000002_early.up.sql", "README.md", "notes.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}
		names, err := ListMigrations(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"000002_early", "000010_late"}, names)
	})
}

func TestListMigrations_RepoMigrations(t *testing.T) {
	names, err := ListMigrations(filepath.Join("..", "..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "000001_create_manifest_tables", names[0])
}
