package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "|", cfg.Delimiter)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "error", cfg.Log)
	assert.Empty(t, cfg.File)
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
delimiter: ";"
workers: 4
log: debug
`
	path := filepath.Join(dir, "nettype.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, ";", cfg.Delimiter)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "debug", cfg.Log)
	assert.Equal(t, path, cfg.File)
}

func TestLoadSearchOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "nettype.yaml"), []byte("workers: 2\n"), 0o644))

	cfg, err := LoadFrom(first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nettype.yaml"), []byte("delimiter: \";\"\n"), 0o644))
	t.Setenv("NETTYPE_DELIMITER", ",")
	t.Setenv("NETTYPE_WORKERS", "3")
	t.Setenv("NETTYPE_LOG", "warn")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, ",", cfg.Delimiter)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "warn", cfg.Log)
}

func TestLoadFromHomeConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	dir := filepath.Join(home, ".config", "nettype")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nettype.yaml"), []byte("workers: 6\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Workers)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"empty delimiter", "delimiter: \"\"\n", "delimiter must not be empty"},
		{"negative workers", "workers: -1\n", "workers must not be negative"},
		{"malformed yaml", "workers: [\n", "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "nettype.yaml"), []byte(tt.content), 0o644))

			_, err := LoadFrom(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
