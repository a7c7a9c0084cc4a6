package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recordstore.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":3000", cfg.Addr)
	assert.Empty(t, cfg.Journal)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
addr: 127.0.0.1:8088
file: /var/lib/recordstore/yapi.json
journal: /var/lib/recordstore/journal.db
shutdown_timeout: 2s
cors:
  allowed_origins: ["http://localhost:8080"]
log:
  level: debug
  format: console
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8088", cfg.Addr)
	assert.Equal(t, "/var/lib/recordstore/yapi.json", cfg.File)
	assert.Equal(t, "/var/lib/recordstore/journal.db", cfg.Journal)
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, Default().MaxBodyBytes, cfg.MaxBodyBytes)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "adr: :1234\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvFile, "/tmp/env.json")
	t.Setenv(EnvJournal, "/tmp/env.db")
	t.Setenv(EnvAddr, ":9999")

	cfg, err := Load(writeConfig(t, "file: from-file.json\n"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.json", cfg.File)
	assert.Equal(t, "/tmp/env.db", cfg.Journal)
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.File = ""
	cfg.MaxBodyBytes = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is required")
	assert.Contains(t, err.Error(), "max_body_bytes")
	assert.Contains(t, err.Error(), "log.format")
}
