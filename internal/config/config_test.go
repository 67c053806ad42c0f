package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"sitekeeper/internal/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SITEKEEPER_SITE", "SITEKEEPER_DB", "SITEKEEPER_ADDR", "SITEKEEPER_QUOTA",
		"SITEKEEPER_NOTICE_TTL", "SITEKEEPER_LOG_LEVEL", "SITEKEEPER_LOG_JSON",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, kv.DefaultQuota, cfg.QuotaBytes)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sitekeeper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
site: ./public
db: ":memory:"
notice_ttl: 5s
pages:
  members: team.html
log:
  level: debug
`), 0o644))
	t.Setenv("SITEKEEPER_DB", "/tmp/content.db")
	t.Setenv("SITEKEEPER_QUOTA", "1024")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "./public", cfg.Site)
	assert.Equal(t, "/tmp/content.db", cfg.DB)
	assert.Equal(t, int64(1024), cfg.QuotaBytes)
	assert.Equal(t, 5*time.Second, cfg.NoticeTTL)
	assert.Equal(t, "team.html", cfg.Pages.Members)
	assert.Equal(t, "projects.html", cfg.Pages.Projects, "unset pages keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SITEKEEPER_LOG_JSON", "maybe")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site: [unterminated"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("SITEKEEPER_ADDR=127.0.0.1:9999\n"), 0o644))
	// godotenv never overrides a variable that is set, even to "".
	require.NoError(t, os.Unsetenv("SITEKEEPER_ADDR"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), envPath))
	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Addr)
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "sitekeeper.yaml")
	cfg := DefaultConfig()
	cfg.Site = "./www"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
