package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "optigov.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.Seed)
	assert.Nil(t, cfg.Admin)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
http:
  addr: ":9000"
  cors_origins: ["https://dashboard.optigov.ng"]
storage:
  driver: sqlite
  dsn: /var/lib/optigov/optigov.db
auth:
  secret: from-file
  session_ttl: 15m
  bcrypt_cost: 11
seed:
  enabled: false
  admin:
    username: root
    email: root@optigov.ng
    password: hunter22
`)
	t.Setenv("OPTIGOV_AUTH_SECRET", "from-env")
	t.Setenv("OPTIGOV_HTTP_ADDR", ":7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/optigov/optigov.db", cfg.Storage.DSN)
	assert.Equal(t, "from-env", cfg.AuthSecret)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 11, cfg.BcryptCost)
	assert.False(t, cfg.Seed)
	assert.Equal(t, []string{"https://dashboard.optigov.ng"}, cfg.CORSOrigins)
	require.NotNil(t, cfg.Admin)
	assert.Equal(t, "root", cfg.Admin.Username)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load(writeFile(t, "storage:\n  driver: etcd\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "auth:\n  session_ttl: soon\n"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "http: [unterminated"))
	require.Error(t, err)

	t.Setenv("OPTIGOV_SESSION_TTL", "-1m")
	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvAdminAndCSV(t *testing.T) {
	t.Setenv("OPTIGOV_ADMIN_EMAIL", "admin@optigov.ng")
	t.Setenv("OPTIGOV_ADMIN_PASSWORD", "admin123")
	t.Setenv("OPTIGOV_CORS_ORIGINS", "https://a.ng, ,https://b.ng")
	t.Setenv("OPTIGOV_SEED", "no")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Admin)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, []string{"https://a.ng", "https://b.ng"}, cfg.CORSOrigins)
	assert.False(t, cfg.Seed)
}
