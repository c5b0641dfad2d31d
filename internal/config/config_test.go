package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// unsetEnv clears keys for the test and restores them afterwards, so values
// set by a .env file do not leak into other tests.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr)
	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, DriverFile, cfg.ConfigStoreDriver())
	assert.Equal(t, 43200*time.Minute, cfg.TokenTTL())
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.True(t, cfg.UsesDevSecret())
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoadLegacyEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "from-legacy")
	t.Setenv("JWT_TTL_MIN", "60")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-legacy", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.TokenTTL())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins())
	assert.False(t, cfg.UsesDevSecret())
}

func TestLoadPrefixedEnvWins(t *testing.T) {
	chdirTemp(t)
	t.Setenv("JWT_SECRET", "legacy")
	t.Setenv("EASYSTUDY_AUTH_JWTSECRET", "prefixed")
	t.Setenv("EASYSTUDY_STORE_DRIVER", "sqlite")
	t.Setenv("EASYSTUDY_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.Auth.JWTSecret)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, DriverSQLite, cfg.ConfigStoreDriver())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("EASYSTUDY_LOG_LEVEL", "warn")
	content := "# comment\nexport EASYSTUDY_DATA_DIR=\"/srv/easystudy\"\nEASYSTUDY_LOG_LEVEL=debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	unsetEnv(t, "EASYSTUDY_DATA_DIR")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/easystudy", cfg.Data.Dir)
	assert.Equal(t, "warn", cfg.Log.Level, "existing environment wins over .env")
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	content := "store:\n  driver: sqlite\n  sqlitepath: /tmp/x.db\nauth:\n  bcryptcost: 12\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.Store.Driver = DriverFile
		c.Auth.JWTSecret = "k"
		c.Auth.TokenTTLMinutes = 10
		return c
	}
	require.NoError(t, base().Validate())

	c := base()
	c.Store.Driver = "postgres"
	assert.Error(t, c.Validate())

	c = base()
	c.ConfigStore.Driver = DriverS3
	assert.Error(t, c.Validate())
	c.S3.Bucket = "bucket"
	assert.NoError(t, c.Validate())
	assert.Equal(t, DriverS3, c.ConfigStoreDriver())

	c = base()
	c.Auth.TokenTTLMinutes = 0
	assert.Error(t, c.Validate())

	c = base()
	c.Auth.JWTSecret = " "
	assert.Error(t, c.Validate())
}

func TestLoadDotEnvStripsInlineComments(t *testing.T) {
	dir := chdirTemp(t)
	content := "JWT_SECRET=prod-secret # rotated 2024-05\nEASYSTUDY_CORS_ORIGINS='https://a.example.com'\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600))
	unsetEnv(t, "JWT_SECRET", "EASYSTUDY_CORS_ORIGINS")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "prod-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"https://a.example.com"}, cfg.AllowedOrigins())
}

func TestLoadDotEnvUnreadable(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env"), 0o755))

	_, err := Load()
	require.Error(t, err)
}
