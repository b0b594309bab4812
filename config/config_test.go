package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.UseRedis)
	assert.Equal(t, "localhost", cfg.RedisHost)
	assert.Equal(t, 6379, cfg.RedisPort)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
use_redis: true
redis_host: cache.internal
redis_port: 6380
redis_password: hunter2
max_retries: 5
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.UseRedis)
	assert.Equal(t, "cache.internal", cfg.RedisHost)
	assert.Equal(t, 6380, cfg.RedisPort)
	assert.Equal(t, "hunter2", cfg.RedisPassword)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis_host: from-file\n"), 0o600))

	t.Setenv("STORE_REDIS_HOST", "from-env")
	t.Setenv("STORE_REDIS_PORT", "7000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.RedisHost)
	assert.Equal(t, 7000, cfg.RedisPort)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("STORE_USE_REDIS", "not-a-bool")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultStoreConfig()
	assert.NoError(t, cfg.Validate())

	cfg.UseRedis = true
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.RedisHost = ""
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RedisPort = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.RedisSSL = true
	bad.RedisSSLCertfile = "client.crt"
	assert.Error(t, bad.Validate(), "certfile without keyfile")

	bad.RedisSSLKeyfile = "client.key"
	assert.NoError(t, bad.Validate())

	bad = cfg
	bad.MaxRetries = -1
	assert.Error(t, bad.Validate())
}

func TestOpenStore_Local(t *testing.T) {
	cfg := DefaultStoreConfig()
	st, err := cfg.OpenStore(nil)
	require.NoError(t, err)
	require.NotNil(t, st)
	t.Cleanup(func() { _ = st.Close() })
}
