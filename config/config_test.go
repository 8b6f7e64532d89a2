package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	config, err := LoadConfig("dev.toml")
	assert.NoError(t, err)
	assert.NotEmpty(t, config)

	assert.False(t, config.Server.ReadTimeout.String() == "")
	assert.False(t, config.Server.WriteTimeout.String() == "")
	assert.False(t, config.Server.ShutdownTimeout.String() == "")
	assert.False(t, config.Server.APIHost == "")
	assert.Equal(t, EnvironmentDev, config.Server.Environment)
	assert.True(t, config.Server.EnableAllowAllCORS)

	assert.Empty(t, config.Verifier.TrustedIssuers)
	assert.True(t, config.Verifier.AssertExpiry)
	assert.True(t, config.Verifier.AssertNotBefore)
	assert.Equal(t, 10*time.Second, config.Verifier.ResolveTimeout)

	assert.Equal(t, CacheProviderMemory, config.Cache.Provider)
	assert.Equal(t, 5, config.Cache.MaxSize)
	assert.Equal(t, 24*time.Hour, config.Cache.MaxAge)
	assert.Equal(t, "0.1.0", config.SVN)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, config)

	assert.Equal(t, "0.0.0.0:3000", config.Server.APIHost)
	assert.Equal(t, 5*time.Second, config.Server.ReadTimeout)
	assert.False(t, config.Server.JagerEnabled)
	assert.True(t, config.Verifier.AssertExpiry)
	assert.Equal(t, CacheProviderMemory, config.Cache.Provider)
	assert.False(t, config.Cache.IsRedis())
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Run("overrides defaults", func(tt *testing.T) {
		path := writeConfig(tt, `
[server]
environment = "test"

[verifier]
trusted_issuers = ["did:web:example.com"]
assert_expiry = false
resolve_timeout = "2s"

[cache]
provider = "redis"
redis_address = "localhost:6379"
max_size = 50
`)
		config, err := LoadConfig(path)
		require.NoError(tt, err)

		assert.Equal(tt, EnvironmentTest, config.Server.Environment)
		assert.Equal(tt, "0.0.0.0:3000", config.Server.APIHost)
		assert.Equal(tt, []string{"did:web:example.com"}, config.Verifier.TrustedIssuers)
		assert.False(tt, config.Verifier.AssertExpiry)
		assert.True(tt, config.Verifier.AssertNotBefore)
		assert.Equal(tt, 2*time.Second, config.Verifier.ResolveTimeout)
		assert.True(tt, config.Cache.IsRedis())
		assert.Equal(tt, 50, config.Cache.MaxSize)
		assert.Equal(tt, 24*time.Hour, config.Cache.MaxAge)
	})

	t.Run("not a toml file", func(tt *testing.T) {
		_, err := LoadConfig("config.yaml")
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "did not match the expected TOML format")
	})

	t.Run("missing file", func(tt *testing.T) {
		_, err := LoadConfig(filepath.Join(tt.TempDir(), "missing.toml"))
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "could not load config")
	})

	t.Run("redis without an address", func(tt *testing.T) {
		path := writeConfig(tt, "[cache]\nprovider = \"redis\"\n")
		_, err := LoadConfig(path)
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "redis_address")
	})

	t.Run("unknown cache provider", func(tt *testing.T) {
		path := writeConfig(tt, "[cache]\nprovider = \"bolt\"\n")
		_, err := LoadConfig(path)
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "unsupported cache provider<bolt>")
	})

	t.Run("unknown environment", func(tt *testing.T) {
		path := writeConfig(tt, "[server]\nenvironment = \"staging\"\n")
		_, err := LoadConfig(path)
		assert.Error(tt, err)
		assert.Contains(tt, err.Error(), "unknown environment<staging>")
	})
}

func TestServiceInfo(t *testing.T) {
	assert.Equal(t, ServiceName, Name())
	assert.Equal(t, ServiceVersion, Version())
	assert.NotEmpty(t, Description())

	SetAPIBase("http://localhost:3000/")
	assert.Equal(t, "http://localhost:3000", GetAPIBase())
	assert.Equal(t, "http://localhost:3000/v1/verification", GetAPIPath("/verification"))
}

func writeConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
