package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
app:
  app_env: prod
  base_url: https://auth.example.com
cookies:
  domain: example.com
storage:
  driver: postgres
  dsn: postgres://broker@localhost/broker
cache:
  kind: redis
  redis:
    addr: redis:6379
jwt:
  access_ttl: 2m
providers:
  discord:
    enabled: true
    client_id: cid
    client_secret: csecret
security:
  secretbox_master_key: AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.True(t, c.IsProd())
	assert.Equal(t, 2*time.Minute, c.JWT.AccessTTL)
	assert.Equal(t, 72*time.Hour, c.JWT.RefreshTTL)
	assert.Equal(t, 30*time.Second, c.Flow.StateTTL)
	assert.Equal(t, 30*time.Second, c.Flow.CodeTTL)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "https://auth.example.com/auth/discord/redirect", c.CallbackURL("/auth/discord/redirect"))
	assert.NoError(t, c.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("RATE_ENABLED", "true")
	t.Setenv("JWT_ACCESS_TTL", "90s")

	c, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.False(t, c.IsProd())
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, c.Server.CORSAllowedOrigins)
	assert.True(t, c.Rate.Enabled)
	assert.Equal(t, 90*time.Second, c.JWT.AccessTTL)
}

func TestValidate_Errors(t *testing.T) {
	c := FromEnv()
	c.App.Env = EnvProd
	c.App.BaseURL = "not a url"
	c.Storage.DSN = ""
	c.Providers.Discord.Enabled = false
	c.Providers.Steam.Enabled = true
	c.Providers.Steam.APIKey = ""
	c.Security.SecretBoxMasterKey = ""

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"base_url", "cookies.domain", "storage.dsn", "providers.steam", "secretbox"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestTrustedProxiesFromEnv(t *testing.T) {
	t.Setenv("SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
	c := FromEnv()
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, c.Server.TrustedProxies)
}
