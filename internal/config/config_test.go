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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost/guestflow_test"

provider:
  base_url: "https://api.mailer.test/v1"
  api_key: "test-api-key"
  timeout_seconds: 45
  unsubscribe_base_url: "https://engage.test/u"
  signing_key: "secret"

automation:
  enabled: true
  interval_minutes: 30
  flow_parallelism: 2
  max_email_frequency_days: 5

preview:
  debounce_millis: 250
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres://localhost/guestflow_test", cfg.Database.URL)
	assert.Equal(t, 45*time.Second, cfg.Provider.Timeout())
	assert.Equal(t, 30*time.Minute, cfg.Automation.Interval())
	assert.Equal(t, 2, cfg.Automation.FlowParallelism)
	assert.Equal(t, 5, cfg.Automation.MaxEmailFrequencyDays)
	assert.Equal(t, 250*time.Millisecond, cfg.Preview.Debounce())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Automation.Interval())
	assert.Equal(t, 4, cfg.Automation.FlowParallelism)
	assert.Equal(t, 3, cfg.Automation.MaxEmailFrequencyDays)
	assert.Equal(t, 500*time.Millisecond, cfg.Preview.Debounce())
	assert.Equal(t, 60*time.Second, cfg.Preview.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://prod/guestflow")
	t.Setenv("PROVIDER_API_KEY", "env-key")
	t.Setenv("UNSUBSCRIBE_SIGNING_KEY", "env-signing")
	t.Setenv("AUTOMATION_INTERVAL_MINUTES", "5")

	cfg, err := LoadFromEnv(writeConfig(t, `
provider:
  api_key: "file-key"
`))
	require.NoError(t, err)

	assert.Equal(t, "postgres://prod/guestflow", cfg.Database.URL)
	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, "env-signing", cfg.Provider.SigningKey)
	assert.Equal(t, 5, cfg.Automation.IntervalMinutes)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
