package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.Sources.RKI.CountiesURL, "RKI_Landkreisdaten")
	assert.Contains(t, cfg.Sources.RKI.DistributionURL, "RKI_COVID19")
	assert.Equal(t, 2000, cfg.Sources.RKI.PageSize)
	assert.Equal(t, 100000, cfg.Sources.RKI.MaxRecords)
	assert.True(t, cfg.Sources.RKI.Distribution)
	assert.True(t, cfg.Sources.Destatis.Enabled)
	assert.False(t, cfg.Sources.RiskLayer.Enabled)
	assert.Equal(t, "json", cfg.Sources.RiskLayer.Format)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, ".", cfg.Cache.Dir)
	assert.Equal(t, 1, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 60, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, "Token", cfg.Remote.AuthScheme)
	assert.Equal(t, 30, cfg.Remote.TimeoutSecs)
	assert.True(t, cfg.Sync.SkipUnchanged)
	assert.Equal(t, "sqlite", cfg.RunLog.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
sources:
  rki:
    page_size: 500
  risklayer:
    enabled: true
    url: https://example.org/risklayer.csv
    format: csv
cache:
  enabled: false
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Sources.RKI.PageSize)
	assert.True(t, cfg.Sources.RiskLayer.Enabled)
	assert.Equal(t, "csv", cfg.Sources.RiskLayer.Format)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 100000, cfg.Sources.RKI.MaxRecords)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
remote:
  base_url: https://file.example.org/api
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("REGIONSYNC_REMOTE_BASE_URL", "https://env.example.org/api")
	t.Setenv("REGIONSYNC_REMOTE_TOKEN", "abc123")
	t.Setenv("REGIONSYNC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "https://env.example.org/api", cfg.Remote.BaseURL)
	assert.Equal(t, "abc123", cfg.Remote.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestTimeouts(t *testing.T) {
	cfg := &Config{}
	cfg.Fetch.TimeoutSecs = 5
	cfg.Remote.TimeoutSecs = 7
	assert.Equal(t, "5s", cfg.Fetch.Timeout().String())
	assert.Equal(t, "7s", cfg.Remote.Timeout().String())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Sources.RKI.PageSize = 2000
	cfg.Sources.RiskLayer.Format = "json"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateSync_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Remote.BaseURL = "https://example.org/api/v0.1"
	cfg.Remote.Token = "abc"

	assert.NoError(t, cfg.Validate("sync"))
}

func TestValidateSync_MissingFields(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote.base_url is required")
	assert.Contains(t, err.Error(), "remote.token is required")
}

func TestValidateLoad_RiskLayer(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("load"))

	cfg.Sources.RiskLayer.Enabled = true
	cfg.Sources.RiskLayer.Format = "ods"
	err := cfg.Validate("load")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sources.risklayer.url is required")
	assert.Contains(t, err.Error(), "format must be json, csv or xlsx")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
