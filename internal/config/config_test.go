package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfigWhenNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "exponential", cfg.Retry.Kind)
}

func TestLoadAppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: DEBUG
  format: json
  output: stdout
server:
  listen_addr: ":9999"
  shutdown_timeout: 10s
retry:
  kind: fixed
  initial_interval: 1s
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.Equal(t, "fixed", cfg.Retry.Kind)
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "VERBOSE"
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsMalformedPublicKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Identity.PublicKeys = []string{"not-a-valid-key"}
	assert.Error(t, Validate(cfg))
}

func TestSaveConfigRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Logging.Level = "WARN"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "WARN", loaded.Logging.Level)
}

func TestRetryConfigRetryPolicy(t *testing.T) {
	cfg := RetryConfig{Kind: "none"}
	assert.NotNil(t, cfg.RetryPolicy())
}
