package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testPublicKey = "-----BEGIN PUBLIC KEY-----\\nMIIBIjAN\\n-----END PUBLIC KEY-----"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func validYAML() string {
	return fmt.Sprintf(`
account:
  steam_id64: 76561197960265770
  api_key: "0123456789ABCDEF"
policy:
  accept_donations: true
  accept_1to1_trades: true
  accept_1to2_trades: true
  admins:
    - 76561197960265771
auth:
  public_key_pem: "%s"
`, testPublicKey)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, validYAML())

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(76561197960265770), cfg.Account.SteamID64)
	assert.Equal(t, "0123456789ABCDEF", cfg.Account.APIKey.Value())
	assert.True(t, cfg.Policy.AcceptDonations)
	assert.False(t, cfg.Policy.AcceptEscrow)
	assert.Equal(t, []uint64{76561197960265771}, cfg.Policy.Admins)

	// Defaults survive a partial file.
	assert.Equal(t, "steamcommunity.com", cfg.Platform.CommunityHost)
	assert.Equal(t, 2, cfg.Timing.PollIntervalSeconds)
	assert.Equal(t, "INFO", cfg.System.LogLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_TRADEBOT_KEY", "FEDCBA9876543210")

	path := writeConfig(t, fmt.Sprintf(`
account:
  steam_id64: 76561197960265770
  api_key: "${TEST_TRADEBOT_KEY}"
auth:
  public_key_pem: "%s"
`, testPublicKey))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "FEDCBA9876543210", cfg.Account.APIKey.Value())
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_TRADEBOT_VAR", "value")

	assert.Equal(t, "key: value", expandEnvVars("key: ${TEST_TRADEBOT_VAR}"))
	// Unset variables expand to the empty string.
	assert.Equal(t, "key: ", expandEnvVars("key: ${DEFINITELY_NOT_SET_ANYWHERE}"))
	// Only the ${VAR} form is expanded.
	assert.Equal(t, "key: $TEST_TRADEBOT_VAR", expandEnvVars("key: $TEST_TRADEBOT_VAR"))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := DefaultConfig()
		cfg.Account.SteamID64 = 76561197960265770
		cfg.Auth.PublicKeyPEM = testPublicKey
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing account", func(c *Config) { c.Account.SteamID64 = 0 }, "account.steam_id64"},
		{"missing public key", func(c *Config) { c.Auth.PublicKeyPEM = "" }, "auth.public_key_pem"},
		{"non-pem public key", func(c *Config) { c.Auth.PublicKeyPEM = "abc" }, "auth.public_key_pem"},
		{"rate too high", func(c *Config) { c.Platform.RequestsPerSecond = 500 }, "requests_per_second"},
		{"poll interval zero", func(c *Config) { c.Timing.PollIntervalSeconds = 0 }, "poll_interval_seconds"},
		{"bad log level", func(c *Config) { c.System.LogLevel = "TRACE" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, `"[REDACTED]"`, fmt.Sprintf("%#v", s))
	assert.Equal(t, "super-secret", s.Value())

	jsonOut, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(jsonOut))

	yamlOut, err := yaml.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(yamlOut), "[REDACTED]")
	assert.NotContains(t, string(yamlOut), "super-secret")
}
