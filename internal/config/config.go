// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	Account   AccountConfig   `yaml:"account"`
	Policy    PolicyConfig    `yaml:"policy"`
	Auth      AuthConfig      `yaml:"auth"`
	Platform  PlatformConfig  `yaml:"platform"`
	Timing    TimingConfig    `yaml:"timing"`
	System    SystemConfig    `yaml:"system"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Alerts    AlertsConfig    `yaml:"alerts"`
}

// AccountConfig identifies the unattended account the bot runs as
type AccountConfig struct {
	SteamID64 uint64 `yaml:"steam_id64" validate:"required"`
	APIKey    Secret `yaml:"api_key"` // Recovered from the developer page when empty
}

// PolicyConfig is the fixed trade decision policy
type PolicyConfig struct {
	AcceptDonations  bool     `yaml:"accept_donations"`
	AcceptEscrow     bool     `yaml:"accept_escrow"`
	Accept1to1Trades bool     `yaml:"accept_1to1_trades"`
	Accept1to2Trades bool     `yaml:"accept_1to2_trades"`
	Admins           []uint64 `yaml:"admins"`
}

// AuthConfig carries the handshake and confirmation credentials
type AuthConfig struct {
	PublicKeyPEM   string `yaml:"public_key_pem" validate:"required"` // Platform-published RSA key
	IdentitySecret Secret `yaml:"identity_secret"`                    // For the mobile confirmation sweep
	SessionDBPath  string `yaml:"session_db_path"`                    // Empty disables session persistence
}

// PlatformConfig holds the remote endpoints. Defaults target the live
// platform; tests point these at an httptest server.
type PlatformConfig struct {
	CommunityHost     string `yaml:"community_host"`
	StoreHost         string `yaml:"store_host"`
	APIBaseURL        string `yaml:"api_base_url"`
	TransportURL      string `yaml:"transport_url"`
	RequestsPerSecond int    `yaml:"requests_per_second" validate:"min=1,max=100"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" validate:"min=1,max=300"`
}

// TimingConfig contains timing-related settings
type TimingConfig struct {
	PollIntervalSeconds       int `yaml:"poll_interval_seconds" validate:"min=1,max=3600"`
	TransportReconnectSeconds int `yaml:"transport_reconnect_seconds" validate:"min=1,max=300"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR FATAL"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// AlertsConfig contains notification channel settings
type AlertsConfig struct {
	SlackWebhookURL  Secret `yaml:"slack_webhook_url"`
	TelegramBotToken Secret `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// DefaultConfig returns a configuration with platform defaults filled in
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			CommunityHost:     "steamcommunity.com",
			StoreHost:         "store.steampowered.com",
			APIBaseURL:        "https://api.steampowered.com",
			RequestsPerSecond: 5,
			TimeoutSeconds:    30,
		},
		Timing: TimingConfig{
			PollIntervalSeconds:       2,
			TransportReconnectSeconds: 5,
		},
		System: SystemConfig{
			LogLevel: "INFO",
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateAccountConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validateAuthConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validatePlatformConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validateTimingConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateAccountConfig() error {
	if c.Account.SteamID64 == 0 {
		return ValidationError{
			Field:   "account.steam_id64",
			Message: "account id is required",
		}
	}
	return nil
}

func (c *Config) validateAuthConfig() error {
	if c.Auth.PublicKeyPEM == "" {
		return ValidationError{
			Field:   "auth.public_key_pem",
			Message: "platform public key is required for the login handshake",
		}
	}
	if !strings.Contains(c.Auth.PublicKeyPEM, "BEGIN PUBLIC KEY") {
		return ValidationError{
			Field:   "auth.public_key_pem",
			Message: "must be a PEM-encoded public key",
		}
	}
	return nil
}

func (c *Config) validatePlatformConfig() error {
	if c.Platform.CommunityHost == "" || c.Platform.StoreHost == "" {
		return ValidationError{
			Field:   "platform.community_host",
			Message: "both community and store hosts must be set",
		}
	}
	if c.Platform.RequestsPerSecond < 1 || c.Platform.RequestsPerSecond > 100 {
		return ValidationError{
			Field:   "platform.requests_per_second",
			Value:   c.Platform.RequestsPerSecond,
			Message: "must be between 1 and 100",
		}
	}
	if c.Platform.TimeoutSeconds < 1 || c.Platform.TimeoutSeconds > 300 {
		return ValidationError{
			Field:   "platform.timeout_seconds",
			Value:   c.Platform.TimeoutSeconds,
			Message: "must be between 1 and 300",
		}
	}
	return nil
}

func (c *Config) validateTimingConfig() error {
	if c.Timing.PollIntervalSeconds < 1 || c.Timing.PollIntervalSeconds > 3600 {
		return ValidationError{
			Field:   "timing.poll_interval_seconds",
			Value:   c.Timing.PollIntervalSeconds,
			Message: "must be between 1 and 3600",
		}
	}
	if c.Timing.TransportReconnectSeconds < 1 || c.Timing.TransportReconnectSeconds > 300 {
		return ValidationError{
			Field:   "timing.transport_reconnect_seconds",
			Value:   c.Timing.TransportReconnectSeconds,
			Message: "must be between 1 and 300",
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	for _, level := range validLevels {
		if c.System.LogLevel == level {
			return nil
		}
	}
	return ValidationError{
		Field:   "system.log_level",
		Value:   c.System.LogLevel,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} placeholders with environment variable values
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}
