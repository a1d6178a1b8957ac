// Package config provides configuration management for steamlink.
// It loads the optional YAML configuration file, fills in defaults for every
// key that is absent, and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCallbackHost           = "127.0.0.1"
	DefaultCallbackPort           = 3456
	DefaultCallbackPath           = "/auth"
	DefaultCallbackTimeoutSeconds = 300
	DefaultRequestTimeoutSeconds  = 30
	DefaultLogsMaxTotalSizeMB     = 50

	CredentialBackendSQLite  = "sqlite"
	CredentialBackendKeyring = "keyring"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// DataDir holds the database, the lock file and the logs directory.
	// Empty means WRITABLE_PATH, falling back to ~/.steamlink.
	DataDir string `yaml:"data-dir" json:"data-dir"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to rotating files under the data dir instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB caps the total size of the logs directory. <= 0 disables cleanup.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// CallbackHost is the loopback address the callback listener binds.
	CallbackHost string `yaml:"callback-host" json:"callback-host"`

	// CallbackPort is the fixed port of the callback listener.
	CallbackPort int `yaml:"callback-port" json:"callback-port"`

	// CallbackPath is the only path the callback listener answers.
	CallbackPath string `yaml:"callback-path" json:"callback-path"`

	// CallbackTimeoutSeconds bounds how long a login waits for the provider redirect.
	CallbackTimeoutSeconds int `yaml:"callback-timeout-seconds" json:"callback-timeout-seconds"`

	// OpenIDEndpoint is the provider's OpenID 2.0 endpoint.
	OpenIDEndpoint string `yaml:"openid-endpoint" json:"openid-endpoint"`

	// SteamAPIBase is the root of the Steam Web API.
	SteamAPIBase string `yaml:"steam-api-base" json:"steam-api-base"`

	// VerifyAssertion confirms each redirect with the provider before trusting it.
	VerifyAssertion bool `yaml:"verify-assertion" json:"verify-assertion"`

	// CredentialBackend selects where the API key is kept: "sqlite" or "keyring".
	CredentialBackend string `yaml:"credential-backend" json:"credential-backend"`

	// LoginWindowCommand, when set, is run to host the provider page instead of
	// the default browser. The argument "{url}" is replaced with the login URL.
	LoginWindowCommand []string `yaml:"login-window-command" json:"login-window-command"`

	// NoBrowser prints the login URL instead of opening it.
	NoBrowser bool `yaml:"no-browser" json:"no-browser"`

	// RequestTimeoutSeconds bounds each outbound request to Steam.
	RequestTimeoutSeconds int `yaml:"request-timeout-seconds" json:"request-timeout-seconds"`

	// PostgresDSN switches the profile and credential store to PostgreSQL (PGSTORE_DSN).
	PostgresDSN string `yaml:"-" json:"-"`

	// PostgresSchema is the optional schema for the PostgreSQL tables (PGSTORE_SCHEMA).
	PostgresSchema string `yaml:"-" json:"-"`

	// APIKeyOverride replaces the stored API key for this process (STEAMLINK_API_KEY).
	APIKeyOverride string `yaml:"-" json:"-"`
}

// Default returns a configuration with every key at its default value.
func Default() *Config {
	return &Config{
		LogsMaxTotalSizeMB:     DefaultLogsMaxTotalSizeMB,
		CallbackHost:           DefaultCallbackHost,
		CallbackPort:           DefaultCallbackPort,
		CallbackPath:           DefaultCallbackPath,
		CallbackTimeoutSeconds: DefaultCallbackTimeoutSeconds,
		VerifyAssertion:        true,
		CredentialBackend:      CredentialBackendSQLite,
		RequestTimeoutSeconds:  DefaultRequestTimeoutSeconds,
	}
}

// LoadConfig reads the YAML file at configFile on top of the defaults and
// applies environment overrides. A missing file is an error.
func LoadConfig(configFile string) (*Config, error) {
	return loadConfig(configFile, false)
}

// LoadConfigOptional behaves like LoadConfig but treats a missing file as empty.
func LoadConfigOptional(configFile string) (*Config, error) {
	return loadConfig(configFile, true)
}

func loadConfig(configFile string, optional bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(configFile)
	if err != nil {
		if !optional || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		data = nil
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	cfg.ApplyEnvOverrides()
	cfg.Sanitize()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides copies the supported environment variables into cfg.
func (cfg *Config) ApplyEnvOverrides() {
	if v, ok := lookupEnv("PGSTORE_DSN", "pgstore_dsn"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := lookupEnv("PGSTORE_SCHEMA", "pgstore_schema"); ok {
		cfg.PostgresSchema = v
	}
	if v, ok := lookupEnv("STEAMLINK_API_KEY", "steamlink_api_key"); ok {
		cfg.APIKeyOverride = v
	}
	if v, ok := lookupEnv("STEAMLINK_CALLBACK_PORT", "steamlink_callback_port"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.CallbackPort = port
		}
	}
}

// Sanitize restores defaults for blank or out-of-range values.
func (cfg *Config) Sanitize() {
	cfg.CallbackHost = strings.TrimSpace(cfg.CallbackHost)
	if cfg.CallbackHost == "" {
		cfg.CallbackHost = DefaultCallbackHost
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
	cfg.CallbackPath = strings.TrimSpace(cfg.CallbackPath)
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	if !strings.HasPrefix(cfg.CallbackPath, "/") {
		cfg.CallbackPath = "/" + cfg.CallbackPath
	}
	if cfg.CallbackTimeoutSeconds <= 0 {
		cfg.CallbackTimeoutSeconds = DefaultCallbackTimeoutSeconds
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
	cfg.CredentialBackend = strings.ToLower(strings.TrimSpace(cfg.CredentialBackend))
	if cfg.CredentialBackend == "" {
		cfg.CredentialBackend = CredentialBackendSQLite
	}
	cfg.OpenIDEndpoint = strings.TrimSpace(cfg.OpenIDEndpoint)
	cfg.SteamAPIBase = strings.TrimSpace(cfg.SteamAPIBase)
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.PostgresSchema = strings.TrimSpace(cfg.PostgresSchema)
}

// Validate rejects configurations the login flow cannot run with.
func (cfg *Config) Validate() error {
	if cfg.CallbackPort < 1 || cfg.CallbackPort > 65535 {
		return fmt.Errorf("invalid callback-port %d", cfg.CallbackPort)
	}
	ip := net.ParseIP(cfg.CallbackHost)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("callback-host %q is not a loopback address", cfg.CallbackHost)
	}
	switch cfg.CredentialBackend {
	case CredentialBackendSQLite, CredentialBackendKeyring:
	default:
		return fmt.Errorf("unknown credential-backend %q", cfg.CredentialBackend)
	}
	if len(cfg.LoginWindowCommand) > 0 && strings.TrimSpace(cfg.LoginWindowCommand[0]) == "" {
		return fmt.Errorf("login-window-command has an empty program")
	}
	return nil
}

// CallbackTimeout returns the callback wait as a duration.
func (cfg *Config) CallbackTimeout() time.Duration {
	return time.Duration(cfg.CallbackTimeoutSeconds) * time.Second
}

// RequestTimeout returns the outbound request timeout as a duration.
func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
}

func lookupEnv(keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed, true
			}
		}
	}
	return "", false
}
