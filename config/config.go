// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/rewardctl/domain/chain"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "rewardctl.yaml"

// Config is the root configuration structure.
type Config struct {
	Chain    ChainConfig    `yaml:"chain"`
	Wallet   WalletConfig   `yaml:"wallet"`
	Gas      GasConfig      `yaml:"gas"`
	Events   EventsConfig   `yaml:"events"`
	Schemas  SchemasConfig  `yaml:"schemas"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
}

// ChainConfig locates the chain node.
type ChainConfig struct {
	RPCURL  string        `yaml:"rpc_url"`
	RESTURL string        `yaml:"rest_url"` // default: rpc_url with :26657 replaced by :1317
	ChainID string        `yaml:"chain_id"` // default: read from the node
	Timeout time.Duration `yaml:"timeout"`
}

// WalletConfig configures the signing key.
// The mnemonic should come from the environment, never from a committed file.
type WalletConfig struct {
	Mnemonic   string `yaml:"mnemonic,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"`
	HDPath     string `yaml:"hd_path"`
	Prefix     string `yaml:"prefix"` // bech32 address prefix
}

// GasConfig configures fees and confirmation polling.
type GasConfig struct {
	Price        string        `yaml:"price"` // e.g. "0.0001stake"
	Limit        uint64        `yaml:"limit"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout"`
}

// EventsConfig configures how tx events are interpreted.
type EventsConfig struct {
	CreatedID chain.EventMatcher `yaml:"created_id"`
}

// SchemasConfig lists additional message schema files registered at startup.
type SchemasConfig struct {
	Files []string `yaml:"files"`
}

// ServerConfig configures the local HTTP gateway.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the transaction journal.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // sqlite path; "memory" keeps the journal in process, "none" disables it
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"

	// File, when set, receives logs instead of stderr and is rotated by size.
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb,omitempty"`
	MaxBackups int    `yaml:"max_backups,omitempty"`
	MaxAgeDays int    `yaml:"max_age_days,omitempty"`
	Compress   bool   `yaml:"compress,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Address returns the gateway listen address.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JournalEnabled reports whether transactions are journaled.
func (c DatabaseConfig) JournalEnabled() bool {
	return c.DSN != "" && c.DSN != "none"
}

// InMemory reports whether the journal is kept in process memory only.
func (c DatabaseConfig) InMemory() bool {
	return c.DSN == "memory"
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML content.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{
		Metrics: MetricsConfig{Enabled: true},
		OpenAPI: OpenAPIConfig{Enabled: true},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	REWARDCTL_RPC_URL         - Node RPC URL (default: http://localhost:26657)
//	REWARDCTL_REST_URL        - REST gateway URL (default: derived from RPC URL)
//	REWARDCTL_CHAIN_ID        - Chain id (default: read from the node)
//	REWARDCTL_MNEMONIC        - Wallet mnemonic
//	REWARDCTL_PASSPHRASE      - BIP-39 passphrase
//	REWARDCTL_HD_PATH         - Derivation path (default: m/44'/118'/0'/0/0)
//	REWARDCTL_ADDRESS_PREFIX  - Bech32 prefix (default: reward)
//	REWARDCTL_GAS_PRICE       - Gas price (default: 0.0001stake)
//	REWARDCTL_GAS_LIMIT       - Gas limit per tx (default: 200000)
//	REWARDCTL_SERVER_HOST     - Gateway host (default: 127.0.0.1)
//	REWARDCTL_SERVER_PORT     - Gateway port (default: 8080)
//	REWARDCTL_DATABASE_DSN    - Journal path (default: rewardctl.db)
//	REWARDCTL_LOG_LEVEL       - Log level: debug, info, warn, error (default: info)
//	REWARDCTL_LOG_FORMAT      - Log format: json or console (default: console)
//	REWARDCTL_LOG_FILE        - Rotated log file (default: stderr)
//	REWARDCTL_METRICS_ENABLED - Enable /metrics endpoint (default: true)
//	REWARDCTL_OPENAPI_ENABLED - Enable OpenAPI/Swagger (default: true)
func LoadFromEnv() (*Config, error) {
	return Parse(nil)
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies REWARDCTL_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Chain configuration
	if v := os.Getenv("REWARDCTL_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("REWARDCTL_REST_URL"); v != "" {
		cfg.Chain.RESTURL = v
	}
	if v := os.Getenv("REWARDCTL_CHAIN_ID"); v != "" {
		cfg.Chain.ChainID = v
	}
	if v := os.Getenv("REWARDCTL_CHAIN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Chain.Timeout = d
		}
	}

	// Wallet configuration
	if v := os.Getenv("REWARDCTL_MNEMONIC"); v != "" {
		cfg.Wallet.Mnemonic = v
	}
	if v := os.Getenv("REWARDCTL_PASSPHRASE"); v != "" {
		cfg.Wallet.Passphrase = v
	}
	if v := os.Getenv("REWARDCTL_HD_PATH"); v != "" {
		cfg.Wallet.HDPath = v
	}
	if v := os.Getenv("REWARDCTL_ADDRESS_PREFIX"); v != "" {
		cfg.Wallet.Prefix = v
	}

	// Gas configuration
	if v := os.Getenv("REWARDCTL_GAS_PRICE"); v != "" {
		cfg.Gas.Price = v
	}
	if v := os.Getenv("REWARDCTL_GAS_LIMIT"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Gas.Limit = n
		}
	}

	// Server configuration
	if v := os.Getenv("REWARDCTL_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("REWARDCTL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Database configuration
	if v := os.Getenv("REWARDCTL_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Logging configuration
	if v := os.Getenv("REWARDCTL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REWARDCTL_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("REWARDCTL_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	// Metrics configuration
	if v := os.Getenv("REWARDCTL_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("REWARDCTL_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Chain.RPCURL == "" {
		cfg.Chain.RPCURL = "http://localhost:26657"
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 30 * time.Second
	}

	if cfg.Wallet.HDPath == "" {
		cfg.Wallet.HDPath = "m/44'/118'/0'/0/0"
	}
	if cfg.Wallet.Prefix == "" {
		cfg.Wallet.Prefix = "reward"
	}

	if cfg.Gas.Price == "" {
		cfg.Gas.Price = "0.0001stake"
	}
	if cfg.Gas.Limit == 0 {
		cfg.Gas.Limit = 200000
	}
	if cfg.Gas.PollInterval == 0 {
		cfg.Gas.PollInterval = time.Second
	}
	if cfg.Gas.PollTimeout == 0 {
		cfg.Gas.PollTimeout = 30 * time.Second
	}

	if cfg.Events.CreatedID.IsZero() {
		cfg.Events.CreatedID = chain.DefaultCreatedIDMatcher()
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Transactions block until committed.
		cfg.Server.WriteTimeout = cfg.Gas.PollTimeout + 30*time.Second
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "rewardctl.db"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.File != "" {
		if cfg.Logging.MaxSizeMB == 0 {
			cfg.Logging.MaxSizeMB = 10
		}
		if cfg.Logging.MaxBackups == 0 {
			cfg.Logging.MaxBackups = 10
		}
		if cfg.Logging.MaxAgeDays == 0 {
			cfg.Logging.MaxAgeDays = 30
		}
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if !strings.HasPrefix(cfg.Chain.RPCURL, "http://") && !strings.HasPrefix(cfg.Chain.RPCURL, "https://") {
		return fmt.Errorf("chain.rpc_url must be an http(s) URL, got %q", cfg.Chain.RPCURL)
	}
	if cfg.Chain.RESTURL != "" && !strings.HasPrefix(cfg.Chain.RESTURL, "http://") && !strings.HasPrefix(cfg.Chain.RESTURL, "https://") {
		return fmt.Errorf("chain.rest_url must be an http(s) URL, got %q", cfg.Chain.RESTURL)
	}

	if _, err := chain.ParseGasPrice(cfg.Gas.Price); err != nil {
		return fmt.Errorf("gas.price: %w", err)
	}
	if cfg.Gas.PollInterval > cfg.Gas.PollTimeout {
		return fmt.Errorf("gas.poll_interval (%s) exceeds gas.poll_timeout (%s)", cfg.Gas.PollInterval, cfg.Gas.PollTimeout)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if err := cfg.Events.CreatedID.Validate(); err != nil {
		return fmt.Errorf("events.created_id: %w", err)
	}

	for i, f := range cfg.Schemas.Files {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("schemas.files[%d] is empty", i)
		}
	}

	return nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (c Config) Redacted() Config {
	if c.Wallet.Mnemonic != "" {
		c.Wallet.Mnemonic = "***"
	}
	if c.Wallet.Passphrase != "" {
		c.Wallet.Passphrase = "***"
	}
	return c
}
