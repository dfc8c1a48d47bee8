package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/artpar/rewardctl/config"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
chain:
  rpc_url: "http://node.example:26657"
  chain_id: "rewardchain-1"
  timeout: 15s

wallet:
  prefix: "cosmos"

gas:
  price: "0.025ureward"
  limit: 300000
  poll_interval: 500ms

events:
  created_id:
    event_types: ["partner_created"]
    attribute_keys: ["partner_id"]

schemas:
  files: ["extra.yaml"]

server:
  host: "0.0.0.0"
  port: 9090

database:
  dsn: ":memory:"
`

	cfg := writeAndLoad(t, content)

	if cfg.Chain.RPCURL != "http://node.example:26657" {
		t.Errorf("Chain.RPCURL = %s", cfg.Chain.RPCURL)
	}
	if cfg.Chain.ChainID != "rewardchain-1" {
		t.Errorf("Chain.ChainID = %s", cfg.Chain.ChainID)
	}
	if cfg.Chain.Timeout != 15*time.Second {
		t.Errorf("Chain.Timeout = %v, want 15s", cfg.Chain.Timeout)
	}
	if cfg.Wallet.Prefix != "cosmos" {
		t.Errorf("Wallet.Prefix = %s, want cosmos", cfg.Wallet.Prefix)
	}
	if cfg.Gas.Price != "0.025ureward" || cfg.Gas.Limit != 300000 {
		t.Errorf("Gas = %+v", cfg.Gas)
	}
	if cfg.Gas.PollInterval != 500*time.Millisecond {
		t.Errorf("Gas.PollInterval = %v", cfg.Gas.PollInterval)
	}
	if got := cfg.Events.CreatedID; len(got.EventTypes) != 1 || got.EventTypes[0] != "partner_created" || got.AttributeKeys[0] != "partner_id" {
		t.Errorf("Events.CreatedID = %+v", got)
	}
	if len(cfg.Schemas.Files) != 1 {
		t.Errorf("Schemas.Files = %v", cfg.Schemas.Files)
	}
	if cfg.Server.Address() != "0.0.0.0:9090" {
		t.Errorf("Server.Address() = %s", cfg.Server.Address())
	}
	if !cfg.Database.JournalEnabled() {
		t.Error("journal should be enabled for :memory:")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := writeAndLoad(t, "")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"rpc url", cfg.Chain.RPCURL, "http://localhost:26657"},
		{"rest url", cfg.Chain.RESTURL, ""},
		{"chain timeout", cfg.Chain.Timeout, 30 * time.Second},
		{"hd path", cfg.Wallet.HDPath, "m/44'/118'/0'/0/0"},
		{"prefix", cfg.Wallet.Prefix, "reward"},
		{"gas price", cfg.Gas.Price, "0.0001stake"},
		{"gas limit", cfg.Gas.Limit, uint64(200000)},
		{"poll interval", cfg.Gas.PollInterval, time.Second},
		{"poll timeout", cfg.Gas.PollTimeout, 30 * time.Second},
		{"server host", cfg.Server.Host, "127.0.0.1"},
		{"server port", cfg.Server.Port, 8080},
		{"write timeout", cfg.Server.WriteTimeout, 60 * time.Second},
		{"dsn", cfg.Database.DSN, "rewardctl.db"},
		{"log level", cfg.Logging.Level, "info"},
		{"log format", cfg.Logging.Format, "console"},
		{"metrics enabled", cfg.Metrics.Enabled, true},
		{"metrics path", cfg.Metrics.Path, "/metrics"},
		{"openapi enabled", cfg.OpenAPI.Enabled, true},
		{"matcher types", len(cfg.Events.CreatedID.EventTypes), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_REWARD_MNEMONIC", "word1 word2")

	cfg := writeAndLoad(t, `
wallet:
  mnemonic: "${TEST_REWARD_MNEMONIC}"
`)
	if cfg.Wallet.Mnemonic != "word1 word2" {
		t.Errorf("Wallet.Mnemonic = %q", cfg.Wallet.Mnemonic)
	}
}

func TestLoad_DisableFeatures(t *testing.T) {
	cfg := writeAndLoad(t, `
metrics:
  enabled: false
openapi:
  enabled: false
database:
  dsn: none
`)
	if cfg.Metrics.Enabled || cfg.OpenAPI.Enabled {
		t.Errorf("Metrics/OpenAPI should be disabled: %+v %+v", cfg.Metrics, cfg.OpenAPI)
	}
	if cfg.Database.JournalEnabled() {
		t.Error("journal should be disabled")
	}
}

func TestLoad_LogFileDefaults(t *testing.T) {
	cfg := writeAndLoad(t, `
logging:
  file: /var/log/rewardctl.log
  max_backups: 3
database:
  dsn: memory
`)
	l := cfg.Logging
	if l.MaxSizeMB != 10 || l.MaxBackups != 3 || l.MaxAgeDays != 30 {
		t.Errorf("Logging rotation = %+v", l)
	}
	if !cfg.Database.JournalEnabled() || !cfg.Database.InMemory() {
		t.Error("memory journal should be enabled and in memory")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad rpc scheme", "chain:\n  rpc_url: \"tcp://localhost:26657\"\n", "chain.rpc_url"},
		{"bad rest scheme", "chain:\n  rest_url: \"localhost:1317\"\n", "chain.rest_url"},
		{"bad gas price", "gas:\n  price: \"cheap\"\n", "gas.price"},
		{"poll interval too long", "gas:\n  poll_interval: 1m\n  poll_timeout: 10s\n", "gas.poll_interval"},
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"bad level", "logging:\n  level: loud\n", "logging.level"},
		{"bad format", "logging:\n  format: xml\n", "logging.format"},
		{"bad event pattern", "events:\n  created_id:\n    event_types: [\"[bad\"]\n", "events.created_id"},
		{"empty schema file", "schemas:\n  files: [\"\"]\n", "schemas.files[0]"},
		{"invalid yaml", "chain: [unclosed", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := writeAndLoadErr(t, tt.content)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("REWARDCTL_RPC_URL", "https://rpc.example")
	t.Setenv("REWARDCTL_REST_URL", "https://rest.example")
	t.Setenv("REWARDCTL_CHAIN_ID", "env-chain")
	t.Setenv("REWARDCTL_MNEMONIC", "env mnemonic")
	t.Setenv("REWARDCTL_ADDRESS_PREFIX", "rwd")
	t.Setenv("REWARDCTL_GAS_PRICE", "1ureward")
	t.Setenv("REWARDCTL_GAS_LIMIT", "123456")
	t.Setenv("REWARDCTL_SERVER_PORT", "9999")
	t.Setenv("REWARDCTL_DATABASE_DSN", "/tmp/env.db")
	t.Setenv("REWARDCTL_LOG_LEVEL", "debug")
	t.Setenv("REWARDCTL_LOG_FORMAT", "json")
	t.Setenv("REWARDCTL_METRICS_ENABLED", "no")

	cfg := writeAndLoad(t, `
chain:
  rpc_url: "http://file:26657"
gas:
  price: "0.5stake"
server:
  port: 7000
`)

	if cfg.Chain.RPCURL != "https://rpc.example" || cfg.Chain.RESTURL != "https://rest.example" || cfg.Chain.ChainID != "env-chain" {
		t.Errorf("Chain = %+v", cfg.Chain)
	}
	if cfg.Wallet.Mnemonic != "env mnemonic" || cfg.Wallet.Prefix != "rwd" {
		t.Errorf("Wallet = %+v", cfg.Redacted().Wallet)
	}
	if cfg.Gas.Price != "1ureward" || cfg.Gas.Limit != 123456 {
		t.Errorf("Gas = %+v", cfg.Gas)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Database.DSN != "/tmp/env.db" {
		t.Errorf("Database.DSN = %s", cfg.Database.DSN)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
}

func TestEnvOverrides_InvalidNumbers(t *testing.T) {
	t.Setenv("REWARDCTL_SERVER_PORT", "not-a-port")
	t.Setenv("REWARDCTL_GAS_LIMIT", "-5")
	t.Setenv("REWARDCTL_CHAIN_TIMEOUT", "soon")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Gas.Limit != 200000 {
		t.Errorf("Gas.Limit = %d, want default", cfg.Gas.Limit)
	}
	if cfg.Chain.Timeout != 30*time.Second {
		t.Errorf("Chain.Timeout = %v, want default", cfg.Chain.Timeout)
	}
}

func TestLoadWithFallback(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 7777\n")

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("file config not used, port = %d", cfg.Server.Port)
	}

	t.Setenv("REWARDCTL_SERVER_PORT", "6666")
	for _, p := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := config.LoadWithFallback(p)
		if err != nil {
			t.Fatalf("LoadWithFallback(%q) error: %v", p, err)
		}
		if cfg.Server.Port != 6666 {
			t.Errorf("LoadWithFallback(%q) port = %d, want env 6666", p, cfg.Server.Port)
		}
	}
}

func TestParseBoolValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{" on ", true},
		{"false", false},
		{"0", false},
		{"off", false},
		{"maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("REWARDCTL_OPENAPI_ENABLED", tt.value)
			cfg, err := config.LoadFromEnv()
			if err != nil {
				t.Fatal(err)
			}
			if cfg.OpenAPI.Enabled != tt.want {
				t.Errorf("OpenAPI.Enabled = %v, want %v", cfg.OpenAPI.Enabled, tt.want)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := config.Config{Wallet: config.WalletConfig{Mnemonic: "secret words", Passphrase: "pw", Prefix: "reward"}}
	r := cfg.Redacted()
	if r.Wallet.Mnemonic != "***" || r.Wallet.Passphrase != "***" || r.Wallet.Prefix != "reward" {
		t.Errorf("Redacted() = %+v", r.Wallet)
	}
	if cfg.Wallet.Mnemonic != "secret words" {
		t.Error("Redacted modified the original")
	}
}

func writeAndLoad(t *testing.T, content string) *config.Config {
	t.Helper()
	cfg, err := writeAndLoadErr(t, content)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeAndLoadErr(t *testing.T, content string) (*config.Config, error) {
	t.Helper()
	return config.Load(writeConfig(t, content))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rewardctl.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
