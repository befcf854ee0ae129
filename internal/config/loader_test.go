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
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalTOML = `
mode = "server"

[wallet]
private_key = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

[ledger]
contract_address = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
`

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, minimalTOML)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Values from the file.
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.Ledger.ContractAddress)

	// Defaults fill everything the file omits.
	assert.Equal(t, int64(11142220), cfg.Ledger.ChainID)
	assert.Equal(t, 90*time.Second, cfg.Ledger.ConfirmTimeout.Duration)
	assert.Equal(t, "IN10Y", cfg.Oracle.Symbol)
	assert.Equal(t, 3, cfg.Registry.WindowSize)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RateLimit)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "server"

[wallet]
private_key = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

[ledger]
contract_address = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
confirm_timeout = "30s"

[registry]
window_size = 10

[server]
port = 9090
rate_limit = 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Ledger.ConfirmTimeout.Duration)
	assert.Equal(t, 10, cfg.Registry.WindowSize)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Server.RateLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VERIFYCHAIN_ORACLE_SYMBOL", "US10Y")
	t.Setenv("VERIFYCHAIN_REGISTRY_WINDOW_SIZE", "5")
	t.Setenv("VERIFYCHAIN_LEDGER_CONFIRM_TIMEOUT", "45s")
	t.Setenv("VERIFYCHAIN_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("VERIFYCHAIN_POSTGRES_RUN_MIGRATIONS", "false")

	path := writeConfig(t, minimalTOML)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "US10Y", cfg.Oracle.Symbol)
	assert.Equal(t, 5, cfg.Registry.WindowSize)
	assert.Equal(t, 45*time.Second, cfg.Ledger.ConfirmTimeout.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			"unknown mode",
			func(c *Config) { c.Mode = "daemon" },
			"unknown mode",
		},
		{
			"no wallet source",
			func(c *Config) { c.Wallet.PrivateKey = "" },
			"wallet",
		},
		{
			"missing contract",
			func(c *Config) { c.Ledger.ContractAddress = "" },
			"contract_address",
		},
		{
			"zero window",
			func(c *Config) { c.Registry.WindowSize = 0 },
			"window_size",
		},
		{
			"rate limit without window",
			func(c *Config) { c.Server.RateLimit = 10; c.Server.RateWindow.Duration = 0 },
			"rate_window",
		},
		{
			"pinata key without secret",
			func(c *Config) { c.Pinata.ApiKey = "key" },
			"pinata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Wallet.PrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
			cfg.Ledger.ContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
			require.NoError(t, cfg.Validate(), "baseline config must be valid")

			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "super-secret"
	cfg.Server.APIKey = "api-secret"
	cfg.Redis.Password = "redis-secret"

	redacted := RedactedConfig(&cfg)
	assert.Equal(t, "***", redacted.Wallet.PrivateKey)
	assert.Equal(t, "***", redacted.Server.APIKey)
	assert.Equal(t, "***", redacted.Redis.Password)

	// The original is untouched.
	assert.Equal(t, "super-secret", cfg.Wallet.PrivateKey)
}
