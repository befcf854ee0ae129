package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies VERIFYCHAIN_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known VERIFYCHAIN_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "VERIFYCHAIN_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "VERIFYCHAIN_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "VERIFYCHAIN_WALLET_KEY_PASSWORD")

	// ── Ledger ──
	setStr(&cfg.Ledger.RPCURL, "VERIFYCHAIN_LEDGER_RPC_URL")
	setInt64(&cfg.Ledger.ChainID, "VERIFYCHAIN_LEDGER_CHAIN_ID")
	setStr(&cfg.Ledger.ContractAddress, "VERIFYCHAIN_LEDGER_CONTRACT_ADDRESS")
	setUint64(&cfg.Ledger.GasLimit, "VERIFYCHAIN_LEDGER_GAS_LIMIT")
	setDuration(&cfg.Ledger.ConfirmTimeout, "VERIFYCHAIN_LEDGER_CONFIRM_TIMEOUT")
	setDuration(&cfg.Ledger.PollInterval, "VERIFYCHAIN_LEDGER_POLL_INTERVAL")

	// ── Analyzer ──
	setStr(&cfg.Analyzer.BaseURL, "VERIFYCHAIN_ANALYZER_BASE_URL")
	setStr(&cfg.Analyzer.APIKey, "VERIFYCHAIN_ANALYZER_API_KEY")
	setDuration(&cfg.Analyzer.Timeout, "VERIFYCHAIN_ANALYZER_TIMEOUT")

	// ── Oracle ──
	setStr(&cfg.Oracle.BaseURL, "VERIFYCHAIN_ORACLE_BASE_URL")
	setStr(&cfg.Oracle.APIKey, "VERIFYCHAIN_ORACLE_API_KEY")
	setStr(&cfg.Oracle.Symbol, "VERIFYCHAIN_ORACLE_SYMBOL")
	setDuration(&cfg.Oracle.Timeout, "VERIFYCHAIN_ORACLE_TIMEOUT")

	// ── Pinata ──
	setStr(&cfg.Pinata.BaseURL, "VERIFYCHAIN_PINATA_BASE_URL")
	setStr(&cfg.Pinata.ApiKey, "VERIFYCHAIN_PINATA_API_KEY")
	setStr(&cfg.Pinata.SecretKey, "VERIFYCHAIN_PINATA_SECRET_KEY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "VERIFYCHAIN_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "VERIFYCHAIN_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "VERIFYCHAIN_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "VERIFYCHAIN_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "VERIFYCHAIN_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "VERIFYCHAIN_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "VERIFYCHAIN_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "VERIFYCHAIN_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "VERIFYCHAIN_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "VERIFYCHAIN_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "VERIFYCHAIN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VERIFYCHAIN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VERIFYCHAIN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VERIFYCHAIN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VERIFYCHAIN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "VERIFYCHAIN_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "VERIFYCHAIN_REDIS_CACHE_TTL_MINUTES")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "VERIFYCHAIN_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "VERIFYCHAIN_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "VERIFYCHAIN_S3_REGION")
	setStr(&cfg.S3.Bucket, "VERIFYCHAIN_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "VERIFYCHAIN_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "VERIFYCHAIN_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "VERIFYCHAIN_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "VERIFYCHAIN_S3_FORCE_PATH_STYLE")

	// ── Registry ──
	setInt(&cfg.Registry.WindowSize, "VERIFYCHAIN_REGISTRY_WINDOW_SIZE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "VERIFYCHAIN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "VERIFYCHAIN_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VERIFYCHAIN_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "VERIFYCHAIN_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "VERIFYCHAIN_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "VERIFYCHAIN_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "VERIFYCHAIN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "VERIFYCHAIN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "VERIFYCHAIN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "VERIFYCHAIN_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "VERIFYCHAIN_MODE")
	setStr(&cfg.LogLevel, "VERIFYCHAIN_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
