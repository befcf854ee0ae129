package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/verifychain/verifychain/internal/blob/s3"
	"github.com/verifychain/verifychain/internal/cache/redis"
	"github.com/verifychain/verifychain/internal/config"
	"github.com/verifychain/verifychain/internal/crypto"
	"github.com/verifychain/verifychain/internal/domain"
	"github.com/verifychain/verifychain/internal/ledger"
	"github.com/verifychain/verifychain/internal/notify"
	"github.com/verifychain/verifychain/internal/pipeline"
	"github.com/verifychain/verifychain/internal/platform/analyzer"
	"github.com/verifychain/verifychain/internal/platform/oracle"
	"github.com/verifychain/verifychain/internal/platform/pinata"
	"github.com/verifychain/verifychain/internal/service"
	"github.com/verifychain/verifychain/internal/store/postgres"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Persistence and caching. Nil in verify mode, which runs without
	// backing services.
	RunStore     domain.RunStore
	AssetCache   domain.AssetCache
	BalanceCache domain.BalanceCache
	SignalBus    domain.SignalBus
	RateLimiter  domain.RateLimiter

	// Archive is nil unless the S3 document archive is enabled.
	Archive domain.DocumentArchive

	Notifier *notify.Notifier

	// Ledger access.
	Signer *crypto.Signer
	Ledger *ledger.Gateway

	// Core services.
	Registry     *service.RegistryService
	Distribution *service.DistributionService
	Orchestrator *pipeline.Orchestrator

	// Health probes for the server's /api/health endpoint, keyed by
	// dependency name.
	HealthChecks map[string]func(ctx context.Context) error
}

// serverMode reports whether the configured mode runs the long-lived API
// server, which is the only mode backed by Postgres and Redis. Verify mode
// is a one-shot pipeline run against the ledger and external services.
func serverMode(mode string) bool {
	return strings.ToLower(mode) == "server"
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		HealthChecks: make(map[string]func(ctx context.Context) error),
	}

	// --- Signing key and ledger gateway ---
	key, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: wallet: %w", err)
	}
	signer, err := crypto.NewSigner(key, cfg.Ledger.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: signer: %w", err)
	}
	deps.Signer = signer

	rpcClient, err := ledger.Dial(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ChainID)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ledger: %w", err)
	}
	closers = append(closers, rpcClient.Close)

	gateway, err := ledger.NewGateway(rpcClient, signer, ledger.Config{
		ContractAddress: cfg.Ledger.ContractAddress,
		GasLimit:        cfg.Ledger.GasLimit,
		ConfirmTimeout:  cfg.Ledger.ConfirmTimeout.Duration,
		PollInterval:    cfg.Ledger.PollInterval.Duration,
	}, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ledger gateway: %w", err)
	}
	deps.Ledger = gateway

	// --- PostgreSQL and Redis (server mode only) ---
	if serverMode(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.RunStore = postgres.NewRunStore(pgClient.Pool())
		deps.HealthChecks["postgres"] = func(ctx context.Context) error {
			return pgClient.Pool().Ping(ctx)
		}

		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.AssetCache = redis.NewAssetCache(redisClient)
		deps.BalanceCache = redis.NewBalanceCache(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	}

	// --- S3 document archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archive = s3blob.NewArchive(s3Client)
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Registry = service.NewRegistryService(
		gateway, deps.AssetCache, deps.BalanceCache, deps.SignalBus,
		cfg.Registry.WindowSize, logger,
	)
	deps.Distribution = service.NewDistributionService(
		gateway, deps.Registry, deps.Notifier, signer.Address().Hex(), logger,
	)

	// --- Pipeline ---
	analyzerClient := analyzer.NewClient(cfg.Analyzer.BaseURL, cfg.Analyzer.APIKey, cfg.Analyzer.Timeout.Duration)
	oracleClient := oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, cfg.Oracle.Timeout.Duration)

	opts := []pipeline.Option{
		pipeline.WithRefresher(deps.Registry),
		pipeline.WithNotifier(deps.Notifier),
	}
	if cfg.Pinata.ApiKey != "" {
		opts = append(opts, pipeline.WithPinner(
			pinata.NewClient(cfg.Pinata.BaseURL, cfg.Pinata.ApiKey, cfg.Pinata.SecretKey),
		))
	}
	if deps.Archive != nil {
		opts = append(opts, pipeline.WithArchive(deps.Archive))
	}
	if deps.RunStore != nil {
		opts = append(opts, pipeline.WithRunStore(deps.RunStore))
	}
	if deps.SignalBus != nil {
		opts = append(opts, pipeline.WithSignalBus(deps.SignalBus))
	}
	deps.Orchestrator = pipeline.NewOrchestrator(
		analyzerClient, oracleClient, cfg.Oracle.Symbol, gateway, logger, opts...,
	)

	return deps, cleanup, nil
}
