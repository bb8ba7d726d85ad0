package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "sentitrade/internal/blob/s3"
	"sentitrade/internal/cache/redis"
	"sentitrade/internal/config"
	"sentitrade/internal/domain"
	"sentitrade/internal/executor"
	"sentitrade/internal/intake"
	"sentitrade/internal/notify"
	"sentitrade/internal/platform/jupiter"
	"sentitrade/internal/platform/solana"
	"sentitrade/internal/portfolio"
	"sentitrade/internal/risk"
	"sentitrade/internal/server"
	"sentitrade/internal/server/handler"
	"sentitrade/internal/server/ws"
	"sentitrade/internal/sizing"
	"sentitrade/internal/store/postgres"
	"sentitrade/internal/token"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	TradeStore    domain.TradeStore
	PostStore     domain.PostStore
	AnalysisStore domain.AnalysisStore

	// Caches
	PriceCache  domain.PriceCache
	Cooldowns   domain.CooldownStore
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Execution pipeline
	Driver    *executor.Driver
	Intake    *intake.Loop
	Portfolio *portfolio.Service

	// Optional cold-storage archiver; nil when no bucket is configured.
	Archiver *s3blob.Archiver

	// HTTP
	Server *server.Server
	Hub    *ws.Hub

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.PostStore = postgres.NewPostStore(pool)
	deps.AnalysisStore = postgres.NewAnalysisStore(pool)

	// --- Redis ---
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

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.Cooldowns = redis.NewCooldownStore(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Wallet (optional; absence forces paper mode) ---
	var signer executor.Signer
	if cfg.HasWallet() {
		wallet, err := solana.LoadWallet(cfg.Wallet.KeypairPath, cfg.Wallet.Keypair)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		signer = wallet
	} else {
		logger.WarnContext(ctx, "no wallet configured, forcing paper trading")
	}

	// --- Execution pipeline ---
	resolver := token.NewResolver(
		token.NewRegexExtractor(),
		token.Default(),
		cfg.Trading.DefaultSymbol,
		cfg.Trading.SentimentPositivityFloor,
		logger,
	)
	sizer := sizing.New(sizing.Config{
		ConfidenceThreshold: cfg.Trading.ConfidenceThreshold,
		MaxPositionSize:     cfg.Trading.MaxPositionSize,
		BaseNotionalUSD:     cfg.Trading.BaseNotionalUSD,
	}, logger)
	guard := risk.New(deps.TradeStore, risk.Config{
		MaxPortfolioValueUSD: cfg.Trading.MaxPortfolioValueUSD,
		MaxExposureFraction:  cfg.Trading.MaxPortfolioExposure,
		MaxPositionFraction:  cfg.Trading.MaxPositionSize,
		Window:               cfg.Trading.ExposureWindow.Duration,
	}, logger)

	deps.Driver = executor.NewDriver(executor.Deps{
		Trades:    deps.TradeStore,
		Posts:     deps.PostStore,
		Prices:    deps.PriceCache,
		Cooldowns: deps.Cooldowns,
		Bus:       deps.SignalBus,
		Resolver:  resolver,
		Sizer:     sizer,
		Risk:      guard,
		Quoter:    jupiter.New(cfg.Execution.JupiterURL),
		Chain:     solana.NewRPCClient(cfg.Execution.RPCURL),
		Signer:    signer,
	}, executor.Config{
		SlippageBps:      cfg.Execution.SlippageBps,
		QuoteTimeout:     cfg.Execution.QuoteTimeout.Duration,
		ConfirmTimeout:   cfg.Execution.ConfirmTimeout.Duration,
		SubmitMaxRetries: cfg.Execution.SubmitMaxRetries,
		PaperTrading:     cfg.Trading.PaperTrading,
	}, logger)

	deps.Intake = intake.NewLoop(deps.AnalysisStore, deps.Cooldowns, deps.Driver, intake.Config{
		PollInterval:  cfg.Intake.PollInterval.Duration,
		BatchSize:     cfg.Intake.BatchSize,
		ItemDelay:     cfg.Intake.ItemDelay.Duration,
		RecencyCutoff: cfg.Intake.RecencyCutoff.Duration,
		MinConfidence: cfg.Trading.ConfidenceThreshold,
	}, logger)

	deps.Portfolio = portfolio.New(deps.TradeStore, portfolio.Config{
		MaxExposureUSD: cfg.Trading.MaxPortfolioValueUSD * cfg.Trading.MaxPortfolioExposure,
		Window:         cfg.Trading.ExposureWindow.Duration,
		PaperTrading:   deps.Driver.Paper(),
	}, logger)

	// --- S3 cold storage (only when a bucket is configured) ---
	var s3Client *s3blob.Client
	if cfg.Archive.Bucket != "" {
		s3Client, err = s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.TradeStore,
			time.Duration(cfg.Archive.RetentionDays)*24*time.Hour,
			cfg.Archive.Interval.Duration,
			logger,
		)
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
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	// --- HTTP server ---
	if cfg.Server.Enabled {
		deps.Hub = ws.NewHub(deps.SignalBus, deps.Driver.Paper(), logger)

		pingers := map[string]handler.Pinger{
			"postgres": pgClient,
			"redis":    redisClient,
		}
		if s3Client != nil {
			pingers["s3"] = pingerFunc(s3Client.Health)
		}

		deps.Server = server.New(server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			APIKey:      cfg.Server.APIKey,
		}, server.Handlers{
			Health:    handler.NewHealthHandler(pingers, logger),
			Trades:    handler.NewTradesHandler(deps.TradeStore, logger),
			Portfolio: handler.NewPortfolioHandler(deps.Portfolio, logger),
			Process:   handler.NewProcessHandler(deps.Intake, logger),
		}, deps.Hub, deps.RateLimiter, logger)
	}

	return deps, cleanup, nil
}

// pingerFunc adapts a health function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
