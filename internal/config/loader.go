package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (when it exists), merges it on
// top of the built-in defaults, applies SENTITRADE_* environment variable
// overrides, and returns the final Config. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env if present (silently ignore when missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SENTITRADE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "SENTITRADE_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility with the analysis service
	setStr(&cfg.Database.Host, "SENTITRADE_DATABASE_HOST")
	setInt(&cfg.Database.Port, "SENTITRADE_DATABASE_PORT")
	setStr(&cfg.Database.Database, "SENTITRADE_DATABASE_NAME")
	setStr(&cfg.Database.User, "SENTITRADE_DATABASE_USER")
	setStr(&cfg.Database.Password, "SENTITRADE_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "SENTITRADE_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "SENTITRADE_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SENTITRADE_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SENTITRADE_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SENTITRADE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SENTITRADE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SENTITRADE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SENTITRADE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SENTITRADE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "SENTITRADE_REDIS_TLS_ENABLED")

	// ── Wallet ──
	setStr(&cfg.Wallet.KeypairPath, "SENTITRADE_WALLET_KEYPAIR_PATH")
	setStr(&cfg.Wallet.Keypair, "SENTITRADE_WALLET_KEYPAIR")

	// ── Trading ──
	setFloat64(&cfg.Trading.ConfidenceThreshold, "SENTITRADE_TRADING_CONFIDENCE_THRESHOLD")
	setFloat64(&cfg.Trading.MaxPositionSize, "SENTITRADE_TRADING_MAX_POSITION_SIZE")
	setFloat64(&cfg.Trading.MaxPortfolioExposure, "SENTITRADE_TRADING_MAX_PORTFOLIO_EXPOSURE")
	setFloat64(&cfg.Trading.MaxPortfolioValueUSD, "SENTITRADE_TRADING_MAX_PORTFOLIO_VALUE_USD")
	setFloat64(&cfg.Trading.BaseNotionalUSD, "SENTITRADE_TRADING_BASE_NOTIONAL_USD")
	setDuration(&cfg.Trading.ExposureWindow, "SENTITRADE_TRADING_EXPOSURE_WINDOW")
	setBool(&cfg.Trading.PaperTrading, "SENTITRADE_TRADING_PAPER_TRADING")
	setFloat64(&cfg.Trading.SentimentPositivityFloor, "SENTITRADE_TRADING_SENTIMENT_POSITIVITY_FLOOR")
	setStr(&cfg.Trading.DefaultSymbol, "SENTITRADE_TRADING_DEFAULT_SYMBOL")

	// ── Intake ──
	setDuration(&cfg.Intake.PollInterval, "SENTITRADE_INTAKE_POLL_INTERVAL")
	setInt(&cfg.Intake.BatchSize, "SENTITRADE_INTAKE_BATCH_SIZE")
	setDuration(&cfg.Intake.ItemDelay, "SENTITRADE_INTAKE_ITEM_DELAY")
	setDuration(&cfg.Intake.RecencyCutoff, "SENTITRADE_INTAKE_RECENCY_CUTOFF")

	// ── Execution ──
	setStr(&cfg.Execution.JupiterURL, "SENTITRADE_EXECUTION_JUPITER_URL")
	setStr(&cfg.Execution.RPCURL, "SENTITRADE_EXECUTION_RPC_URL")
	setInt(&cfg.Execution.SlippageBps, "SENTITRADE_EXECUTION_SLIPPAGE_BPS")
	setDuration(&cfg.Execution.QuoteTimeout, "SENTITRADE_EXECUTION_QUOTE_TIMEOUT")
	setDuration(&cfg.Execution.ConfirmTimeout, "SENTITRADE_EXECUTION_CONFIRM_TIMEOUT")
	setInt(&cfg.Execution.SubmitMaxRetries, "SENTITRADE_EXECUTION_SUBMIT_MAX_RETRIES")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "SENTITRADE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "SENTITRADE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "SENTITRADE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "SENTITRADE_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SENTITRADE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SENTITRADE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SENTITRADE_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "SENTITRADE_NOTIFY_EVENTS")

	// ── Archive ──
	setStr(&cfg.Archive.Endpoint, "SENTITRADE_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "SENTITRADE_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "SENTITRADE_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "SENTITRADE_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "SENTITRADE_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.ForcePathStyle, "SENTITRADE_ARCHIVE_FORCE_PATH_STYLE")
	setInt(&cfg.Archive.RetentionDays, "SENTITRADE_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "SENTITRADE_ARCHIVE_INTERVAL")

	// ── Top-level ──
	setStr(&cfg.Mode, "SENTITRADE_MODE")
	setStr(&cfg.LogLevel, "SENTITRADE_LOG_LEVEL")
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

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
