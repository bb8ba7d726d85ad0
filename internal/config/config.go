// Package config defines the engine configuration and provides loading and
// validation helpers. Values come from a TOML file with built-in defaults,
// overridden by SENTITRADE_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Wallet    WalletConfig    `toml:"wallet"`
	Trading   TradingConfig   `toml:"trading"`
	Intake    IntakeConfig    `toml:"intake"`
	Execution ExecutionConfig `toml:"execution"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Archive   ArchiveConfig   `toml:"archive"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// WalletConfig holds the Solana signing key. KeypairPath points at a
// solana-keygen style JSON byte-array file; Keypair carries the same JSON
// inline (typically via SENTITRADE_WALLET_KEYPAIR). An empty wallet forces
// paper trading.
type WalletConfig struct {
	KeypairPath string `toml:"keypair_path"`
	Keypair     string `toml:"keypair"`
}

// TradingConfig holds the sizing and risk-limit parameters.
type TradingConfig struct {
	ConfidenceThreshold      float64  `toml:"confidence_threshold"`
	MaxPositionSize          float64  `toml:"max_position_size"`      // fraction of max portfolio value per trade
	MaxPortfolioExposure     float64  `toml:"max_portfolio_exposure"` // fraction of max portfolio value across the window
	MaxPortfolioValueUSD     float64  `toml:"max_portfolio_value_usd"`
	BaseNotionalUSD          float64  `toml:"base_notional_usd"`
	ExposureWindow           duration `toml:"exposure_window"`
	PaperTrading             bool     `toml:"paper_trading"`
	SentimentPositivityFloor float64  `toml:"sentiment_positivity_floor"` // related-token inclusion threshold
	DefaultSymbol            string   `toml:"default_symbol"`
}

// IntakeConfig tunes the signal polling loop.
type IntakeConfig struct {
	PollInterval  duration `toml:"poll_interval"`
	BatchSize     int      `toml:"batch_size"`
	ItemDelay     duration `toml:"item_delay"`
	RecencyCutoff duration `toml:"recency_cutoff"`
}

// ExecutionConfig holds DEX and chain parameters for live execution.
type ExecutionConfig struct {
	JupiterURL       string   `toml:"jupiter_url"`
	RPCURL           string   `toml:"rpc_url"`
	SlippageBps      int      `toml:"slippage_bps"`
	QuoteTimeout     duration `toml:"quote_timeout"`
	ConfirmTimeout   duration `toml:"confirm_timeout"`
	SubmitMaxRetries int      `toml:"submit_max_retries"`
}

// ServerConfig holds the HTTP API parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials and event filters.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ArchiveConfig holds cold-storage archival parameters. Archival is off
// unless a bucket is configured.
type ArchiveConfig struct {
	Endpoint       string   `toml:"endpoint"`
	Region         string   `toml:"region"`
	Bucket         string   `toml:"bucket"`
	AccessKey      string   `toml:"access_key"`
	SecretKey      string   `toml:"secret_key"`
	ForcePathStyle bool     `toml:"force_path_style"`
	RetentionDays  int      `toml:"retention_days"`
	Interval       duration `toml:"interval"`
}

// Defaults returns the built-in configuration. Every tunable has a working
// default; only credentials and endpoints must come from the environment.
func Defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "sentitrade",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 8,
		},
		Trading: TradingConfig{
			ConfidenceThreshold:      0.80,
			MaxPositionSize:          0.05,
			MaxPortfolioExposure:     0.20,
			MaxPortfolioValueUSD:     10_000,
			BaseNotionalUSD:          100,
			ExposureWindow:           duration{24 * time.Hour},
			PaperTrading:             true,
			SentimentPositivityFloor: 0.5,
			DefaultSymbol:            "SOL",
		},
		Intake: IntakeConfig{
			PollInterval:  duration{5 * time.Second},
			BatchSize:     5,
			ItemDelay:     duration{750 * time.Millisecond},
			RecencyCutoff: duration{30 * time.Minute},
		},
		Execution: ExecutionConfig{
			JupiterURL:       "https://quote-api.jup.ag",
			RPCURL:           "https://api.mainnet-beta.solana.com",
			SlippageBps:      50,
			QuoteTimeout:     duration{30 * time.Second},
			ConfirmTimeout:   duration{60 * time.Second},
			SubmitMaxRetries: 3,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Archive: ArchiveConfig{
			Region:        "us-east-1",
			RetentionDays: 90,
			Interval:      duration{6 * time.Hour},
		},
		Mode:     "engine",
		LogLevel: "info",
	}
}

// Validate checks invariants that Load cannot express. It returns the first
// violation found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "engine", "api":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	t := c.Trading
	if t.ConfidenceThreshold < 0 || t.ConfidenceThreshold >= 1 {
		return fmt.Errorf("config: confidence_threshold %v outside [0, 1)", t.ConfidenceThreshold)
	}
	if t.MaxPositionSize <= 0 || t.MaxPositionSize > 1 {
		return fmt.Errorf("config: max_position_size %v outside (0, 1]", t.MaxPositionSize)
	}
	if t.MaxPortfolioExposure <= 0 || t.MaxPortfolioExposure > 1 {
		return fmt.Errorf("config: max_portfolio_exposure %v outside (0, 1]", t.MaxPortfolioExposure)
	}
	if t.MaxPortfolioValueUSD <= 0 {
		return fmt.Errorf("config: max_portfolio_value_usd must be positive")
	}
	if t.BaseNotionalUSD <= 0 {
		return fmt.Errorf("config: base_notional_usd must be positive")
	}
	if t.ExposureWindow.Duration <= 0 {
		return fmt.Errorf("config: exposure_window must be positive")
	}

	if c.Intake.PollInterval.Duration <= 0 {
		return fmt.Errorf("config: poll_interval must be positive")
	}
	if c.Intake.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive")
	}
	if c.Intake.RecencyCutoff.Duration <= 0 {
		return fmt.Errorf("config: recency_cutoff must be positive")
	}

	if c.Execution.SlippageBps <= 0 || c.Execution.SlippageBps > 10_000 {
		return fmt.Errorf("config: slippage_bps %d outside (0, 10000]", c.Execution.SlippageBps)
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Archive.Bucket != "" && c.Archive.RetentionDays <= 0 {
		return fmt.Errorf("config: retention_days must be positive when archiving")
	}
	return nil
}

// HasWallet reports whether a signing key was configured. Without one the
// engine is forced into paper mode.
func (c *Config) HasWallet() bool {
	return c.Wallet.KeypairPath != "" || c.Wallet.Keypair != ""
}

// duration wraps time.Duration so TOML values like "5s" decode directly.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}
