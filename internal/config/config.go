// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
type Config struct {
	QuoteAsset string         `yaml:"quote_asset"`
	Monitor    MonitorConfig  `yaml:"monitor"`
	Trailing   TrailingConfig `yaml:"trailing"`
	Risk       RiskConfig     `yaml:"risk"`
	Order      OrderConfig    `yaml:"order"`
	Alert      AlertConfig    `yaml:"alert"`
	HTTPPort   int            `yaml:"http_port"`

	// LiveTrading seeds the runtime toggle below.
	LiveTrading FlexBool `yaml:"live_trading"`

	// LiveToggle is the runtime-mutable live-trading switch. It is
	// initialized from LiveTrading and may be flipped while running.
	LiveToggle *Toggle `yaml:"-"`

	// Loaded from environment.
	APIKey        string `yaml:"-"`
	APISecret     string `yaml:"-"`
	LogLevel      string `yaml:"-"`
	DatabaseURL   string `yaml:"-"`
	TelegramToken string `yaml:"-"`
	TelegramChat  string `yaml:"-"`
}

// MonitorConfig holds settings for the position monitor loop.
type MonitorConfig struct {
	IntervalMs    int `yaml:"interval_ms"`
	MaxPriceAgeMs int `yaml:"max_price_age_ms"`
}

// Interval returns the monitor poll interval as a duration.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalMs) * time.Millisecond
}

// MaxPriceAge returns how old a cached price may be before the monitor
// treats it as stale and skips the position for the cycle.
func (m MonitorConfig) MaxPriceAge() time.Duration {
	return time.Duration(m.MaxPriceAgeMs) * time.Millisecond
}

// TrailingConfig holds settings for the trailing stop controller.
type TrailingConfig struct {
	Enabled           FlexBool `yaml:"enabled"`
	ActivationPct     float64  `yaml:"activation_pct"`
	DistancePct       float64  `yaml:"distance_pct"`
	PersistCooldownMs int      `yaml:"persist_cooldown_ms"`
}

// PersistCooldown returns the minimum interval between durable writes of
// trailing state for a single position.
func (t TrailingConfig) PersistCooldown() time.Duration {
	return time.Duration(t.PersistCooldownMs) * time.Millisecond
}

// RiskConfig holds position sizing and portfolio limits.
type RiskConfig struct {
	RiskPerTradePct        float64 `yaml:"risk_per_trade_pct"`
	MaxOpenPositions       int     `yaml:"max_open_positions"`
	ReinforceMinConfidence float64 `yaml:"reinforce_min_confidence_gain"`
}

// OrderConfig holds settings for live order execution.
type OrderConfig struct {
	TimeoutSeconds        int `yaml:"timeout_seconds"`
	MaxConcurrentClosures int `yaml:"max_concurrent_closures"`
}

// Timeout returns the bound applied to exchange calls during closure.
func (o OrderConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// AlertConfig holds notification settings.
type AlertConfig struct {
	Enabled    FlexBool `yaml:"enabled"`
	BufferSize int      `yaml:"buffer_size"`
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		LogLevel: "info",
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if apiKey := os.Getenv("BINANCE_API_KEY"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	if apiSecret := os.Getenv("BINANCE_API_SECRET"); apiSecret != "" {
		cfg.APISecret = apiSecret
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.TelegramToken = token
	}
	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		cfg.TelegramChat = chat
	}

	cfg.LiveToggle = NewToggle(bool(cfg.LiveTrading))

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.Monitor.IntervalMs <= 0 {
		cfg.Monitor.IntervalMs = 250
	}
	if cfg.Monitor.MaxPriceAgeMs <= 0 {
		cfg.Monitor.MaxPriceAgeMs = 5000
	}
	if cfg.Trailing.ActivationPct <= 0 {
		cfg.Trailing.ActivationPct = 0.01
	}
	if cfg.Trailing.DistancePct <= 0 {
		cfg.Trailing.DistancePct = 0.008
	}
	if cfg.Trailing.PersistCooldownMs <= 0 {
		cfg.Trailing.PersistCooldownMs = 5000
	}
	if cfg.Risk.RiskPerTradePct <= 0 {
		cfg.Risk.RiskPerTradePct = 1.0
	}
	if cfg.Risk.MaxOpenPositions <= 0 {
		cfg.Risk.MaxOpenPositions = 7
	}
	if cfg.Risk.ReinforceMinConfidence <= 0 {
		cfg.Risk.ReinforceMinConfidence = 0.05
	}
	if cfg.Order.TimeoutSeconds <= 0 {
		cfg.Order.TimeoutSeconds = 10
	}
	if cfg.Order.MaxConcurrentClosures <= 0 {
		cfg.Order.MaxConcurrentClosures = 8
	}
	if cfg.Alert.BufferSize <= 0 {
		cfg.Alert.BufferSize = 64
	}
	if cfg.HTTPPort <= 0 {
		cfg.HTTPPort = 8080
	}
}

func validate(cfg *Config) error {
	if cfg.Trailing.DistancePct >= 1 {
		return fmt.Errorf("trailing.distance_pct must be a fraction below 1, got %v", cfg.Trailing.DistancePct)
	}
	if cfg.Risk.RiskPerTradePct > 100 {
		return fmt.Errorf("risk.risk_per_trade_pct must not exceed 100, got %v", cfg.Risk.RiskPerTradePct)
	}
	if bool(cfg.LiveTrading) && (cfg.APIKey == "" || cfg.APISecret == "") {
		// Keys arrive from the environment after unmarshalling, so only
		// enforce once both sources have been consulted.
		if os.Getenv("BINANCE_API_KEY") == "" || os.Getenv("BINANCE_API_SECRET") == "" {
			return fmt.Errorf("live_trading is enabled but BINANCE_API_KEY/BINANCE_API_SECRET are not set")
		}
	}
	return nil
}
