package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the bot
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64
	AdminChatID    int64

	// Mode
	Debug bool

	// Exchange API
	MexcRestURL string
	MexcWSURL   string

	// Poll loop
	ScanInterval  time.Duration // ticker batch cadence
	HTTPTimeout   time.Duration
	StreamEnabled bool // websocket ticker refresher

	// Snapshot store
	RetentionWindow time.Duration

	// Pump detection
	FastWindow     time.Duration
	FastThreshold  float64 // pct rise
	EliteWindow    time.Duration
	EliteThreshold float64

	// Notify / cooldown
	RepeatThreshold float64 // pct above last notified peak
	CooldownMinutes int
	NoSignalCooldown time.Duration

	// Monitoring
	AnalyzingTimeout time.Duration
	AnalyzerTimeout  time.Duration

	// Outcome tracking
	TrailingTPEnabled   bool
	ActivationProfitPct float64
	TrailDistancePct    float64
	MaxTrackingMinutes  int

	// Listing detector
	ListingEnabled  bool
	ListingInterval time.Duration

	// Persistence
	DatabasePath string
	ModelPath    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		// Mode
		Debug: getEnvBool("DEBUG", false),

		// Exchange API
		MexcRestURL: getEnv("MEXC_REST_URL", "https://contract.mexc.com"),
		MexcWSURL:   getEnv("MEXC_WS_URL", "wss://contract.mexc.com/edge"),

		// Poll loop
		ScanInterval:  getEnvDuration("SCAN_INTERVAL", 50*time.Millisecond),
		HTTPTimeout:   getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		StreamEnabled: getEnvBool("STREAM_ENABLED", false),

		// Snapshot store
		RetentionWindow: getEnvDuration("RETENTION_WINDOW", 40*time.Minute),

		// Pump detection
		FastWindow:     getEnvDuration("FAST_WINDOW", 5*time.Minute),
		FastThreshold:  getEnvFloat("FAST_THRESHOLD", 10.0),
		EliteWindow:    getEnvDuration("ELITE_WINDOW", 20*time.Minute),
		EliteThreshold: getEnvFloat("ELITE_THRESHOLD", 20.0),

		// Notify / cooldown
		RepeatThreshold:  getEnvFloat("REPEAT_THRESHOLD", 10.0),
		CooldownMinutes:  getEnvInt("COOLDOWN_MINUTES", 0),
		NoSignalCooldown: getEnvDuration("NO_SIGNAL_COOLDOWN", 30*time.Minute),

		// Monitoring
		AnalyzingTimeout: getEnvDuration("ANALYZING_TIMEOUT", 15*time.Minute),
		AnalyzerTimeout:  getEnvDuration("ANALYZER_TIMEOUT", 3*time.Second),

		// Outcome tracking
		TrailingTPEnabled:   getEnvBool("TRAILING_TP_ENABLED", false),
		ActivationProfitPct: getEnvFloat("TRAILING_ACTIVATION_PCT", 2.0),
		TrailDistancePct:    getEnvFloat("TRAILING_DISTANCE_PCT", 1.0),
		MaxTrackingMinutes:  getEnvInt("MAX_TRACKING_MINUTES", 240),

		// Listing detector
		ListingEnabled:  getEnvBool("LISTING_ENABLED", true),
		ListingInterval: getEnvDuration("LISTING_INTERVAL", 60*time.Second),

		// Persistence
		DatabasePath: getEnv("DATABASE_PATH", "data/pumpwatch.db"),
		ModelPath:    getEnv("MODEL_PATH", "data/model.json"),
	}

	// Parse chat IDs
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}
	if adminID := os.Getenv("TELEGRAM_ADMIN_ID"); adminID != "" {
		id, err := strconv.ParseInt(adminID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ADMIN_ID: %w", err)
		}
		cfg.AdminChatID = id
	}
	if cfg.AdminChatID == 0 {
		cfg.AdminChatID = cfg.TelegramChatID
	}

	// Validate required fields
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
