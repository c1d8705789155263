package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	TelegramToken string
	GeminiAPIKey  string

	LogLevel string
	Debug    bool

	PreferIPv4    bool
	HTTPTimeout   time.Duration
	MaxConcurrent int

	GeminiBaseURL      string
	GeminiAPIVersion   string
	GeminiModel        string
	GeminiRateInterval time.Duration

	GenerationDuration time.Duration
	ProgressTick       time.Duration
	BackendTimeout     time.Duration

	NotifyTTL time.Duration
	ToastTTL  time.Duration

	ProgressEditInterval time.Duration
	WorkspaceIdle        time.Duration

	WebAddr     string
	MetricsAddr string
}

// Load reads the shared settings. Surface-specific requirements are checked
// by RequireTelegram.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:             strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:                getEnvBool("DEBUG", false),
		PreferIPv4:           getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:          time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		MaxConcurrent:        getEnvInt("MAX_CONCURRENT", 4),
		GeminiBaseURL:        strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:     strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		GeminiModel:          strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.5-flash")),
		GeminiRateInterval:   time.Duration(getEnvInt("GEMINI_RATE_INTERVAL_MS", 0)) * time.Millisecond,
		GenerationDuration:   time.Duration(getEnvInt("GENERATION_DURATION_MS", 3500)) * time.Millisecond,
		ProgressTick:         time.Duration(getEnvInt("PROGRESS_TICK_MS", 50)) * time.Millisecond,
		BackendTimeout:       time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 0)) * time.Second,
		NotifyTTL:            time.Duration(getEnvInt("NOTIFY_TTL_MS", 3000)) * time.Millisecond,
		ToastTTL:             time.Duration(getEnvInt("TOAST_TTL_MS", 2000)) * time.Millisecond,
		ProgressEditInterval: time.Duration(getEnvInt("PROGRESS_EDIT_INTERVAL_MS", 700)) * time.Millisecond,
		WorkspaceIdle:        time.Duration(getEnvInt("WORKSPACE_IDLE_MINUTES", 120)) * time.Minute,
		WebAddr:              strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		MetricsAddr:          strings.TrimSpace(os.Getenv("METRICS_ADDR")),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.GenerationDuration <= 0 {
		cfg.GenerationDuration = 3500 * time.Millisecond
	}
	if cfg.ProgressTick <= 0 {
		cfg.ProgressTick = 50 * time.Millisecond
	}
	if cfg.BackendTimeout < 0 {
		cfg.BackendTimeout = 0
	}
	if cfg.GeminiRateInterval < 0 {
		cfg.GeminiRateInterval = 0
	}
	if cfg.ProgressEditInterval <= 0 {
		cfg.ProgressEditInterval = 700 * time.Millisecond
	}

	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
