package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port   string
	Debug  bool
	AppURL string

	// Storage configuration
	StorageDriver string // "postgres" or "memory"
	DatabaseURL   string

	// Schedule configuration
	CronSchedule   string
	TimeZone       string
	RunImmediately bool
	CallTimeout    time.Duration
	LockTTL        time.Duration
	RedisURL       string

	// Notification configuration
	FeishuWebhookURL  string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string

	// Search vendor configuration
	SearchAPIKey         string
	WeChatSearchURL      string
	XiaohongshuSearchURL string
	SearchPeriodDays     int
	SearchRatePerMinute  int

	// Insight model configuration
	LLMProvider     string // "openai" or "anthropic"
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string

	// Report archive
	StorageAccount   string
	StorageContainer string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8080"),
		Debug:  getBoolEnv("DEBUG", false),
		AppURL: strings.TrimRight(getEnv("APP_URL", "http://localhost:3000"), "/"),

		StorageDriver: getEnv("STORAGE_DRIVER", "postgres"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),

		CronSchedule:   getEnv("CRON_SCHEDULE", "0 8 * * *"),
		TimeZone:       getEnv("TIMEZONE", "Asia/Shanghai"),
		RunImmediately: getBoolEnv("RUN_IMMEDIATELY", false),
		CallTimeout:    getDurationEnv("CALL_TIMEOUT", 60*time.Second),
		LockTTL:        getDurationEnv("LOCK_TTL", 2*time.Hour),
		RedisURL:       getEnv("REDIS_URL", ""),

		FeishuWebhookURL:  getEnv("FEISHU_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),

		SearchAPIKey:         getEnv("SEARCH_API_KEY", ""),
		WeChatSearchURL:      getEnv("WECHAT_SEARCH_API_URL", "https://www.dajiala.com/fbmain/monitor/v3/kw_search"),
		XiaohongshuSearchURL: getEnv("XIAOHONGSHU_SEARCH_API_URL", "https://www.dajiala.com/fbmain/monitor/v3/xhs"),
		SearchPeriodDays:     getIntEnv("SEARCH_PERIOD_DAYS", 7),
		SearchRatePerMinute:  getIntEnv("SEARCH_RATE_PER_MINUTE", 30),

		LLMProvider:     getEnv("LLM_PROVIDER", "openai"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_API_BASE", "https://openrouter.ai/api/v1"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "openai/gpt-4o"),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reports"),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_DRIVER is 'postgres'")
		}
	case "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be 'postgres' or 'memory'")
	}

	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIMEZONE %q is invalid: %w", c.TimeZone, err)
	}

	if _, err := cron.ParseStandard(c.CronSchedule); err != nil {
		return fmt.Errorf("CRON_SCHEDULE %q is invalid: %w", c.CronSchedule, err)
	}

	if c.LLMProvider != "openai" && c.LLMProvider != "anthropic" {
		return fmt.Errorf("LLM_PROVIDER must be 'openai' or 'anthropic'")
	}

	if c.CallTimeout <= 0 || c.LockTTL <= 0 {
		return fmt.Errorf("CALL_TIMEOUT and LOCK_TTL must be positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

// Location returns the configured time zone; validate guarantees it loads
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ReportURL builds the "view full report" link for a report id
func (c *Config) ReportURL(id int64) string {
	return fmt.Sprintf("%s/reports/%d", c.AppURL, id)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
