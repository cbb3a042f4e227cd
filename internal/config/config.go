package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL string `mapstructure:"POSTGRES_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	ServerPort  string `mapstructure:"SERVER_PORT"`

	DiscoveryEnabled    bool    `mapstructure:"CONTACT_DISCOVERY_ENABLED"`
	ConfidenceThreshold string  `mapstructure:"CONFIDENCE_THRESHOLD"` // "low" | "medium" | "high"
	ValidationEnabled   bool    `mapstructure:"VALIDATION_ENABLED"`
	SMTPEnabled         bool    `mapstructure:"SMTP_VERIFICATION_ENABLED"`
	RateLimitSeconds    float64 `mapstructure:"RATE_LIMIT_SECONDS"`
	MaxCrawlDepth       int     `mapstructure:"MAX_CRAWL_DEPTH"`
	CrawlTimeoutSecs    int     `mapstructure:"CRAWL_TIMEOUT"`     // per-fetch, seconds
	ValidatorTimeout    int     `mapstructure:"VALIDATOR_TIMEOUT"` // DNS/SMTP/HEAD probes, seconds
	BlockedDomains      string  `mapstructure:"BLOCKED_DOMAINS"`   // comma-separated

	DiscoveryWorkers int `mapstructure:"DISCOVERY_WORKERS"`
	MaxRetries       int `mapstructure:"MAX_RETRIES"`
	ReprocessDays    int `mapstructure:"REPROCESS_DAYS"`
	CleanupDays      int `mapstructure:"CLEANUP_DAYS"`
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present
	// This allows configuration purely through environment variables in production
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CONTACT_DISCOVERY_ENABLED", true)
	viper.SetDefault("CONFIDENCE_THRESHOLD", "medium")
	viper.SetDefault("VALIDATION_ENABLED", true)
	viper.SetDefault("SMTP_VERIFICATION_ENABLED", false)
	viper.SetDefault("RATE_LIMIT_SECONDS", 1.0)
	viper.SetDefault("MAX_CRAWL_DEPTH", 2)
	viper.SetDefault("CRAWL_TIMEOUT", 30)
	viper.SetDefault("VALIDATOR_TIMEOUT", 10)
	viper.SetDefault("BLOCKED_DOMAINS", "")
	viper.SetDefault("DISCOVERY_WORKERS", 1)
	viper.SetDefault("MAX_RETRIES", 2)
	viper.SetDefault("REPROCESS_DAYS", 2)
	viper.SetDefault("CLEANUP_DAYS", 90)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BlockedDomainList splits the comma-separated blocklist.
func (c *Config) BlockedDomainList() []string {
	if strings.TrimSpace(c.BlockedDomains) == "" {
		return nil
	}
	parts := strings.Split(c.BlockedDomains, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(p)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) CrawlTimeout() time.Duration {
	return time.Duration(c.CrawlTimeoutSecs) * time.Second
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ValidatorTimeout) * time.Second
}

func (c *Config) RateLimitInterval() time.Duration {
	return time.Duration(c.RateLimitSeconds * float64(time.Second))
}

func (c *Config) ReprocessTTL() time.Duration {
	return time.Duration(c.ReprocessDays) * 24 * time.Hour
}
