package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds the application configuration
type AppConfig struct {
	Env          string        `mapstructure:"ENV"`
	ListenAddr   string        `mapstructure:"LISTEN_ADDR"`
	DBURL        string        `mapstructure:"DB_URL"`
	RedisAddress string        `mapstructure:"REDIS_URL"`
	SymmetricKey string        `mapstructure:"SYMMETRIC_KEY"`
	CORSOrigins  []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	CacheTTL     time.Duration `mapstructure:"CACHE_TTL"`

	WorkflowTextURL  string        `mapstructure:"WORKFLOW_TEXT_URL"`
	WorkflowMediaURL string        `mapstructure:"WORKFLOW_MEDIA_URL"`
	WorkflowTimeout  time.Duration `mapstructure:"WORKFLOW_TIMEOUT"`
	InboundToken     string        `mapstructure:"INBOUND_WEBHOOK_TOKEN"`

	SMTPHost string `mapstructure:"SMTP_HOST"`
	SMTPPort int    `mapstructure:"SMTP_PORT"`
	SMTPUser string `mapstructure:"SMTP_USER"`
	SMTPPass string `mapstructure:"SMTP_PASS"`
}

var envKeys = []string{
	"ENV", "LISTEN_ADDR", "DB_URL", "REDIS_URL", "SYMMETRIC_KEY",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "INBOUND_WEBHOOK_TOKEN",
	"CACHE_TTL", "WORKFLOW_TEXT_URL", "WORKFLOW_MEDIA_URL", "WORKFLOW_TIMEOUT",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS",
}

// Load reads the configuration from the environment and an optional .env file.
func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "production")
	v.SetDefault("LISTEN_ADDR", ":8930")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 15)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("WORKFLOW_TIMEOUT", "10s")
	v.SetDefault("SMTP_PORT", 587)

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// A missing .env is fine, the environment alone is enough.
	_ = v.ReadInConfig()

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, origin := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(origin)
	}

	return cfg, nil
}

// Validate checks the settings every command needs before touching the database.
func (c *AppConfig) Validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.RedisAddress == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if len(c.SymmetricKey) != 32 {
		return fmt.Errorf("SYMMETRIC_KEY must be 32 bytes long, got %d", len(c.SymmetricKey))
	}
	return nil
}

// IsDev reports whether the server runs in development mode.
func (c *AppConfig) IsDev() bool {
	return c.Env == "development"
}

// InboundEnabled reports whether the inbound message webhook is exposed.
func (c *AppConfig) InboundEnabled() bool {
	return c.InboundToken != ""
}

// MessagingEnabled reports whether outbound messaging has a webhook to call.
func (c *AppConfig) MessagingEnabled() bool {
	return c.WorkflowTextURL != ""
}
