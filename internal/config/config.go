package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                   string   `mapstructure:"PORT"`
	Env                    string   `mapstructure:"ENV"`
	DatabaseURL            string   `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins            []string `mapstructure:"CORS_ORIGINS"`
	QualityUnderRateMax    float64  `mapstructure:"QUALITY_UNDER_RATE_MAX"`
	QualityMatchRateMin    float64  `mapstructure:"QUALITY_MATCH_RATE_MIN"`
	ChatLockTimeoutSeconds float64  `mapstructure:"CHAT_LOCK_TIMEOUT_SECONDS"`
	ChatLockStaleSeconds   float64  `mapstructure:"CHAT_LOCK_STALE_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("QUALITY_UNDER_RATE_MAX", 10)
	v.SetDefault("QUALITY_MATCH_RATE_MIN", 90)
	v.SetDefault("CHAT_LOCK_TIMEOUT_SECONDS", 2.5)
	v.SetDefault("CHAT_LOCK_STALE_SECONDS", 20)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("QUALITY_UNDER_RATE_MAX")
	v.BindEnv("QUALITY_MATCH_RATE_MIN")
	v.BindEnv("CHAT_LOCK_TIMEOUT_SECONDS")
	v.BindEnv("CHAT_LOCK_STALE_SECONDS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that runtime tunables are safe to serve with. Quality
// thresholds are percentages; lock windows must be positive so a chat write
// can never hold a session forever.
func (c *Config) Validate() error {
	if c.QualityUnderRateMax < 0 || c.QualityUnderRateMax > 100 {
		return fmt.Errorf("QUALITY_UNDER_RATE_MAX must be within [0,100], got %v", c.QualityUnderRateMax)
	}
	if c.QualityMatchRateMin < 0 || c.QualityMatchRateMin > 100 {
		return fmt.Errorf("QUALITY_MATCH_RATE_MIN must be within [0,100], got %v", c.QualityMatchRateMin)
	}
	if c.ChatLockTimeoutSeconds <= 0 {
		return fmt.Errorf("CHAT_LOCK_TIMEOUT_SECONDS must be positive, got %v", c.ChatLockTimeoutSeconds)
	}
	if c.ChatLockStaleSeconds <= 0 {
		return fmt.Errorf("CHAT_LOCK_STALE_SECONDS must be positive, got %v", c.ChatLockStaleSeconds)
	}
	return nil
}
