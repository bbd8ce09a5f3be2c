package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	CoachAPIURL           string `env:"COACH_API_URL" envDefault:"https://api.openai.com/v1/chat/completions"`
	CoachAPIKey           string `env:"COACH_API_KEY"`
	CoachModel            string `env:"COACH_MODEL" envDefault:"gpt-4-turbo-preview"`
	CoachTimeoutSeconds   int    `env:"COACH_TIMEOUT_SECONDS" envDefault:"10"`
	SummaryTimeoutSeconds int    `env:"SUMMARY_TIMEOUT_SECONDS" envDefault:"20"`

	TimerTickMillis     int `env:"TIMER_TICK_MILLIS" envDefault:"1000"`
	DefaultTimerMinutes int `env:"DEFAULT_TIMER_MINUTES" envDefault:"10"`

	StaleSessionHours int `env:"STALE_SESSION_HOURS" envDefault:"24"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) CoachTimeout() time.Duration {
	return time.Duration(c.CoachTimeoutSeconds) * time.Second
}

func (c *Config) SummaryTimeout() time.Duration {
	return time.Duration(c.SummaryTimeoutSeconds) * time.Second
}

func (c *Config) TimerTick() time.Duration {
	return time.Duration(c.TimerTickMillis) * time.Millisecond
}

func (c *Config) StaleSessionAge() time.Duration {
	return time.Duration(c.StaleSessionHours) * time.Hour
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.DefaultTimerMinutes < MinTimerMinutes || c.DefaultTimerMinutes > MaxTimerMinutes {
		return fmt.Errorf("DEFAULT_TIMER_MINUTES must be between %d and %d", MinTimerMinutes, MaxTimerMinutes)
	}
	if c.TimerTickMillis <= 0 {
		return fmt.Errorf("TIMER_TICK_MILLIS must be positive")
	}

	if isProduction {
		if c.CoachAPIKey == "" {
			log.Warn().Msg("COACH_API_KEY is empty in production: coaching replies and summaries disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
