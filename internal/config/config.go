package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the KPI engine service.
type Config struct {
	AppName            string
	AppEnv             string
	AppPort            string
	DatabaseURL        string
	RedisURL           string
	NATSURL            string
	JWTSecret          string
	EventChannelBase   string
	DailyRunHour       int
	RealtimeInterval   time.Duration
	RealtimeWindow     time.Duration
	EmailRetryInterval time.Duration
	BatchConcurrency   int
	ExternalTimeout    time.Duration
	HistoryCacheTTL    time.Duration
	MailerAPIKey       string
	MailerBaseURL      string
	MailerFromEmail    string
	MailerFromName     string
	EmailMaxRetries    int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("KPI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "KPI Engine API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("event.channel_base", "kpi")
	v.SetDefault("scheduler.daily_run_hour", 1)
	v.SetDefault("scheduler.realtime_interval", "5m")
	v.SetDefault("scheduler.realtime_window", "10m")
	v.SetDefault("scheduler.email_retry_interval", "15m")
	v.SetDefault("scheduler.batch_concurrency", 8)
	v.SetDefault("external.timeout", "10s")
	v.SetDefault("history.cache_ttl", "2m")
	v.SetDefault("mailer.base_url", "https://api.sendgrid.com")
	v.SetDefault("mailer.from_name", "KPI Engine")
	v.SetDefault("email.max_retries", 3)

	realtimeInterval, err := parseDuration(v, "scheduler.realtime_interval")
	if err != nil {
		return Config{}, err
	}

	realtimeWindow, err := parseDuration(v, "scheduler.realtime_window")
	if err != nil {
		return Config{}, err
	}

	emailRetryInterval, err := parseDuration(v, "scheduler.email_retry_interval")
	if err != nil {
		return Config{}, err
	}

	externalTimeout, err := parseDuration(v, "external.timeout")
	if err != nil {
		return Config{}, err
	}

	historyTTL, err := parseDuration(v, "history.cache_ttl")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		EventChannelBase:   v.GetString("event.channel_base"),
		DailyRunHour:       v.GetInt("scheduler.daily_run_hour"),
		RealtimeInterval:   realtimeInterval,
		RealtimeWindow:     realtimeWindow,
		EmailRetryInterval: emailRetryInterval,
		BatchConcurrency:   v.GetInt("scheduler.batch_concurrency"),
		ExternalTimeout:    externalTimeout,
		HistoryCacheTTL:    historyTTL,
		MailerAPIKey:       v.GetString("mailer.api_key"),
		MailerBaseURL:      v.GetString("mailer.base_url"),
		MailerFromEmail:    v.GetString("mailer.from_email"),
		MailerFromName:     v.GetString("mailer.from_name"),
		EmailMaxRetries:    v.GetInt("email.max_retries"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.DailyRunHour < 0 || cfg.DailyRunHour > 23 {
		return Config{}, fmt.Errorf("daily run hour must be within 0-23, got %d", cfg.DailyRunHour)
	}

	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}

	if cfg.EmailMaxRetries <= 0 {
		cfg.EmailMaxRetries = 3
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, fmt.Errorf("missing duration for %s", key)
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}

	return d, nil
}
