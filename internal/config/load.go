package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// TASKHUB_SERVER_PORT or TASKHUB_DATABASE_URL.
const EnvPrefix = "TASKHUB"

// keys lists every configuration key so that AutomaticEnv can resolve keys
// which have neither a default nor a config file entry.
var keys = []string{
	"server.port", "server.log_level", "server.shutdown_timeout",
	"database.url", "database.max_open_conns", "database.max_idle_conns", "database.conn_max_lifetime",
	"auth.jwt_secret", "auth.bcrypt_cost", "auth.token_lifetime_minutes", "auth.refresh_token_lifetime_minutes",
	"mail.enabled", "mail.host", "mail.port", "mail.username", "mail.password", "mail.from", "mail.tls",
	"jobs.workers", "jobs.queue_size", "jobs.stuck_after", "jobs.monitor_interval",
	"ratelimit.enabled", "ratelimit.rps", "ratelimit.burst",
	"pagination.page_size",
	"media.root",
	"telemetry.enabled", "telemetry.endpoint", "telemetry.service_name", "telemetry.insecure",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 24*60)

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "no-reply@example.com")
	v.SetDefault("mail.tls", true)

	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.queue_size", 100)
	v.SetDefault("jobs.stuck_after", 30*time.Minute)
	v.SetDefault("jobs.monitor_interval", time.Minute)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 10)

	v.SetDefault("pagination.page_size", 5)

	v.SetDefault("media.root", "media")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "taskhub")
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file. Returns a populated Config or an error if loading or
// validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// AccessTokenLifetime returns the configured access token lifetime.
func (a AuthConfig) AccessTokenLifetime() time.Duration {
	return time.Duration(a.TokenLifetimeMinutes) * time.Minute
}

// RefreshTokenLifetime returns the configured refresh token lifetime.
func (a AuthConfig) RefreshTokenLifetime() time.Duration {
	return time.Duration(a.RefreshTokenLifetimeMinutes) * time.Minute
}
