package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	Mail       MailConfig       `mapstructure:"mail"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Pagination PaginationConfig `mapstructure:"pagination"`
	Media      MediaConfig      `mapstructure:"media"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"gt=0,lte=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0,lte=525600"`
}

// MailConfig configures outgoing notification email. When Enabled is false
// messages are only logged.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"     validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port"     validate:"gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"     validate:"required,email"`
	TLS      bool   `mapstructure:"tls"`
}

// JobsConfig tunes the background job runner.
type JobsConfig struct {
	Workers         int           `mapstructure:"workers"          validate:"gt=0"`
	QueueSize       int           `mapstructure:"queue_size"       validate:"gt=0"`
	StuckAfter      time.Duration `mapstructure:"stuck_after"      validate:"gt=0"`
	MonitorInterval time.Duration `mapstructure:"monitor_interval" validate:"gt=0"`
}

// RateLimitConfig limits authentication endpoints per client IP.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"     validate:"gt=0"`
	Burst   int     `mapstructure:"burst"   validate:"gt=0"`
}

// PaginationConfig sets the page size of list endpoints.
type PaginationConfig struct {
	PageSize int `mapstructure:"page_size" validate:"gt=0,lte=1000"`
}

// MediaConfig locates uploaded files.
type MediaConfig struct {
	Root string `mapstructure:"root" validate:"required"`
}

// TelemetryConfig enables OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"     validate:"required_if=Enabled true"`
	ServiceName string `mapstructure:"service_name" validate:"required"`
	Insecure    bool   `mapstructure:"insecure"`
}
