package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DevJWTSecret signs development sessions. It is public, so it is refused
// outside development.
const DevJWTSecret = "dev-secret-change-me"

// Config is read from the environment. Field names map onto the upper-case
// variable names through the split_words tags, e.g. DBDriver -> DB_DRIVER.
type Config struct {
	Environment string `default:"development"`
	Port        int    `default:"8001"`
	GRPCPort    int    `envconfig:"GRPC_PORT" default:"50051"`
	LogLevel    string `split_words:"true" default:"info"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"memory"`
	DataDir     string `split_words:"true" default:"data"`
	SQLiteFile  string `envconfig:"SQLITE_FILE" default:"championship.sqlite"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	NATSURL     string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	NATSSubject string `envconfig:"NATS_SUBJECT" default:"championship.events"`
	NATSStream  string `envconfig:"NATS_STREAM" default:"CHAMPIONSHIP_EVENTS"`

	ClickHouseAddr     string `envconfig:"CLICKHOUSE_ADDR" default:"localhost:9000"`
	ClickHouseDB       string `envconfig:"CLICKHOUSE_DB" default:"default"`
	ClickHouseUser     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	ClickHousePassword string `envconfig:"CLICKHOUSE_PASSWORD"`

	AuthentikBaseURL      string        `envconfig:"AUTHENTIK_BASE_URL"`
	AuthentikClientID     string        `envconfig:"AUTHENTIK_CLIENT_ID"`
	AuthentikClientSecret string        `envconfig:"AUTHENTIK_CLIENT_SECRET"`
	AuthentikRedirectURL  string        `envconfig:"AUTHENTIK_REDIRECT_URL" default:"http://localhost:8001/auth/callback"`
	JWTSecret             string        `envconfig:"JWT_SECRET" default:"dev-secret-change-me"`
	SessionTTL            time.Duration `split_words:"true" default:"24h"`

	BanCap           int           `split_words:"true" default:"1"`
	PickCount        int           `split_words:"true" default:"3"`
	AllowPartialBans bool          `split_words:"true" default:"false"`
	MapDisplayDelay  time.Duration `split_words:"true" default:"5s"`

	AllowedOrigins    []string      `split_words:"true" default:"*"`
	EventPingInterval time.Duration `split_words:"true" default:"25s"`
	BanWarningTTL     time.Duration `split_words:"true" default:"1h"`

	GRPCHealthInterval time.Duration `envconfig:"GRPC_HEALTH_INTERVAL" default:"10s"`
}

// Load processes the environment into a Config and validates it
func Load() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether in-process stand-ins (embedded NATS, mock
// auth, in-memory analytics) should be used.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Validate checks the values that have no sensible fallback
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "memory", "file", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (valid: memory, file, sqlite, postgres)", c.DBDriver)
	}

	if c.BanCap < 1 {
		return fmt.Errorf("BAN_CAP must be at least 1, got %d", c.BanCap)
	}
	if c.PickCount < 1 {
		return fmt.Errorf("PICK_COUNT must be at least 1, got %d", c.PickCount)
	}
	if c.MapDisplayDelay < 0 {
		return fmt.Errorf("MAP_DISPLAY_DELAY must not be negative")
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("GRPC_PORT must be a valid port, got %d", c.GRPCPort)
	}
	if c.EventPingInterval <= 0 {
		return fmt.Errorf("EVENT_PING_INTERVAL must be positive")
	}

	if !c.IsDevelopment() && (c.AuthentikBaseURL == "" || c.AuthentikClientID == "" || c.AuthentikClientSecret == "") {
		return fmt.Errorf("AUTHENTIK_BASE_URL, AUTHENTIK_CLIENT_ID, and AUTHENTIK_CLIENT_SECRET are required outside development")
	}
	if !c.IsDevelopment() && (c.JWTSecret == "" || c.JWTSecret == DevJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set to a private value outside development")
	}
	return nil
}
