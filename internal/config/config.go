package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store drivers.
const (
	StoreHTTP     = "http"
	StorePostgres = "postgres"
)

// App holds core runtime configuration of the editor service.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"tarea-editor"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Listening Listening
	Postgres  Postgres
	Redis     Redis
	Security  Security
	Sessions  Sessions
	Audio     Audio
	CORS      CORS
}

// Listening points at the listening admin REST API that owns the documents.
type Listening struct {
	BaseURL     string        `env:"LISTENING_API_BASE_URL" envDefault:"http://localhost:8000"`
	Timeout     time.Duration `env:"LISTENING_API_TIMEOUT" envDefault:"15s"`
	StoreDriver string        `env:"STORE_DRIVER" envDefault:"http"`
}

// Postgres captures connection info for the SQL document store. Only read when
// STORE_DRIVER=postgres.
type Postgres struct {
	Host     string `env:"PG_HOST" envDefault:""`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER" envDefault:""`
	Password string `env:"PG_PASSWORD" envDefault:""`
	Database string `env:"PG_DATABASE" envDefault:""`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// DSN renders the libpq connection URL.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// Redis holds the draft snapshot store. An empty address disables snapshots.
type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores the optional token verification secret.
type Security struct {
	JWTSecret string `env:"JWT_SECRET" envDefault:""`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`
}

// Sessions governs editor session lifetime.
type Sessions struct {
	SnapshotTTL   time.Duration `env:"SESSION_SNAPSHOT_TTL" envDefault:"12h"`
	IdleTimeout   time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`
	SweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	EventsChannel string        `env:"SESSION_EVENTS_CHANNEL" envDefault:"editor:events"`
}

// Audio configures the transcoding status watcher.
type Audio struct {
	PollInterval time.Duration `env:"AUDIO_POLL_INTERVAL" envDefault:"4s"`
	MaxPolls     int           `env:"AUDIO_MAX_POLLS" envDefault:"150"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *App) validate() error {
	switch c.Listening.StoreDriver {
	case StoreHTTP:
		if c.Listening.BaseURL == "" {
			return fmt.Errorf("LISTENING_API_BASE_URL is required with STORE_DRIVER=%s", StoreHTTP)
		}
	case StorePostgres:
		if c.Postgres.Host == "" || c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("PG_HOST, PG_USER and PG_DATABASE are required with STORE_DRIVER=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Listening.StoreDriver)
	}
	if c.Audio.PollInterval <= 0 {
		return fmt.Errorf("AUDIO_POLL_INTERVAL must be positive")
	}
	return nil
}

// SnapshotsEnabled reports whether draft snapshots go to Redis.
func (c *App) SnapshotsEnabled() bool {
	return c.Redis.Addr != ""
}
