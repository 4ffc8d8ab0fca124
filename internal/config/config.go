package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// MaxTokenTTL bounds the capability token window.
const MaxTokenTTL = 15 * time.Minute

// DevTokenSecret is the development default. Production refuses it.
const DevTokenSecret = "dev-secret"

// minProductionSecret is the shortest HS256 key accepted in production.
const minProductionSecret = 32

// Config aggregates runtime configuration for both services.
type Config struct {
	App          AppConfig          `envconfig:"APP"`
	Estimator    EstimatorConfig    `envconfig:"ESTIMATOR"`
	Postgres     PostgresConfig     `envconfig:"POSTGRES"`
	Redis        RedisConfig        `envconfig:"REDIS"`
	Logger       LoggerConfig       `envconfig:"LOG"`
	Auth         AuthConfig         `envconfig:"AUTH"`
	CORS         CORSConfig         `envconfig:"CORS"`
	Notification NotificationConfig `envconfig:"NOTIFY"`
}

// AppConfig controls service A (sessions and tickets).
type AppConfig struct {
	Name           string        `envconfig:"NAME" default:"ticketing"`
	Env            string        `envconfig:"ENV" default:"development"`
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           string        `envconfig:"PORT" default:"3001"`
	Version        string        `envconfig:"VERSION" default:"dev"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

// EstimatorConfig controls service B (estimations).
type EstimatorConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port string `envconfig:"PORT" default:"3002"`
}

// PostgresConfig holds DB connection values. An empty DSN selects the
// in-memory repositories.
type PostgresConfig struct {
	DSN           string        `envconfig:"DSN"`
	MaxConns      int32         `envconfig:"MAX_CONNS" default:"10"`
	MinConns      int32         `envconfig:"MIN_CONNS" default:"2"`
	RunMigrations bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	ConnMaxIdle   time.Duration `envconfig:"CONN_MAX_IDLE" default:"30s"`
	ConnMaxLife   time.Duration `envconfig:"CONN_MAX_LIFE" default:"5m"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `envconfig:"ADDR" default:"127.0.0.1:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `envconfig:"LEVEL" default:"info"`
}

// AuthConfig defines session and capability token parameters.
type AuthConfig struct {
	TokenSecret    string        `envconfig:"TOKEN_SECRET" default:"dev-secret"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"5m"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	SessionCookie  string        `envconfig:"SESSION_COOKIE" default:"ticketing_session"`
	CookieSecure   bool          `envconfig:"COOKIE_SECURE" default:"false"`
	LoginRateLimit int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
}

// CORSConfig lists browser origins allowed to call the services with credentials.
type CORSConfig struct {
	AllowOrigins string `envconfig:"ALLOW_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
}

// NotificationConfig controls background fan-out of ticket events.
type NotificationConfig struct {
	Enabled     bool   `envconfig:"ENABLED" default:"false"`
	Queue       string `envconfig:"QUEUE" default:"notifications"`
	Concurrency int    `envconfig:"CONCURRENCY" default:"5"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings that would break the token trust model.
func (c *Config) Validate() error {
	secret := strings.TrimSpace(c.Auth.TokenSecret)
	if secret == "" {
		return errors.New("AUTH_TOKEN_SECRET must be provided")
	}
	if c.App.IsProduction() {
		if secret == DevTokenSecret {
			return errors.New("AUTH_TOKEN_SECRET must be overridden in production")
		}
		if len(secret) < minProductionSecret {
			return fmt.Errorf("AUTH_TOKEN_SECRET must be at least %d bytes in production", minProductionSecret)
		}
	}
	if c.Auth.TokenTTL <= 0 || c.Auth.TokenTTL > MaxTokenTTL {
		return fmt.Errorf("AUTH_TOKEN_TTL must be within (0, %s]", MaxTokenTTL)
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("AUTH_SESSION_TTL must be positive")
	}
	if c.Auth.SessionCookie == "" {
		return errors.New("AUTH_SESSION_COOKIE must be provided")
	}
	return nil
}

// IsProduction reports whether the service runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Addr returns the HTTP bind address of the estimation service.
func (e EstimatorConfig) Addr() string {
	return fmt.Sprintf("%s:%s", e.Host, e.Port)
}
