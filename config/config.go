package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	DriverLocal    = "local"
	DriverGist     = "gist"
	DriverPostgres = "postgres"
)

// FallbackJWTSecret is used outside production when JWT_SECRET is unset.
const FallbackJWTSecret = "fallback-secret-change-this"

type Config struct {
	Port        string
	Env         string
	FrontendURL string
	LogLevel    string

	JWTSecret    string
	JWTExpiresIn time.Duration

	AdminEmail    string
	AdminPassword string

	StorageDriver string
	ContentPath   string
	BackupPath    string
	UploadsDir    string

	GistID       string
	GithubToken  string
	GistCacheTTL time.Duration

	Database DatabaseConfig

	RateLimit RateLimitConfig

	MetricsEnabled bool

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
}

// RateLimitConfig mirrors the two limiters of the API: a generous one for
// every /api route and a strict one for login attempts.
type RateLimitConfig struct {
	APIRequests  int
	APIWindow    time.Duration
	AuthAttempts int
	AuthWindow   time.Duration
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil

	dataDir := env("DATA_DIR", "data")

	cfg := &Config{
		Port:        env("PORT", "3001"),
		Env:         env("NODE_ENV", env("APP_ENV", "development")),
		FrontendURL: env("FRONTEND_URL", "http://localhost:5173"),
		LogLevel:    env("LOG_LEVEL", "info"),

		JWTSecret:     env("JWT_SECRET", ""),
		AdminEmail:    env("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: env("ADMIN_PASSWORD", "admin123"),

		StorageDriver: strings.ToLower(env("STORAGE_DRIVER", DriverLocal)),
		ContentPath:   env("CONTENT_PATH", filepath.Join(dataDir, "content.json")),
		BackupPath:    env("BACKUP_PATH", filepath.Join(dataDir, "content.backup.json")),
		UploadsDir:    env("UPLOADS_DIR", "uploads"),

		GistID:      env("GIST_ID", ""),
		GithubToken: env("GITHUB_TOKEN", ""),

		Database: DatabaseConfig{
			User:     env("DB_USER", ""),
			Password: env("DB_PASSWORD", ""),
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", ""),
			SSLMode:  env("DB_SSLMODE", "require"),
		},

		EnvFileLoaded: loaded,
	}

	var err error
	if cfg.JWTExpiresIn, err = envDuration("JWT_EXPIRES_IN", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.GistCacheTTL, err = envDuration("GIST_CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.RateLimit.APIRequests, err = envInt("RATE_LIMIT_API_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimit.APIWindow, err = envDuration("RATE_LIMIT_API_WINDOW", time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimit.AuthAttempts, err = envInt("RATE_LIMIT_AUTH_MAX", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimit.AuthWindow, err = envDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = envBool("METRICS_ENABLED", false); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = FallbackJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the settings needed to boot. Gist credentials are not
// checked: the gist engine reports them missing at request time.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverLocal:
		if c.ContentPath == "" {
			return errors.New("CONTENT_PATH is required for the local driver")
		}
	case DriverGist:
	case DriverPostgres:
		if c.Database.User == "" || c.Database.Name == "" {
			return errors.New("DB_USER and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want local, gist or postgres)", c.StorageDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if c.IsProduction() && c.JWTSecret == FallbackJWTSecret {
		return errors.New("JWT_SECRET must not use the fallback value in production")
	}
	if c.RateLimit.APIRequests <= 0 || c.RateLimit.AuthAttempts <= 0 {
		return errors.New("rate limits must be positive")
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := env(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", key, raw, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := env(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	raw := env(key, "")
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parsing %s %q: %w", key, raw, err)
	}
	return b, nil
}
