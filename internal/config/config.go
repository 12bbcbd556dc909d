package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Port    int    `mapstructure:"PORT"`
	Env     string `mapstructure:"APP_ENV"` // development | production
	GinMode string `mapstructure:"GIN_MODE"`

	// Database
	DBDriver    string `mapstructure:"DB_DRIVER"` // postgres | sqlite
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`
	SecureCookies      bool   `mapstructure:"USE_SECURE_COOKIES"`
	SeedAdminPassword  string `mapstructure:"SEED_ADMIN_PASSWORD"`

	CORSOrigins string `mapstructure:"CORS_ORIGINS"`
	// Comma separated proxy IPs/CIDRs allowed to set X-Forwarded-For; empty trusts none.
	TrustedProxiesRaw string `mapstructure:"TRUSTED_PROXIES"`

	// Business
	Timezone              string `mapstructure:"TIMEZONE"`
	MaxQuantityPerProduct int    `mapstructure:"MAX_QUANTITY_PER_PRODUCT"`
	ReceiptRetryAttempts  int    `mapstructure:"RECEIPT_RETRY_ATTEMPTS"`
}

// Load reads configs/.env when present, then environment variables.
func Load() (*Config, error) {
	// Missing file is fine: containers pass plain env vars
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 8080)
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 168)
	v.SetDefault("USE_SECURE_COOKIES", false)
	v.SetDefault("SEED_ADMIN_PASSWORD", "admin123")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("MAX_QUANTITY_PER_PRODUCT", 1)
	v.SetDefault("RECEIPT_RETRY_ATTEMPTS", 5)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.JWTSecret == "" {
		if cfg.IsRelease() {
			return nil, errors.New("config: JWT_SECRET is required in release mode")
		}
		cfg.JWTSecret = "default_super_secret_key" // development fallback only
	}
	if cfg.ReceiptRetryAttempts < 1 {
		cfg.ReceiptRetryAttempts = 1
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("config: invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}

	return cfg, nil
}

func (c *Config) IsRelease() bool {
	return c.GinMode == "release" || c.Env == "production"
}

// DSN returns DATABASE_URL when set, otherwise a postgres URL built from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBDriver == "sqlite" {
		return "sales.db"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// Location is the zone used for receipt dates and daily statistics.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWTExpirationHours) * time.Hour
}

func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSOrigins)
}

// TrustedProxies is nil when unset, so the client IP is always the socket peer.
func (c *Config) TrustedProxies() []string {
	return splitList(c.TrustedProxiesRaw)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
