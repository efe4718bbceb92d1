// config/config.go - Application configuration loaded from the environment
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is built once at start-up and passed to every service that needs it.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"3000"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000"`
	JWTSecret   string `env:"JWT_SECRET"`

	// SecretKey keys the HMAC used for member approval tokens.
	SecretKey string `env:"SECRET_KEY"`

	Database Database
	Payment  Payment
	Skyroom  Skyroom

	CompetitionApprovalRedirectURL string        `env:"COMPETITION_APPROVAL_REDIRECT_URL" envDefault:"http://localhost:3000/competitions/approved"`
	ApprovalTokenTTL               time.Duration `env:"APPROVAL_TOKEN_TTL" envDefault:"24h"`

	TimeZone             string `env:"TIME_ZONE" envDefault:"Asia/Tehran"`
	SessionWindowMinutes int    `env:"SESSION_WINDOW_MINUTES" envDefault:"15"`

	NotificationPollInterval time.Duration `env:"NOTIFICATION_POLL_INTERVAL" envDefault:"5s"`
	ReconcileInterval        time.Duration `env:"RECONCILE_INTERVAL" envDefault:"10m"`
}

type Database struct {
	Driver   string `env:"DB_DRIVER" envDefault:"postgres"`
	URL      string `env:"DATABASE_URL"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"acmportal"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
	// SQLitePath is used when Driver is "sqlite".
	SQLitePath string `env:"DB_SQLITE_PATH" envDefault:"./data/acmportal.db"`
}

type Payment struct {
	Gateway           string        `env:"PAYMENT_GATEWAY" envDefault:"zarinpal"`
	MerchantID        string        `env:"ZARINPAL_MERCHANT_ID"`
	BaseURL           string        `env:"ZARINPAL_BASE_URL" envDefault:"https://payment.zarinpal.com"`
	CallbackURL       string        `env:"PAYMENT_CALLBACK_BASE" envDefault:"http://localhost:3000/api/payment/callback"`
	FrontendReturn    string        `env:"PAYMENT_FRONTEND_RETURN" envDefault:"http://localhost:3000/payresult"`
	EmailLinkBase     string        `env:"PAYMENT_EMAIL_LINK_BASE_URL"`
	Currency          string        `env:"PAYMENT_CURRENCY" envDefault:"IRR"`
	Timeout           time.Duration `env:"PAYMENT_GATEWAY_TIMEOUT" envDefault:"20s"`
	UnverifiedTimeout time.Duration `env:"PAYMENT_UNVERIFIED_TIMEOUT" envDefault:"15s"`
}

type Skyroom struct {
	BaseURL string        `env:"SKYROOM_BASEURL"`
	APIKey  string        `env:"SKYROOM_APIKEY"`
	RoomID  string        `env:"SKYROOM_ROOMID"`
	LinkTTL time.Duration `env:"SKYROOM_LINK_TTL" envDefault:"90m"`
	Timeout time.Duration `env:"SKYROOM_TIMEOUT" envDefault:"20s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = cfg.JWTSecret
	}
	return cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set (generate one with: openssl rand -base64 64)")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters long")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.SessionWindowMinutes < 0 {
		return errors.New("SESSION_WINDOW_MINUTES must not be negative")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Location returns the configured time zone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DSN builds the postgres connection string when DATABASE_URL is not set.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}
