package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/Zachkp/portfolio/internal/logging"
	"github.com/Zachkp/portfolio/internal/relay"
)

// Config holds all configuration for the application
type Config struct {
	// Server Configuration
	Environment    string   `env:"ENV" envDefault:"development"`
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	// Empty means X-Forwarded-For is ignored and the peer address is the client
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// Webhook Configuration
	WebhookURL      string        `env:"N8N_WEBHOOK_URL,required,notEmpty"`
	WebhookUser     string        `env:"N8N_BASIC_USER,required,notEmpty"`
	WebhookPassword string        `env:"N8N_BASIC_PASS,required,notEmpty"`
	RelayTimeout    time.Duration `env:"RELAY_TIMEOUT" envDefault:"10s"`

	// Contact rate limiting, per client
	ContactRatePerMinute int `env:"CONTACT_RATE_PER_MINUTE" envDefault:"5"`
	ContactRateBurst     int `env:"CONTACT_RATE_BURST" envDefault:"3"`

	// Relay audit log
	AuditDBPath    string        `env:"AUDIT_DB_PATH" envDefault:"./data/relay.db"`
	AuditRetention time.Duration `env:"AUDIT_RETENTION" envDefault:"8760h"`

	// Admin API, disabled unless both are set
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// Logging Configuration
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE" envDefault:"./logs/server.log"`
	LogMaxSize    int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"3"`
	LogMaxAge     int    `env:"LOG_MAX_AGE" envDefault:"28"`
}

var ErrInvalidWebhookURL = errors.New("N8N_WEBHOOK_URL must be an absolute http(s) URL")

// Load reads .env files if present, then resolves the configuration from the
// process environment.
func Load() (*Config, error) {
	envLocations := []string{".env", ".env.local"}
	if name := os.Getenv("ENV"); name != "" {
		envLocations = append([]string{".env." + name}, envLocations...)
	}
	for _, loc := range envLocations {
		// godotenv never overrides variables that are already set
		_ = godotenv.Load(loc)
	}

	return parse(env.Options{})
}

// FromMap resolves the configuration from vars only, ignoring the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.WebhookURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidWebhookURL
	}
	if c.RelayTimeout <= 0 {
		return fmt.Errorf("RELAY_TIMEOUT must be positive, got %s", c.RelayTimeout)
	}
	if c.ContactRatePerMinute <= 0 || c.ContactRateBurst <= 0 {
		return fmt.Errorf("contact rate and burst must be positive")
	}
	if err := c.Logging().Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AdminEnabled reports whether admin credentials were supplied.
func (c *Config) AdminEnabled() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

func (c *Config) Relay() relay.Config {
	return relay.Config{
		URL:      c.WebhookURL,
		Username: c.WebhookUser,
		Password: c.WebhookPassword,
		Timeout:  c.RelayTimeout,
	}
}

func (c *Config) Logging() *logging.Config {
	return &logging.Config{
		Level:      c.LogLevel,
		File:       c.LogFile,
		MaxSize:    c.LogMaxSize,
		MaxBackups: c.LogMaxBackups,
		MaxAge:     c.LogMaxAge,
	}
}
