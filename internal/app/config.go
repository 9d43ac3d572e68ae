package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (BOOKING_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (BOOKING_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	AMQPURL     string `usage:"RabbitMQ URL for order notifications; notifications are disabled when empty" flag:"amqp-url"`
	TokenPepper string `usage:"HMAC pepper for API token hashing (BOOKING_TOKEN_PEPPER)" flag:"token-pepper"`
	TaxRate     string `default:"0.14975" usage:"Sales tax rate applied to order subtotals" flag:"tax-rate"`
	Paysafe     PaysafeConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// PaysafeConfig holds the payment gateway credentials.
type PaysafeConfig struct {
	BaseURL   string `default:"https://api.test.paysafe.com" usage:"Paysafe API base URL" flag:"paysafe-base-url"`
	AccountID string `usage:"Paysafe merchant account ID" flag:"paysafe-account-id"`
	APIKey    string `usage:"Paysafe API key (base64 user:password)" flag:"paysafe-api-key"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Rate  float64 `default:"20" usage:"Sustained requests per second per client"`
	Burst int     `default:"50" usage:"Burst size per client"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// ParsedTaxRate returns the tax rate as a decimal.
func (c *Config) ParsedTaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.TaxRate)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid tax rate %q", c.TaxRate)
	}
	if rate.IsNegative() {
		return decimal.Zero, errors.Errorf("tax rate %q must not be negative", c.TaxRate)
	}
	return rate, nil
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "BOOKING",
		Files:     []string{"config.yaml", "/etc/booking/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set BOOKING_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT to the application's BOOKING_
// prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if c.AMQPURL == "" {
		if v := os.Getenv("AMQP_URL"); v != "" {
			c.AMQPURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
