package infra

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"nardwin"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"nardwin"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"nardwin"`
	PGMaxConns  int32  `env:"PG_MAX_CONNS" envDefault:"20"`
	PGMinConns  int32  `env:"PG_MIN_CONNS" envDefault:"2"`

	// Server
	APIPort int    `env:"API_PORT" envDefault:"3100"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3100"`

	// JWT
	JWTSecret string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	JWTExpiry time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`

	// Shared secret for internal service-to-service calls (game engine payouts).
	ServiceToken string `env:"SERVICE_TOKEN"`

	// Payment gateway
	OxapayMerchantKey    string        `env:"OXAPAY_MERCHANT_KEY"`
	OxapayInvoiceURL     string        `env:"OXAPAY_API_URL" envDefault:"https://api.oxapay.com/v1/payment/invoice"`
	OxapayPaymentInfoURL string        `env:"OXAPAY_PAYMENT_INFO_URL" envDefault:"https://api.oxapay.com/v1/payment"`
	OxapaySandbox        bool          `env:"OXAPAY_SANDBOX" envDefault:"false"`
	GatewayTimeout       time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"8s"`

	// Price oracle
	NobitexAPIURL string        `env:"NOBITEX_API_URL" envDefault:"https://apiv2.nobitex.ir/v3/orderbook/USDTIRT"`
	PriceCacheTTL time.Duration `env:"PRICE_CACHE_TTL" envDefault:"30s"`

	// Reconciliation verify poll
	VerifyPollInterval time.Duration `env:"VERIFY_POLL_INTERVAL" envDefault:"2s"`
	VerifyPollAttempts int           `env:"VERIFY_POLL_ATTEMPTS" envDefault:"5"`

	// Withdrawals (toman)
	MinWithdrawAmount int64 `env:"MIN_WITHDRAW_AMOUNT" envDefault:"100000"`

	// Kafka
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET is too short (%d chars); minimum 32 characters required", len(c.JWTSecret))
	}
	if c.OxapayMerchantKey == "" && !c.OxapaySandbox {
		return fmt.Errorf("OXAPAY_MERCHANT_KEY is required outside sandbox mode")
	}
	if c.ServiceToken == "" {
		return fmt.Errorf("SERVICE_TOKEN is required; internal payout calls authenticate with it")
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
