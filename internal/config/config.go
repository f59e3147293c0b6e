package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "CLUBHUB"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"` // postgres | sqlite
	PostgresURL string `envconfig:"POSTGRES_URL"`
	SQLitePath  string `envconfig:"SQLITE_PATH" default:"clubhub.db"`
	JWTSecret   string `envconfig:"JWT_SECRET"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Timezone    string `envconfig:"TIMEZONE" default:"Asia/Kolkata"`
	// Proxies whose X-Forwarded-For is honored when resolving the client IP.
	// Empty means the socket peer address is always used.
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`

	Approval   ApprovalConfig
	Assignment AssignmentConfig
	Login      LoginConfig
	Payment    PaymentConfig
	Mail       MailConfig
}

type ApprovalConfig struct {
	// Fixed 4-digit segment between the year and the sequence of a username.
	UsernameMiddle    string `envconfig:"USERNAME_MIDDLE" default:"0707"`
	RequireSecondTier bool   `envconfig:"REQUIRE_SECOND_TIER" default:"true"`
}

type AssignmentConfig struct {
	Interval time.Duration `envconfig:"INTERVAL" default:"24h"`
	// Reviewer load counts the assignments made within this window.
	Window  time.Duration `envconfig:"WINDOW" default:"720h"`
	Enabled bool          `envconfig:"ENABLED" default:"true"`
}

type LoginConfig struct {
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	Lockout     time.Duration `envconfig:"LOCKOUT" default:"10m"`
	RateCeiling int           `envconfig:"RATE_CEILING" default:"5"`
	RateWindow  time.Duration `envconfig:"RATE_WINDOW" default:"1m"`
}

type PaymentConfig struct {
	KeyID      string `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret  string `envconfig:"RAZORPAY_KEY_SECRET"`
	Currency   string `envconfig:"CURRENCY" default:"INR"`
	MinAmount  int64  `envconfig:"MIN_AMOUNT" default:"100"`
	CrossCheck bool   `envconfig:"AMOUNT_CROSS_CHECK" default:"true"`
}

// MailConfig is optional; without a host decision mails are skipped.
type MailConfig struct {
	Host       string `envconfig:"HOST"`
	Port       int    `envconfig:"PORT" default:"587"`
	Username   string `envconfig:"USERNAME"`
	Password   string `envconfig:"PASSWORD"`
	From       string `envconfig:"FROM" default:"no-reply@clubhub.local"`
	FromName   string `envconfig:"FROM_NAME" default:"ClubHub"`
	UseSSL     bool   `envconfig:"USE_SSL"`
	RequireTLS bool   `envconfig:"REQUIRE_TLS" default:"true"`
}

var ErrMissingSetting = errors.New("missing required setting")

// Load reads an optional .env file and then the CLUBHUB_* environment.
func Load(envFiles ...string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Approval.UsernameMiddle) != 4 {
		return fmt.Errorf("APPROVAL_USERNAME_MIDDLE must be 4 digits, got %q", c.Approval.UsernameMiddle)
	}
	for _, r := range c.Approval.UsernameMiddle {
		if r < '0' || r > '9' {
			return fmt.Errorf("APPROVAL_USERNAME_MIDDLE must be 4 digits, got %q", c.Approval.UsernameMiddle)
		}
	}
	if c.Login.MaxAttempts <= 0 || c.Login.RateCeiling <= 0 {
		return errors.New("login attempt limits must be positive")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.Assignment.Window <= 0 {
		return errors.New("ASSIGNMENT_WINDOW must be positive")
	}
	return nil
}

// RequireServe checks the settings only the HTTP server needs.
func (c *Config) RequireServe() error {
	switch {
	case c.DBDriver == "postgres" && c.PostgresURL == "":
		return fmt.Errorf("%w: POSTGRES_URL", ErrMissingSetting)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: JWT_SECRET", ErrMissingSetting)
	case c.Payment.KeyID == "" || c.Payment.KeySecret == "":
		return fmt.Errorf("%w: PAYMENT_RAZORPAY_KEY_ID/PAYMENT_RAZORPAY_KEY_SECRET", ErrMissingSetting)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}
