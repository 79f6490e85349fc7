// Package config loads application configuration from environment variables
// into one immutable Config built at startup. Components receive the values
// they need through constructors instead of reading the environment ad hoc.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Secrets stay strings; durations are parsed up front so
// a malformed value fails at boot, not on first use.
type Config struct {
	Env  string // "development" or "production"
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	JWTSecret     string        // secret used to sign identity tokens
	JWTExpires    time.Duration // identity token lifetime
	JWTCookieDays int           // session cookie lifetime in days
	BcryptCost    int
	ResetTokenTTL time.Duration // password reset token lifetime

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	StripeSecretKey     string
	StripeWebhookSecret string

	RabbitURL string // optional; booking events are skipped when empty
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:  must("APP_ENV"),
		Port: must("APP_PORT"),

		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		JWTSecret:     must("JWT_SECRET"),
		JWTExpires:    mustDur("JWT_EXPIRES_IN"),
		JWTCookieDays: mustInt("JWT_COOKIE_EXPIRES_DAYS"),
		BcryptCost:    mustInt("BCRYPT_COST"),
		ResetTokenTTL: mustDur("RESET_TOKEN_TTL"),

		SMTPHost: must("EMAIL_HOST"),
		SMTPPort: mustInt("EMAIL_PORT"),
		SMTPUser: os.Getenv("EMAIL_USERNAME"),
		SMTPPass: os.Getenv("EMAIL_PASSWORD"),
		MailFrom: must("EMAIL_FROM"),

		StripeSecretKey:     must("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: must("STRIPE_WEBHOOK_SECRET"),

		RabbitURL: os.Getenv("RABBITMQ_URL"),
	}
}

// IsProduction reports whether the app runs in guarded (production) mode.
func (c Config) IsProduction() bool { return c.Env == "production" }

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// mustDur is like must() but parses a time.Duration ("15m", "24h", ...).
func mustDur(key string) time.Duration {
	s := must(key)
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}
