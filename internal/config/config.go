// Package config loads application configuration from environment variables.
// Everything is read exactly once at startup; in particular the backend mode
// is computed here and never re-derived at call sites.
package config

import (
	"log"
	"os"
	"strconv"
)

// Mode selects which credential backend is authoritative for this process.
type Mode string

const (
	// ModeRelational is the development personality: MySQL users and
	// sessions, password logins, cookie-based session tokens.
	ModeRelational Mode = "relational"

	// ModeDocument is the production personality: Mongo user documents
	// keyed by the identity issuer's subject id, bearer tokens verified
	// on every request.
	ModeDocument Mode = "document"
)

// Config holds all runtime configuration.  Backend-specific fields are only
// required (and only validated) for the active mode.
type Config struct {
	Env  string // APP_ENV: "production" selects document mode
	Mode Mode
	Port string

	// relational mode
	DBUser string
	DBPass string
	DBHost string
	DBPort string
	DBName string

	// document mode
	MongoURI string
	MongoDB  string

	JWTSecret      string // signs relational session tokens
	IdentitySecret string // verifies externally issued identity tokens
	SessionTTLDays int    // session token lifetime (default 7)
	BcryptCost     int

	AMQPURL string // optional; enables activity event fan-out
}

// Load reads configuration from the environment.  Missing required values
// are fatal: the process must not come up half-configured.
func Load() Config {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	cfg := Config{
		Env:            env,
		Mode:           ModeFromEnv(env),
		Port:           envStr("APP_PORT", "8080"),
		JWTSecret:      must("JWT_SECRET"),
		IdentitySecret: must("IDENTITY_SECRET"),
		SessionTTLDays: envInt("SESSION_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		AMQPURL:        os.Getenv("AMQP_URL"),
	}
	switch cfg.Mode {
	case ModeDocument:
		cfg.MongoURI = must("MONGO_URI")
		cfg.MongoDB = envStr("MONGO_DB", "reelbase")
	default:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	}
	return cfg
}

// ModeFromEnv maps a deployment environment name to a backend mode.  Only
// "production" runs against the document store.
func ModeFromEnv(env string) Mode {
	if env == "production" {
		return ModeDocument
	}
	return ModeRelational
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
