// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Seat-hold and sweep knobs are durations
// parsed from whole seconds so operators reason in the same units the
// API reports.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to validate access tokens

	HoldTTL         time.Duration // how long a seat hold lives before the reaper may reclaim it
	MaxSeatsPerUser int           // active hold ceiling per user per event
	SweepInterval   time.Duration // how often the background reaper runs
	TxTimeout       time.Duration // per-transaction deadline for hold/booking paths
}

// Load reads configuration from the environment.  A .env file in the
// working directory is applied first when present; real environment
// variables win over file entries.  Required variables are enforced by
// must() and missing values cause the program to exit.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: skipping .env: %v", err)
	}
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		HoldTTL:         secondsOr("HOLD_TTL_SECONDS", 600),
		MaxSeatsPerUser: intOr("MAX_SEATS_PER_USER", 6),
		SweepInterval:   secondsOr("SWEEP_INTERVAL_SECONDS", 60),
		TxTimeout:       secondsOr("TX_TIMEOUT_SECONDS", 15),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr returns the integer value of key, or def when unset.  A value
// that is present but not a valid positive integer is fatal: silently
// falling back on a mistyped hold limit would change booking behavior.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		log.Fatalf("invalid value for %s: %q", key, v)
	}
	return n
}

// secondsOr reads key as a whole number of seconds.
func secondsOr(key string, def int) time.Duration {
	return time.Duration(intOr(key, def)) * time.Second
}
