// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev, test, prod)
	Port           string // APP_PORT
	DBUser         string // DB_USER
	DBPass         string // DB_PASS, empty allowed
	DBHost         string // DB_HOST
	DBPort         string // DB_PORT
	DBName         string // DB_NAME
	JWTSecret      string // JWT_SECRET
	AccessTTLMin   int    // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays int    // REFRESH_TOKEN_TTL_DAYS
	BcryptCost     int    // BCRYPT_COST
}

// LoadDotEnv reads the given .env files (".env" when none are named) into
// the process environment.  Variables already set win, and a missing file
// is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Read builds a Config from the environment and reports every missing or
// malformed required variable at once.
func Read() (Config, error) {
	var errs []error
	str := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			errs = append(errs, fmt.Errorf("missing required env var: %s", key))
		}
		return v
	}
	num := func(key string) int {
		s := str(key)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid int for %s: %q", key, s))
		}
		return n
	}
	cfg := Config{
		Env:            str("APP_ENV"),
		Port:           str("APP_PORT"),
		DBUser:         str("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         str("DB_HOST"),
		DBPort:         str("DB_PORT"),
		DBName:         str("DB_NAME"),
		JWTSecret:      str("JWT_SECRET"),
		AccessTTLMin:   num("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: num("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     num("BCRYPT_COST"),
	}
	return cfg, errors.Join(errs...)
}

// Load reads .env and the environment and exits the process when a
// required variable is missing.
func Load() Config {
	if err := LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := Read()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
