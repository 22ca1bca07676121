// Package config loads application configuration from environment variables.
package config

import (
	"os"

	"github.com/rs/zerolog/log"
)

// Config holds the core runtime settings. Required values are enforced by
// must(); everything else falls back to a default.
type Config struct {
	Env            string // APP_ENV
	Port           string // APP_PORT
	BaseURL        string // APP_BASE_URL, used in invitation links
	DBUser         string
	DBPass         string // may be empty
	DBHost         string
	DBPort         string
	DBName         string
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	LogLevel       string // LOG_LEVEL: debug | info | warn | error
	LogFormat      string // LOG_FORMAT: json | console
}

// Load reads the core configuration. Missing required variables stop the
// process.
func Load() Config {
	return Config{
		Env:            envStr("APP_ENV", "dev"),
		Port:           envStr("APP_PORT", "8080"),
		BaseURL:        envStr("APP_BASE_URL", "http://localhost:8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays: envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     envInt("BCRYPT_COST", 10),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		LogFormat:      envStr("LOG_FORMAT", "json"),
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatal().Str("key", key).Msg("missing required env var")
	}
	return v
}
