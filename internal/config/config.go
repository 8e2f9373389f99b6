// Package config reads the API server settings from the environment, after
// loading a .env file when one is present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the API server configuration. Only DatabaseURL is required.
type Config struct {
	Port        string   // PORT, default 8080
	DatabaseURL string   // DATABASE_URL
	LogLevel    string   // LOG_LEVEL: debug, info, warn or error; default info
	CORSOrigins []string // CORS_ORIGINS, comma separated; default the local dashboard

	// IngestConcurrency bounds how many records of a batch are processed at once.
	IngestConcurrency int

	// SummaryCacheTTL is how long a cached daily rollup stays valid. The cache
	// only sees writes made through this process, so it is off (zero) unless
	// this server is the sole writer.
	SummaryCacheTTL time.Duration

	// MaxBodyBytes caps request bodies. Zero disables the cap.
	MaxBodyBytes int64

	// MigrateOnStart applies pending goose migrations before serving.
	MigrateOnStart bool

	// ZoneMatchRadiusKm lets a coordinate reuse the nearest known zone within
	// this distance instead of creating a new cell. Zero turns matching off.
	ZoneMatchRadiusKm float64
}

// Load reads configuration from environment variables and returns a Config.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
// Returns an error listing any required variables that are not set or any
// values that do not parse.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	var err error
	if cfg.IngestConcurrency, err = strconv.Atoi(getEnv("INGEST_CONCURRENCY", "8")); err != nil || cfg.IngestConcurrency < 1 {
		invalid = append(invalid, "INGEST_CONCURRENCY")
	}
	if cfg.SummaryCacheTTL, err = time.ParseDuration(getEnv("SUMMARY_CACHE_TTL", "0s")); err != nil || cfg.SummaryCacheTTL < 0 {
		invalid = append(invalid, "SUMMARY_CACHE_TTL")
	}
	if cfg.MaxBodyBytes, err = strconv.ParseInt(getEnv("MAX_BODY_BYTES", "10485760"), 10, 64); err != nil || cfg.MaxBodyBytes < 0 {
		invalid = append(invalid, "MAX_BODY_BYTES")
	}
	if cfg.MigrateOnStart, err = strconv.ParseBool(getEnv("MIGRATE_ON_START", "false")); err != nil {
		invalid = append(invalid, "MIGRATE_ON_START")
	}
	if cfg.ZoneMatchRadiusKm, err = strconv.ParseFloat(getEnv("ZONE_MATCH_RADIUS_KM", "0"), 64); err != nil || cfg.ZoneMatchRadiusKm < 0 {
		invalid = append(invalid, "ZONE_MATCH_RADIUS_KM")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// getEnv treats an empty variable the same as an unset one.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
