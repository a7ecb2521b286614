package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Config holds the server and CLI settings read from the environment.
type Config struct {
	Port                     string
	GinMode                  string
	DatabaseURL              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	JWTSecret                string
	TokenTTLMinutes          int
	AdminUsername            string
	AdminPassword            string
	CORSOrigins              []string
	RaffleName               string
	ClaimInstructions        string
	ClearstreamAPIKey        string
	ClearstreamBaseURL       string
	SendGridAPIKey           string
	SendGridBaseURL          string
	SendGridFromEmail        string
	SendGridFromName         string
	NotifyTimeoutSeconds     int
	Verbose                  bool
	LogFile                  string
}

// Default returns the settings used when no environment variable overrides them.
func Default() Config {
	return Config{
		Port:                     "8080",
		GinMode:                  "release",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		TokenTTLMinutes:          12 * 60,
		AdminUsername:            "admin",
		RaffleName:               "Raffle",
		ClaimInstructions:        "Visit the raffle table to claim your prize.",
		ClearstreamBaseURL:       "https://api.getclearstream.com",
		SendGridBaseURL:          "https://api.sendgrid.com",
		NotifyTimeoutSeconds:     15,
		Verbose:                  true,
	}
}

// Load returns Default overridden by any set environment variables.
// Malformed numbers and booleans keep their default.
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("GIN_MODE"); raw != "" {
		cfg.GinMode = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	if raw := os.Getenv("JWT_SECRET"); raw != "" {
		cfg.JWTSecret = raw
	}
	if raw := os.Getenv("TOKEN_TTL_MINUTES"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TokenTTLMinutes = value
		}
	}
	if raw := os.Getenv("ADMIN_USERNAME"); raw != "" {
		cfg.AdminUsername = raw
	}
	if raw := os.Getenv("ADMIN_PASSWORD"); raw != "" {
		cfg.AdminPassword = raw
	}
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		cfg.CORSOrigins = splitList(raw)
	}
	if raw := os.Getenv("RAFFLE_NAME"); raw != "" {
		cfg.RaffleName = raw
	}
	if raw := os.Getenv("CLAIM_INSTRUCTIONS"); raw != "" {
		cfg.ClaimInstructions = raw
	}
	if raw := os.Getenv("CLEARSTREAM_API_KEY"); raw != "" {
		cfg.ClearstreamAPIKey = raw
	}
	if raw := os.Getenv("CLEARSTREAM_BASE_URL"); raw != "" {
		cfg.ClearstreamBaseURL = raw
	}
	if raw := os.Getenv("SENDGRID_API_KEY"); raw != "" {
		cfg.SendGridAPIKey = raw
	}
	if raw := os.Getenv("SENDGRID_BASE_URL"); raw != "" {
		cfg.SendGridBaseURL = raw
	}
	if raw := os.Getenv("SENDGRID_FROM_EMAIL"); raw != "" {
		cfg.SendGridFromEmail = raw
	}
	if raw := os.Getenv("SENDGRID_FROM_NAME"); raw != "" {
		cfg.SendGridFromName = raw
	}
	if raw := os.Getenv("NOTIFY_TIMEOUT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.NotifyTimeoutSeconds = value
		}
	}
	if raw := os.Getenv("VERBOSE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Verbose = value
		}
	}
	if raw := os.Getenv("LOG_FILE"); raw != "" {
		cfg.LogFile = raw
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
