package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Issuer claim for tokens (default: authd)
	KeyID  string // kid header on signed tokens (default: authd-1)

	SigningKeyFile string // Path to the Ed25519 PKCS8 PEM; generated on first boot when missing (default: ./signing.pem)
	DatabaseFile   string // Path to SQLite database file (default: ./authd.db)
	PepperFile     string // Path to file containing pepper for password hashing (default: ./pepper)

	AccessTTL  time.Duration // Access token lifetime (default: 15m)
	RefreshTTL time.Duration // Refresh token lifetime (default: 7 days)

	AdminEmail    string // Optional: bootstrap superuser email, only used while the users table is empty
	AdminPassword string // Optional: bootstrap superuser password

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "authd"),
		KeyID:          getEnvOrDefault("AUTH_KEY_ID", "authd-1"),
		SigningKeyFile: getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing.pem"),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "authd.db"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AccessTTL:  getEnvDurationOrDefault("AUTH_ACCESS_TTL", 15*time.Minute),
		RefreshTTL: getEnvDurationOrDefault("AUTH_REFRESH_TTL", 7*24*time.Hour),

		AdminEmail:    os.Getenv("AUTH_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("AUTH_ADMIN_PASSWORD"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Duration syntax first (e.g. "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are taken as minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
