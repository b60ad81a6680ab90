package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NewRelic   NewRelicConfig
	Activation ActivationConfig
	Workers    WorkerConfig
	Push       PushConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// ActivationConfig holds the thresholds gating SCHEDULED -> ACTIVE.
type ActivationConfig struct {
	ProximityMeters  float64       // max distance to the first checkpoint
	EarlyStartWindow time.Duration // how long before scheduled time a trip may start
	NotifyDedupTTL   time.Duration // suppress repeat "trip ready" pushes within this window
}

// WorkerConfig holds the background polling intervals.
type WorkerConfig struct {
	ActivationInterval time.Duration
	OverdueInterval    time.Duration
}

// PushConfig holds push notification delivery configuration.
type PushConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fleet_trips"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "fleet-trip-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Activation: ActivationConfig{
			ProximityMeters:  getFloatEnv("ACTIVATION_PROXIMITY_METERS", 5000),
			EarlyStartWindow: getDurationEnv("ACTIVATION_EARLY_WINDOW", 15*time.Minute),
			NotifyDedupTTL:   getDurationEnv("ACTIVATION_NOTIFY_DEDUP", 24*time.Hour),
		},
		Workers: WorkerConfig{
			ActivationInterval: getDurationEnv("ACTIVATION_WORKER_INTERVAL", 30*time.Second),
			OverdueInterval:    getDurationEnv("OVERDUE_WORKER_INTERVAL", 60*time.Second),
		},
		Push: PushConfig{
			Endpoint: getEnv("PUSH_ENDPOINT", "https://exp.host/--/api/v2/push/send"),
			Timeout:  getDurationEnv("PUSH_TIMEOUT", 10*time.Second),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
