package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	JWTSecret   string
	Database    DatabaseConfig

	// NowRefreshSeconds is the interval at which the calendar's
	// current-time marker (and with it the derived passed state) is
	// recomputed while a view is active.
	NowRefreshSeconds int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "scanwise"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	nowRefreshSeconds, err := strconv.Atoi(getEnv("NOW_REFRESH_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOW_REFRESH_SECONDS: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:              getEnv("PORT", "3001"),
		Origin:            getEnv("ORIGIN", "http://localhost:3000"),
		Environment:       getEnv("NODE_ENV", "development"),
		JWTSecret:         getEnv("JWT_SECRET", "default_jwt_secret"),
		Database:          dbConfig,
		NowRefreshSeconds: nowRefreshSeconds,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
