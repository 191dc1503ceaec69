// Package config provides configuration for the API server and the client
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers of the API server
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// Config holds all configuration for the API server
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Logging     LoggingConfig
	CORS        CORSConfig
	JWT         JWTConfig
	Apple       AppleConfig
	StoreDriver string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port               int
	RateLimitPerMinute int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds session token settings
type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// AppleConfig holds Sign in with Apple settings
type AppleConfig struct {
	ClientID string
	KeysURL  string
}

// DSN returns the MySQL data source name
func (c *Config) DSN() string {
	return c.Database.DSN()
}

// DSN returns the MySQL data source name
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true&clientFoundRows=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.DBName,
	)
}

// Load reads the API server configuration from environment variables and an optional .env file
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error

	if cfg.Server.Port, err = intEnv("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.Server.RateLimitPerMinute, err = intEnv("RATE_LIMIT_PER_MINUTE", 100); err != nil {
		return nil, err
	}
	cfg.Logging.Level = stringEnv("LOG_LEVEL", "info")
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.JWT.TokenExpiry, err = durationEnv("JWT_TOKEN_EXPIRY", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.Apple.ClientID = os.Getenv("APPLE_CLIENT_ID")
	cfg.Apple.KeysURL = stringEnv("APPLE_KEYS_URL", "https://appleid.apple.com/auth/keys")

	cfg.StoreDriver = strings.ToLower(stringEnv("STORE_DRIVER", StoreMemory))
	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreMySQL:
		if err := loadDatabase(&cfg.Database); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER: %q", cfg.StoreDriver)
	}

	return cfg, nil
}

// loadDatabase reads the MySQL settings, all of which are required
func loadDatabase(db *DatabaseConfig) error {
	required := map[string]*string{
		"DB_HOST":     &db.Host,
		"DB_USER":     &db.User,
		"DB_PASSWORD": &db.Password,
		"DB_NAME":     &db.DBName,
	}
	for _, key := range []string{"DB_HOST", "DB_USER", "DB_PASSWORD", "DB_NAME"} {
		value := os.Getenv(key)
		if value == "" {
			return fmt.Errorf("%s is required", key)
		}
		*required[key] = value
	}

	portStr := os.Getenv("DB_PORT")
	if portStr == "" {
		return fmt.Errorf("DB_PORT is required")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	db.Port = port
	return nil
}

// parseOrigins splits a comma separated origin list, defaulting to "*"
func parseOrigins(value string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(value, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func stringEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
