package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ClientConfig holds the configuration of the headless client
type ClientConfig struct {
	// APIURL is the backend base URL. Empty selects offline mode.
	APIURL               string
	RequestTimeout       time.Duration
	DailyLimit           int
	FeedPageSize         int
	StorageDriver        string
	StoragePath          string
	RefreshSchedule      string
	LogoutOnUnauthorized bool
	CountRepeatFinishes  bool
	Logging              LoggingConfig
}

// LoadClient reads the client configuration from environment variables and an optional .env file
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		APIURL:          strings.TrimSpace(stringEnv("LEARN_API_URL", "")),
		StorageDriver:   strings.ToLower(stringEnv("LEARN_STORAGE_DRIVER", "sqlite")),
		StoragePath:     stringEnv("LEARN_STORAGE_PATH", "learn.db"),
		RefreshSchedule: stringEnv("LEARN_REFRESH_SCHEDULE", "@every 15m"),
		Logging:         LoggingConfig{Level: stringEnv("LOG_LEVEL", "info")},
	}

	var err error
	if cfg.RequestTimeout, err = durationEnv("LEARN_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.DailyLimit, err = intEnv("LEARN_DAILY_LIMIT", 5); err != nil {
		return nil, err
	}
	if cfg.DailyLimit <= 0 {
		return nil, fmt.Errorf("LEARN_DAILY_LIMIT must be positive")
	}
	if cfg.FeedPageSize, err = intEnv("LEARN_FEED_PAGE_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.FeedPageSize <= 0 || cfg.FeedPageSize > 100 {
		return nil, fmt.Errorf("LEARN_FEED_PAGE_SIZE must be between 1 and 100")
	}
	if cfg.LogoutOnUnauthorized, err = boolEnv("LEARN_LOGOUT_ON_UNAUTHORIZED", false); err != nil {
		return nil, err
	}
	if cfg.CountRepeatFinishes, err = boolEnv("LEARN_COUNT_REPEAT_FINISHES", false); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Offline reports whether no backend is configured
func (c *ClientConfig) Offline() bool {
	return c.APIURL == ""
}
