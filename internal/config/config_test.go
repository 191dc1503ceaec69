package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		env           map[string]string
		expectedError string
		check         func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults",
			env:  map[string]string{"JWT_SECRET": "secret"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 100, cfg.Server.RateLimitPerMinute)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
				assert.Equal(t, 7*24*time.Hour, cfg.JWT.TokenExpiry)
				assert.Equal(t, StoreMemory, cfg.StoreDriver)
				assert.Equal(t, "https://appleid.apple.com/auth/keys", cfg.Apple.KeysURL)
			},
		},
		{
			name: "mysql",
			env: map[string]string{
				"JWT_SECRET":           "secret",
				"STORE_DRIVER":         "MySQL",
				"DB_HOST":              "db",
				"DB_PORT":              "3306",
				"DB_USER":              "learn",
				"DB_PASSWORD":          "pw",
				"DB_NAME":              "barkat",
				"CORS_ALLOWED_ORIGINS": "https://a.example, ,https://b.example",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, StoreMySQL, cfg.StoreDriver)
				assert.Equal(t, "learn:pw@tcp(db:3306)/barkat?parseTime=true&multiStatements=true&clientFoundRows=true", cfg.DSN())
				assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name:          "missing secret",
			env:           map[string]string{},
			expectedError: "JWT_SECRET is required",
		},
		{
			name:          "mysql without host",
			env:           map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "mysql"},
			expectedError: "DB_HOST is required",
		},
		{
			name:          "bad driver",
			env:           map[string]string{"JWT_SECRET": "secret", "STORE_DRIVER": "redis"},
			expectedError: "invalid STORE_DRIVER",
		},
		{
			name:          "bad port",
			env:           map[string]string{"JWT_SECRET": "secret", "SERVER_PORT": "http"},
			expectedError: "invalid SERVER_PORT",
		},
		{
			name:          "bad expiry",
			env:           map[string]string{"JWT_SECRET": "secret", "JWT_TOKEN_EXPIRY": "week"},
			expectedError: "invalid JWT_TOKEN_EXPIRY",
		},
	}

	keys := []string{
		"SERVER_PORT", "RATE_LIMIT_PER_MINUTE", "LOG_LEVEL", "CORS_ALLOWED_ORIGINS", "JWT_SECRET", "JWT_TOKEN_EXPIRY",
		"APPLE_CLIENT_ID", "APPLE_KEYS_URL", "STORE_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range keys {
				t.Setenv(key, tt.env[key])
			}

			cfg, err := Load()

			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadClient(t *testing.T) {
	keys := []string{
		"LEARN_API_URL", "LEARN_REQUEST_TIMEOUT", "LEARN_DAILY_LIMIT", "LEARN_FEED_PAGE_SIZE", "LEARN_STORAGE_DRIVER",
		"LEARN_STORAGE_PATH", "LEARN_REFRESH_SCHEDULE", "LEARN_LOGOUT_ON_UNAUTHORIZED", "LEARN_COUNT_REPEAT_FINISHES",
		"LOG_LEVEL",
	}
	reset := func(t *testing.T) {
		for _, key := range keys {
			t.Setenv(key, "")
		}
	}

	t.Run("defaults are offline", func(t *testing.T) {
		reset(t)

		cfg, err := LoadClient()

		require.NoError(t, err)
		assert.True(t, cfg.Offline())
		assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 5, cfg.DailyLimit)
		assert.Equal(t, 10, cfg.FeedPageSize)
		assert.Equal(t, "sqlite", cfg.StorageDriver)
		assert.Equal(t, "learn.db", cfg.StoragePath)
		assert.Equal(t, "@every 15m", cfg.RefreshSchedule)
		assert.False(t, cfg.LogoutOnUnauthorized)
		assert.False(t, cfg.CountRepeatFinishes)
	})

	t.Run("overrides", func(t *testing.T) {
		reset(t)
		t.Setenv("LEARN_API_URL", "http://localhost:8080")
		t.Setenv("LEARN_DAILY_LIMIT", "8")
		t.Setenv("LEARN_STORAGE_DRIVER", "FILE")
		t.Setenv("LEARN_LOGOUT_ON_UNAUTHORIZED", "true")

		cfg, err := LoadClient()

		require.NoError(t, err)
		assert.False(t, cfg.Offline())
		assert.Equal(t, 8, cfg.DailyLimit)
		assert.Equal(t, "file", cfg.StorageDriver)
		assert.True(t, cfg.LogoutOnUnauthorized)
	})

	t.Run("invalid values", func(t *testing.T) {
		for key, value := range map[string]string{
			"LEARN_DAILY_LIMIT":           "0",
			"LEARN_FEED_PAGE_SIZE":        "500",
			"LEARN_REQUEST_TIMEOUT":       "soon",
			"LEARN_COUNT_REPEAT_FINISHES": "maybe",
		} {
			reset(t)
			t.Setenv(key, value)

			_, err := LoadClient()
			assert.Error(t, err, key)
		}
	})
}

func TestLoadTestConfig(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "")
	t.Setenv("TEST_DB_PORT", "")

	cfg := LoadTestConfig()

	assert.Empty(t, cfg.Database.Host)
	assert.Equal(t, StoreMySQL, cfg.StoreDriver)
}
