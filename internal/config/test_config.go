package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the MySQL settings for integration tests from TEST_DB_* variables.
// When any of them is missing the returned config has an empty Database.Host and tests are expected to skip.
func LoadTestConfig() *Config {
	// Try to load .env file (ignore error if file doesn't exist - it's optional)
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()

	cfg := &Config{StoreDriver: StoreMySQL}

	port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if err != nil {
		return cfg
	}

	db := DatabaseConfig{
		Host:     os.Getenv("TEST_DB_HOST"),
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	}
	if db.Host == "" || db.User == "" || db.DBName == "" {
		return cfg
	}
	cfg.Database = db
	return cfg
}
