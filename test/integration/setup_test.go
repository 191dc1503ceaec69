package integration

import (
	"context"
	"database/sql"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/client"
	"github.com/barkatlearn/learn/internal/config"
	"github.com/barkatlearn/learn/internal/handlers"
	"github.com/barkatlearn/learn/internal/progress"
	"github.com/barkatlearn/learn/internal/services"
	"github.com/barkatlearn/learn/internal/storage"
	"github.com/barkatlearn/learn/libs/auth/middleware"
	"github.com/barkatlearn/learn/libs/auth/service"
	"github.com/go-chi/chi/v5"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupTestRouter creates a router with all handlers mounted under /api, the same way cmd/api does
func setupTestRouter(userRepo services.UserRepository, progressRepo services.ProgressRepository, logger *zap.Logger) chi.Router {
	tokenGenerator := service.NewTokenGenerator("integration-secret", time.Hour)
	cards := catalog.Default()

	userService := services.NewUserService(userRepo, progressRepo, tokenGenerator, services.NewAppleVerifier("", "", logger), logger)
	progressService := services.NewProgressService(progressRepo, cards, logger)
	cardsService := services.NewCardsService(cards, progressRepo, logger)

	authMiddleware := middleware.AuthMiddleware(tokenGenerator)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(tokenGenerator)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		handlers.NewHealthHandler(logger).RegisterRoutes(r)
		handlers.NewCardsHandler(cardsService, logger).RegisterRoutes(r, authMiddleware, optionalAuthMiddleware)
		handlers.NewProgressHandler(progressService, logger).RegisterRoutes(r, authMiddleware)
		handlers.NewUserHandler(userService, logger).RegisterRoutes(r, authMiddleware)
	})
	return r
}

// startServer serves the API from an httptest server closed at the end of the test
func startServer(t *testing.T, userRepo services.UserRepository, progressRepo services.ProgressRepository) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(setupTestRouter(userRepo, progressRepo, zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

// newDevice returns a progress manager talking to baseURL with its own in-memory storage
func newDevice(t *testing.T, baseURL string) (*progress.Manager, *client.Client) {
	t.Helper()
	store, err := storage.Open(storage.DriverMemory, "")
	require.NoError(t, err)

	api := client.New(baseURL, 5*time.Second, catalog.Default(), zap.NewNop())
	manager := progress.NewManager(api, store, zap.NewNop(), progress.Options{})
	t.Cleanup(manager.Close)
	require.NoError(t, manager.Hydrate(context.Background()))
	return manager, api
}

// openTestDB connects to the TEST_DB_* database and migrates it, or skips the test when none is configured
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}

	cfg := config.LoadTestConfig()
	if cfg.Database.Host == "" {
		t.Skip("TEST_DB_HOST is not set")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping(), "Failed to ping test database")

	driver, err := mysql.WithInstance(db, &mysql.Config{MigrationsTable: "barkat_schema_migrations"})
	require.NoError(t, err)
	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", "mysql", driver)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "Failed to run migrations")
	}

	cleanupTestData(t, db)
	t.Cleanup(func() { cleanupTestData(t, db) })
	return db
}

// cleanupTestData removes all accounts. Progress rows go with them.
func cleanupTestData(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec("DELETE FROM users")
	require.NoError(t, err, "Failed to cleanup test data")
}
