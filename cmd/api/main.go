package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/barkatlearn/learn/docs"
	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/config"
	"github.com/barkatlearn/learn/internal/handlers"
	"github.com/barkatlearn/learn/internal/repositories"
	"github.com/barkatlearn/learn/internal/services"
	"github.com/barkatlearn/learn/libs/auth/middleware"
	"github.com/barkatlearn/learn/libs/auth/service"
	"github.com/barkatlearn/learn/libs/logger"
	loggerMiddleware "github.com/barkatlearn/learn/libs/logger/middleware"
	sharedMiddleware "github.com/barkatlearn/learn/libs/middlewares"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Barkat Learn API
// @version 1.0
// @description Card catalog, learning progress and accounts for the Barkat Learn app

// @contact.name API Support

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Barkat Learn API", zap.String("store", cfg.StoreDriver))

	// Initialize repositories
	var (
		userRepo     services.UserRepository
		progressRepo services.ProgressRepository
	)
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := connectDB(cfg.DSN())
		if err != nil {
			logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := runMigrations(db); err != nil {
			logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
		}

		userRepo = repositories.NewUserRepository(db, logger.Logger)
		progressRepo = repositories.NewProgressRepository(db, logger.Logger)
	default:
		store := repositories.NewMemoryStore()
		userRepo = store.UserRepository()
		progressRepo = store.ProgressRepository()
		logger.Logger.Warn("Using in-memory store, data is lost on restart")
	}

	// Initialize JWT token generator
	tokenGenerator := service.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.TokenExpiry)

	// Initialize services
	cards := catalog.Default()
	appleVerifier := services.NewAppleVerifier(cfg.Apple.KeysURL, cfg.Apple.ClientID, logger.Logger)
	userService := services.NewUserService(userRepo, progressRepo, tokenGenerator, appleVerifier, logger.Logger)
	progressService := services.NewProgressService(progressRepo, cards, logger.Logger)
	cardsService := services.NewCardsService(cards, progressRepo, logger.Logger)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(logger.Logger)
	cardsHandler := handlers.NewCardsHandler(cardsService, logger.Logger)
	progressHandler := handlers.NewProgressHandler(progressService, logger.Logger)
	userHandler := handlers.NewUserHandler(userService, logger.Logger)

	// Initialize auth middleware
	authMiddleware := middleware.AuthMiddleware(tokenGenerator)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(tokenGenerator)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(cfg.Server.RateLimitPerMinute, time.Minute))
	r.Use(sharedMiddleware.RequestSizeLimitMiddleware(sharedMiddleware.DefaultMaxRequestSize))

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	r.Route("/api", func(r chi.Router) {
		healthHandler.RegisterRoutes(r)
		cardsHandler.RegisterRoutes(r, authMiddleware, optionalAuthMiddleware)
		progressHandler.RegisterRoutes(r, authMiddleware)
		userHandler.RegisterRoutes(r, authMiddleware)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "barkat_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Migrations live next to go.mod; fall back to the parent directories when started from cmd/api
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
