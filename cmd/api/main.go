// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/stockroom-be/internal/adapters/db"
	redis_a "github.com/ammerola/stockroom-be/internal/adapters/redis_adapter"
	"github.com/ammerola/stockroom-be/internal/core/ports"
	"github.com/ammerola/stockroom-be/internal/core/services"
	"github.com/ammerola/stockroom-be/internal/handlers"
	"github.com/ammerola/stockroom-be/internal/handlers/middleware"
	"github.com/ammerola/stockroom-be/internal/pkg/config"
	"github.com/ammerola/stockroom-be/internal/pkg/logger"
	"github.com/ammerola/stockroom-be/internal/pkg/token"
)

// Build information injected at compile time
var (
	Version   = "dev"
	BuildTime = "unknown"
	GoVersion = "unknown"
)

func main() {
	// Initialize structured logger
	slogger := logger.SetupLogger("debug", "json")

	slogger.Info("starting stockroom inventory backend",
		slog.String("version", Version),
		slog.String("build_time", BuildTime),
		slog.String("go_version", GoVersion),
	)

	// Load configuration
	slogger.Info("loading configuration")
	cfg, err := config.Load(slogger)
	if err != nil {
		slogger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Reconfigure logger with loaded settings
	slogger = logger.SetupLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	slogger.Info("configuration loaded",
		slog.String("environment", cfg.App.Environment),
		slog.String("log_level", cfg.App.LogLevel),
	)

	// Create application context
	ctx := context.Background()

	// Run database migrations
	if err := runMigrations(ctx, cfg, slogger); err != nil {
		slogger.Error("failed to run migrations", slog.String("error", err.Error()))
		if cfg.IsProduction() {
			os.Exit(1)
		}
	}

	// Initialize dependencies
	deps, err := initializeDependencies(ctx, cfg, slogger)
	if err != nil {
		slogger.Error("failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer deps.cleanup()

	// Setup HTTP server
	server := setupHTTPServer(cfg, deps, slogger)

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("starting HTTP server",
			slog.String("address", cfg.GetServerAddress()),
		)
		serverErrors <- server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("server error", slog.String("error", err.Error()))
		}
	case sig := <-shutdown:
		slogger.Info("shutdown signal received",
			slog.String("signal", sig.String()),
		)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
			server.Close()
		}

		slogger.Info("server shutdown complete")
	}
}

// dependencies holds all application dependencies
type dependencies struct {
	database       ports.Database
	redisClient    *redis.Client
	redisCache     ports.CacheRepository
	tokenManager   *token.Manager
	productService *services.ProductService
	importService  *services.ImportService
	authService    *services.AuthService
	productHandler *handlers.ProductHandler
	authHandler    *handlers.AuthHandler
	importHandler  *handlers.ImportHandler
	exportHandler  *handlers.ExportHandler
	healthHandler  *handlers.HealthHandler
}

func (d *dependencies) cleanup() {
	if d.database != nil {
		d.database.Close()
	}
	if d.redisClient != nil {
		d.redisClient.Close()
	}
}

func initializeDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	// Initialize database connection
	logger.Info("connecting to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
	)

	database, err := db.NewDatabase(ctx, &db.Config{
		Host:               cfg.Database.Host,
		Port:               cfg.Database.Port,
		User:               cfg.Database.User,
		Password:           cfg.Database.Password,
		Database:           cfg.Database.Name,
		SSLMode:            cfg.Database.SSLMode,
		MaxConnections:     cfg.Database.MaxConnections,
		MinConnections:     cfg.Database.MinConnections,
		MaxConnLifetime:    cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:    cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod:  cfg.Database.HealthCheckPeriod,
		ConnectTimeout:     cfg.Database.ConnectTimeout,
		EnableQueryLogging: cfg.Database.EnableQueryLogging,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.database = database

	// Initialize Redis client
	logger.Info("connecting to Redis",
		slog.String("host", cfg.Redis.Host),
		slog.String("port", cfg.Redis.Port),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddress(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	// The export cache is an optimization; a missing Redis never blocks
	// startup.
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, export caching disabled",
			slog.String("error", err.Error()))
	} else {
		deps.redisClient = redisClient
		deps.redisCache = redis_a.NewCache(redisClient, cfg.Redis.TTL, logger)
	}

	// Token manager
	deps.tokenManager = token.NewManager(cfg.Security.JWTSecret, cfg.Security.JWTExpiration)

	// Initialize repositories
	productRepo := db.NewProductRepository(database, logger)
	logRepo := db.NewInventoryLogRepository(database, logger)

	// Initialize services
	deps.productService = services.NewProductService(productRepo, logRepo, database, logger)
	deps.importService = services.NewImportService(productRepo, logger)

	identities, err := services.NewStaticIdentityProvider(
		cfg.Admin.Username, cfg.Admin.Password, cfg.Admin.Email, cfg.Security.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize identity provider: %w", err)
	}
	deps.authService = services.NewAuthService(identities, deps.tokenManager, logger)

	// Initialize handlers
	deps.productHandler = handlers.NewProductHandler(deps.productService, logger)
	deps.authHandler = handlers.NewAuthHandler(deps.authService, logger)
	deps.importHandler = handlers.NewImportHandler(deps.importService, deps.redisCache, logger, 10<<20)
	deps.exportHandler = handlers.NewExportHandler(deps.productService, deps.redisCache, cfg.Export.CacheTTL, logger)
	deps.healthHandler = handlers.NewHealthHandler(database, deps.redisClient, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func setupHTTPServer(cfg *config.Config, deps *dependencies, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	// Setup middleware chain
	var handler http.Handler = mux

	// Apply middleware in reverse order (innermost first)
	if cfg.App.Environment != "test" {
		handler = middleware.RequestID(handler)
		handler = middleware.Logger(logger)(handler)
		handler = middleware.Recovery(logger)(handler)
	}

	if cfg.Security.RateLimitRequests > 0 {
		handler = middleware.RateLimit(cfg.Security.RateLimitRequests, cfg.Security.RateLimitDuration)(handler)
	}

	if len(cfg.Security.AllowedOrigins) > 0 {
		handler = middleware.CORS(cfg.Security.AllowedOrigins)(handler)
	}

	// Register routes using Go 1.22 method-specific routing
	registerRoutes(mux, deps)

	server := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	return server
}

func registerRoutes(mux *http.ServeMux, deps *dependencies) {
	// Health and readiness endpoints
	mux.HandleFunc("GET /health", deps.healthHandler.Health)
	mux.HandleFunc("GET /ready", deps.healthHandler.Readiness)
	mux.HandleFunc("GET /api/health", deps.healthHandler.Health)

	// Authentication
	mux.HandleFunc("POST /api/auth/login", deps.authHandler.Login)

	// Reads are public; only mutations and bulk transfers need a token.
	requireAuth := middleware.RequireAuth(deps.tokenManager)

	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux.HandleFunc("GET /api/products", deps.productHandler.List)
	mux.HandleFunc("GET /api/products/search", deps.productHandler.Search)
	mux.Handle("GET /api/products/export", authed(deps.exportHandler.ExportCSV))
	mux.Handle("GET /api/products/export/xlsx", authed(deps.exportHandler.ExportExcel))
	mux.Handle("POST /api/products/import", authed(deps.importHandler.ImportCSV))
	mux.HandleFunc("GET /api/products/{id}", deps.productHandler.Get)
	mux.HandleFunc("GET /api/products/{id}/history", deps.productHandler.History)
	mux.Handle("PUT /api/products/{id}", authed(deps.productHandler.Update))
	mux.Handle("DELETE /api/products/{id}", authed(deps.productHandler.Delete))
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("running database migrations")

	migrationConfig := &db.MigrationConfig{
		DatabaseURL: cfg.GetDatabaseURL(),
		TableName:   "schema_migrations",
		SchemaName:  "public",
	}

	return db.RunMigrationsWithRetry(ctx, migrationConfig, logger, 3)
}
