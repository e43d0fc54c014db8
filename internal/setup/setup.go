package setup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robalyx/warden/internal/database"
	"github.com/robalyx/warden/internal/redis"
	"github.com/robalyx/warden/internal/setup/config"
	"github.com/robalyx/warden/internal/setup/telemetry"
	"go.uber.org/zap"
)

// ErrPendingMigrations is returned when the schema is behind and migrations were not requested.
var ErrPendingMigrations = errors.New("database migrations are pending, run the migrate command first")

// Options controls how the application is bootstrapped.
type Options struct {
	ServiceType telemetry.ServiceType
	LogDir      string
	ConfigDir   string
	// AutoMigrate applies pending migrations instead of refusing to start.
	AutoMigrate bool
}

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	ConfigDir    string             // Directory the configuration was read from
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	LogManager   *telemetry.Manager // Log management system
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, opts Options) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(opts.ServiceType, opts.LogDir, &cfg.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration", zap.String("dir", configDir))

	// Redis manager provides connection pools for shared state
	redisManager := redis.NewManager(&cfg.Redis, logger)

	// Initialize database with migration check
	db, err := checkAndRunMigrations(ctx, &cfg.PostgreSQL, dbLogger, opts.AutoMigrate)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		ConfigDir:    configDir,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		LogManager:   logManager,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup() {
	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections after everything that might use them
	s.RedisManager.Close()

	// Sync buffered logs last
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}

// checkAndRunMigrations connects to the database and makes sure its schema is current.
func checkAndRunMigrations(
	ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger, autoMigrate bool,
) (database.Client, error) {
	db, err := database.NewConnection(ctx, cfg, dbLogger, autoMigrate)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		return db, nil
	}

	migrator := database.NewMigrator(db.DB())
	if err := migrator.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	if unapplied := ms.Unapplied(); len(unapplied) > 0 {
		_ = db.Close()
		return nil, fmt.Errorf("%w (%d unapplied)", ErrPendingMigrations, len(unapplied))
	}

	return db, nil
}
