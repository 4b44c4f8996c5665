package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	infraconfig "github.com/jonesrussell/feedback-api/infrastructure/config"
	"github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/infrastructure/profiling"
	infraredis "github.com/jonesrussell/feedback-api/infrastructure/redis"
	"github.com/jonesrussell/feedback-api/infrastructure/retry"
	"github.com/jonesrussell/feedback-api/internal/api"
	"github.com/jonesrussell/feedback-api/internal/config"
	"github.com/jonesrussell/feedback-api/internal/database"
	"github.com/jonesrussell/feedback-api/internal/detection"
	"github.com/jonesrussell/feedback-api/internal/directory"
	"github.com/jonesrussell/feedback-api/internal/handler"
	"github.com/jonesrussell/feedback-api/internal/locking"
	"github.com/jonesrussell/feedback-api/internal/metrics"
	"github.com/jonesrussell/feedback-api/internal/middleware"
	"github.com/jonesrussell/feedback-api/internal/service"
	"github.com/jonesrussell/feedback-api/internal/validation"
)

// dbConnectTimeout bounds every connection attempt together.
const dbConnectTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	// Initialize logger
	log, err := createLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	// Start profiling (if enabled)
	stopProfiling := startProfiling(cfg, log)
	defer stopProfiling()

	validation.Setup()

	// Connect to database
	db, err := connectDatabase(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", logger.Error(err))
		return 1
	}
	defer func() { _ = db.Close() }()

	// Connect to Redis (if enabled)
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = infraredis.Connect(context.Background(), cfg.Redis)
		if err != nil {
			log.Error("Failed to connect to Redis", logger.Error(err))
			return 1
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected", logger.String("address", cfg.Redis.Address))
	}

	// Run server
	return runServer(cfg, log, db, redisClient)
}

// loadConfig loads and validates configuration.
func loadConfig() (*config.Config, error) {
	configPath := infraconfig.GetConfigPath("config.yml")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if validationErr := cfg.Validate(); validationErr != nil {
		return nil, fmt.Errorf("validate config: %w", validationErr)
	}
	return cfg, nil
}

// createLogger creates a logger instance from configuration.
func createLogger(cfg *config.Config) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(logger.String("service", cfg.Service.Name)), nil
}

// startProfiling starts pprof and Pyroscope when enabled and returns a stop function.
func startProfiling(cfg *config.Config, log logger.Logger) func() {
	var stops []func()

	if cfg.Profiling.PprofEnabled {
		srv := profiling.StartPprofServer(cfg.Profiling.PprofPort, log)
		stops = append(stops, func() { _ = srv.Close() })
	}

	if cfg.Profiling.PyroscopeEnabled {
		profiler, err := profiling.StartPyroscope(profiling.PyroscopeConfig{
			ServiceName: cfg.Service.Name,
			ServerURL:   cfg.Profiling.PyroscopeURL,
			Environment: cfg.Service.Environment,
			Version:     cfg.Service.Version,
		}, log)
		if err != nil {
			log.Warn("Pyroscope disabled", logger.Error(err))
		} else {
			stops = append(stops, func() { _ = profiler.Stop() })
		}
	}

	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// connectDatabase opens the configured database, retrying while it is
// still starting.
func connectDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	retryCfg := retry.DefaultConfig()
	retryCfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Warn("Database not ready, retrying",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(err),
		)
	}

	var db *sqlx.DB
	err := retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		var openErr error
		db, openErr = database.Open(ctx, cfg.Database)
		return openErr
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == config.DriverSQLite {
		log.Info("Database connected",
			logger.String("driver", cfg.Database.Driver),
			logger.String("path", cfg.Database.Path),
		)
	} else {
		log.Info("Database connected",
			logger.String("driver", cfg.Database.Driver),
			logger.String("host", cfg.Database.Host),
			logger.Int("port", cfg.Database.Port),
			logger.String("database", cfg.Database.Database),
		)
	}

	return db, nil
}

// newLocker picks the per-key snapshot lock: Redis when available so
// replicas serialize together, in-process otherwise.
func newLocker(cfg *config.Config, redisClient *goredis.Client, log logger.Logger) locking.Locker {
	switch {
	case !cfg.Snapshots.SerializationEnabled():
		return locking.Nop{}
	case redisClient != nil:
		return locking.NewRedis(redisClient, 0, locking.WithLogger(log))
	default:
		return locking.NewLocal()
	}
}

// runServer creates all dependencies and starts the HTTP server.
func runServer(cfg *config.Config, log logger.Logger, db *sqlx.DB, redisClient *goredis.Client) int {
	detector, err := detection.New(cfg.Snapshots.DetectionStrategy)
	if err != nil {
		log.Error("Invalid detection strategy", logger.Error(err))
		return 1
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Repositories
	projectRepo := database.NewProjectRepository(db)
	feedbackRepo := database.NewFeedbackRepository(db)
	snapshotRepo := database.NewSnapshotRepository(db)

	// Project directory, cached in Redis when enabled
	var dirOpts []directory.Option
	if redisClient != nil {
		dirOpts = append(dirOpts, directory.WithCache(redisClient, cfg.Redis.ProjectCacheTTL))
	}
	dir := directory.New(projectRepo, log, dirOpts...)

	// Services
	feedbackSvc := service.NewFeedbackService(feedbackRepo, m, log)
	snapshotSvc := service.NewSnapshotService(snapshotRepo, log,
		service.WithDetector(detector),
		service.WithLocker(newLocker(cfg, redisClient, log), cfg.Snapshots.LockTimeout),
		service.WithSnapshotMetrics(m),
	)
	projectSvc := service.NewProjectService(projectRepo, feedbackSvc, snapshotSvc, dir, log)

	// Handlers
	handlers := api.Handlers{
		Feedback: handler.NewFeedbackHandler(feedbackSvc, log, cfg.Service.Debug),
		Snapshot: handler.NewSnapshotHandler(snapshotSvc, log, cfg.Service.Debug),
		Project:  handler.NewProjectHandler(projectSvc, feedbackSvc, snapshotSvc, log, cfg.Service.Debug),
	}

	// done channel signals background goroutines (rate limiters) on shutdown
	done := make(chan struct{})
	defer close(done)

	if cfg.Auth.AdminAPIKey == "" && cfg.Auth.JWTSecret == "" {
		log.Warn("Admin authentication not configured; /projects endpoints are disabled")
	}

	opts := api.RouteOptions{
		Lookup: dir,
		APIKey: middleware.APIKeyOptions{
			AllowMissingOrigin:   cfg.Auth.MissingOriginAllowed(),
			SkipOriginValidation: cfg.Auth.SkipOriginValidation,
		},
		AdminKey:     cfg.Auth.AdminAPIKey,
		JWTSecret:    cfg.Auth.JWTSecret,
		RateLimit:    cfg.RateLimit,
		MaxBodyBytes: cfg.Service.MaxBodyBytes,
		Metrics:      m,
		Gatherer:     reg,
		Logger:       log,
		Done:         done,
	}

	server := api.NewServer(cfg, handlers, opts, db, redisClient)

	log.Info("Feedback API starting",
		logger.Int("port", cfg.Service.Port),
		logger.String("database_driver", cfg.Database.Driver),
		logger.String("detection_strategy", cfg.Snapshots.DetectionStrategy),
		logger.Bool("redis", redisClient != nil),
	)

	if err := server.Run(); err != nil {
		log.Error("Server error", logger.Error(err))
		return 1
	}

	log.Info("Feedback API exited cleanly")
	return 0
}
