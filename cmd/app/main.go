package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexivanou/geonames-sync/internal/api"
	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/database"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/progress"
	"github.com/alexivanou/geonames-sync/internal/reconcile"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"github.com/alexivanou/geonames-sync/internal/service"
	"github.com/alexivanou/geonames-sync/internal/source"
	"github.com/alexivanou/geonames-sync/internal/stats"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("type", string(cfg.DB.Type)))

	if err := database.Migrate(db, cfg.DB.Type, database.MigrationsDir("migrations", cfg.DB.Type)); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repos := repository.NewRepositories(db, cfg.DB.Type, cfg.Sync.UpdatableColumns)

	recorder := metrics.MustNew()
	if err := recorder.RegisterRuntime(); err != nil {
		logger.Warn("Failed to register runtime collectors", zap.Error(err))
	}

	isEmpty, err := repository.IsDatabaseEmpty(ctx, db)
	if err != nil {
		logger.Warn("Failed to check if database is empty", zap.Error(err))
	} else if isEmpty {
		logger.Info("Database is empty, auto-seeding data...")
		if err := autoSeed(ctx, repos, cfg, recorder, logger); err != nil {
			// The API still answers health and stats on an empty store.
			logger.Warn("Failed to auto-seed database", zap.Error(err))
		} else {
			logger.Info("Database seeded successfully")
		}
	}

	svc := service.NewService(repos.Entity)
	statsCollector := stats.NewCollector(db, cfg.DB)
	router := api.NewRouter(svc, statsCollector, recorder, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// autoSeed loads the configured dumps into an empty store.
func autoSeed(ctx context.Context, repos *repository.Container, cfg *config.Config, recorder *metrics.Recorder, logger *zap.Logger) error {
	provider, err := source.FromConfig(cfg.Source, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Cleanup(); err != nil {
			logger.Warn("Failed to clean up source files", zap.Error(err))
		}
	}()

	engine := reconcile.New(repos, provider, cfg.Sync, logger,
		reconcile.WithMetrics(recorder),
		reconcile.WithProgress(progress.LogFactory(logger, cfg.Sync.ProgressEvery)),
	)
	_, err = engine.Seed(ctx, reconcile.SeedOptions{})
	return err
}
