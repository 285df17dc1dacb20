package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexivanou/geonames-sync/internal/config"
	"github.com/alexivanou/geonames-sync/internal/database"
	"github.com/alexivanou/geonames-sync/internal/metrics"
	"github.com/alexivanou/geonames-sync/internal/progress"
	"github.com/alexivanou/geonames-sync/internal/reconcile"
	"github.com/alexivanou/geonames-sync/internal/repository"
	"github.com/alexivanou/geonames-sync/internal/source"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile    string
	migrations    string
	skipMigrate   bool
	printSummary  bool
	keepFiles     bool
	noTranslation bool
}

// app is everything a subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	recorder *metrics.Recorder
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:          "geosync",
		Short:        "Keep a relational copy of GeoNames in step with the published dumps",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML file overlaid on the environment settings")
	root.PersistentFlags().StringVar(&flags.migrations, "migrations", "migrations", "migrations root holding the postgres and sqlite directories")
	root.PersistentFlags().BoolVar(&flags.skipMigrate, "skip-migrate", false, "do not apply pending migrations before the run")
	root.PersistentFlags().BoolVar(&flags.printSummary, "summary", false, "print the run summary as JSON on stdout")

	root.AddCommand(
		newSeedCommand(flags),
		newSyncCommand(flags),
		newDailyUpdateCommand(flags),
	)
	return root
}

// setup loads the configuration and the ambient services of a run.
func setup(flags *globalFlags) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flags.configFile != "" {
		if err := cfg.LoadFile(flags.configFile); err != nil {
			return nil, err
		}
		if err := cfg.Sync.Validate(); err != nil {
			return nil, err
		}
	}
	if flags.keepFiles {
		cfg.Source.KeepFiles = true
	}
	if flags.noTranslation {
		cfg.Sync.Translations = false
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	recorder, err := metrics.New()
	if err != nil {
		return nil, err
	}
	if err := recorder.RegisterRuntime(); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, recorder: recorder}, nil
}

// execute connects to the store, builds the engine over provider overrides
// and runs fn. SIGINT and SIGTERM cancel the run at the next line boundary.
func (a *app) execute(flags *globalFlags, overrides *source.Overrides, fn func(context.Context, *reconcile.Engine) (*reconcile.Summary, error)) error {
	defer a.logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, a.cfg.DB)
	if err != nil {
		a.logger.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()
	a.logger.Info("Connected to database", zap.String("type", string(a.cfg.DB.Type)))

	if !flags.skipMigrate {
		if err := database.Migrate(db, a.cfg.DB.Type, database.MigrationsDir(flags.migrations, a.cfg.DB.Type)); err != nil {
			a.logger.Error("Failed to run migrations", zap.Error(err))
			return err
		}
	}

	base, err := source.FromConfig(a.cfg.Source, a.logger)
	if err != nil {
		a.logger.Error("Failed to prepare source", zap.Error(err))
		return err
	}
	overrides.Base = base
	defer func() {
		if err := overrides.Cleanup(); err != nil {
			a.logger.Warn("Failed to clean up source files", zap.Error(err))
		}
	}()

	repos := repository.NewRepositories(db, a.cfg.DB.Type, a.cfg.Sync.UpdatableColumns)
	engine := reconcile.New(repos, overrides, a.cfg.Sync, a.logger,
		reconcile.WithMetrics(a.recorder),
		reconcile.WithProgress(progress.LogFactory(a.logger, a.cfg.Sync.ProgressEvery)),
	)

	summary, runErr := fn(ctx, engine)

	if err := a.recorder.Push(context.Background(), a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job); err != nil {
		a.logger.Warn("Failed to push metrics", zap.Error(err))
	}

	if flags.printSummary && summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			a.logger.Warn("Failed to print summary", zap.Error(err))
		}
	}
	return runErr
}
