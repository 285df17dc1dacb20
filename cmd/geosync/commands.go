package main

import (
	"context"

	"github.com/alexivanou/geonames-sync/internal/reconcile"
	"github.com/alexivanou/geonames-sync/internal/source"
	"github.com/spf13/cobra"
)

func newSeedCommand(flags *globalFlags) *cobra.Command {
	var (
		truncate   bool
		sourceFile string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the full dumps into the store, keeping rows that already exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			overrides := &source.Overrides{AllCountriesPath: sourceFile}
			return a.execute(flags, overrides, func(ctx context.Context, e *reconcile.Engine) (*reconcile.Summary, error) {
				return e.Seed(ctx, reconcile.SeedOptions{Truncate: truncate})
			})
		},
	}
	cmd.Flags().BoolVar(&truncate, "truncate", false, "empty every table before loading")
	cmd.Flags().BoolVar(&flags.keepFiles, "keep-files", false, "keep downloaded files after the run")
	cmd.Flags().StringVar(&sourceFile, "source-file", "", "read the main dump from this path")
	cmd.Flags().BoolVar(&flags.noTranslation, "no-translations", false, "skip alternate names")
	return cmd
}

func newSyncCommand(flags *globalFlags) *cobra.Command {
	var sourceFile string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Upsert the full dumps and delete rows that are no longer published",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			overrides := &source.Overrides{AllCountriesPath: sourceFile}
			return a.execute(flags, overrides, func(ctx context.Context, e *reconcile.Engine) (*reconcile.Summary, error) {
				return e.Sync(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.keepFiles, "keep-files", false, "keep downloaded files after the run")
	cmd.Flags().StringVar(&sourceFile, "source-file", "", "read the main dump from this path")
	cmd.Flags().BoolVar(&flags.noTranslation, "no-translations", false, "skip alternate names")
	return cmd
}

func newDailyUpdateCommand(flags *globalFlags) *cobra.Command {
	overrides := &source.Overrides{}

	cmd := &cobra.Command{
		Use:   "daily-update",
		Short: "Apply yesterday's modification and deletion files",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(flags)
			if err != nil {
				return err
			}
			return a.execute(flags, overrides, func(ctx context.Context, e *reconcile.Engine) (*reconcile.Summary, error) {
				return e.DailyUpdate(ctx)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.keepFiles, "keep-files", false, "keep downloaded files after the run")
	cmd.Flags().StringVar(&overrides.DailyModificationsPath, "modifications-file", "", "read the modifications from this path")
	cmd.Flags().StringVar(&overrides.DailyDeletesPath, "deletes-file", "", "read the deletes from this path")
	cmd.Flags().StringVar(&overrides.AlternateNamesModsPath, "alternate-names-modifications-file", "", "read the alternate names modifications from this path")
	cmd.Flags().StringVar(&overrides.AlternateNamesDeletesPath, "alternate-names-deletes-file", "", "read the alternate names deletes from this path")
	return cmd
}
