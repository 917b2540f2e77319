package main

import (
	"fmt"
	"runtime"

	"github.com/Kellerman81/go_movie_loader/apperrors"
	"github.com/Kellerman81/go_movie_loader/config"
	"github.com/Kellerman81/go_movie_loader/database"
	"github.com/Kellerman81/go_movie_loader/entities"
	"github.com/Kellerman81/go_movie_loader/importer"
	"github.com/Kellerman81/go_movie_loader/logger"
	"github.com/Kellerman81/go_movie_loader/records"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	ConfigFile string
	File       string
	Strict     bool
	Workers    int
	DryRun     bool
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "movieload",
		Short:         "Load a movie csv export into the relational catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runImport(cmd, cfg, opts.DryRun)
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", config.Configfile, "path of the toml config file")
	cmd.Flags().StringVar(&opts.File, "file", "", "input csv, overrides import.file")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "skip relationships when a movie or entity unit failed")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "units running in parallel, overrides import.workers")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "read and normalize the input without touching the database")

	cmd.AddCommand(newMigrateCmd(&opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, *opts)
			if err != nil {
				return err
			}
			return database.Migrate(cmd.Context(), databaseConfig(cfg))
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, _ []string) {
			v := version
			if v == "" {
				v = "dev"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "movieload %s (build %s, commit %s, %s)\n", v, buildstamp, githash, runtime.Version())
		},
	}
}

// loadConfig reads the config file and applies the flags that were set.
func loadConfig(cmd *cobra.Command, opts rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Lookup("file") != nil && flags.Changed("file") {
		cfg.Import.File = opts.File
	}
	if flags.Lookup("strict") != nil && flags.Changed("strict") {
		cfg.Import.Strict = opts.Strict
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Import.Workers = opts.Workers
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logger.InitLogger(logger.Config{
		LogLevel:      cfg.General.LogLevel,
		LogFile:       cfg.General.LogFile,
		LogFileSize:   cfg.General.LogFileSize,
		LogFileCount:  cfg.General.LogFileCount,
		LogCompress:   cfg.General.LogCompress,
		LogColorize:   cfg.General.LogColorize,
		LogToFileOnly: cfg.General.LogToFileOnly,
		TimeFormat:    cfg.General.TimeFormat,
		LogZeroValues: cfg.General.LogZeroValues,
	})
	return cfg, nil
}

func databaseConfig(cfg config.Config) database.Config {
	return database.Config{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DataSource(),
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		BatchSize:    cfg.Import.BatchSize,
	}
}

func runImport(cmd *cobra.Command, cfg config.Config, dryRun bool) error {
	ctx := cmd.Context()
	runID := uuid.NewString()
	logger.WithField(logger.StrRunID, runID)
	logger.LogDynamicany("info", "import started", "file", cfg.Import.File, "driver", cfg.Database.Driver, "strict", cfg.Import.Strict)

	read, err := records.ReadFile(ctx, cfg.Import.File, records.Options{
		Comma:        cfg.Import.CommaRune(),
		RecencyYears: cfg.Import.RecencyYears,
		MoneyDivisor: cfg.Import.MoneyDivisor,
	})
	if err != nil {
		logger.LogDynamicany("error", "reading input failed", apperrors.LogFields(err)...)
		return err
	}
	logger.LogDynamicany("info", "input read", "rows", read.Rows, "malformed", read.Malformed, "out_of_window", read.OutOfWindow, "kept", len(read.Movies))

	if dryRun {
		movies, admit := records.Admit(read.Movies)
		for _, cat := range entities.Categories() {
			set := entities.Collect(movies, cat, cfg.Import.Delimiter)
			logger.LogDynamicany("info", "dry run", logger.StrCategory, cat.Name, "distinct", len(set))
			logger.LogDynamicany("debug", "dry run values", logger.StrCategory, cat.Name, "values", set.Values())
		}
		logger.LogDynamicany("info", "dry run finished", "admitted", len(movies), "inadmissible", admit.Inadmissible, "duplicates", admit.Duplicates)
		return nil
	}

	dbcfg := databaseConfig(cfg)
	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, dbcfg); err != nil {
			logger.LogDynamicany("error", "migration failed", apperrors.LogFields(err)...)
			return err
		}
	}
	db, err := database.Connect(ctx, dbcfg)
	if err != nil {
		logger.LogDynamicany("error", "database unavailable", apperrors.LogFields(err)...)
		return err
	}

	pipe := importer.New(db, importer.Options{
		RunID:         runID,
		Delimiter:     cfg.Import.Delimiter,
		Workers:       cfg.Import.Workers,
		Strict:        cfg.Import.Strict,
		ProgressEvery: cfg.Import.ProgressEvery,
	})
	defer pipe.Close()

	report := pipe.Run(ctx, read)
	if report.Failed() {
		return partialError{units: report.FailedUnits()}
	}
	return nil
}
