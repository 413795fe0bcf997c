package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/audit"
	"meridianrx/galen/pkg/audit/recorder"
	"meridianrx/galen/pkg/audit/retention"
	auditstore "meridianrx/galen/pkg/audit/storage"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/dosing/trace"
	"meridianrx/galen/pkg/dosing/units"
	"meridianrx/galen/pkg/formulary"
	"meridianrx/galen/pkg/formulary/cache"
	"meridianrx/galen/pkg/guardrails"
	"meridianrx/galen/pkg/guardrails/source"
	"meridianrx/galen/pkg/server"
	"meridianrx/galen/pkg/telemetry"
)

var runFlags struct {
	listen   string
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the conversion API server",
	Long: `Start the Galen conversion API server.

The server exposes unit conversion, validation, guardrail evaluation
and audit query endpoints over HTTP. Health and metrics endpoints are
mounted alongside when telemetry is enabled.`,
	Example: `  # Start with the default configuration
  galen run

  # Override the listen address from the command line
  galen run --config /etc/galen/config.yaml --listen :9090

  # Validate the configuration without starting the server
  galen run --dry-run`,
	RunE: runServer,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.listen, "listen", "", "listen address override (host:port)")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate the configuration and exit")
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("listen") {
		cfg.Server.ListenAddress = runFlags.listen
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	tel, err := telemetry.New(&cfg.Telemetry, Version, GitCommit, BuildDate)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	slog.SetDefault(tel.Logger().Slog())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", "error", err)
		}
	}()

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	collector := tel.Metrics()

	tracer := trace.New(&trace.Config{
		Enabled:    cfg.Engine.Trace,
		MaxEntries: cfg.Engine.TraceMaxEntries,
	})
	conv := engine.New(&engine.Config{Tracer: tracer})

	deps := server.Deps{
		Engine:    conv,
		Telemetry: tel,
	}

	if cfg.Formulary.Enabled {
		store, err := openFormularyStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		meds, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list formulary medications: %w", err)
		}

		// Device units must be registered before the server starts:
		// registry writes are not synchronized with request-time reads.
		registered := 0
		for _, med := range meds {
			for _, u := range formulary.DeviceUnits(med) {
				if err := conv.RegisterDeviceUnit(u); err != nil {
					slog.Warn("skipping formulary device unit",
						"medication", med.ID,
						"unit", u.ID,
						"error", err,
					)
					continue
				}
				registered++
			}
		}

		deps.Formulary = formulary.NewContextBuilder(store)
		if collector != nil {
			collector.UpdateFormularyProfiles(len(meds))
			if cached, ok := store.(*cache.Store); ok {
				collector.ObserveFormularyCache(cached.Stats, cached.Len)
			}
		}
		tel.Health().RegisterCheck("formulary", func(ctx context.Context) error {
			_, err := store.List(ctx)
			return err
		})

		backend := cfg.Formulary.Backend
		if backend == "" {
			backend = "memory"
		}
		fmt.Printf("✓ Formulary ready (%s backend, %d medications, %d device units)\n",
			backend, len(meds), registered)
	}

	if collector != nil {
		collector.UpdateUnitCount("standard", len(units.NewValidator().Codes()))
		collector.UpdateUnitCount("device", conv.Registry().Len())
	}

	if cfg.Guardrails.Enabled {
		evaluator := guardrails.NewEvaluator(conv, slog.Default())
		src := source.NewFileSource(cfg.Guardrails.RulePath, slog.Default()).
			WithMaxFileSize(cfg.Guardrails.MaxFileSize)

		sets, err := src.Load(ctx)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// Rules are configured but not deployed yet. Start without
			// them rather than refusing to serve conversions.
			slog.Warn("guardrail rule path does not exist, starting without rules",
				"path", cfg.Guardrails.RulePath)
		case err != nil:
			return fmt.Errorf("failed to load guardrail rules: %w", err)
		default:
			evaluator.SetRuleSets(sets...)
			active := activeRuleCount(sets)
			if collector != nil {
				collector.UpdateActiveRules(active)
			}
			fmt.Printf("✓ Guardrails loaded (%d active rules from %s)\n",
				active, cfg.Guardrails.RulePath)

			if cfg.Guardrails.Watch {
				w, werr := source.NewWatcher(&source.WatcherConfig{
					Path:             cfg.Guardrails.RulePath,
					DebounceInterval: cfg.Guardrails.DebounceInterval,
				}, slog.Default())
				if werr != nil {
					return fmt.Errorf("failed to create guardrail watcher: %w", werr)
				}
				reload := source.ReloadFunc(ctx, src, evaluator, slog.Default())
				go func() {
					err := w.Watch(ctx, func() error {
						if err := reload(); err != nil {
							return err
						}
						if collector != nil {
							collector.UpdateActiveRules(activeRuleCount(evaluator.RuleSets()))
						}
						return nil
					})
					if err != nil {
						slog.Error("guardrail watcher exited", "error", err)
					}
				}()
				defer w.Stop()
				fmt.Printf("✓ Watching %s for rule changes\n", cfg.Guardrails.RulePath)
			}
		}
		deps.Guardrails = evaluator
	}

	if cfg.Audit.Enabled {
		astore, backend, err := openAuditStorage(cfg)
		if err != nil {
			return err
		}
		defer astore.Close()

		rec := recorder.NewRecorder(astore, &recorder.Config{
			Enabled:           true,
			AsyncBuffer:       cfg.Audit.Recorder.AsyncBuffer,
			WriteTimeout:      cfg.Audit.Recorder.WriteTimeout,
			HashContext:       cfg.Audit.Recorder.HashContext,
			RedactPatientRefs: cfg.Audit.Recorder.RedactPatientRefs,
			MaxFieldLength:    cfg.Audit.Recorder.MaxFieldLength,
		})
		defer rec.Close()
		deps.Audit = rec

		tel.Health().RegisterCheck("audit", func(ctx context.Context) error {
			_, err := astore.Count(ctx, &audit.Query{Limit: 1})
			return err
		})

		if cfg.Audit.Retention.PruneSchedule != "" {
			pruner := retention.NewPruner(astore, &retention.Config{
				RetentionDays:       cfg.Audit.Retention.Days,
				PruneSchedule:       cfg.Audit.Retention.PruneSchedule,
				ArchiveBeforeDelete: cfg.Audit.Retention.ArchiveBeforeDelete,
				ArchivePath:         cfg.Audit.Retention.ArchivePath,
				MaxRecords:          cfg.Audit.Retention.MaxRecords,
			})
			if collector != nil {
				pruner.OnPruned = collector.RecordAuditPruned
			}
			if err := pruner.Start(ctx); err != nil {
				return fmt.Errorf("failed to start audit pruner: %w", err)
			}
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				slog.Info("audit pruning scheduled", "next_run", next.Format(time.RFC3339))
			}
		}

		fmt.Printf("✓ Audit trail enabled (%s backend)\n", backend)
	}

	srv, err := server.New(&cfg.Server, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Println()

	return srv.Start(ctx)
}

// openAuditStorage opens the configured audit backend, returning the
// backend name for the startup summary.
func openAuditStorage(cfg *config.Config) (audit.Storage, string, error) {
	switch cfg.Audit.Backend {
	case "sqlite", "":
		s, err := auditstore.NewSQLiteStorage(&auditstore.SQLiteConfig{
			Path:         cfg.Audit.SQLite.Path,
			MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.Audit.SQLite.MaxIdleConns,
			WALMode:      cfg.Audit.SQLite.WALMode,
			BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to open audit database: %w", err)
		}
		return s, "sqlite", nil
	case "memory":
		return auditstore.NewMemoryStorage(), "memory", nil
	default:
		return nil, "", cli.NewConfigError("audit.backend", fmt.Sprintf("unsupported backend %q", cfg.Audit.Backend))
	}
}

func activeRuleCount(sets []*guardrails.RuleSet) int {
	n := 0
	for _, set := range sets {
		n += len(set.EnabledRules())
	}
	return n
}

// printBanner prints the startup summary ahead of the per-subsystem
// initialization lines.
func printBanner(cfg *config.Config) {
	fmt.Println("Galen Conversion Engine")
	fmt.Println("=======================")
	fmt.Printf("Version:  %s (%s)\n", Version, GitCommit)
	fmt.Printf("Address:  %s\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("Metrics:  %s\n", cfg.Telemetry.Metrics.Path)
	}
	fmt.Println()
}
