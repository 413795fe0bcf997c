package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"meridianrx/galen/pkg/cli"
	"meridianrx/galen/pkg/config"
	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/engine"
	"meridianrx/galen/pkg/dosing/trace"
	"meridianrx/galen/pkg/formulary"
	"meridianrx/galen/pkg/formulary/cache"
	"meridianrx/galen/pkg/formulary/storage"
)

// loadConfig resolves the effective configuration for a command. A
// --config passed explicitly must load; the default path is optional
// and falls back to built-in defaults when the file does not exist.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit := cmd.Root().PersistentFlags().Changed("config")
	if !explicit {
		if _, err := os.Stat(cfgFile); errors.Is(err, fs.ErrNotExist) {
			cfg := config.DefaultConfig()
			config.SetConfig(cfg)
			return cfg, nil
		}
	}
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	return config.GetConfig(), nil
}

// setupCLILogging routes engine logs to stderr so command output on
// stdout stays clean. Verbose mode lowers the level to debug.
func setupCLILogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextFlags are the conversion context flags shared by the one-shot
// conversion commands (convert, explain, trace).
type contextFlags struct {
	medication    string
	lot           string
	strength      string
	concentration string
	factors       []string
	strict        bool
}

func addContextFlags(cmd *cobra.Command, f *contextFlags) {
	cmd.Flags().StringVarP(&f.medication, "medication", "m", "", "formulary medication ID supplying conversion context")
	cmd.Flags().StringVar(&f.lot, "lot", "", "manufacturing lot selecting calibrated device factors")
	cmd.Flags().StringVar(&f.strength, "strength", "", `medication strength per dispensing unit, e.g. "325 mg"`)
	cmd.Flags().StringVar(&f.concentration, "concentration", "", `concentration ratio, e.g. "250 mg/5 mL"`)
	cmd.Flags().StringArrayVar(&f.factors, "factor", nil, `custom conversion factor as FROM=TO=N, e.g. "{scoop}=g=4.7"`)
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on precision loss instead of reducing confidence")
}

// quantityPattern splits a dose literal like "325 mg" or "0.5mL" into
// its value and unit parts. The unit must not start with a digit, so a
// bare number fails the parse instead of donating its last digit to a
// phantom unit.
var quantityPattern = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)\s*([^\s0-9.].*?)\s*$`)

func parseQuantity(s string) (dosing.Quantity, error) {
	m := quantityPattern.FindStringSubmatch(s)
	if m == nil {
		return dosing.Quantity{}, fmt.Errorf(`cannot parse quantity %q, want VALUE UNIT such as "325 mg"`, s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return dosing.Quantity{}, fmt.Errorf("cannot parse quantity value in %q: %w", s, err)
	}
	return dosing.Quantity{Value: value, Unit: m[2]}, nil
}

func parseRatio(s string) (dosing.StrengthRatio, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return dosing.StrengthRatio{}, fmt.Errorf(`cannot parse ratio %q, want NUM/DEN such as "250 mg/5 mL"`, s)
	}
	num, err := parseQuantity(parts[0])
	if err != nil {
		return dosing.StrengthRatio{}, fmt.Errorf("ratio numerator: %w", err)
	}
	den, err := parseQuantity(parts[1])
	if err != nil {
		return dosing.StrengthRatio{}, fmt.Errorf("ratio denominator: %w", err)
	}
	return dosing.StrengthRatio{Numerator: num, Denominator: den}, nil
}

func parseFactor(s string) (dosing.CustomConversion, error) {
	parts := strings.Split(s, "=")
	if len(parts) != 3 {
		return dosing.CustomConversion{}, fmt.Errorf(`cannot parse factor %q, want FROM=TO=N such as "{scoop}=g=4.7"`, s)
	}
	factor, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return dosing.CustomConversion{}, fmt.Errorf("cannot parse factor value in %q: %w", s, err)
	}
	return dosing.CustomConversion{From: parts[0], To: parts[1], Factor: factor}, nil
}

// conversionEnv bundles what a one-shot conversion command works with:
// the engine, the assembled context, the resolved request options, and
// a cleanup for any store opened along the way.
type conversionEnv struct {
	cfg     *config.Config
	conv    *engine.Converter
	ctx     *dosing.ConversionContext
	opts    *engine.Options
	cleanup func()
}

// setupConversion assembles a converter and conversion context from the
// configuration and the command's context flags. Explicit --strength
// and --concentration flags override what the formulary supplied.
func setupConversion(cmd *cobra.Command, f *contextFlags, traceEnabled bool) (*conversionEnv, error) {
	setupCLILogging()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	tracer := trace.New(&trace.Config{
		Enabled:    traceEnabled,
		MaxEntries: cfg.Engine.TraceMaxEntries,
	})
	env := &conversionEnv{
		cfg:  cfg,
		conv: engine.New(&engine.Config{Tracer: tracer}),
		opts: &engine.Options{
			Trace:     engine.Bool(true),
			Tolerance: cfg.Engine.Tolerance,
			MaxSteps:  cfg.Engine.MaxSteps,
			Strict:    cfg.Engine.Strict || f.strict,
		},
		cleanup: func() {},
	}

	dctx := &dosing.ConversionContext{}
	used := false

	if f.medication != "" {
		store, err := openFormularyStore(cmd.Context(), cfg)
		if err != nil {
			return nil, err
		}
		env.cleanup = func() { store.Close() }

		builder := formulary.NewContextBuilder(store)
		built, err := builder.Build(cmd.Context(), f.medication, f.lot)
		if err != nil {
			env.cleanup()
			return nil, err
		}
		*dctx = *built
		used = true

		med, err := builder.Medication(cmd.Context(), f.medication)
		if err != nil {
			env.cleanup()
			return nil, err
		}
		for _, u := range formulary.DeviceUnits(med) {
			if err := env.conv.RegisterDeviceUnit(u); err != nil {
				slog.Warn("skipping formulary device unit", "unit", u.ID, "error", err)
			}
		}
	} else if f.lot != "" {
		dctx.LotNumber = f.lot
		used = true
	}

	if f.strength != "" {
		q, err := parseQuantity(f.strength)
		if err != nil {
			env.cleanup()
			return nil, err
		}
		dctx.Medication = &dosing.MedicationStrength{
			Ingredients: []dosing.IngredientStrength{{StrengthQuantity: &q}},
		}
		used = true
	}
	if f.concentration != "" {
		r, err := parseRatio(f.concentration)
		if err != nil {
			env.cleanup()
			return nil, err
		}
		dctx.StrengthRatio = &r
		used = true
	}
	for _, spec := range f.factors {
		cc, err := parseFactor(spec)
		if err != nil {
			env.cleanup()
			return nil, err
		}
		dctx.CustomConversions = append(dctx.CustomConversions, cc)
		used = true
	}

	if used {
		env.ctx = dctx
	}
	return env, nil
}

// openFormularyStore opens the configured formulary backend, seeds it
// when a seed path is set, and wraps it in the LRU cache when enabled.
// The caller owns the returned store and must close it.
func openFormularyStore(ctx context.Context, cfg *config.Config) (formulary.Store, error) {
	if !cfg.Formulary.Enabled {
		return nil, cli.NewConfigError("formulary.enabled", "formulary is disabled but the command needs one")
	}

	var store formulary.Store
	switch cfg.Formulary.Backend {
	case "sqlite":
		s, err := storage.NewSQLiteStoreWithConfig(storage.SQLiteStoreConfig{
			DBPath:             cfg.Formulary.SQLite.Path,
			CheckpointInterval: cfg.Formulary.SQLite.CheckpointInterval,
			BusyTimeout:        cfg.Formulary.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open formulary database: %w", err)
		}
		store = s
	case "memory", "":
		store = storage.NewMemoryStore()
	default:
		return nil, cli.NewConfigError("formulary.backend", fmt.Sprintf("unsupported backend %q", cfg.Formulary.Backend))
	}

	if cfg.Formulary.SeedPath != "" {
		if err := seedFormulary(ctx, store, cfg.Formulary.SeedPath); err != nil {
			store.Close()
			return nil, err
		}
	}

	if cfg.Formulary.Cache.Enabled {
		cached, err := cache.New(store, cfg.Formulary.Cache.Size)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to create formulary cache: %w", err)
		}
		store = cached
	}

	return store, nil
}

func seedFormulary(ctx context.Context, store formulary.Store, path string) (err error) {
	info, err := os.Stat(path)
	if err != nil {
		return cli.NewConfigError("formulary.seed_path", fmt.Sprintf("cannot read seed path: %v", err))
	}

	var count int
	if info.IsDir() {
		count, err = formulary.LoadDir(ctx, store, path)
	} else {
		count, err = formulary.LoadFile(ctx, store, path)
	}
	if err != nil {
		return fmt.Errorf("failed to seed formulary: %w", err)
	}
	slog.Debug("formulary seeded", "path", path, "medications", count)
	return nil
}
