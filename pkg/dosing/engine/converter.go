package engine

import (
	"log/slog"
	"strings"

	"meridianrx/galen/pkg/dosing"
	"meridianrx/galen/pkg/dosing/confidence"
	"meridianrx/galen/pkg/dosing/devices"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/dosing/trace"
	"meridianrx/galen/pkg/dosing/units"
)

// Config assembles a Converter.
type Config struct {
	// Registry supplies the device units. Nil uses the default
	// clinical set.
	Registry *devices.Registry

	// Tracer records conversion execution. Nil disables tracing; the
	// Converter still works, Export just has nothing to show.
	Tracer *trace.Tracer

	// Logger receives structured engine logs. Nil uses slog.Default().
	Logger *slog.Logger
}

// Converter is the conversion orchestrator. One instance performs one
// conversion at a time; see the package documentation for the
// concurrency contract.
type Converter struct {
	validator *units.Validator
	registry  *devices.Registry
	adapter   *devices.Adapter
	scorer    *confidence.Scorer
	tracer    *trace.Tracer
	logger    *slog.Logger

	// lastResult backs Explain. It always carries the full step list
	// even when the caller suppressed steps on the returned result.
	lastResult *dosing.Result
}

// New assembles a Converter. A nil config uses defaults throughout.
func New(cfg *Config) *Converter {
	if cfg == nil {
		cfg = &Config{}
	}
	registry := cfg.Registry
	if registry == nil {
		registry = devices.DefaultRegistry()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = trace.New(&trace.Config{Enabled: false})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validator := units.NewValidator()
	return &Converter{
		validator: validator,
		registry:  registry,
		adapter:   devices.NewAdapter(registry, validator),
		scorer:    confidence.NewScorer(),
		tracer:    tracer,
		logger:    logger.With("component", "conversion-engine"),
	}
}

// Registry returns the device unit registry backing this Converter.
func (c *Converter) Registry() *devices.Registry {
	return c.registry
}

// Tracer returns the execution tracer backing this Converter.
func (c *Converter) Tracer() *trace.Tracer {
	return c.tracer
}

// RegisterDeviceUnit adds or replaces a device unit. Not synchronized
// with in-flight conversions; register at startup.
func (c *Converter) RegisterDeviceUnit(u devices.Unit) error {
	if err := c.registry.Register(u); err != nil {
		return err
	}
	c.logger.Info("device unit registered", "unit", u.ID, "ratio_to", u.RatioTo)
	return nil
}

// Validate classifies a unit token across both tiers: standard units
// against the clinical table, device tokens against the registry.
func (c *Converter) Validate(unit string) units.Validation {
	token := strings.TrimSpace(unit)
	if units.IsDeviceToken(token) {
		if u, ok := c.registry.Lookup(token); ok {
			return units.Validation{Valid: true, Unit: unit, Type: units.TypeDevice, Normalized: u.ID}
		}
		return units.Validation{
			Unit:        unit,
			Type:        units.TypeDevice,
			Detail:      "unknown device unit",
			Suggestions: dosingErrors.SuggestUnits(token, c.registry.IDs(), 3),
		}
	}
	return c.validator.Validate(unit)
}

// CompatibleUnits returns the units a token can convert to. For a
// device unit that is its base unit plus the base's compatibility
// set.
func (c *Converter) CompatibleUnits(unit string) ([]dosing.Unit, error) {
	token := strings.TrimSpace(unit)
	if units.IsDeviceToken(token) {
		u, ok := c.registry.Lookup(token)
		if !ok {
			return nil, dosingErrors.NewInvalidUnit(unit, "unknown device unit",
				dosingErrors.SuggestUnits(token, c.registry.IDs(), 3))
		}
		base, err := c.validator.Describe(u.RatioTo)
		if err != nil {
			return nil, err
		}
		rest, err := c.validator.CompatibleUnits(u.RatioTo)
		if err != nil {
			return nil, err
		}
		return append([]dosing.Unit{base}, rest...), nil
	}
	return c.validator.CompatibleUnits(unit)
}

// Compatible reports whether a conversion between two unit tokens
// could succeed without context.
func (c *Converter) Compatible(from, to string) bool {
	fromDim, ok := c.effectiveDimension(from)
	if !ok {
		return false
	}
	toDim, ok := c.effectiveDimension(to)
	if !ok {
		return false
	}
	return fromDim == toDim
}

// Explain reports on the most recent conversion in human-readable
// form.
func (c *Converter) Explain() string {
	if c.lastResult == nil {
		return confidence.NoResultMessage
	}
	return c.scorer.Explain(c.lastResult)
}

// ExportTrace renders the execution trace in the requested format.
func (c *Converter) ExportTrace(format trace.Format) (string, error) {
	return c.tracer.Export(format)
}

// effectiveDimension resolves the physical dimension of any unit
// token: device units take the dimension of their base unit.
func (c *Converter) effectiveDimension(unit string) (units.Dimension, bool) {
	token := strings.TrimSpace(unit)
	if units.IsDeviceToken(token) {
		u, ok := c.registry.Lookup(token)
		if !ok {
			return "", false
		}
		return c.validator.DimensionOf(u.RatioTo)
	}
	return c.validator.DimensionOf(token)
}
