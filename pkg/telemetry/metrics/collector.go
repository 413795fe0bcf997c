package metrics

import (
	"sync"
	"time"

	"meridianrx/galen/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the main orchestrator for all Prometheus metrics in Galen.
// It manages metric registration, collection, and provides a unified
// interface for recording metrics across all components.
//
// The collector is designed for minimal overhead on the conversion path:
//   - Pre-allocated metric instances
//   - Lock-free counters where possible
//   - Cardinality limits on user-supplied label values
//   - Histogram buckets sized for in-memory conversion latencies
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Conversion metrics
	conversionMetrics *ConversionMetrics

	// Guardrail metrics
	guardrailMetrics *GuardrailMetrics

	// Unit/device registry metrics
	registryMetrics *RegistryMetrics

	// Formulary store and cache metrics
	formularyMetrics *FormularyMetrics

	// Audit recording metrics
	auditMetrics *AuditMetrics

	// Cardinality tracking for user-supplied labels
	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "meridianrx",
//		Subsystem: "galen",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	// Set defaults if not specified
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = config.DefaultDurationBuckets
	}
	if len(cfg.ConfidenceBuckets) == 0 {
		cfg.ConfidenceBuckets = config.DefaultConfidenceBuckets
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(1000), // Max 1K unique unit tokens
	}

	// Initialize metric subsystems
	c.conversionMetrics = NewConversionMetrics(cfg, registry)
	c.guardrailMetrics = NewGuardrailMetrics(cfg, registry)
	c.registryMetrics = NewRegistryMetrics(cfg, registry)
	c.formularyMetrics = NewFormularyMetrics(cfg, registry)
	c.auditMetrics = NewAuditMetrics(cfg, registry)

	return c
}

// RecordConversion records metrics for a completed conversion.
//
// Parameters:
//   - outcome: Conversion outcome ("success", "error", "blocked")
//   - path: Conversion path ("identity", "standard", "concentration", "device", "custom")
//   - duration: Total conversion duration
//   - confidence: Confidence score in [0, 1] (ignored for errors)
//   - steps: Number of conversion steps taken
//
// Example:
//
//	collector.RecordConversion(
//		"success",
//		"device",
//		180*time.Microsecond,
//		0.85,
//		2,
//	)
func (c *Collector) RecordConversion(outcome, path string, duration time.Duration, confidence float64, steps int) {
	if !c.config.Enabled {
		return
	}

	c.conversionMetrics.RecordConversion(outcome, path, duration, confidence, steps)
}

// RecordGuardrailEvaluation records metrics for a guardrail evaluation.
//
// Parameters:
//   - decision: Verdict decision ("allow", "warn", "block")
//   - duration: Evaluation duration
func (c *Collector) RecordGuardrailEvaluation(decision string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.guardrailMetrics.RecordEvaluation(decision, duration)
}

// RecordGuardrailFinding records a single firing guardrail rule.
//
// Parameters:
//   - rule: Rule identifier
//   - severity: Rule severity ("warn", "block")
func (c *Collector) RecordGuardrailFinding(rule, severity string) {
	if !c.config.Enabled {
		return
	}

	c.guardrailMetrics.RecordFinding(rule, severity)
}

// UpdateActiveRules sets the number of currently loaded guardrail rules.
//
// Parameters:
//   - count: Number of loaded rules
func (c *Collector) UpdateActiveRules(count int) {
	if !c.config.Enabled {
		return
	}

	c.guardrailMetrics.UpdateActiveRules(count)
}

// UpdateUnitCount sets the registered unit count for a registry tier.
//
// Parameters:
//   - tier: Registry tier ("standard", "device")
//   - count: Number of registered units
func (c *Collector) UpdateUnitCount(tier string, count int) {
	if !c.config.Enabled {
		return
	}

	c.registryMetrics.UpdateUnitCount(tier, count)
}

// RecordUnitLookup records a unit lookup. Unit tokens come from request
// input, so the cardinality limiter aggregates the long tail into
// "other" once the unique-token budget is spent.
//
// Parameters:
//   - unit: The unit token looked up
//   - found: Whether the unit resolved
func (c *Collector) RecordUnitLookup(unit string, found bool) {
	if !c.config.Enabled {
		return
	}

	// Check cardinality limit
	if !c.cardinalityLimiter.Allow("unit:" + unit) {
		unit = "other"
	}

	result := "found"
	if !found {
		result = "unknown"
	}
	c.registryMetrics.RecordLookup(unit, result)
}

// ObserveFormularyCache registers scrape-time collectors over the
// formulary cache counters. Call once after the cache is constructed.
//
// Parameters:
//   - stats: The cache's Stats method
//   - entries: The cache's Len method
func (c *Collector) ObserveFormularyCache(stats func() (hits, misses int64), entries func() int) {
	if !c.config.Enabled {
		return
	}

	c.formularyMetrics.ObserveCache(stats, entries)
}

// UpdateFormularyProfiles sets the number of profiles in the formulary store.
//
// Parameters:
//   - count: Number of medication profiles
func (c *Collector) UpdateFormularyProfiles(count int) {
	if !c.config.Enabled {
		return
	}

	c.formularyMetrics.UpdateProfileCount(count)
}

// RecordFormularyError records a formulary store error.
//
// Parameters:
//   - op: Store operation ("get", "put", "delete", "list")
func (c *Collector) RecordFormularyError(op string) {
	if !c.config.Enabled {
		return
	}

	c.formularyMetrics.RecordStoreError(op)
}

// RecordAuditEnqueued records an audit record accepted by the recorder.
//
// Parameters:
//   - outcome: Conversion outcome ("success", "error", "blocked")
func (c *Collector) RecordAuditEnqueued(outcome string) {
	if !c.config.Enabled {
		return
	}

	c.auditMetrics.RecordEnqueued(outcome)
}

// RecordAuditDrop records an audit record the recorder rejected.
func (c *Collector) RecordAuditDrop() {
	if !c.config.Enabled {
		return
	}

	c.auditMetrics.RecordDrop()
}

// RecordAuditPruned records retention pruning removals.
//
// Parameters:
//   - removed: Number of records removed in this prune run
func (c *Collector) RecordAuditPruned(removed int64) {
	if !c.config.Enabled {
		return
	}

	c.auditMetrics.RecordPruned(removed)
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
// Returns false if adding this label set would exceed the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
