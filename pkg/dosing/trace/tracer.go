package trace

import (
	"sort"
	"time"
)

// EventKind classifies a trace entry.
type EventKind string

const (
	// KindOperationStart opens a named operation. Paired with
	// KindOperationEnd by name.
	KindOperationStart EventKind = "operation_start"

	// KindOperationEnd closes the most recent open operation with the
	// same name and records its duration.
	KindOperationEnd EventKind = "operation_end"

	// KindValidation records a unit validation outcome.
	KindValidation EventKind = "validation"

	// KindStep records one executed conversion step.
	KindStep EventKind = "step"

	// KindFactorResolution records where a device factor came from.
	KindFactorResolution EventKind = "factor_resolution"

	// KindConfidence records the computed confidence score.
	KindConfidence EventKind = "confidence"

	// KindError records a conversion failure.
	KindError EventKind = "error"
)

// Entry is one recorded trace event. Offsets are relative to tracer
// construction (or the last Reset), so a trace is self-contained.
type Entry struct {
	// Seq is the entry's position in the full recording, including
	// entries already evicted from the buffer.
	Seq int `json:"seq"`

	// Kind classifies the entry.
	Kind EventKind `json:"kind"`

	// Name is the operation or event name, e.g. "conversion".
	Name string `json:"name"`

	// Detail is an optional human-readable elaboration.
	Detail string `json:"detail,omitempty"`

	// Offset is the time since tracer start when the entry was
	// recorded.
	Offset time.Duration `json:"offset_ns"`

	// Duration is set on operation-end entries: the time since the
	// matching start.
	Duration *time.Duration `json:"duration_ns,omitempty"`

	// Fields carries structured event data.
	Fields map[string]any `json:"fields,omitempty"`
}

// Config controls tracer behavior.
type Config struct {
	// Enabled turns recording on. A disabled tracer ignores every
	// call. Default: true
	Enabled bool `yaml:"enabled"`

	// MaxEntries bounds the entry buffer; the oldest entries are
	// evicted first when it fills. Default: 1000
	MaxEntries int `yaml:"max_entries"`
}

// DefaultConfig returns the default tracer configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:    true,
		MaxEntries: 1000,
	}
}

// opStats aggregates durations for one operation name.
type opStats struct {
	count int
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// Tracer records conversion execution for diagnostics. It is owned by
// a single engine instance and is not synchronized; see the engine's
// concurrency notes.
type Tracer struct {
	cfg      Config
	start    time.Time
	now      func() time.Time
	entries  []Entry
	evicted  int
	seq      int
	inflight map[string][]time.Duration
	stats    map[string]*opStats
}

// New returns a tracer with the given configuration. A nil config uses
// defaults.
func New(cfg *Config) *Tracer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	resolved := *cfg
	if resolved.MaxEntries <= 0 {
		resolved.MaxEntries = DefaultConfig().MaxEntries
	}
	return &Tracer{
		cfg:      resolved,
		start:    time.Now(),
		now:      time.Now,
		inflight: make(map[string][]time.Duration),
		stats:    make(map[string]*opStats),
	}
}

// Enabled reports whether the tracer records anything.
func (t *Tracer) Enabled() bool {
	return t != nil && t.cfg.Enabled
}

// Reset discards all recorded entries and aggregates and restarts the
// clock.
func (t *Tracer) Reset() {
	if t == nil {
		return
	}
	t.start = t.now()
	t.entries = nil
	t.evicted = 0
	t.seq = 0
	t.inflight = make(map[string][]time.Duration)
	t.stats = make(map[string]*opStats)
}

// Begin opens a named operation.
func (t *Tracer) Begin(name string, fields map[string]any) {
	if !t.Enabled() {
		return
	}
	offset := t.now().Sub(t.start)
	t.inflight[name] = append(t.inflight[name], offset)
	t.append(Entry{Kind: KindOperationStart, Name: name, Offset: offset, Fields: fields})
}

// End closes the most recent open operation with the given name,
// recording its duration and feeding the per-operation aggregates. An
// End without a matching Begin records an entry without a duration.
func (t *Tracer) End(name string, fields map[string]any) {
	if !t.Enabled() {
		return
	}
	offset := t.now().Sub(t.start)
	entry := Entry{Kind: KindOperationEnd, Name: name, Offset: offset, Fields: fields}

	if stack := t.inflight[name]; len(stack) > 0 {
		started := stack[len(stack)-1]
		t.inflight[name] = stack[:len(stack)-1]
		dur := offset - started
		entry.Duration = &dur
		t.aggregate(name, dur)
	}
	t.append(entry)
}

// Event records a standalone entry.
func (t *Tracer) Event(kind EventKind, name, detail string, fields map[string]any) {
	if !t.Enabled() {
		return
	}
	t.append(Entry{Kind: kind, Name: name, Detail: detail, Offset: t.now().Sub(t.start), Fields: fields})
}

func (t *Tracer) append(e Entry) {
	e.Seq = t.seq
	t.seq++
	t.entries = append(t.entries, e)
	for len(t.entries) > t.cfg.MaxEntries {
		t.entries = t.entries[1:]
		t.evicted++
	}
}

func (t *Tracer) aggregate(name string, dur time.Duration) {
	s, ok := t.stats[name]
	if !ok {
		s = &opStats{min: dur, max: dur}
		t.stats[name] = s
	}
	s.count++
	s.total += dur
	if dur < s.min {
		s.min = dur
	}
	if dur > s.max {
		s.max = dur
	}
}

// Entries returns a copy of the buffered entries in recording order.
func (t *Tracer) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Evicted returns how many entries have been dropped from the buffer.
func (t *Tracer) Evicted() int {
	if t == nil {
		return 0
	}
	return t.evicted
}

// OpSummary is the aggregated timing of one operation name.
type OpSummary struct {
	Name       string        `json:"name"`
	Count      int           `json:"count"`
	Total      time.Duration `json:"total_ns"`
	Avg        time.Duration `json:"avg_ns"`
	Min        time.Duration `json:"min_ns"`
	Max        time.Duration `json:"max_ns"`
	Bottleneck bool          `json:"bottleneck"`
}

// Summary returns per-operation aggregates sorted by name. Operations
// whose average duration exceeds half the mean entry spacing are
// flagged as bottlenecks.
func (t *Tracer) Summary() []OpSummary {
	if t == nil || len(t.stats) == 0 {
		return nil
	}
	threshold := t.bottleneckThreshold()

	names := make([]string, 0, len(t.stats))
	for name := range t.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]OpSummary, 0, len(names))
	for _, name := range names {
		s := t.stats[name]
		avg := s.total / time.Duration(s.count)
		out = append(out, OpSummary{
			Name:       name,
			Count:      s.count,
			Total:      s.total,
			Avg:        avg,
			Min:        s.min,
			Max:        s.max,
			Bottleneck: avg > threshold,
		})
	}
	return out
}

// Bottlenecks returns the operation names flagged in Summary, sorted.
func (t *Tracer) Bottlenecks() []string {
	var out []string
	for _, s := range t.Summary() {
		if s.Bottleneck {
			out = append(out, s.Name)
		}
	}
	return out
}

// bottleneckThreshold is half the mean spacing between recorded
// entries: operations slower than that dominate the trace they appear
// in.
func (t *Tracer) bottleneckThreshold() time.Duration {
	n := t.seq
	if n == 0 {
		return 0
	}
	var elapsed time.Duration
	if len(t.entries) > 0 {
		elapsed = t.entries[len(t.entries)-1].Offset
	}
	return elapsed / time.Duration(n) / 2
}
