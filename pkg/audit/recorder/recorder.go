package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meridianrx/galen/pkg/audit"
	"meridianrx/galen/pkg/dosing"
	dosingErrors "meridianrx/galen/pkg/dosing/errors"
	"meridianrx/galen/pkg/guardrails"
)

// Config contains configuration for the conversion recorder.
type Config struct {
	// Enabled enables conversion recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// HashContext enables hashing of the conversion context.
	// Default: true
	HashContext bool

	// RedactPatientRefs enables patient reference redaction.
	// Default: true
	RedactPatientRefs bool

	// MaxFieldLength is the maximum length for text fields before
	// truncation. Default: 500
	MaxFieldLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		AsyncBuffer:       1000,
		WriteTimeout:      5 * time.Second,
		HashContext:       true,
		RedactPatientRefs: true,
		MaxFieldLength:    500,
	}
}

// Entry is the input to Record: one conversion request together with
// its outcome. Exactly one of Result and Err is normally set; Verdict
// is present only when guardrails were evaluated.
type Entry struct {
	// RequestID correlates the record with a caller request. Optional.
	RequestID string

	// RequestTime is when the conversion was requested. A zero value
	// is stamped with the current time.
	RequestTime time.Time

	// Value, FromUnit, and ToUnit echo the conversion request.
	Value    float64
	FromUnit string
	ToUnit   string

	// Context is the conversion context the request carried, if any.
	Context *dosing.ConversionContext

	// PatientRef is the raw patient reference. It is redacted before
	// the record is stored.
	PatientRef string

	// Result is the conversion result. Nil when Err is set.
	Result *dosing.Result

	// Verdict is the guardrail verdict. Nil when guardrails were not
	// evaluated for this conversion.
	Verdict *guardrails.Verdict

	// Err is the conversion error, if the conversion failed.
	Err error

	// Duration is how long the conversion took end to end.
	Duration time.Duration
}

// Recorder records conversion audit records. Records are built
// synchronously but written to storage by a background worker so
// conversion latency never waits on the database.
type Recorder struct {
	storage    audit.Storage
	config     *Config
	recordChan chan *audit.ConversionRecord
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
}

// NewRecorder creates a new conversion recorder with the provided
// storage backend and configuration.
func NewRecorder(storage audit.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *audit.ConversionRecord, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	// Start background worker to drain channel
	r.wg.Add(1)
	go r.worker()

	r.logger.Info("conversion recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
		"redact_patient_refs", config.RedactPatientRefs,
	)

	return r
}

// Record builds a conversion record from the entry and enqueues it for
// async writing. It returns immediately and does not block on storage
// writes; if the write channel stays full past WriteTimeout the record
// is dropped and a RecorderError returned.
func (r *Recorder) Record(ctx context.Context, entry *Entry) error {
	if !r.config.Enabled {
		return nil
	}

	record := r.buildRecord(entry)

	select {
	case r.recordChan <- record:
		r.logger.Debug("conversion record enqueued",
			"record_id", record.ID,
			"outcome", record.Outcome,
		)
	case <-time.After(r.config.WriteTimeout):
		r.logger.Error("record channel full, dropping record",
			"record_id", record.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return audit.NewRecorderError(record.ID, context.DeadlineExceeded)
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
		)
		return audit.NewRecorderError(record.ID, context.Canceled)
	}

	return nil
}

// Close gracefully shuts down the recorder by draining the async
// channel and waiting for all pending writes to complete.
func (r *Recorder) Close() error {
	r.logger.Info("shutting down conversion recorder")

	close(r.done)
	r.wg.Wait()

	r.logger.Info("conversion recorder shut down complete")
	return nil
}

// worker is the background goroutine that drains the record channel
// and writes records to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records from channel before exit
			r.logger.Info("draining record channel before shutdown",
				"pending_count", len(r.recordChan),
			)

			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					r.logger.Info("record channel drained")
					return
				}
			}
		}
	}
}

// writeRecord writes a single conversion record to storage.
func (r *Recorder) writeRecord(record *audit.ConversionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store conversion record",
			"record_id", record.ID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)

	r.logger.Debug("conversion recorded",
		"record_id", record.ID,
		"outcome", record.Outcome,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// buildRecord builds a conversion record from an entry.
func (r *Recorder) buildRecord(entry *Entry) *audit.ConversionRecord {
	now := time.Now()

	requestTime := entry.RequestTime
	if requestTime.IsZero() {
		requestTime = now
	}

	record := &audit.ConversionRecord{
		ID:           uuid.New().String(),
		RequestID:    entry.RequestID,
		RequestTime:  requestTime,
		RecordedTime: now,
		Value:        entry.Value,
		FromUnit:     entry.FromUnit,
		ToUnit:       entry.ToUnit,
		Duration:     entry.Duration,
	}

	if entry.Context != nil {
		if entry.Context.Medication != nil {
			record.Medication = entry.Context.Medication.Name
		}
		record.LotNumber = entry.Context.LotNumber

		if r.config.HashContext {
			contextBody, _ := json.Marshal(entry.Context)
			record.ContextHash = HashContent(contextBody)
		}
	}

	if entry.PatientRef != "" {
		if r.config.RedactPatientRefs {
			record.PatientRef = RedactIdentifier(entry.PatientRef)
		} else {
			record.PatientRef = entry.PatientRef
		}
	}

	r.extractResult(record, entry.Result)
	r.extractVerdict(record, entry.Verdict)

	switch {
	case entry.Err != nil:
		record.Outcome = audit.OutcomeError
		record.Error = TruncateString(entry.Err.Error(), r.config.MaxFieldLength)
		if kind, ok := dosingErrors.KindOf(entry.Err); ok {
			record.ErrorKind = string(kind)
		}
	case entry.Verdict != nil && entry.Verdict.Blocked():
		record.Outcome = audit.OutcomeBlocked
	default:
		record.Outcome = audit.OutcomeSuccess
	}

	return record
}

// extractResult copies result data onto the record.
func (r *Recorder) extractResult(record *audit.ConversionRecord, res *dosing.Result) {
	if res == nil {
		return
	}

	record.ResultValue = res.Value
	record.Path = ClassifyPath(res)
	record.Steps = res.Steps

	if res.Confidence != nil {
		record.Confidence = res.Confidence.Value
		record.ConfidenceLevel = string(res.Confidence.Level)
	}
}

// extractVerdict copies the guardrail verdict onto the record as
// flattened finding snapshots.
func (r *Recorder) extractVerdict(record *audit.ConversionRecord, verdict *guardrails.Verdict) {
	if verdict == nil {
		return
	}

	record.GuardrailDecision = string(verdict.Decision)

	record.Findings = make([]audit.RuleFinding, 0, len(verdict.Findings))
	for _, f := range verdict.Findings {
		record.Findings = append(record.Findings, audit.RuleFinding{
			Rule:     f.Rule,
			RuleSet:  f.RuleSet,
			Severity: string(f.Severity),
			Reason:   TruncateString(f.Reason, r.config.MaxFieldLength),
		})
	}
}

// ClassifyPath derives the conversion path label from a result:
// "identity", "standard", "concentration", "device" or "custom". The
// step kinds decide when a trace is present; without one the unit
// tokens still distinguish device from standard conversions. The
// server's conversion metrics use the same labels.
func ClassifyPath(res *dosing.Result) string {
	if res.FromUnit == res.ToUnit {
		return "identity"
	}

	var device, concentration bool
	for _, step := range res.Steps {
		switch step.Kind {
		case dosing.StepCustom:
			return "custom"
		case dosing.StepConcentration:
			concentration = true
		case dosing.StepDevice:
			device = true
		}
	}

	switch {
	case concentration:
		return "concentration"
	case device:
		return "device"
	}

	if strings.HasPrefix(res.FromUnit, "{") || strings.HasPrefix(res.ToUnit, "{") {
		return "device"
	}
	return "standard"
}
