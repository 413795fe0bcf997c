package retention

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"meridianrx/galen/pkg/audit"
	"meridianrx/galen/pkg/audit/export"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain records.
	// 0 means keep records forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// ArchiveBeforeDelete enables archiving records before deletion.
	ArchiveBeforeDelete bool

	// ArchivePath is the directory to store archived records.
	ArchivePath string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays:       90,
		PruneSchedule:       "0 3 * * *",
		ArchiveBeforeDelete: false,
		ArchivePath:         "data/archives/",
		MaxRecords:          0,
	}
}

// Pruner enforces retention policies on conversion audit records.
type Pruner struct {
	storage   audit.Storage
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler

	// OnPruned, if set, is called after each pruning cycle that
	// deletes at least one record. Set it before Start.
	OnPruned func(deleted int64)
}

// NewPruner creates a new retention pruner.
func NewPruner(storage audit.Storage, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}

	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Prune deletes records older than the retention period or exceeding
// the max record count.
//
// Pruning happens in two phases:
//  1. Age-based: delete records older than RetentionDays
//  2. Count-based: if total records > MaxRecords, delete oldest
//
// Both can run together. Returns the total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned records by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if totalDeleted == 0 {
		p.logger.Debug("no records pruned",
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	} else {
		p.logger.Info("audit pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
		if p.OnPruned != nil {
			p.OnPruned(totalDeleted)
		}
	}

	return totalDeleted, nil
}

// pruneByAge deletes records older than the retention period.
func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)

	p.logger.Debug("pruning by age",
		"cutoff_time", cutoff,
		"retention_days", p.config.RetentionDays,
	)

	query := &audit.Query{
		EndTime: &cutoff,
	}

	if p.config.ArchiveBeforeDelete {
		records, err := p.storage.Query(ctx, query)
		if err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
		if err := p.archiveRecords(ctx, records, "age"); err != nil {
			return 0, audit.NewRetentionError(p.config.RetentionDays, err)
		}
	}

	deleted, err := p.storage.Delete(ctx, query)
	if err != nil {
		return 0, audit.NewRetentionError(p.config.RetentionDays, err)
	}

	return deleted, nil
}

// pruneByCount deletes oldest records if total count exceeds MaxRecords.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.storage.Count(ctx, &audit.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	if count <= p.config.MaxRecords {
		p.logger.Debug("record count within limit",
			"current", count,
			"max", p.config.MaxRecords,
		)
		return 0, nil
	}

	p.logger.Info("record count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"to_delete", count-p.config.MaxRecords,
	)

	// Query everything so the cutoff is computed from a consistent
	// snapshot even if the backend cannot sort.
	allRecords, err := p.storage.Query(ctx, &audit.Query{Limit: int(count)})
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}

	if len(allRecords) == 0 {
		p.logger.Debug("no records found to delete")
		return 0, nil
	}

	sort.Slice(allRecords, func(i, j int) bool {
		return allRecords[i].RequestTime.Before(allRecords[j].RequestTime)
	})

	// Recompute from the snapshot in case the count changed
	actualToDelete := len(allRecords) - int(p.config.MaxRecords)
	if actualToDelete <= 0 {
		p.logger.Debug("record count within limit after query")
		return 0, nil
	}
	if actualToDelete > len(allRecords) {
		actualToDelete = len(allRecords)
	}

	// Cutoff is the time of the newest record being deleted
	cutoffTime := allRecords[actualToDelete-1].RequestTime

	p.logger.Debug("calculated cutoff time for count-based pruning",
		"cutoff_time", cutoffTime,
		"records_to_delete", actualToDelete,
	)

	deleteQuery := &audit.Query{
		EndTime: &cutoffTime,
	}

	if p.config.ArchiveBeforeDelete {
		if err := p.archiveRecords(ctx, allRecords[:actualToDelete], "count"); err != nil {
			return 0, fmt.Errorf("archive failed: %w", err)
		}
	}

	deleted, err := p.storage.Delete(ctx, deleteQuery)
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}

	return deleted, nil
}

// archiveRecords exports records to a JSON archive file before
// deletion. The label distinguishes age-based from count-based
// archives created on the same day.
func (p *Pruner) archiveRecords(ctx context.Context, records []*audit.ConversionRecord, label string) error {
	if len(records) == 0 {
		p.logger.Debug("no records to archive")
		return nil
	}

	p.logger.Info("archiving records before deletion",
		"record_count", len(records),
	)

	if err := os.MkdirAll(p.config.ArchivePath, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	archiveFile := filepath.Join(p.config.ArchivePath,
		fmt.Sprintf("conversions-%s-%s.json", label, time.Now().Format("2006-01-02-150405")))
	f, err := os.Create(archiveFile)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer f.Close()

	exporter := export.NewJSONExporter(true)
	if err := exporter.Export(ctx, records, f); err != nil {
		return fmt.Errorf("failed to export records to archive: %w", err)
	}

	p.logger.Info("records archived",
		"archive_file", archiveFile,
		"record_count", len(records),
	)

	return nil
}

// Start starts the automatic pruning scheduler.
// Call this when starting the application.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the automatic pruning scheduler.
// Call this during graceful shutdown.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled pruning.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
