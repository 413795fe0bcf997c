package audit_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"meridianrx/galen/pkg/audit"
	"meridianrx/galen/pkg/audit/recorder"
	"meridianrx/galen/pkg/audit/storage"
	"meridianrx/galen/pkg/dosing"
)

func pathFor(i int) string {
	if i%2 == 0 {
		return "standard"
	}
	return "device"
}

// Performance Test Suite
// Validates that the audit trail meets performance targets:
// - Recording throughput: >1000 writes/sec
// - Query performance: 100K records in <1s
// - Retention performance: Delete 10K in <5s

// BenchmarkRecordingThroughput benchmarks audit recording throughput.
// Target: >1000 record writes/sec
func BenchmarkRecordingThroughput(b *testing.B) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now,
			Value:       1000,
			FromUnit:    "mg",
			ToUnit:      "{tablet}",
			Outcome:     audit.OutcomeSuccess,
			ResultValue: 2,
			Path:        "device",
			Confidence:  0.8,
		}

		_ = store.Store(ctx, record)
	}
	b.StopTimer()

	duration := b.Elapsed()
	recordsPerSec := float64(b.N) / duration.Seconds()

	b.ReportMetric(recordsPerSec, "records/sec")
	b.ReportMetric(float64(duration.Microseconds())/float64(b.N), "µs/record")

	if recordsPerSec < 1000 {
		b.Logf("Warning: Throughput %.0f records/sec is below target of 1000", recordsPerSec)
	} else {
		b.Logf("[PASS] Throughput target met: %.0f records/sec", recordsPerSec)
	}
}

// BenchmarkRecordingThroughput_SQLite benchmarks SQLite recording throughput.
func BenchmarkRecordingThroughput_SQLite(b *testing.B) {
	tmpDir := b.TempDir()
	dbPath := filepath.Join(tmpDir, "bench.db")

	config := &storage.SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}

	store, err := storage.NewSQLiteStorage(config)
	if err != nil {
		b.Fatalf("Failed to create storage: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now,
			Value:       1000,
			FromUnit:    "mg",
			ToUnit:      "g",
			Outcome:     audit.OutcomeSuccess,
		}

		_ = store.Store(ctx, record)
	}
	b.StopTimer()

	duration := b.Elapsed()
	recordsPerSec := float64(b.N) / duration.Seconds()
	avgInsertTime := duration / time.Duration(b.N)

	b.ReportMetric(recordsPerSec, "records/sec")
	b.ReportMetric(float64(avgInsertTime.Microseconds()), "µs/insert")

	// Target: >1000 writes/sec, <5ms per insert
	if recordsPerSec < 1000 {
		b.Logf("Warning: SQLite throughput %.0f records/sec is below target of 1000", recordsPerSec)
	}
	if avgInsertTime > 5*time.Millisecond {
		b.Logf("Warning: Average insert time %v exceeds target of 5ms", avgInsertTime)
	}
}

// TestQueryPerformance_LargeDataset tests query performance with large datasets.
// Target: Query 100K records in <1s (with indexes)
func TestQueryPerformance_LargeDataset(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping large dataset test in short mode")
	}

	// Use in-memory storage for speed
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	recordCount := 100000
	t.Logf("Inserting %d records...", recordCount)

	insertStart := time.Now()
	for i := 0; i < recordCount; i++ {
		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now.Add(time.Duration(i) * time.Second),
			Value:       float64(100 + i%900),
			FromUnit:    "mg",
			ToUnit:      "{tablet}",
			Medication:  fmt.Sprintf("Medication-%d", i%100),
			Outcome:     audit.OutcomeSuccess,
			Path:        pathFor(i),
			Confidence:  float64(i%100) / 100,
		}
		_ = store.Store(ctx, record)
	}
	insertDuration := time.Since(insertStart)
	t.Logf("Inserted %d records in %v", recordCount, insertDuration)

	// Test 1: Time range query
	t.Run("TimeRangeQuery", func(t *testing.T) {
		startTime := now.Add(10000 * time.Second)
		endTime := now.Add(20000 * time.Second)

		start := time.Now()
		query := &audit.Query{
			StartTime: &startTime,
			EndTime:   &endTime,
		}
		results, err := store.Query(ctx, query)
		duration := time.Since(start)

		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}

		t.Logf("Time range query returned %d records in %v", len(results), duration)

		// Target: <100ms for typical query
		if duration > 100*time.Millisecond {
			t.Logf("Warning: Query took %v (target: <100ms)", duration)
		}
	})

	// Test 2: Medication filter query
	t.Run("MedicationFilterQuery", func(t *testing.T) {
		start := time.Now()
		query := &audit.Query{
			Medication: "Medication-50",
		}
		results, err := store.Query(ctx, query)
		duration := time.Since(start)

		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}

		t.Logf("Medication filter query returned %d records in %v", len(results), duration)

		if duration > 100*time.Millisecond {
			t.Logf("Warning: Medication query took %v (target: <100ms)", duration)
		}
	})

	// Test 3: Path filter query
	t.Run("PathFilterQuery", func(t *testing.T) {
		start := time.Now()
		query := &audit.Query{
			Path:  "device",
			Limit: 1000,
		}
		results, err := store.Query(ctx, query)
		duration := time.Since(start)

		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}

		t.Logf("Path filter query returned %d records in %v", len(results), duration)

		if duration > 100*time.Millisecond {
			t.Logf("Warning: Path query took %v (target: <100ms)", duration)
		}
	})

	// Test 4: Confidence range query
	t.Run("ConfidenceRangeQuery", func(t *testing.T) {
		minConfidence := 0.5
		maxConfidence := 0.9

		start := time.Now()
		query := &audit.Query{
			MinConfidence: &minConfidence,
			MaxConfidence: &maxConfidence,
		}
		results, err := store.Query(ctx, query)
		duration := time.Since(start)

		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}

		t.Logf("Confidence range query returned %d records in %v", len(results), duration)
	})

	// Test 5: Count performance
	t.Run("CountPerformance", func(t *testing.T) {
		start := time.Now()
		count, err := store.Count(ctx, &audit.Query{})
		duration := time.Since(start)

		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}

		if count != int64(recordCount) {
			t.Errorf("Expected count %d, got %d", recordCount, count)
		}

		t.Logf("Counted %d records in %v", count, duration)
	})
}

// TestRetentionPerformance tests retention pruning performance.
// Target: Delete 10K records in <5s
func TestRetentionPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping retention performance test in short mode")
	}

	store := storage.NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	// Insert 10K old records and 10K recent records
	oldCount := 10000
	recentCount := 10000
	totalCount := oldCount + recentCount

	t.Logf("Inserting %d records...", totalCount)

	for i := 0; i < totalCount; i++ {
		age := -5 // Recent
		if i < oldCount {
			age = -10 // Old
		}

		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now.AddDate(0, 0, age),
			FromUnit:    "mg",
			ToUnit:      "g",
			Outcome:     audit.OutcomeSuccess,
		}
		_ = store.Store(ctx, record)
	}

	// Delete old records (simulate retention pruning)
	cutoff := now.AddDate(0, 0, -7)

	start := time.Now()
	deleted, err := store.Delete(ctx, &audit.Query{
		EndTime: &cutoff,
	})
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if deleted != int64(oldCount) {
		t.Errorf("Expected to delete %d records, deleted %d", oldCount, deleted)
	}

	t.Logf("Deleted %d records in %v (%.0f records/sec)",
		deleted, duration, float64(deleted)/duration.Seconds())

	// Target: delete 10K records in <5s
	if duration > 5*time.Second {
		t.Logf("Warning: Delete took %v (target: <5s)", duration)
	} else {
		t.Logf("[PASS] Retention target met: deleted %d records in %v", deleted, duration)
	}

	// Verify remaining records
	count, _ := store.Count(ctx, &audit.Query{})
	if count != int64(recentCount) {
		t.Errorf("Expected %d remaining records, got %d", recentCount, count)
	}
}

// TestMemoryUsageUnderLoad tests memory usage under sustained load.
// Target: No memory leaks, reasonable memory footprint
func TestMemoryUsageUnderLoad(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping memory usage test in short mode")
	}

	store := storage.NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	// Insert 10K records
	for i := 0; i < 10000; i++ {
		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now,
			FromUnit:    "mg",
			ToUnit:      "{tablet}",
			Medication:  "Metformin 500mg",
			ContextHash: "9a41c2e7f3b8d0164f7ce2b1a5d8e903",
			Outcome:     audit.OutcomeSuccess,
		}
		_ = store.Store(ctx, record)
	}

	// Query multiple times to test for memory leaks
	for i := 0; i < 100; i++ {
		_, _ = store.Query(ctx, &audit.Query{Limit: 100})
	}

	// Check storage size
	size := store.Size()
	if size != 10000 {
		t.Errorf("Expected storage size 10000, got %d", size)
	}

	t.Logf("Memory test completed: %d records stored, 100 queries executed", size)
}

// BenchmarkEndToEndRecording benchmarks the complete recording workflow
// through the async recorder: build entry -> redact -> hash -> store.
func BenchmarkEndToEndRecording(b *testing.B) {
	store := storage.NewMemoryStorage()

	config := recorder.DefaultConfig()
	rec := recorder.NewRecorder(store, config)

	ctx := context.Background()
	now := time.Now()

	factor := 0.002
	result := &dosing.Result{
		Value:         2,
		OriginalValue: 1000,
		FromUnit:      "mg",
		ToUnit:        "{tablet}",
		Steps: []dosing.Step{
			{
				Description: "Converted 1000 mg to 2 tablets using medication strength 500 mg per tablet",
				From:        dosing.Quantity{Value: 1000, Unit: "mg"},
				To:          dosing.Quantity{Value: 2, Unit: "{tablet}"},
				Factor:      &factor,
				Kind:        dosing.StepDevice,
			},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		entry := &recorder.Entry{
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now,
			Value:       1000,
			FromUnit:    "mg",
			ToUnit:      "{tablet}",
			PatientRef:  "MRN-00482917",
			Result:      result,
			Duration:    2 * time.Millisecond,
		}

		_ = rec.Record(ctx, entry)
	}
	b.StopTimer()

	_ = rec.Close()

	duration := b.Elapsed()
	recordsPerSec := float64(b.N) / duration.Seconds()
	avgTime := duration / time.Duration(b.N)

	b.ReportMetric(recordsPerSec, "records/sec")
	b.ReportMetric(float64(avgTime.Microseconds()), "µs/record")

	// Target: <2ms per complete recording
	if avgTime > 2*time.Millisecond {
		b.Logf("Warning: End-to-end recording took %v (target: <2ms)", avgTime)
	}
}

// BenchmarkAsyncChannelOverhead benchmarks async channel operations.
// Target: <1ms async channel overhead
func BenchmarkAsyncChannelOverhead(b *testing.B) {
	// Simulate async channel buffering used by recorder
	bufferSize := 1000
	ch := make(chan *audit.ConversionRecord, bufferSize)

	// Start consumer
	done := make(chan bool)
	go func() {
		for range ch {
			// Drain channel
		}
		done <- true
	}()

	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now,
		}

		ch <- record
	}
	b.StopTimer()

	close(ch)
	<-done

	avgOverhead := b.Elapsed() / time.Duration(b.N)
	b.ReportMetric(float64(avgOverhead.Nanoseconds()), "ns/enqueue")

	// Target: <1ms channel overhead
	if avgOverhead > 1*time.Millisecond {
		b.Logf("Warning: Channel overhead %v exceeds target of 1ms", avgOverhead)
	}
}

// BenchmarkConcurrentQueryPerformance benchmarks concurrent query operations.
func BenchmarkConcurrentQueryPerformance(b *testing.B) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	now := time.Now()

	// Pre-populate with 1000 records
	for i := 0; i < 1000; i++ {
		record := &audit.ConversionRecord{
			ID:          fmt.Sprintf("record-%d", i),
			RequestID:   fmt.Sprintf("req-%d", i),
			RequestTime: now,
			FromUnit:    "mg",
			ToUnit:      "{tablet}",
			Path:        "device",
			Outcome:     audit.OutcomeSuccess,
		}
		_ = store.Store(ctx, record)
	}

	query := &audit.Query{
		Path:  "device",
		Limit: 100,
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.Query(ctx, query)
		}
	})
}
