// Package retention enforces retention policies on conversion audit
// records.
//
// The pruner deletes records in two phases: age-based (older than
// RetentionDays) and count-based (oldest beyond MaxRecords). Either
// phase can archive the records it is about to delete to a JSON file
// first.
//
// Pruning can run on demand via Prune or on a cron schedule:
//
//	pruner := retention.NewPruner(store, &retention.Config{
//	    RetentionDays:       90,
//	    PruneSchedule:       "0 3 * * *",
//	    ArchiveBeforeDelete: true,
//	    ArchivePath:         "data/archives/",
//	})
//	if err := pruner.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer pruner.Stop()
//
// The scheduler stops when the context passed to Start is cancelled or
// when Stop is called, whichever comes first.
package retention
