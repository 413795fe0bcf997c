// Package source loads guardrail rule sets from files or directories
// and keeps a running evaluator in sync with them.
//
// FileSource loads and validates every rule file under a path. Watcher
// watches that path with fsnotify and, after a debounce interval,
// invokes a reload callback; ReloadFunc builds the callback that swaps
// freshly loaded rule sets into an evaluator, keeping the previous
// sets whenever a reload fails. A broken edit therefore never leaves
// the evaluator without rules.
//
//	src := source.NewFileSource("rules/", logger)
//	sets, err := src.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	ev.SetRuleSets(sets...)
//
//	w, err := source.NewWatcher(&source.WatcherConfig{Path: "rules/"}, logger)
//	if err != nil {
//	    return err
//	}
//	go w.Watch(ctx, source.ReloadFunc(ctx, src, ev, logger))
package source
