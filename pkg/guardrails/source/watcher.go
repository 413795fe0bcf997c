package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"meridianrx/galen/pkg/guardrails"
)

// WatcherConfig configures rule file watching.
type WatcherConfig struct {
	// Path is the rule file or directory to watch.
	Path string

	// DebounceInterval is how long to wait after the last file event
	// before reloading. Editors fire bursts of events per save; one
	// reload per burst is enough. Default: 250ms
	DebounceInterval time.Duration

	// Extensions lists the file extensions that trigger a reload.
	// Default: .yaml, .yml
	Extensions []string
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 250 * time.Millisecond,
		Extensions:       []string{".yaml", ".yml"},
	}
}

// Watcher watches guardrail rule files and triggers a reload callback
// when they change. Events are debounced so an editor save produces
// one reload, not five.
type Watcher struct {
	fsw      *fsnotify.Watcher
	config   *WatcherConfig
	debounce *debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for the configured path. Watching does
// not start until Watch is called.
func NewWatcher(config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("watcher requires a path")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = DefaultWatcherConfig().DebounceInterval
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultWatcherConfig().Extensions
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsw:      fsw,
		config:   config,
		debounce: newDebouncer(config.DebounceInterval),
		logger:   logger.With("component", "guardrail-watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks, processing file events and invoking onReload after
// each debounced change, until the context is cancelled or Stop is
// called. Reload errors are logged, not returned: the previous rules
// stay active.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	if err := w.addPath(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.config.Path, err)
	}

	w.logger.Info("guardrail watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("guardrail watcher stopped", "reason", "context cancelled")
			return nil

		case <-w.stopCh:
			w.logger.Info("guardrail watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("rule file changed", "path", event.Name, "op", event.Op.String())
			w.debounce.trigger(func() {
				w.logger.Info("reloading guardrail rules", "path", event.Name)
				if err := onReload(); err != nil {
					w.logger.Error("guardrail reload failed, keeping previous rules", "error", err)
				}
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			// Transient watch errors do not stop the watcher.
			w.logger.Error("guardrail watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher and releases its resources.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.fsw.Close()
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.debounce.stop()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// addPath registers the path with fsnotify. Directories are walked so
// nested rule directories are covered; fsnotify watches directories,
// not globs.
func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(path)
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != path {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(p); err != nil {
				return fmt.Errorf("failed to watch directory %q: %w", p, err)
			}
			w.logger.Debug("watching directory", "path", p)
		}
		return nil
	})
}

// relevant filters events down to content changes of rule files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&fsnotify.Chmod == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, valid := range w.config.Extensions {
		if ext == strings.ToLower(valid) {
			return true
		}
	}
	return false
}

// ReloadFunc builds the Watch callback that loads rule sets from src
// and swaps them into ev. On a failed load the evaluator keeps its
// previous rule sets.
func ReloadFunc(ctx context.Context, src Source, ev *guardrails.Evaluator, logger *slog.Logger) func() error {
	if logger == nil {
		logger = slog.Default()
	}
	return func() error {
		sets, err := src.Load(ctx)
		if err != nil {
			return err
		}
		ev.SetRuleSets(sets...)
		logger.Info("guardrail rules reloaded", "rule_sets", len(sets))
		return nil
	}
}

// debouncer coalesces bursts of file events into one callback after a
// quiet period.
type debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

// trigger schedules the callback, replacing any pending one.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *debouncer) fire() {
	d.mu.Lock()
	cb := d.callback
	stopped := d.stopped
	d.mu.Unlock()

	if cb != nil && !stopped {
		cb()
	}
}

// stop cancels any pending callback.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
