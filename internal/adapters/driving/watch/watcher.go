// Package watch runs a name-list sync for every device list dropped into
// a folder.
//
// Eligible files are .txt (one name per line) and .csv (names read from a
// configured column). Once processed, a file is renamed to <name>.done, or
// to <name>.failed when it could not be read or the device set could not be
// fetched. Files are processed one at a time in arrival order.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/intunesync/internal/core/domain"
	"github.com/custodia-labs/intunesync/internal/core/ports/driving"
	"github.com/custodia-labs/intunesync/internal/input"
	"github.com/custodia-labs/intunesync/internal/logger"
)

// Suffixes appended to processed files.
const (
	DoneSuffix   = ".done"
	FailedSuffix = ".failed"
)

// DefaultSettle is how long a file must be quiet before it is read.
const DefaultSettle = 500 * time.Millisecond

// Result describes one processed file.
type Result struct {
	// Path is the original file path.
	Path string

	// Report is nil when the file could not be read or the run failed early.
	Report *domain.ResultReport

	Err error

	// MovedTo is where the file was renamed, empty if it was left in place.
	MovedTo string
}

// Config configures a Watcher.
type Config struct {
	// Dir is the folder to watch. It must exist.
	Dir string

	// Column is the CSV column holding device names.
	Column string

	// Sync runs the name-list syncs.
	Sync driving.BulkSyncOrchestrator

	// Settle overrides DefaultSettle.
	Settle time.Duration

	// OnResult, if set, is called after each file is processed.
	OnResult func(Result)

	// Progress, if set, receives per-device events of every run.
	Progress func(domain.ProgressEvent)
}

// Watcher processes device lists dropped into a folder.
type Watcher struct {
	cfg     Config
	pending map[string]time.Time
}

// New creates a watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Sync == nil {
		return nil, errors.New("watch: sync orchestrator is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: watch folder: %v", domain.ErrConfiguration, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: watch folder %s is not a directory", domain.ErrConfiguration, cfg.Dir)
	}
	if cfg.Column == "" {
		cfg.Column = domain.DefaultWatchColumn
	}
	if cfg.Settle <= 0 {
		cfg.Settle = DefaultSettle
	}
	return &Watcher{cfg: cfg, pending: make(map[string]time.Time)}, nil
}

// Run watches until ctx is cancelled. Files already present are queued first.
// It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.cfg.Dir, err)
	}

	if err := w.queueExisting(); err != nil {
		return err
	}
	logger.Info("watch: watching %s", w.cfg.Dir)

	ticker := time.NewTicker(w.cfg.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.pending[path] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case now := <-ticker.C:
			for _, path := range w.due(now) {
				if ctx.Err() != nil {
					return nil
				}
				w.report(w.Process(ctx, path))
			}
		}
	}
}

// handleFsEvent returns the path to queue for event, if any.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !Eligible(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// due removes and returns the pending files that have been quiet long enough,
// oldest first.
func (w *Watcher) due(now time.Time) []string {
	var ready []string
	for path, seen := range w.pending {
		if now.Sub(seen) >= w.cfg.Settle {
			ready = append(ready, path)
		}
	}
	sort.Slice(ready, func(i, j int) bool {
		return w.pending[ready[i]].Before(w.pending[ready[j]])
	})
	for _, path := range ready {
		delete(w.pending, path)
	}
	return ready
}

func (w *Watcher) queueExisting() error {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.cfg.Dir, err)
	}
	// Zero time makes them due on the first tick.
	for _, e := range entries {
		path := filepath.Join(w.cfg.Dir, e.Name())
		if e.Type().IsRegular() && Eligible(path) {
			w.pending[path] = time.Time{}
		}
	}
	return nil
}

// Process syncs the names in one file and renames it.
// A cancelled run leaves the file in place so it is picked up again.
func (w *Watcher) Process(ctx context.Context, path string) Result {
	res := Result{Path: path}

	names, err := input.ReadFile(path, w.cfg.Column)
	if err != nil {
		res.Err = err
		res.MovedTo = w.move(path, FailedSuffix)
		return res
	}

	logger.Info("watch: %s: syncing %d devices", filepath.Base(path), len(names))
	report, err := w.cfg.Sync.SyncByNames(ctx, names, driving.SyncOptions{Progress: w.cfg.Progress})
	res.Report = report
	res.Err = err

	switch {
	case err != nil && ctx.Err() != nil:
		// left for the next start
	case err != nil:
		res.MovedTo = w.move(path, FailedSuffix)
	default:
		res.MovedTo = w.move(path, DoneSuffix)
	}
	return res
}

func (w *Watcher) move(path, suffix string) string {
	target := path + suffix
	if err := os.Rename(path, target); err != nil {
		logger.Error("watch: rename %s: %v", filepath.Base(path), err)
		return ""
	}
	return target
}

func (w *Watcher) report(res Result) {
	switch {
	case res.Err != nil:
		logger.Warn("watch: %s: %v", filepath.Base(res.Path), res.Err)
	case res.Report != nil:
		logger.Info("watch: %s: %d synced, %d failed, %d not found", filepath.Base(res.Path),
			res.Report.Synced, res.Report.Failed, res.Report.NotFound)
	}
	if w.cfg.OnResult != nil {
		w.cfg.OnResult(res)
	}
}

// Eligible reports whether path is a device list the watcher should read.
// Hidden files and already processed files are skipped.
func Eligible(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return input.IsCSV(base) || input.IsText(base)
}
