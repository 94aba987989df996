// Package watch reruns the pipeline when top-level documents change and,
// optionally, on a fixed interval.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/rstprep/internal/logfields"
	"git.home.luguber.info/inful/rstprep/internal/util/sets"
)

// DefaultDebounce coalesces bursts of editor writes into one run.
const DefaultDebounce = 2 * time.Second

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context, reason string) error

// Watcher triggers RunFunc on source edits and scheduled ticks. Runs never
// overlap. An edit only triggers a run when the watched files differ from
// their content after the previous run, so files rewritten by the run
// itself do not retrigger it.
type Watcher struct {
	files    sets.Set[string]
	run      RunFunc
	debounce time.Duration
	interval time.Duration

	runMu    sync.Mutex
	lastSeen map[string]string // guarded by runMu
	trigger  chan string
}

// New watches the given source files. Only the files themselves trigger
// runs; other changes in their directories are ignored.
func New(files []string, run RunFunc) (*Watcher, error) {
	if run == nil {
		return nil, errors.New("watch: run function is required")
	}
	if len(files) == 0 {
		return nil, errors.New("watch: no files to watch")
	}
	set := sets.New[string]()
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", f, err)
		}
		set.Add(abs)
	}
	return &Watcher{
		files:    set,
		run:      run,
		debounce: DefaultDebounce,
		trigger:  make(chan string, 1),
	}, nil
}

// WithDebounce overrides the quiet window after the last change.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// WithInterval enables a periodic run every d. Zero disables it.
func (w *Watcher) WithInterval(d time.Duration) *Watcher {
	w.interval = d
	return w
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil {
			slog.Error("Error closing file watcher", logfields.Error(cerr))
		}
	}()

	dirs := sets.New[string]()
	for f := range w.files {
		dirs.Add(filepath.Dir(f))
	}
	for _, dir := range sets.Sorted(dirs) {
		// Watching the directory survives editors that replace files on save.
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	w.runMu.Lock()
	w.lastSeen = w.fingerprint()
	w.runMu.Unlock()

	if w.interval > 0 {
		sched, err := w.schedule(ctx)
		if err != nil {
			return err
		}
		sched.Start()
		defer func() {
			if serr := sched.Shutdown(); serr != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(serr))
			}
		}()
	}

	slog.Info("Watching documents",
		logfields.Count(w.files.Len()),
		slog.Duration("interval", w.interval))

	go w.eventLoop(ctx, fw)
	w.debounceLoop(ctx)
	return nil
}

func (w *Watcher) schedule(ctx context.Context) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.runOnce(ctx, "interval", false) }),
		gocron.WithName("rstprep-periodic"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create periodic job: %w", err)
	}
	return s, nil
}

func (w *Watcher) eventLoop(ctx context.Context, fw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			slog.Debug("Document change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			w.request(event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.files.Has(abs)
}

// request queues a run; a pending request absorbs further ones.
func (w *Watcher) request(reason string) {
	select {
	case w.trigger <- reason:
	default:
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time
	reason := ""
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case reason = <-w.trigger:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			w.runOnce(ctx, reason, true)
		}
	}
}

// runOnce runs the pipeline. With onlyIfChanged set, the run is skipped
// when the watched files still match the snapshot taken after the last run.
func (w *Watcher) runOnce(ctx context.Context, reason string, onlyIfChanged bool) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if onlyIfChanged && maps.Equal(w.fingerprint(), w.lastSeen) {
		slog.Debug("Watched documents unchanged since last run, skipping", slog.String("reason", reason))
		return
	}

	slog.Info("Triggering run", slog.String("reason", reason))
	if err := w.run(ctx, reason); err != nil {
		slog.Error("Triggered run failed", slog.String("reason", reason), logfields.Error(err))
	}
	w.lastSeen = w.fingerprint()
}

// fingerprint hashes every watched file; unreadable files map to "".
func (w *Watcher) fingerprint() map[string]string {
	out := make(map[string]string, w.files.Len())
	for f := range w.files {
		data, err := os.ReadFile(f)
		if err != nil {
			out[f] = ""
			continue
		}
		sum := sha256.Sum256(data)
		out[f] = hex.EncodeToString(sum[:])
	}
	return out
}
