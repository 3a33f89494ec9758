// Package watcher turns changes made to a repository's control directory by
// other processes (a terminal git, another tool) into the same events the
// git package publishes for its own operations.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ActionWatch is the action recorded on status events raised by the watcher.
const ActionWatch = "watch"

// ErrWatcherClosed is returned when using a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// Target receives notifications. *git.Repository implements it.
type Target interface {
	GitDir() string
	NotifyStatusChanged(action string)
	UpdateCurrentBranch(ctx context.Context) string
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before notifying. Defaults to 100ms.
	Debounce time.Duration

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Stats reports watcher activity.
type Stats struct {
	WatchedPaths  int
	RawEvents     int64
	Notifications int64
	Errors        int64
}

// Watcher watches one control directory.
type Watcher struct {
	target Target
	gitDir string
	logger *zap.Logger

	fsw      *fsnotify.Watcher
	debounce *debouncer

	mu     sync.Mutex
	paths  map[string]bool
	closed bool

	rawEvents     atomic.Int64
	notifications atomic.Int64
	errorCount    atomic.Int64
}

// New creates a watcher for target's control directory and its local
// branch refs. Nothing is reported until Run is called.
func New(target Target, opts Options) (*Watcher, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}

	w := &Watcher{
		target:   target,
		gitDir:   target.GitDir(),
		logger:   opts.Logger.Named("watcher"),
		fsw:      fsw,
		debounce: newDebouncer(opts.Debounce),
		paths:    make(map[string]bool),
	}

	if err := w.add(w.gitDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	if err := w.addTree(filepath.Join(w.gitDir, "refs", "heads")); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Run dispatches notifications until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.errorCount.Add(1)
			w.logger.Warn("Watch error", zap.Error(err))

		case <-w.debounce.Ready():
			w.notify(ctx, w.debounce.Take())
		}
	}
}

// Close stops watching. Run returns once its channels drain.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.debounce.Stop()
	return w.fsw.Close()
}

// Stats returns activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	watched := len(w.paths)
	w.mu.Unlock()

	return Stats{
		WatchedPaths:  watched,
		RawEvents:     w.rawEvents.Load(),
		Notifications: w.notifications.Load(),
		Errors:        w.errorCount.Load(),
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	w.rawEvents.Add(1)

	// New branch namespaces (refs/heads/feature/) need their own watch.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Debug("Cannot watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
		}
	}

	rel, err := filepath.Rel(w.gitDir, ev.Name)
	if err != nil {
		return
	}
	kind := Classify(filepath.ToSlash(rel))
	if kind == KindNone {
		return
	}

	w.logger.Debug("Control file changed",
		zap.String("file", rel),
		zap.Stringer("op", ev.Op),
		zap.Stringer("kind", kind),
	)
	w.debounce.Add(kind)
}

func (w *Watcher) notify(ctx context.Context, kind Kind) {
	if kind == KindNone {
		return
	}
	w.notifications.Add(1)

	if kind.Has(KindStatus) {
		w.target.NotifyStatusChanged(ActionWatch)
	}
	if kind.Has(KindBranch) {
		w.target.UpdateCurrentBranch(ctx)
	}
}

func (w *Watcher) add(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	if w.paths[path] {
		return nil
	}
	if err := w.fsw.Add(path); err != nil {
		return errors.Wrapf(err, "watch %s", path)
	}
	w.paths[path] = true
	return nil
}

// addTree watches root and every directory below it. A missing root is not
// an error: an unborn repository may not have refs/heads yet.
func (w *Watcher) addTree(root string) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.add(p)
	})
}
