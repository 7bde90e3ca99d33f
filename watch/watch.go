// Package watch reports changes to profile input files. Changes arrive
// through filesystem notifications on each input's directory; Poll gives a
// one-off snapshot for the initial pass.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/linkprofile/internal/logging"
)

// DefaultSettle is how long a burst of events on one file is coalesced
// before the file is re-examined.
const DefaultSettle = 100 * time.Millisecond

// Change describes one input whose content appears to have changed.
type Change struct {
	Path    string
	ModTime time.Time
	Size    int64
}

type fileState struct {
	modTime time.Time
	size    int64
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets the coalescing window for bursts of events. Zero or
// negative re-examines a file on every event.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// WithLogger attaches a logger for notifier errors.
func WithLogger(log logging.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// Watcher tracks a fixed set of input paths.
type Watcher struct {
	settle time.Duration
	log    logging.Logger

	mu        sync.Mutex
	paths     []string
	tracked   map[string]struct{}
	seen      map[string]fileState
	listeners []func(Change)

	stat func(string) (fs.FileInfo, error)
}

// New constructs a watcher over paths. Paths are cleaned; Poll reports them
// in the given order.
func New(paths []string, opts ...Option) *Watcher {
	w := &Watcher{
		settle:  DefaultSettle,
		log:     logging.Noop(),
		tracked: make(map[string]struct{}, len(paths)),
		seen:    make(map[string]fileState, len(paths)),
		stat:    os.Stat,
	}
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, dup := w.tracked[p]; dup {
			continue
		}
		w.tracked[p] = struct{}{}
		w.paths = append(w.paths, p)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// AddListener registers a callback invoked for every reported change.
func (w *Watcher) AddListener(fn func(Change)) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Poll examines every path once and returns the changes after handing each
// to the listeners. A path seen for the first time counts as changed; a path
// that cannot be stat'ed is skipped.
func (w *Watcher) Poll() []Change {
	return w.check(w.paths)
}

// Start subscribes to notifications for the directories holding the inputs
// and reports changes until ctx is done. The returned channel is closed once
// the notifier has been released.
func (w *Watcher) Start(ctx context.Context) (<-chan struct{}, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	for _, dir := range w.dirs() {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer fw.Close()
		w.loop(ctx, fw)
	}()
	return done, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	pending := make(map[string]struct{})
	var settled <-chan time.Time

	flush := func() {
		paths := make([]string, 0, len(pending))
		for _, p := range w.paths {
			if _, ok := pending[p]; ok {
				paths = append(paths, p)
			}
		}
		clear(pending)
		settled = nil
		w.check(paths)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if _, tracked := w.tracked[name]; !tracked || ev.Op == fsnotify.Chmod {
				continue
			}
			pending[name] = struct{}{}
			if w.settle <= 0 {
				flush()
			} else if settled == nil {
				settled = time.After(w.settle)
			}
		case <-settled:
			flush()
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "file watcher error", logging.Err(err))
		}
	}
}

// check stats paths, records their state and notifies listeners of those
// that differ from the last observation. Unreadable paths are forgotten so
// a recreated file is reported again.
func (w *Watcher) check(paths []string) []Change {
	w.mu.Lock()
	var changes []Change
	for _, path := range paths {
		info, err := w.stat(path)
		if err != nil {
			delete(w.seen, path)
			continue
		}
		cur := fileState{modTime: info.ModTime(), size: info.Size()}
		if prev, ok := w.seen[path]; ok && prev.modTime.Equal(cur.modTime) && prev.size == cur.size {
			continue
		}
		w.seen[path] = cur
		changes = append(changes, Change{Path: path, ModTime: cur.modTime, Size: cur.size})
	}
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()

	for _, c := range changes {
		for _, fn := range listeners {
			fn(c)
		}
	}
	return changes
}

// dirs returns the distinct parent directories of the inputs, in order.
func (w *Watcher) dirs() []string {
	var out []string
	for _, p := range w.paths {
		d := filepath.Dir(p)
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}
