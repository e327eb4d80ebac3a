package ingest

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Ashfaaq98/aiops-copilot-console/internal/incident"
)

// DefaultPatterns are the file patterns picked up from the drop folder.
var DefaultPatterns = []string{"*.log", "*.txt", "*.csv"}

// DefaultSettle is the quiet period a file must see before it is submitted.
const DefaultSettle = 750 * time.Millisecond

// Submitter accepts a settled file from the drop folder.
type Submitter interface {
	SubmitFile(ctx context.Context, f LogFile) ([]incident.Incident, error)
}

// WatchOptions controls drop-folder behavior.
type WatchOptions struct {
	Dir      string
	Patterns []string
	Settle   time.Duration
	Logger   *log.Logger
	// When true, files already present at startup are submitted too.
	// Otherwise they are recorded as seen and only later changes count.
	IncludeExisting bool
}

type fileKey struct {
	size    int64
	modTime time.Time
}

// Watcher submits log files dropped into a directory, once per (size, modtime).
type Watcher struct {
	sub  Submitter
	opts WatchOptions

	mu      sync.Mutex
	pending map[string]*time.Timer
	seen    map[string]fileKey
	ready   chan string
	done    chan struct{}

	submitted int
	failed    int
}

// NewWatcher constructs a drop-folder watcher.
func NewWatcher(sub Submitter, opts WatchOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = DefaultPatterns
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	return &Watcher{
		sub:     sub,
		opts:    opts,
		pending: make(map[string]*time.Timer),
		seen:    make(map[string]fileKey),
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
	}
}

// Run scans the folder once, then watches it until ctx is cancelled.
// A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch add: %w", err)
	}
	if err := w.scanOnce(); err != nil {
		return err
	}

	w.opts.Logger.Printf("Watching directory: %s (patterns: %s)", w.opts.Dir, strings.Join(w.opts.Patterns, ","))
	defer func() {
		w.stopTimers()
		close(w.done)
	}()

	for {
		select {
		case <-ctx.Done():
			w.opts.Logger.Printf("Watch stopping: submitted=%d failed=%d", w.submitted, w.failed)
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.opts.Logger.Printf("watch error: %v", err)
			}
		case path := <-w.ready:
			w.process(ctx, path)
		}
	}
}

func (w *Watcher) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range w.opts.Patterns {
		p := strings.TrimSpace(strings.ToLower(pat))
		if ok, _ := filepath.Match(p, lower); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) scanOnce() error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !w.matches(e.Name()) {
			continue
		}
		path := filepath.Join(w.opts.Dir, e.Name())
		if w.opts.IncludeExisting {
			w.schedule(path)
			continue
		}
		if st, err := os.Stat(path); err == nil {
			w.mu.Lock()
			w.seen[path] = fileKey{size: st.Size(), modTime: st.ModTime()}
			w.mu.Unlock()
		}
	}
	return nil
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.matches(filepath.Base(ev.Name)) {
		return
	}
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.schedule(ev.Name)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.mu.Lock()
		if t, ok := w.pending[ev.Name]; ok {
			t.Stop()
			delete(w.pending, ev.Name)
		}
		delete(w.seen, ev.Name)
		w.mu.Unlock()
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.opts.Settle, func() {
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
}

// process submits path unless this exact (size, modtime) was already sent.
func (w *Watcher) process(ctx context.Context, path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return
	}
	key := fileKey{size: st.Size(), modTime: st.ModTime()}

	w.mu.Lock()
	prev, dup := w.seen[path]
	w.mu.Unlock()
	if dup && prev.size == key.size && prev.modTime.Equal(key.modTime) {
		return
	}
	if key.size == 0 {
		return
	}

	f := LogFile{Name: filepath.Base(path), Path: path, Size: key.size, Source: SourceFolder}
	incidents, err := w.sub.SubmitFile(ctx, f)
	if err != nil {
		w.failed++
		w.opts.Logger.Printf("submit %s failed: %v", path, err)
		return
	}

	w.mu.Lock()
	w.seen[path] = key
	w.mu.Unlock()
	w.submitted++
	w.opts.Logger.Printf("submitted %s: %d incident(s)", path, len(incidents))
}
