package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives each debounced batch. Calls are serialized.
type Handler func(ctx context.Context, events []FileEvent)

// CorpusWatcher watches a single corpus file.
type CorpusWatcher struct {
	path   string
	opts   Options
	logger *slog.Logger
}

// New creates a watcher for the file at path.
func New(path string, opts Options) *CorpusWatcher {
	return &CorpusWatcher{path: path, opts: opts.WithDefaults(), logger: slog.Default()}
}

// WithLogger sets the logger and returns w.
func (w *CorpusWatcher) WithLogger(l *slog.Logger) *CorpusWatcher {
	if l != nil {
		w.logger = l
	}
	return w
}

// Run watches until ctx is cancelled, calling h after each burst of
// changes. It returns nil on cancellation.
func (w *CorpusWatcher) Run(ctx context.Context, h Handler) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("resolve corpus path: %w", err)
	}

	deb := NewDebouncer(w.opts.DebounceWindow)
	defer deb.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srcErr := make(chan error, 1)
	go func() { srcErr <- w.runSource(ctx, abs, deb.Add) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-srcErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case batch, ok := <-deb.Output():
			if !ok {
				return nil
			}
			w.logger.Info("corpus_changed",
				slog.String("path", abs),
				slog.String("op", batch[len(batch)-1].Operation.String()))
			h(ctx, batch)
		}
	}
}

func (w *CorpusWatcher) runSource(ctx context.Context, abs string, emit func(FileEvent)) error {
	if !w.opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fsw.Add(filepath.Dir(abs)); err == nil {
				w.logger.Debug("watcher_started", slog.String("mode", "fsnotify"), slog.String("path", abs))
				return w.watchNotify(ctx, fsw, abs, emit)
			}
			_ = fsw.Close()
		}
		w.logger.Warn("watcher_fsnotify_unavailable", slog.String("error", err.Error()))
	}
	w.logger.Debug("watcher_started", slog.String("mode", "polling"), slog.String("path", abs))
	return newPoller(abs, w.opts.PollInterval).run(ctx, emit)
}

func (w *CorpusWatcher) watchNotify(ctx context.Context, fsw *fsnotify.Watcher, abs string, emit func(FileEvent)) error {
	defer fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			op, ok := convertOp(ev.Op)
			if !ok {
				continue
			}
			emit(FileEvent{Path: abs, Operation: op, Timestamp: time.Now()})
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

func convertOp(op fsnotify.Op) (Operation, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate, true
	case op.Has(fsnotify.Write):
		return OpModify, true
	case op.Has(fsnotify.Remove):
		return OpDelete, true
	case op.Has(fsnotify.Rename):
		return OpRename, true
	default:
		return 0, false
	}
}

// poller detects changes by comparing size and modification time.
type poller struct {
	path     string
	interval time.Duration
	exists   bool
	modTime  time.Time
	size     int64
}

func newPoller(path string, interval time.Duration) *poller {
	p := &poller{path: path, interval: interval}
	if info, err := os.Stat(path); err == nil {
		p.exists, p.modTime, p.size = true, info.ModTime(), info.Size()
	}
	return p
}

func (p *poller) run(ctx context.Context, emit func(FileEvent)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ev, changed := p.check(); changed {
				emit(ev)
			}
		}
	}
}

func (p *poller) check() (FileEvent, bool) {
	info, err := os.Stat(p.path)
	now := time.Now()
	switch {
	case err != nil && p.exists:
		p.exists = false
		return FileEvent{Path: p.path, Operation: OpDelete, Timestamp: now}, true
	case err != nil:
		return FileEvent{}, false
	case !p.exists:
		p.exists, p.modTime, p.size = true, info.ModTime(), info.Size()
		return FileEvent{Path: p.path, Operation: OpCreate, Timestamp: now}, true
	case !info.ModTime().Equal(p.modTime) || info.Size() != p.size:
		p.modTime, p.size = info.ModTime(), info.Size()
		return FileEvent{Path: p.path, Operation: OpModify, Timestamp: now}, true
	}
	return FileEvent{}, false
}
