package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events and emits them as one batch once the
// window passes without a new event. Per path:
//   - CREATE then MODIFY stays CREATE
//   - CREATE then DELETE cancels out
//   - DELETE then CREATE becomes MODIFY (file replaced)
//   - anything else keeps the latest operation
type Debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]FileEvent
	order   []string
	timer   *time.Timer
	output  chan []FileEvent
	stopped bool
}

// NewDebouncer creates a Debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]FileEvent),
		output:  make(chan []FileEvent, 4),
	}
}

// Add records an event and restarts the window.
func (d *Debouncer) Add(ev FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	prev, ok := d.pending[ev.Path]
	switch {
	case !ok:
		d.pending[ev.Path] = ev
		d.order = append(d.order, ev.Path)
	case prev.Operation == OpCreate && ev.Operation == OpModify:
		prev.Timestamp = ev.Timestamp
		d.pending[ev.Path] = prev
	case prev.Operation == OpCreate && ev.Operation == OpDelete:
		delete(d.pending, ev.Path)
	case prev.Operation == OpDelete && ev.Operation == OpCreate:
		ev.Operation = OpModify
		d.pending[ev.Path] = ev
	default:
		d.pending[ev.Path] = ev
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, p := range d.order {
		if ev, ok := d.pending[p]; ok {
			batch = append(batch, ev)
			delete(d.pending, p)
		}
	}
	d.order = d.order[:0]
	if len(batch) == 0 {
		return
	}

	select {
	case d.output <- batch:
	default:
		slog.Warn("watcher_batch_dropped", slog.Int("events", len(batch)))
	}
}

// Output delivers debounced batches. It is closed by Stop.
func (d *Debouncer) Output() <-chan []FileEvent {
	return d.output
}

// Stop discards pending events and closes Output. Safe to call twice.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
