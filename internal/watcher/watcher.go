package watcher

import (
	"time"
)

// Operation is a file system operation.
type Operation int

const (
	// OpCreate indicates the file appeared.
	OpCreate Operation = iota
	// OpModify indicates the file contents changed.
	OpModify
	// OpDelete indicates the file was removed.
	OpDelete
	// OpRename indicates the file was renamed away.
	OpRename
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is a change to a watched file.
type FileEvent struct {
	Path      string
	Operation Operation
	Timestamp time.Time
}

// Options configures a Watcher.
type Options struct {
	// DebounceWindow is the quiet period before a burst is delivered.
	DebounceWindow time.Duration

	// PollInterval is used when fsnotify cannot be started.
	PollInterval time.Duration

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 500 * time.Millisecond,
		PollInterval:   5 * time.Second,
	}
}

// WithDefaults fills zero values from DefaultOptions.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}
