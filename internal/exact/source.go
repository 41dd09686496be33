package exact

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
)

// Source provides the index a request should read.
type Source interface {
	Current(ctx context.Context) (*Index, error)
}

// Static returns a Source that always serves idx.
func Static(idx *Index) Source {
	return staticSource{idx: idx}
}

type staticSource struct {
	idx *Index
}

func (s staticSource) Current(context.Context) (*Index, error) {
	return s.idx, nil
}

// Manager builds the index from a corpus loader on first use and swaps in a
// rebuilt index on Reload. Readers always see a fully built index.
type Manager struct {
	loader corpus.Loader
	logger *slog.Logger

	current atomic.Pointer[Index]
	builtAt atomic.Int64
	group   singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for build events.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager. Nothing is loaded until Current or Reload.
func NewManager(loader corpus.Loader, opts ...ManagerOption) *Manager {
	m := &Manager{
		loader: loader,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the live index, building it once if none exists.
// Concurrent first callers share a single build.
func (m *Manager) Current(ctx context.Context) (*Index, error) {
	if idx := m.current.Load(); idx != nil {
		return idx, nil
	}

	v, err, _ := m.group.Do("build", func() (any, error) {
		if idx := m.current.Load(); idx != nil {
			return idx, nil
		}
		entries, err := m.loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		idx := m.install(entries)
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Reload loads the corpus again and atomically replaces the index.
func (m *Manager) Reload(ctx context.Context) (*Index, error) {
	entries, err := m.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	return m.Replace(entries), nil
}

// Replace builds an index from entries already loaded and swaps it in.
func (m *Manager) Replace(entries []corpus.Entry) *Index {
	return m.install(entries)
}

// BuiltAt returns when the live index was installed, zero if never.
func (m *Manager) BuiltAt() time.Time {
	ns := m.builtAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (m *Manager) install(entries []corpus.Entry) *Index {
	idx := Build(entries)
	stats := idx.Stats()
	for _, c := range stats.Collisions {
		m.logger.Warn("exact_index_collision",
			slog.String("key", c.Key),
			slog.String("kept", c.Winner),
			slog.String("replaced", c.Loser))
	}

	m.current.Store(idx)
	m.builtAt.Store(time.Now().UnixNano())

	m.logger.Info("exact_index_built",
		slog.Int("entries", stats.Entries),
		slog.Int("keys", stats.Keys),
		slog.Int("collisions", len(stats.Collisions)))
	return idx
}
