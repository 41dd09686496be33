package exact

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
)

var sample = []corpus.Entry{
	{Question: "What is Perso.ai?", Answer: "A video AI platform."},
	{Question: "How do I sign up?", Answer: "Visit signup.perso.ai."},
}

func TestIndex_LookupStrictlyNormalized(t *testing.T) {
	idx := Build(sample)

	tests := []struct {
		query string
		want  string
		found bool
	}{
		{"What is Perso.ai??", "What is Perso.ai?", true},
		{"  what IS perso.ai ", "What is Perso.ai?", true},
		{"howdoisignup", "How do I sign up?", true},
		{"What is Perso", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			m, ok := idx.Lookup(tt.query)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, m.Question)
		})
	}

	m, _ := idx.Lookup("What is Perso.ai??")
	assert.Equal(t, "A video AI platform.", m.Answer)
}

func TestBuild_LastWriteWinsAndCountsCollisions(t *testing.T) {
	// Given: two questions that normalize to the same key
	idx := Build([]corpus.Entry{
		{Question: "가입 방법?", Answer: "first"},
		{Question: "Other", Answer: "x"},
		{Question: "가입방법!", Answer: "second"},
	})

	// Then: the later entry wins and the collision is reported
	m, ok := idx.Lookup("가입 방법")
	require.True(t, ok)
	assert.Equal(t, "second", m.Answer)
	assert.Equal(t, "가입방법!", m.Question)

	stats := idx.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, 2, stats.Keys)
	require.Len(t, stats.Collisions, 1)
	assert.Equal(t, Collision{Key: "가입방법", Winner: "가입방법!", Loser: "가입 방법?"}, stats.Collisions[0])
}

func TestIndex_NilSafe(t *testing.T) {
	var idx *Index
	_, ok := idx.Lookup("x")
	assert.False(t, ok)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, Stats{}, idx.Stats())
}

type countingLoader struct {
	calls   atomic.Int32
	entries []corpus.Entry
	err     error
	gate    chan struct{}
}

func (l *countingLoader) Load(ctx context.Context) ([]corpus.Entry, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.entries, l.err
}

func TestManager_ConcurrentFirstAccessBuildsOnce(t *testing.T) {
	loader := &countingLoader{entries: sample, gate: make(chan struct{})}
	m := NewManager(loader)

	var wg sync.WaitGroup
	results := make([]*Index, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := m.Current(context.Background())
			assert.NoError(t, err)
			results[i] = idx
		}(i)
	}
	close(loader.gate)
	wg.Wait()

	assert.Equal(t, int32(1), loader.calls.Load())
	for _, idx := range results {
		assert.Same(t, results[0], idx)
	}
	assert.False(t, m.BuiltAt().IsZero())
}

func TestManager_FailedBuildIsRetried(t *testing.T) {
	loader := &countingLoader{err: errors.New("disk error")}
	m := NewManager(loader)

	_, err := m.Current(context.Background())
	require.Error(t, err)
	assert.True(t, m.BuiltAt().IsZero())

	loader.err = nil
	loader.entries = sample
	idx, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, int32(2), loader.calls.Load())
}

func TestManager_ReloadSwapsAtomically(t *testing.T) {
	loader := &countingLoader{entries: sample}
	m := NewManager(loader)

	before, err := m.Current(context.Background())
	require.NoError(t, err)

	loader.entries = []corpus.Entry{{Question: "New question", Answer: "New answer"}}
	after, err := m.Reload(context.Background())
	require.NoError(t, err)

	current, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, after, current)

	// The old snapshot stays intact for readers still holding it.
	_, ok := before.Lookup("What is Perso.ai?")
	assert.True(t, ok)
	_, ok = current.Lookup("What is Perso.ai?")
	assert.False(t, ok)
}

func TestManager_ReloadErrorKeepsCurrent(t *testing.T) {
	loader := &countingLoader{entries: sample}
	m := NewManager(loader)
	before, err := m.Current(context.Background())
	require.NoError(t, err)

	loader.err = errors.New("corrupt")
	_, err = m.Reload(context.Background())
	require.Error(t, err)

	current, err := m.Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, before, current)
}

func TestStatic(t *testing.T) {
	idx := Build(sample)
	got, err := Static(idx).Current(context.Background())
	require.NoError(t, err)
	assert.Same(t, idx, got)
}
