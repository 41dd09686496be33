// Package telemetry aggregates answer outcomes for the /stats endpoint and
// the MCP corpus_status tool. Data stays local: counters in memory, flushed
// to an optional SQLite file.
package telemetry

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// OutcomeError counts requests that failed with an upstream error.
const OutcomeError qa.Outcome = "error"

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketUnder100ms LatencyBucket = "lt_100ms"
	BucketUnder500ms LatencyBucket = "lt_500ms"
	BucketUnder1s    LatencyBucket = "lt_1s"
	BucketUnder3s    LatencyBucket = "lt_3s"
	BucketSlow       LatencyBucket = "gte_3s"
)

// LatencyToBucket maps a request latency to its bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	switch {
	case d < 100*time.Millisecond:
		return BucketUnder100ms
	case d < 500*time.Millisecond:
		return BucketUnder500ms
	case d < time.Second:
		return BucketUnder1s
	case d < 3*time.Second:
		return BucketUnder3s
	default:
		return BucketSlow
	}
}

// TermCount is a canonical token and how often it appeared.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is a point-in-time copy of the metrics.
type Snapshot struct {
	Total          int64                   `json:"total"`
	Answered       int64                   `json:"answered"`
	Outcomes       map[qa.Outcome]int64    `json:"outcomes"`
	Latency        map[LatencyBucket]int64 `json:"latency"`
	Unanswered     []string                `json:"recent_unanswered"`
	UnansweredTerm []TermCount             `json:"unanswered_terms"`
	RepeatCount    int64                   `json:"repeat_count"`
	Since          time.Time               `json:"since"`
}

// AnswerRate returns the share of requests that got a corpus answer.
func (s *Snapshot) AnswerRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Answered) / float64(s.Total)
}

// Config configures AnswerMetrics.
type Config struct {
	// UnansweredCapacity bounds the recent unanswered question buffer.
	UnansweredCapacity int
	// TermsCapacity bounds the tracked unanswered terms.
	TermsCapacity int
	// RecentCapacity bounds the question hashes kept for repeat detection.
	RecentCapacity int
	// FlushInterval is how often counters are written to the store; 0
	// disables background flushing.
	FlushInterval time.Duration
}

// DefaultConfig returns the collector defaults.
func DefaultConfig() Config {
	return Config{
		UnansweredCapacity: 50,
		TermsCapacity:      200,
		RecentCapacity:     500,
		FlushInterval:      time.Minute,
	}
}

// Store persists flushed counters.
type Store interface {
	AddOutcomeCounts(date string, counts map[qa.Outcome]int64) error
	AddLatencyCounts(date string, counts map[LatencyBucket]int64) error
	AddTermCounts(terms map[string]int64) error
	AddUnanswered(questions []string) error
	Close() error
}

// AnswerMetrics implements qa.Recorder. It is safe for concurrent use.
type AnswerMetrics struct {
	tok *tokenize.Tokenizer
	cfg Config

	mu         sync.Mutex
	total      int64
	answered   int64
	repeats    int64
	outcomes   map[qa.Outcome]int64
	latency    map[LatencyBucket]int64
	terms      *lru.Cache[string, int64]
	recent     *lru.Cache[string, struct{}]
	unanswered *CircularBuffer[string]
	since      time.Time

	// counters not yet flushed
	pendingOutcomes map[qa.Outcome]int64
	pendingLatency  map[LatencyBucket]int64
	pendingTerms    map[string]int64
	pendingQs       []string

	store  Store
	stopCh chan struct{}
	done   chan struct{}
	closed bool
}

var _ qa.Recorder = (*AnswerMetrics)(nil)

// NewAnswerMetrics creates a collector. store may be nil.
func NewAnswerMetrics(store Store, tok *tokenize.Tokenizer, cfg Config) *AnswerMetrics {
	def := DefaultConfig()
	if cfg.UnansweredCapacity <= 0 {
		cfg.UnansweredCapacity = def.UnansweredCapacity
	}
	if cfg.TermsCapacity <= 0 {
		cfg.TermsCapacity = def.TermsCapacity
	}
	if cfg.RecentCapacity <= 0 {
		cfg.RecentCapacity = def.RecentCapacity
	}
	if tok == nil {
		tok = tokenize.Default()
	}

	terms, _ := lru.New[string, int64](cfg.TermsCapacity)
	recent, _ := lru.New[string, struct{}](cfg.RecentCapacity)

	m := &AnswerMetrics{
		tok:             tok,
		cfg:             cfg,
		outcomes:        make(map[qa.Outcome]int64),
		latency:         make(map[LatencyBucket]int64),
		terms:           terms,
		recent:          recent,
		unanswered:      NewCircularBuffer[string](cfg.UnansweredCapacity),
		since:           time.Now(),
		pendingOutcomes: make(map[qa.Outcome]int64),
		pendingLatency:  make(map[LatencyBucket]int64),
		pendingTerms:    make(map[string]int64),
		store:           store,
		stopCh:          make(chan struct{}),
		done:            make(chan struct{}),
	}

	if store != nil && cfg.FlushInterval > 0 {
		go m.flushLoop(cfg.FlushInterval)
	} else {
		close(m.done)
	}
	return m
}

func (m *AnswerMetrics) flushLoop(every time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := m.Flush(); err != nil {
				slog.Warn("telemetry_flush_failed", slog.String("error", err.Error()))
			}
		case <-m.stopCh:
			return
		}
	}
}

// Record counts one answered request.
func (m *AnswerMetrics) Record(ev qa.Event) {
	outcome := ev.Outcome
	if ev.Err != nil {
		outcome = OutcomeError
	}
	bucket := LatencyToBucket(ev.Latency)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	m.total++
	m.outcomes[outcome]++
	m.pendingOutcomes[outcome]++
	m.latency[bucket]++
	m.pendingLatency[bucket]++
	if outcome.Answered() {
		m.answered++
	}

	key := questionKey(ev.Question)
	if _, seen := m.recent.Get(key); seen {
		m.repeats++
	}
	m.recent.Add(key, struct{}{})

	if ev.Err != nil || outcome.Answered() {
		return
	}
	m.unanswered.Add(ev.Question)
	m.pendingQs = append(m.pendingQs, ev.Question)
	for _, t := range m.tok.Tokenize(ev.Question) {
		n, _ := m.terms.Get(t)
		m.terms.Add(t, n+1)
		m.pendingTerms[t]++
	}
}

func questionKey(q string) string {
	sum := sha256.Sum256([]byte(tokenize.StrictKey(q)))
	return hex.EncodeToString(sum[:16])
}

// Snapshot copies the current counters.
func (m *AnswerMetrics) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Snapshot{
		Total:       m.total,
		Answered:    m.answered,
		Outcomes:    make(map[qa.Outcome]int64, len(m.outcomes)),
		Latency:     make(map[LatencyBucket]int64, len(m.latency)),
		Unanswered:  m.unanswered.Items(),
		RepeatCount: m.repeats,
		Since:       m.since,
	}
	for k, v := range m.outcomes {
		s.Outcomes[k] = v
	}
	for k, v := range m.latency {
		s.Latency[k] = v
	}
	for _, k := range m.terms.Keys() {
		if n, ok := m.terms.Peek(k); ok {
			s.UnansweredTerm = append(s.UnansweredTerm, TermCount{Term: k, Count: n})
		}
	}
	sort.SliceStable(s.UnansweredTerm, func(i, j int) bool {
		if s.UnansweredTerm[i].Count != s.UnansweredTerm[j].Count {
			return s.UnansweredTerm[i].Count > s.UnansweredTerm[j].Count
		}
		return strings.Compare(s.UnansweredTerm[i].Term, s.UnansweredTerm[j].Term) < 0
	})
	return s
}

// Flush writes counters gathered since the last flush to the store.
func (m *AnswerMetrics) Flush() error {
	if m.store == nil {
		return nil
	}

	m.mu.Lock()
	outcomes, latency, terms, qs := m.pendingOutcomes, m.pendingLatency, m.pendingTerms, m.pendingQs
	m.pendingOutcomes = make(map[qa.Outcome]int64)
	m.pendingLatency = make(map[LatencyBucket]int64)
	m.pendingTerms = make(map[string]int64)
	m.pendingQs = nil
	m.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if err := m.store.AddOutcomeCounts(today, outcomes); err != nil {
		return err
	}
	if err := m.store.AddLatencyCounts(today, latency); err != nil {
		return err
	}
	if err := m.store.AddTermCounts(terms); err != nil {
		return err
	}
	return m.store.AddUnanswered(qs)
}

// Close stops background flushing, flushes once more and closes the store.
func (m *AnswerMetrics) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	<-m.done

	if err := m.Flush(); err != nil {
		return err
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
