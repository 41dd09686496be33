package qa

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
	"github.com/eunjujo120/perso-ai-chatbot/internal/exact"
	"github.com/eunjujo120/perso-ai-chatbot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenarioCorpus = []corpus.Entry{
	{Question: "What is Perso.ai?", Answer: "A video AI platform."},
	{Question: "How do I sign up?", Answer: "Visit signup.perso.ai."},
}

type stubEmbedder struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (s *stubEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

type stubRetriever struct {
	calls atomic.Int32
	limit atomic.Int32
	hits  []store.Hit
	err   error
	delay time.Duration
}

func (s *stubRetriever) Search(ctx context.Context, _ []float32, limit int) ([]store.Hit, error) {
	s.calls.Add(1)
	s.limit.Store(int32(limit))
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.hits, s.err
}

// tableScorer returns a fixed lexical score per stored question.
type tableScorer map[string]float64

func (t tableScorer) Similarity(_, stored string) float64 {
	return t[stored]
}

type captureRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureRecorder) Record(ev Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func hit(q, a string, score float64) store.Hit {
	return store.Hit{Score: score, Payload: &store.Payload{Question: q, Answer: a}}
}

func matching() config.MatchingConfig {
	return config.NewConfig().Matching
}

func newTestEngine(entries []corpus.Entry, emb Embedder, ret Retriever, cfg config.MatchingConfig, opts ...Option) *Engine {
	return NewEngine(exact.Static(exact.Build(entries)), emb, ret, cfg, opts...)
}

func TestEngine_ExactMatchScenario(t *testing.T) {
	// Given the two-entry corpus and subsystems that would fail if called
	emb := &stubEmbedder{err: errors.New("must not be called")}
	ret := &stubRetriever{err: errors.New("must not be called")}
	e := newTestEngine(scenarioCorpus, emb, ret, matching())

	// When the stored question is asked with extra punctuation
	resp, err := e.Answer(context.Background(), "What is Perso.ai??")

	// Then the exact path answers with score 1.0
	require.NoError(t, err)
	assert.Equal(t, "A video AI platform.", resp.Answer)
	require.NotNil(t, resp.MatchedQuestion)
	assert.Equal(t, "What is Perso.ai?", *resp.MatchedQuestion)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 1.0, *resp.Score)
	assert.Equal(t, OutcomeExact, resp.Outcome)
	assert.Zero(t, emb.calls.Load())
	assert.Zero(t, ret.calls.Load())
}

func TestEngine_ExactMatchIgnoresSubsystems(t *testing.T) {
	for _, q := range []string{"how do i sign up", "  HOW DO I SIGN UP?! ", "Howdo I signup."} {
		e := newTestEngine(scenarioCorpus, &stubEmbedder{}, &stubRetriever{}, matching())
		resp, err := e.Answer(context.Background(), q)
		require.NoError(t, err, q)
		assert.Equal(t, "Visit signup.perso.ai.", resp.Answer, q)
		assert.Equal(t, 1.0, *resp.Score, q)
	}
}

func TestEngine_ParaphraseScenario(t *testing.T) {
	// Given retrieval returning the first entry at vector score 0.8 and a
	// lexical score of 0.5
	ret := &stubRetriever{hits: []store.Hit{hit("What is Perso.ai?", "A video AI platform.", 0.8)}}
	scorer := tableScorer{"What is Perso.ai?": 0.5}
	e := newTestEngine(scenarioCorpus, &stubEmbedder{}, ret, matching(), WithScorer(scorer))

	// When a paraphrase is asked
	resp, err := e.Answer(context.Background(), "Tell me about Perso.ai")

	// Then the reranking branch accepts with 0.4*0.8 + 0.6*0.5
	require.NoError(t, err)
	assert.Equal(t, "A video AI platform.", resp.Answer)
	require.NotNil(t, resp.MatchedQuestion)
	assert.Equal(t, "What is Perso.ai?", *resp.MatchedQuestion)
	assert.InDelta(t, 0.62, *resp.Score, 1e-9)
	assert.Equal(t, OutcomeHybrid, resp.Outcome)
	assert.Equal(t, int32(20), ret.limit.Load())
}

func TestEngine_UnrelatedScenario(t *testing.T) {
	// Given candidates with high vector scores but no lexical overlap
	ret := &stubRetriever{hits: []store.Hit{
		hit("What is Perso.ai?", "A video AI platform.", 0.93),
		hit("How do I sign up?", "Visit signup.perso.ai.", 0.90),
	}}
	e := newTestEngine(scenarioCorpus, &stubEmbedder{}, ret, matching())

	// When an unrelated question is asked
	resp, err := e.Answer(context.Background(), "What's the weather today?")

	// Then the fallback is returned without a matched question
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackMessage, resp.Answer)
	assert.Nil(t, resp.MatchedQuestion)
	require.NotNil(t, resp.Score)
	assert.Less(t, *resp.Score, 0.15)
	assert.Equal(t, OutcomeLowLexical, resp.Outcome)
}

func TestEngine_LowLexicalRejectsHighVector(t *testing.T) {
	ret := &stubRetriever{hits: []store.Hit{hit("q1", "a1", 0.99), hit("q2", "a2", 0.98)}}
	scorer := tableScorer{"q1": 0.10, "q2": 0.149}
	e := newTestEngine(nil, &stubEmbedder{}, ret, matching(), WithScorer(scorer))

	resp, err := e.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Nil(t, resp.MatchedQuestion)
	assert.InDelta(t, 0.149, *resp.Score, 1e-12)
	assert.Equal(t, OutcomeLowLexical, resp.Outcome)
}

func TestEngine_StrongLexicalIgnoresVector(t *testing.T) {
	ret := &stubRetriever{hits: []store.Hit{hit("q1", "a1", 0.99), hit("q2", "a2", 0.10)}}
	scorer := tableScorer{"q1": 0.30, "q2": 0.60}
	e := newTestEngine(nil, &stubEmbedder{}, ret, matching(), WithScorer(scorer))

	resp, err := e.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "a2", resp.Answer)
	assert.Equal(t, "q2", *resp.MatchedQuestion)
	assert.InDelta(t, 0.60, *resp.Score, 1e-12)
	assert.Equal(t, OutcomeLexicalStrong, resp.Outcome)
}

func TestEngine_NoCandidates(t *testing.T) {
	tests := map[string][]store.Hit{
		"empty": nil,
		"malformed only": {
			{Score: 0.9},
			{Score: 0.8, Payload: &store.Payload{Question: "q"}},
			{Score: 0.7, Payload: &store.Payload{Answer: "a"}},
			{Score: 0.6, Payload: &store.Payload{Question: "  ", Answer: "a"}},
		},
	}
	for name, hits := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(nil, &stubEmbedder{}, &stubRetriever{hits: hits}, matching())
			resp, err := e.Answer(context.Background(), "anything")
			require.NoError(t, err)
			assert.Equal(t, DefaultFallbackMessage, resp.Answer)
			assert.Nil(t, resp.MatchedQuestion)
			assert.Nil(t, resp.Score)
			assert.Equal(t, OutcomeNoCandidates, resp.Outcome)
		})
	}
}

func TestEngine_MalformedCandidatesSkipped(t *testing.T) {
	ret := &stubRetriever{hits: []store.Hit{
		{Score: 0.99},
		hit("q2", "a2", 0.5),
	}}
	scorer := tableScorer{"q2": 0.7}
	e := newTestEngine(nil, &stubEmbedder{}, ret, matching(), WithScorer(scorer))

	resp, err := e.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "a2", resp.Answer)
}

func TestEngine_MatchedQuestionIsStoredVerbatim(t *testing.T) {
	ret := &stubRetriever{hits: []store.Hit{hit(" q2 ", "a2 ", 0.5)}}
	scorer := tableScorer{" q2 ": 0.7}
	e := newTestEngine(nil, &stubEmbedder{}, ret, matching(), WithScorer(scorer))

	resp, err := e.Answer(context.Background(), "anything")
	require.NoError(t, err)
	require.NotNil(t, resp.MatchedQuestion)
	assert.Equal(t, " q2 ", *resp.MatchedQuestion)
	assert.Equal(t, "a2 ", resp.Answer)
}

func TestEngine_FallbackMessageOverride(t *testing.T) {
	cfg := matching()
	cfg.FallbackMessage = "모르겠어요"
	e := newTestEngine(nil, &stubEmbedder{}, &stubRetriever{}, cfg)
	resp, err := e.Answer(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "모르겠어요", resp.Answer)

	e = newTestEngine(nil, &stubEmbedder{}, &stubRetriever{}, cfg, WithFallbackMessage("unknown"))
	resp, _ = e.Answer(context.Background(), "x")
	assert.Equal(t, "unknown", resp.Answer)
}

func TestEngine_EmbeddingFailure(t *testing.T) {
	ret := &stubRetriever{}
	e := newTestEngine(nil, &stubEmbedder{err: errors.New("quota exceeded")}, ret, matching())

	_, err := e.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, qaerrors.IsEmbeddingError(err))
	assert.False(t, qaerrors.IsTimeout(err))
	assert.Contains(t, err.Error(), "Embedding error: quota exceeded")
	assert.Zero(t, ret.calls.Load())
}

func TestEngine_RetrievalFailure(t *testing.T) {
	e := newTestEngine(nil, &stubEmbedder{}, &stubRetriever{err: errors.New("connection refused")}, matching())

	_, err := e.Answer(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, qaerrors.IsRetrievalError(err))
	assert.Contains(t, err.Error(), "Vector search error: connection refused")
}

func TestEngine_Timeouts(t *testing.T) {
	cfg := matching()
	cfg.EmbedTimeout = 20 * time.Millisecond
	cfg.SearchTimeout = 20 * time.Millisecond

	t.Run("embed", func(t *testing.T) {
		e := newTestEngine(nil, &stubEmbedder{delay: time.Second}, &stubRetriever{}, cfg)
		_, err := e.Answer(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, qaerrors.IsEmbeddingError(err))
		assert.True(t, qaerrors.IsTimeout(err))
		assert.Equal(t, qaerrors.ErrCodeEmbeddingTimeout, qaerrors.GetCode(err))
	})

	t.Run("search", func(t *testing.T) {
		e := newTestEngine(nil, &stubEmbedder{}, &stubRetriever{delay: time.Second}, cfg)
		_, err := e.Answer(context.Background(), "q")
		require.Error(t, err)
		assert.True(t, qaerrors.IsRetrievalError(err))
		assert.Equal(t, qaerrors.ErrCodeRetrievalTimeout, qaerrors.GetCode(err))
	})
}

func TestEngine_RecorderSeesEveryRequest(t *testing.T) {
	rec := &captureRecorder{}
	ret := &stubRetriever{hits: []store.Hit{hit("q1", "a1", 0.9)}}
	e := newTestEngine(scenarioCorpus, &stubEmbedder{}, ret, matching(),
		WithScorer(tableScorer{"q1": 0.05}), WithRecorder(rec))

	_, _ = e.Answer(context.Background(), "What is Perso.ai?")
	_, _ = e.Answer(context.Background(), "unrelated")

	require.Len(t, rec.events, 2)
	assert.Equal(t, OutcomeExact, rec.events[0].Outcome)
	assert.Equal(t, OutcomeLowLexical, rec.events[1].Outcome)
	assert.Equal(t, 1, rec.events[1].Candidates)
	assert.Equal(t, "unrelated", rec.events[1].Question)
}

func TestEngine_IndexErrorPropagates(t *testing.T) {
	loader := corpus.LoaderFunc(func(context.Context) ([]corpus.Entry, error) {
		return nil, qaerrors.CorpusError("broken sheet", nil)
	})
	e := NewEngine(exact.NewManager(loader), &stubEmbedder{}, &stubRetriever{}, matching())

	_, err := e.Answer(context.Background(), "q")
	require.Error(t, err)
	assert.Equal(t, qaerrors.ErrCodeCorpusInvalid, qaerrors.GetCode(err))
}

func TestEngine_ConcurrentAnswers(t *testing.T) {
	ret := &stubRetriever{hits: []store.Hit{hit("q1", "a1", 0.8)}}
	e := newTestEngine(scenarioCorpus, &stubEmbedder{}, ret, matching(), WithScorer(tableScorer{"q1": 0.5}))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := "paraphrase"
			if i%2 == 0 {
				q = "How do I sign up?"
			}
			resp, err := e.Answer(context.Background(), q)
			assert.NoError(t, err)
			assert.NotNil(t, resp.MatchedQuestion)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(16), ret.calls.Load())
}
