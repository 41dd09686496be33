package store

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

var fixturePoints = []Point{
	{ID: 1, Vector: []float32{1, 0, 0}, Payload: Payload{Question: "요금제는?", Answer: "월 구독", Source: "xlsx"}},
	{ID: 2, Vector: []float32{0, 1, 0}, Payload: Payload{Question: "고객센터는?", Answer: "이메일", Source: "xlsx"}},
	{ID: 3, Vector: []float32{0.9, 0.1, 0}, Payload: Payload{Question: "가격은?", Answer: "무료 체험", Source: "xlsx"}},
}

type storeFactory func(t *testing.T, dir string) VectorStore

func backends() map[string]storeFactory {
	return map[string]storeFactory{
		"sqlite": func(t *testing.T, dir string) VectorStore {
			s, err := NewSQLiteStore(filepath.Join(dir, "vectors.db"))
			require.NoError(t, err)
			return s
		},
		"hnsw": func(t *testing.T, dir string) VectorStore {
			s, err := NewHNSWStore(filepath.Join(dir, "vectors.hnsw"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestVectorStore_Contract(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer func() { _ = s.Close() }()

			require.NoError(t, s.Replace(ctx, 3, fixturePoints))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			hits, err := s.Search(ctx, []float32{2, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, hits, 2)
			assert.Equal(t, uint64(1), hits[0].ID)
			assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
			assert.Equal(t, "월 구독", hits[0].Payload.Answer)
			assert.Equal(t, uint64(3), hits[1].ID)
			assert.Greater(t, hits[0].Score, hits[1].Score)
		})
	}
}

func TestVectorStore_UpsertReplaces(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer func() { _ = s.Close() }()

			require.NoError(t, s.Upsert(ctx, fixturePoints))
			require.NoError(t, s.Upsert(ctx, []Point{
				{ID: 2, Vector: []float32{0, 0, 1}, Payload: Payload{Question: "환불은?", Answer: "7일 이내"}},
			}))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			hits, err := s.Search(ctx, []float32{0, 0, 1}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, uint64(2), hits[0].ID)
			assert.Equal(t, "환불은?", hits[0].Payload.Question)
		})
	}
}

var replacementPoints = []Point{
	{ID: 1, Vector: []float32{0, 0, 1}, Payload: Payload{Question: "환불은?", Answer: "7일 이내"}},
	{ID: 2, Vector: []float32{0, 1, 1}, Payload: Payload{Question: "해지는?", Answer: "언제든지"}},
}

func TestVectorStore_ReplaceSwapsContents(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer func() { _ = s.Close() }()

			require.NoError(t, s.Replace(ctx, 3, fixturePoints))
			require.NoError(t, s.Replace(ctx, 3, replacementPoints))

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			hits, err := s.Search(ctx, []float32{1, 0, 0}, 5)
			require.NoError(t, err)
			for _, h := range hits {
				assert.NotEqual(t, "요금제는?", h.Payload.Question)
			}

			require.NoError(t, s.Replace(ctx, 3, nil))
			n, err = s.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestVectorStore_FailedReplaceKeepsPoints(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer func() { _ = s.Close() }()
			require.NoError(t, s.Replace(ctx, 3, fixturePoints))

			// Given a replacement with a vector of the wrong length
			bad := append([]Point{}, replacementPoints...)
			bad = append(bad, Point{ID: 9, Vector: []float32{1, 0}})

			// When it is applied
			err := s.Replace(ctx, 3, bad)

			// Then it fails and the previous points still answer
			assert.Equal(t, qaerrors.ErrCodeDimensionMismatch, qaerrors.GetCode(err))
			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			hits, err := s.Search(ctx, []float32{1, 0, 0}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "요금제는?", hits[0].Payload.Question)
		})
	}
}

func TestVectorStore_ReplaceNeverShowsEmptyIndex(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer func() { _ = s.Close() }()
			require.NoError(t, s.Replace(ctx, 3, fixturePoints))

			var (
				wg    sync.WaitGroup
				stop  atomic.Bool
				empty atomic.Int32
				fails atomic.Int32
			)
			for range 4 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for !stop.Load() {
						hits, err := s.Search(ctx, []float32{1, 1, 1}, 5)
						if err != nil {
							fails.Add(1)
							continue
						}
						if len(hits) == 0 {
							empty.Add(1)
						}
					}
				}()
			}

			for i := range 20 {
				pts := fixturePoints
				if i%2 == 0 {
					pts = replacementPoints
				}
				require.NoError(t, s.Replace(ctx, 3, pts))
			}
			stop.Store(true)
			wg.Wait()

			assert.Zero(t, empty.Load(), "search saw an empty index during a replace")
			assert.Zero(t, fails.Load())
		})
	}
}

func TestVectorStore_DimensionMismatch(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, t.TempDir())
			defer func() { _ = s.Close() }()

			require.NoError(t, s.Replace(ctx, 3, fixturePoints))

			_, err := s.Search(ctx, []float32{1, 0}, 1)
			require.Error(t, err)
			assert.Equal(t, qaerrors.ErrCodeDimensionMismatch, qaerrors.GetCode(err))

			err = s.Upsert(ctx, []Point{{ID: 9, Vector: []float32{1}}})
			assert.Equal(t, qaerrors.ErrCodeDimensionMismatch, qaerrors.GetCode(err))
		})
	}
}

func TestVectorStore_Reopen(t *testing.T) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			s := open(t, dir)
			require.NoError(t, s.Replace(ctx, 3, fixturePoints))
			require.NoError(t, s.Close())

			s = open(t, dir)
			defer func() { _ = s.Close() }()

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			hits, err := s.Search(ctx, []float32{0, 1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "고객센터는?", hits[0].Payload.Question)
		})
	}
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := NewSQLiteStore("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, fixturePoints))
	st := s.Stats(ctx)
	assert.Equal(t, Stats{Backend: "sqlite", Points: 3, Dimensions: 3}, st)
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
}

func TestPointsFrom(t *testing.T) {
	pts, err := PointsFrom([]string{"q1", "q2"}, []string{"a1", "a2"}, [][]float32{{1}, {2}}, "")
	require.NoError(t, err)
	require.Len(t, pts, 2)
	assert.Equal(t, uint64(1), pts[0].ID)
	assert.Equal(t, uint64(2), pts[1].ID)
	assert.Equal(t, DefaultSource, pts[1].Payload.Source)

	_, err = PointsFrom([]string{"q"}, nil, nil, "")
	assert.Error(t, err)
}

func TestPayload_Complete(t *testing.T) {
	var nilPayload *Payload
	assert.False(t, nilPayload.Complete())
	assert.False(t, (&Payload{Question: "q"}).Complete())
	assert.False(t, (&Payload{Answer: "a"}).Complete())
	assert.True(t, (&Payload{Question: "q", Answer: "a"}).Complete())
	assert.True(t, (&Payload{Question: " ", Answer: "a"}).Complete())
}
