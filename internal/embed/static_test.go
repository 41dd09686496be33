package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder(nil)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Perso.ai 요금제는 어떻게 되나요?")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "Perso.ai 요금제는 어떻게 되나요?")
	require.NoError(t, err)

	assert.Len(t, a, StaticDimensions)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, cosine(a, b), 1e-6)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	v, err := NewStaticEmbedder(nil).Embed(context.Background(), "고객센터 연락처")
	require.NoError(t, err)

	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestStaticEmbedder_ParaphraseCloserThanUnrelated(t *testing.T) {
	e := NewStaticEmbedder(nil)
	ctx := context.Background()

	q, _ := e.Embed(ctx, "요금제 가격이 궁금해요")
	para, _ := e.Embed(ctx, "요금제 가격 알려주세요")
	other, _ := e.Embed(ctx, "고객센터 연락처")

	assert.Greater(t, cosine(q, para), cosine(q, other))
}

func TestStaticEmbedder_BlankIsZero(t *testing.T) {
	v, err := NewStaticEmbedder(nil).Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticEmbedder_Batch(t *testing.T) {
	e := NewStaticEmbedder(nil)
	got, err := e.EmbedBatch(context.Background(), []string{"a b c", "d e f"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	single, _ := e.Embed(context.Background(), "d e f")
	assert.Equal(t, single, got[1])
}

func TestStaticEmbedder_Closed(t *testing.T) {
	e := NewStaticEmbedder(nil)
	require.NoError(t, e.Close())
	assert.False(t, e.Available(context.Background()))
	_, err := e.Embed(context.Background(), "x")
	assert.Error(t, err)
}
