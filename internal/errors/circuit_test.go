package errors

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing() (int, error) { return 0, errors.New("upstream down") }
func succeeding() (int, error) { return 42, nil }

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	// Given: a breaker that trips after 3 failures
	cb := NewCircuitBreaker("embed", WithMaxFailures(3))

	// When: three calls fail
	for i := 0; i < 3; i++ {
		_, _ = Execute(cb, failing)
	}

	// Then: the circuit is open and calls are rejected without running
	assert.Equal(t, StateOpen, cb.State())
	called := false
	_, err := Execute(cb, func() (int, error) {
		called = true
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenTrial(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	cb := NewCircuitBreaker("search",
		WithMaxFailures(1),
		WithResetTimeout(time.Second),
		withClock(clock.Now),
	)

	_, _ = Execute(cb, failing)
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	// A failed trial call reopens immediately.
	_, _ = Execute(cb, failing)
	assert.Equal(t, StateOpen, cb.State())

	clock.Advance(2 * time.Second)
	got, err := Execute(cb, succeeding)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker("embed", WithMaxFailures(3))

	_, _ = Execute(cb, failing)
	_, _ = Execute(cb, failing)
	_, _ = Execute(cb, succeeding)
	_, _ = Execute(cb, failing)

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 1, cb.Failures())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
