package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-widget-demo/engine/pkg/logger"
)

func testLogger() *logger.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = "error"
	return logger.New(cfg)
}

func newBreaker() *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: 3,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}, testLogger())
}

var errUpstream = errors.New("upstream unavailable")

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := newBreaker()
	fail := func() error { return errUpstream }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(fail), errUpstream)
	}
	assert.Equal(t, StateOpen, cb.State())

	// Calls now short-circuit without touching the upstream
	called := false
	err := cb.Execute(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newBreaker()

	require.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	require.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	require.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerProbesAndClosesAfterRetryTimeout(t *testing.T) {
	cb := newBreaker()

	base := time.Now()
	cb.SetClock(func() time.Time { return base })

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errUpstream })
	}
	require.Equal(t, StateOpen, cb.State())

	// Upstream recovers; after the retry timeout the breaker probes
	cb.SetClock(func() time.Time { return base.Add(31 * time.Second) })

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := newBreaker()

	base := time.Now()
	cb.SetClock(func() time.Time { return base })

	for i := 0; i < 3; i++ {
		cb.Execute(func() error { return errUpstream })
	}

	cb.SetClock(func() time.Time { return base.Add(31 * time.Second) })
	require.ErrorIs(t, cb.Execute(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, StateOpen, cb.State())
}
