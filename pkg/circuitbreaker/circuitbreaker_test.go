package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStore = errors.New("recording store unreachable")

func testConfig() Config {
	return Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             20 * time.Millisecond,
		MaxRequestsHalfOpen: 1,
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := cb.Execute(ctx, func() error { return errStore })
		require.ErrorIs(t, err, errStore)
	}

	assert.Equal(t, StateOpen, cb.GetState())

	err := cb.Execute(ctx, func() error { return nil })
	var open ErrOpen
	assert.ErrorAs(t, err, &open)
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return errStore })
	}
	require.Equal(t, StateOpen, cb.GetState())

	time.Sleep(30 * time.Millisecond)

	err := cb.Execute(ctx, func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return errStore })
	}
	time.Sleep(30 * time.Millisecond)

	err := cb.Execute(ctx, func() error { return errStore })
	require.ErrorIs(t, err, errStore)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := New(testConfig())
	ctx := context.Background()

	_ = cb.Execute(ctx, func() error { return errStore })
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	_ = cb.Execute(ctx, func() error { return errStore })

	assert.Equal(t, StateClosed, cb.GetState())
}
