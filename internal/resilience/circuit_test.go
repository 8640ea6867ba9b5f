package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuit_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	fail := func(context.Context) error { return errors.New("boom") }

	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, CircuitClosed, cb.State())

	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuit_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	fail := func(context.Context) error { return errors.New("boom") }
	ok := func(context.Context) error { return nil }

	require.Error(t, cb.Execute(context.Background(), fail))
	require.NoError(t, cb.Execute(context.Background(), ok))
	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuit_HalfOpenProbeRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errors.New("boom") }))
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	require.NoError(t, cb.Execute(context.Background(), func(context.Context) error { return nil }))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuit_HalfOpenProbeFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Minute})
	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errors.New("boom") }))
	now = now.Add(2 * time.Minute)

	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errors.New("still down") }))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuit_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitConfig{FailureThreshold: 1, ResetTimeout: time.Hour})
	require.Error(t, cb.Execute(context.Background(), func(context.Context) error { return errors.New("boom") }))
	assert.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
}
