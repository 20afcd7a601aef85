package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestExecutePassesThroughSuccess(t *testing.T) {
	cb := New("test", 3, time.Second, testLogger())

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecutePassesThroughFunctionError(t *testing.T) {
	cb := New("test", 3, time.Second, testLogger())
	boom := errors.New("boom")

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateClosed, cb.State())
}

func TestOpensAfterMaxFailures(t *testing.T) {
	cb := New("test", 2, time.Minute, testLogger())
	boom := errors.New("boom")
	fail := func(ctx context.Context) error { return boom }

	require.Error(t, cb.Execute(context.Background(), fail))
	require.Error(t, cb.Execute(context.Background(), fail))
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		t.Fatal("function must not run while breaker is open")
		return nil
	})
	assert.True(t, IsCircuitBreakerError(err))
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", 2, time.Minute, testLogger())
	boom := errors.New("boom")

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return boom }))
	require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return boom }))

	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New("test", 1, 10*time.Millisecond, testLogger())
	boom := errors.New("boom")

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return boom }))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	ok := func(ctx context.Context) error { return nil }
	for i := 0; i < halfOpenMaxCalls; i++ {
		require.NoError(t, cb.Execute(context.Background(), ok))
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", 1, 10*time.Millisecond, testLogger())
	boom := errors.New("boom")

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return boom }))
	time.Sleep(20 * time.Millisecond)

	require.Error(t, cb.Execute(context.Background(), func(ctx context.Context) error { return boom }))
	assert.Equal(t, StateOpen, cb.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "OPEN", StateOpen.String())
	assert.Equal(t, "HALF_OPEN", StateHalfOpen.String())
}
