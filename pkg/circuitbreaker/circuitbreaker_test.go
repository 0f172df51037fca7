package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTripsAfterConsecutiveFailures(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 3, Timeout: time.Hour})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		err := cb.Execute(func() error { return boom })
		assert.Equal(t, boom, err)
	}

	err := cb.Execute(func() error { return nil })
	assert.Equal(t, ErrOpen, err)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 2, Timeout: time.Hour})
	boom := errors.New("boom")

	require.Error(t, cb.Execute(func() error { return boom }))
	require.NoError(t, cb.Execute(func() error { return nil }))
	require.Error(t, cb.Execute(func() error { return boom }))

	// Still closed, the earlier success reset the streak
	assert.NoError(t, cb.Execute(func() error { return nil }))
}

func TestHalfOpenProbeAfterTimeout(t *testing.T) {
	cb := New(Settings{Name: "test", MaxFailures: 1, Timeout: 10 * time.Millisecond})
	boom := errors.New("boom")

	require.Error(t, cb.Execute(func() error { return boom }))
	assert.Equal(t, ErrOpen, cb.Execute(func() error { return nil }))

	time.Sleep(20 * time.Millisecond)

	// Probe is allowed through and a success closes the breaker
	assert.NoError(t, cb.Execute(func() error { return nil }))
	assert.NoError(t, cb.Execute(func() error { return nil }))
}
