package syncx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSemaphoreZeroInitialPermits(t *testing.T) {
	s := NewSemaphore(0, 1)
	require.False(t, s.TryAcquire())
	s.Release()
	require.True(t, s.TryAcquire())
}

func TestSemaphoreReleaseBeyondMaxIsIdempotent(t *testing.T) {
	s := NewSemaphore(1, 1)
	s.Release()
	s.Release()
	require.EqualValues(t, 1, s.Permits())
}

func TestSemaphoreFairnessUnderPressure(t *testing.T) {
	// permits=1, three waiters acquire in order 1,2,3 per the fairness
	// scenario: task 1 acquires outright, 2 and 3 park, and each release
	// wakes exactly the next FIFO waiter.
	s := NewSemaphore(1, 1)
	require.True(t, s.TryAcquire())

	var woken2, woken3 bool
	acquired2 := s.PollAcquire(WakerFunc(func() { woken2 = true }))
	require.False(t, acquired2)
	acquired3 := s.PollAcquire(WakerFunc(func() { woken3 = true }))
	require.False(t, acquired3)

	s.Release()
	require.True(t, woken2)
	require.False(t, woken3)
	require.True(t, s.TryAcquire())

	s.Release()
	require.True(t, woken3)
}
