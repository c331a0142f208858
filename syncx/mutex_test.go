package syncx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMutexTryLockThenContended(t *testing.T) {
	m := NewMutex()
	require.True(t, m.TryLock())
	require.False(t, m.TryLock())
}

func TestMutexPollLockParksThenWakesOnUnlock(t *testing.T) {
	m := NewMutex()
	require.True(t, m.TryLock())

	woken := false
	acquired := m.PollLock(WakerFunc(func() { woken = true }))
	require.False(t, acquired)

	m.Unlock()
	require.True(t, woken)
	require.True(t, m.TryLock())
}

func TestMutexHandoffScenario(t *testing.T) {
	// Mirrors the mutex handoff scenario: A try-locks, B polls and parks,
	// A unlocks, B's waker fires, B's next poll acquires.
	m := NewMutex()
	require.True(t, m.TryLock())

	bWoken := false
	acquired := m.PollLock(WakerFunc(func() { bWoken = true }))
	require.False(t, acquired)

	m.Unlock()
	require.True(t, bWoken)

	acquired = m.PollLock(WakerFunc(func() {}))
	require.True(t, acquired)
}
