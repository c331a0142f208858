package task

import (
	"testing"

	"github.com/sovelma/kernel/syncx"
	"github.com/stretchr/testify/require"
)

func TestSpawnAndRunToCompletion(t *testing.T) {
	e := NewExecutor()
	y := &YieldNow{}
	id, ok := e.Spawn(y, Normal)
	require.True(t, ok)
	require.EqualValues(t, 1, id)

	// First poll: yields (pending), re-queues itself.
	polled := e.RunReadyTasks()
	require.Equal(t, 1, polled)
	require.Equal(t, 1, e.TaskCount())

	// Second poll: ready, removed from the task map.
	polled = e.RunReadyTasks()
	require.Equal(t, 1, polled)
	require.Equal(t, 0, e.TaskCount())
}

func TestCooperativeYieldAlternatesTwoTasks(t *testing.T) {
	// Mirrors the "cooperative yield" scenario: over ten outer iterations
	// with two same-priority tasks each repeatedly yielding, both are
	// polled the same number of times.
	e := NewExecutor()
	countA, countB := 0, 0

	var a, b *repeatYield
	a = &repeatYield{onPoll: func() { countA++ }}
	b = &repeatYield{onPoll: func() { countB++ }}
	e.Spawn(a, Normal)
	e.Spawn(b, Normal)

	for i := 0; i < 10; i++ {
		e.RunReadyTasks()
	}

	require.Equal(t, countA, countB)
}

// repeatYield polls Pending forever, tracking invocation count via onPoll.
type repeatYield struct {
	onPoll func()
}

func (r *repeatYield) Poll(w syncx.Waker) bool {
	r.onPoll()
	w.Wake()
	return false
}

func TestPriorityOrderingDrainsHighestFirst(t *testing.T) {
	e := NewExecutor()
	var order []string

	mk := func(name string) *onceFuture {
		return &onceFuture{onPoll: func() { order = append(order, name) }}
	}
	e.Spawn(mk("idle"), Idle)
	e.Spawn(mk("critical"), Critical)
	e.Spawn(mk("normal"), Normal)
	e.Spawn(mk("high"), High)

	e.RunReadyTasks()
	require.Equal(t, []string{"critical", "high", "normal", "idle"}, order)
}

type onceFuture struct {
	onPoll func()
}

func (o *onceFuture) Poll(w syncx.Waker) bool {
	o.onPoll()
	return true
}

func TestSpawnDropsWhenQueueFull(t *testing.T) {
	e := NewExecutor()
	for i := 0; i < QueueCapacity; i++ {
		_, ok := e.Spawn(&onceFuture{onPoll: func() {}}, Normal)
		require.True(t, ok)
	}
	_, ok := e.Spawn(&onceFuture{onPoll: func() {}}, Normal)
	require.False(t, ok)
}
