package task

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sovelma/kernel/syncx"
)

// QueueCapacity bounds each priority level's FIFO, mirroring the original
// executor's fixed-size ArrayQueue<TaskId> per level. A full queue causes
// Spawn to drop the task (reported to the caller) and causes a waker fire
// to drop the wakeup silently, per the spec's documented tradeoff.
const QueueCapacity = 256

// idleWait bounds how long Run blocks when every queue is empty before
// re-checking. It stands in for "enable interrupts and halt": a real
// interrupt (waker fire, new spawn) always wakes the loop immediately via
// the condition variable, and cannot slip in between the emptiness check
// and the wait because both happen under e.mu; the timeout only makes the
// loop re-check its queues at least this often.
const idleWait = 50 * time.Millisecond

// Executor is the single-threaded, cooperative, priority-based scheduler
// that polls every Task to completion. It is safe to drive from exactly
// one goroutine (Run); Spawn and the wakers it hands out may be called
// from any goroutine, mirroring how the original's interrupt handlers and
// async primitives fire wakers from contexts other than the poll loop.
type Executor struct {
	mu   sync.Mutex
	cond *sync.Cond

	tasks      map[ID]*Task
	queues     [numPriorities][]ID
	wakerCache map[ID]*taskWaker

	nextID uint64
}

// NewExecutor returns an empty executor.
func NewExecutor() *Executor {
	e := &Executor{
		tasks:      make(map[ID]*Task),
		wakerCache: make(map[ID]*taskWaker),
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// taskWaker re-queues a task id onto its original priority level. The
// executor caches one per live task (Poll protocol's "build or reuse
// cached" step) instead of allocating afresh on every poll.
type taskWaker struct {
	e        *Executor
	id       ID
	priority Priority
}

// Wake implements syncx.Waker.
func (w *taskWaker) Wake() {
	w.e.enqueue(w.id, w.priority)
}

func (e *Executor) enqueue(id ID, p Priority) {
	e.mu.Lock()
	q := &e.queues[p]
	if len(*q) >= QueueCapacity {
		e.mu.Unlock()
		log.WithField("task_id", uint64(id)).Warn("priority queue full, dropping wakeup")
		return
	}
	*q = append(*q, id)
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Spawn assigns a fresh task id to future at the given priority and queues
// it for its first poll. It returns false if the priority queue was full,
// in which case the task is discarded and never polled (duplicate ids
// cannot occur: allocation is a monotonic counter under the executor's own
// lock).
func (e *Executor) Spawn(future Future, priority Priority) (ID, bool) {
	e.mu.Lock()
	e.nextID++
	id := ID(e.nextID)
	q := &e.queues[priority]
	if len(*q) >= QueueCapacity {
		e.mu.Unlock()
		log.WithField("task_id", uint64(id)).Warn("priority queue full, dropping spawned task")
		return id, false
	}
	e.tasks[id] = &Task{ID: id, Priority: priority, Future: future}
	*q = append(*q, id)
	e.cond.Broadcast()
	e.mu.Unlock()
	return id, true
}

// RunReadyTasks drains every non-empty queue, highest priority first,
// polling each dequeued task exactly once. Only the ids queued at a level
// when that level's pass begins are polled; a task re-queued by its own
// poll waits for the next call. It returns the number of tasks polled, so
// Run can decide whether to idle-wait.
func (e *Executor) RunReadyTasks() int {
	polled := 0
	for p := numPriorities - 1; p >= 0; p-- {
		e.mu.Lock()
		n := len(e.queues[p])
		e.mu.Unlock()
		for i := 0; i < n; i++ {
			id, ok := e.dequeue(Priority(p))
			if !ok {
				break
			}
			e.pollOne(id, Priority(p))
			polled++
		}
	}
	return polled
}

func (e *Executor) dequeue(p Priority) (ID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := &e.queues[p]
	if len(*q) == 0 {
		return 0, false
	}
	id := (*q)[0]
	*q = (*q)[1:]
	return id, true
}

func (e *Executor) pollOne(id ID, priority Priority) {
	e.mu.Lock()
	t, ok := e.tasks[id]
	if !ok {
		// Already completed and removed; a stale re-queue (e.g. from a
		// waker that fired after completion) is simply dropped.
		e.mu.Unlock()
		return
	}
	w, ok := e.wakerCache[id]
	if !ok {
		w = &taskWaker{e: e, id: id, priority: priority}
		e.wakerCache[id] = w
	}
	e.mu.Unlock()

	ready := t.Future.Poll(w)

	if ready {
		e.mu.Lock()
		delete(e.tasks, id)
		delete(e.wakerCache, id)
		e.mu.Unlock()
	}
}

// Empty reports whether every priority queue is currently empty.
func (e *Executor) Empty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, q := range e.queues {
		if len(q) > 0 {
			return false
		}
	}
	return true
}

// TaskCount reports the number of tasks still tracked by the executor
// (spawned, not yet completed), for diagnostics and tests.
func (e *Executor) TaskCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Run drives the executor until stop is closed, polling ready tasks and
// idling (condition-variable wait bounded by idleWait) whenever every queue
// is empty. This mirrors the original's sleep_if_idle: the interrupt-disable
// section becomes holding e.mu across the emptiness check and the wait, so
// a waker firing between the check and the wait cannot be missed.
func (e *Executor) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if polled := e.RunReadyTasks(); polled > 0 {
			continue
		}

		e.waitIdle(stop)
	}
}

func (e *Executor) waitIdle(stop <-chan struct{}) {
	done := make(chan struct{})
	go func() {
		select {
		case <-stop:
			e.mu.Lock()
			e.cond.Broadcast()
			e.mu.Unlock()
		case <-done:
		}
	}()
	defer close(done)

	e.mu.Lock()
	if e.allEmptyLocked() {
		timer := time.AfterFunc(idleWait, func() {
			e.mu.Lock()
			e.cond.Broadcast()
			e.mu.Unlock()
		})
		e.cond.Wait()
		timer.Stop()
	}
	e.mu.Unlock()
}

func (e *Executor) allEmptyLocked() bool {
	for _, q := range e.queues {
		if len(q) > 0 {
			return false
		}
	}
	return true
}
