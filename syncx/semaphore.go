package syncx

import "sync/atomic"

// Semaphore is a counting semaphore with the same CAS-plus-waker-FIFO shape
// as AsyncMutex, grounded on kernel/src/sync/semaphore.rs's Semaphore: an
// atomic permit count bounded by max_permits, and a bounded waiter FIFO
// drained FIFO-style on release.
type Semaphore struct {
	permits int32
	max     int32
	waiters chan Waker
}

// NewSemaphore returns a semaphore initialized with initial permits, capped
// at max. initial is clamped into [0, max].
func NewSemaphore(initial, max int32) *Semaphore {
	if initial < 0 {
		initial = 0
	}
	if initial > max {
		initial = max
	}
	return &Semaphore{permits: initial, max: max, waiters: make(chan Waker, MaxWaiters)}
}

// TryAcquire attempts to decrement the permit count via CAS, without
// registering a waker. Returns false if no permits are currently available.
func (s *Semaphore) TryAcquire() bool {
	for {
		cur := atomic.LoadInt32(&s.permits)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.permits, cur, cur-1) {
			return true
		}
	}
}

// PollAcquire mirrors AsyncMutex.PollLock: fast-path CAS, then waker
// registration with a second CAS to close the lost-wakeup window.
func (s *Semaphore) PollAcquire(waker Waker) bool {
	if s.TryAcquire() {
		return true
	}
	select {
	case s.waiters <- waker:
	default:
	}
	return s.TryAcquire()
}

// Release increments the permit count, clamped at max, then wakes at most
// one waiter FIFO. Releases beyond max are idempotent no-ops on the count
// but still attempt a wake, matching the spec's "extra releases beyond max
// are idempotent" rule without silently dropping a legitimate wakeup.
func (s *Semaphore) Release() {
	for {
		cur := atomic.LoadInt32(&s.permits)
		if cur >= s.max {
			break
		}
		if atomic.CompareAndSwapInt32(&s.permits, cur, cur+1) {
			break
		}
	}
	select {
	case w := <-s.waiters:
		w.Wake()
	default:
	}
}

// Permits reports the current permit count, for diagnostics and tests.
func (s *Semaphore) Permits() int32 {
	return atomic.LoadInt32(&s.permits)
}
