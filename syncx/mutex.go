package syncx

import "sync/atomic"

// AsyncMutex is a CAS-acquired, non-blocking mutex whose contended callers
// register a Waker rather than park an OS thread. It is grounded on
// kernel/src/sync/mutex.rs's AsyncMutex<T>: a locked flag plus a bounded
// waiter FIFO, fast-pathed through TryLock and given a double-check poll
// path through PollLock to close the lost-wakeup window described there.
type AsyncMutex struct {
	locked  int32
	waiters chan Waker
}

// NewMutex returns an unlocked mutex.
func NewMutex() *AsyncMutex {
	return &AsyncMutex{waiters: make(chan Waker, MaxWaiters)}
}

// TryLock attempts to acquire the mutex without registering a waker.
func (m *AsyncMutex) TryLock() bool {
	return atomic.CompareAndSwapInt32(&m.locked, 0, 1)
}

// PollLock is the non-blocking equivalent of polling a lock future: it
// first attempts the fast-path CAS; on failure it registers waker in the
// bounded FIFO (dropping it silently if the FIFO is full, per the original's
// documented tradeoff) and performs a second CAS to close the window where
// an unlock could have raced between the first attempt and the
// registration. It returns true iff the mutex was acquired by this call.
func (m *AsyncMutex) PollLock(waker Waker) bool {
	if atomic.CompareAndSwapInt32(&m.locked, 0, 1) {
		return true
	}
	select {
	case m.waiters <- waker:
	default:
	}
	return atomic.CompareAndSwapInt32(&m.locked, 0, 1)
}

// Unlock releases the mutex and wakes at most one waiter, FIFO. Unlock does
// not track or check ownership: sp_mutex_unlock only requires a live
// capability for the mutex, so any holder of such a capability can release
// it, whether or not it acquired the lock.
func (m *AsyncMutex) Unlock() {
	atomic.StoreInt32(&m.locked, 0)
	select {
	case w := <-m.waiters:
		w.Wake()
	default:
	}
}

// IsLocked reports the current lock state, for diagnostics and tests.
func (m *AsyncMutex) IsLocked() bool {
	return atomic.LoadInt32(&m.locked) == 1
}
