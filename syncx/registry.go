package syncx

import (
	"sync"
	"sync/atomic"
)

// Registry is the process-wide home for mutexes and semaphores, grounded on
// kernel/src/sync/registry.rs's MUTEX_REGISTRY/SEM_REGISTRY: two maps keyed
// by monotonic handles, each handle independently counted starting at 1 so
// that zero is never a valid handle and can be used as a sentinel.
type Registry struct {
	mu sync.RWMutex

	mutexes    map[uint64]*AsyncMutex
	semaphores map[uint64]*Semaphore

	nextMutexHandle uint64
	nextSemHandle   uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		mutexes:    make(map[uint64]*AsyncMutex),
		semaphores: make(map[uint64]*Semaphore),
	}
}

// CreateMutex allocates a fresh handle for a new, unlocked mutex.
func (r *Registry) CreateMutex() uint64 {
	h := atomic.AddUint64(&r.nextMutexHandle, 1)
	r.mu.Lock()
	r.mutexes[h] = NewMutex()
	r.mu.Unlock()
	return h
}

// GetMutex looks up a mutex by handle.
func (r *Registry) GetMutex(handle uint64) (*AsyncMutex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mutexes[handle]
	return m, ok
}

// DestroyMutex removes a mutex from the registry; future lookups by its
// handle fail, which in turn makes any dangling capability that encodes the
// handle resolve to domain.ErrCodeInvalidSyncHdl (-13) at the ABI boundary.
func (r *Registry) DestroyMutex(handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.mutexes, handle)
}

// CreateSemaphore allocates a fresh handle for a new semaphore initialized
// with permits (also used as max_permits, matching the ABI's single-arg
// sp_sem_create).
func (r *Registry) CreateSemaphore(permits int32) uint64 {
	h := atomic.AddUint64(&r.nextSemHandle, 1)
	r.mu.Lock()
	r.semaphores[h] = NewSemaphore(permits, permits)
	r.mu.Unlock()
	return h
}

// GetSemaphore looks up a semaphore by handle.
func (r *Registry) GetSemaphore(handle uint64) (*Semaphore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.semaphores[handle]
	return s, ok
}

// DestroySemaphore removes a semaphore from the registry.
func (r *Registry) DestroySemaphore(handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.semaphores, handle)
}
