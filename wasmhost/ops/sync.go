package ops

import (
	"context"

	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/syncx"
	"github.com/sovelma/kernel/wasmhost"
	"github.com/tetratelabs/wazero/api"
)

// MutexCreate implements `sp_mutex_create() -> cap_id`: allocates a fresh
// mutex in the registry and a capability for it with the Mutex object's
// applicable rights (CALL).
func MutexCreate(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module) int64 {
	return func(ctx context.Context, mod api.Module) int64 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		handle := hs.Sync.CreateMutex()
		id := hs.Caps.Issue(domain.CapabilityObject{Kind: domain.ObjectMutex, Handle: handle}, domain.ApplicableRights(domain.ObjectMutex))
		return int64(id)
	}
}

// MutexTryLock implements `sp_mutex_try_lock(cap) -> 0|err`, returning -11
// if the mutex is already held.
func MutexTryLock(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, cap uint64) int32 {
	return func(ctx context.Context, mod api.Module, capID uint64) int32 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		mtx, errc := lookupMutex(hs, capID)
		if errc != 0 {
			return errc
		}
		if !mtx.TryLock() {
			return errCode(domain.ErrCodeMutexHeld)
		}
		return 0
	}
}

// MutexLock implements `sp_mutex_lock(cap) -> 0|err`. If the mutex is held,
// it parks the invocation with a MutexWait trap, registering the current
// poll's waker with the mutex's waiter FIFO, and retries once resumed.
func MutexLock(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, cap uint64) int32 {
	return func(ctx context.Context, mod api.Module, capID uint64) int32 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		mtx, errc := lookupMutex(hs, capID)
		if errc != 0 {
			return errc
		}
		handle := mutexHandleOf(hs, capID)
		for {
			if mtx.PollLock(hs.CurrentWaker()) {
				return 0
			}
			hs.Trap(wasmhost.Trap{Kind: wasmhost.TrapMutexWait, Handle: handle})
		}
	}
}

// MutexUnlock implements `sp_mutex_unlock(cap) -> 0|err`.
func MutexUnlock(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, cap uint64) int32 {
	return func(ctx context.Context, mod api.Module, capID uint64) int32 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		mtx, errc := lookupMutex(hs, capID)
		if errc != 0 {
			return errc
		}
		mtx.Unlock()
		return 0
	}
}

// SemCreate implements `sp_sem_create(permits) -> cap_id`.
func SemCreate(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, permits int32) int64 {
	return func(ctx context.Context, mod api.Module, permits int32) int64 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		handle := hs.Sync.CreateSemaphore(permits)
		id := hs.Caps.Issue(domain.CapabilityObject{Kind: domain.ObjectSemaphore, Handle: handle}, domain.ApplicableRights(domain.ObjectSemaphore))
		return int64(id)
	}
}

// SemTryAcquire implements `sp_sem_try_acquire(cap) -> 0|err`, returning -12
// if no permits are available.
func SemTryAcquire(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, cap uint64) int32 {
	return func(ctx context.Context, mod api.Module, capID uint64) int32 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		sem, errc := lookupSem(hs, capID)
		if errc != 0 {
			return errc
		}
		if !sem.TryAcquire() {
			return errCode(domain.ErrCodeNoPermits)
		}
		return 0
	}
}

// SemAcquire implements `sp_sem_acquire(cap) -> 0|err`, parking with a
// SemWait trap and retrying once resumed, mirroring MutexLock.
func SemAcquire(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, cap uint64) int32 {
	return func(ctx context.Context, mod api.Module, capID uint64) int32 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		sem, errc := lookupSem(hs, capID)
		if errc != 0 {
			return errc
		}
		handle := semHandleOf(hs, capID)
		for {
			if sem.PollAcquire(hs.CurrentWaker()) {
				return 0
			}
			hs.Trap(wasmhost.Trap{Kind: wasmhost.TrapSemWait, Handle: handle})
		}
	}
}

// SemRelease implements `sp_sem_release(cap) -> 0|err`.
func SemRelease(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, cap uint64) int32 {
	return func(ctx context.Context, mod api.Module, capID uint64) int32 {
		hs.ChargeFuel(wasmhost.CostSyncOp)
		sem, errc := lookupSem(hs, capID)
		if errc != 0 {
			return errc
		}
		sem.Release()
		return 0
	}
}

func lookupMutex(hs *wasmhost.HostState, capID uint64) (*syncx.AsyncMutex, int32) {
	c, ok := hs.Caps.Lookup(domain.CapId(capID))
	if !ok {
		return nil, errCode(domain.ErrCodeCapNotFound)
	}
	mtx, ok := hs.Sync.GetMutex(c.Object.Handle)
	if !ok {
		return nil, errCode(domain.ErrCodeInvalidSyncHdl)
	}
	return mtx, 0
}

func lookupSem(hs *wasmhost.HostState, capID uint64) (*syncx.Semaphore, int32) {
	c, ok := hs.Caps.Lookup(domain.CapId(capID))
	if !ok {
		return nil, errCode(domain.ErrCodeCapNotFound)
	}
	sem, ok := hs.Sync.GetSemaphore(c.Object.Handle)
	if !ok {
		return nil, errCode(domain.ErrCodeInvalidSyncHdl)
	}
	return sem, 0
}

func mutexHandleOf(hs *wasmhost.HostState, capID uint64) uint64 {
	c, _ := hs.Caps.Lookup(domain.CapId(capID))
	return c.Object.Handle
}

func semHandleOf(hs *wasmhost.HostState, capID uint64) uint64 {
	c, _ := hs.Caps.Lookup(domain.CapId(capID))
	return c.Object.Handle
}
