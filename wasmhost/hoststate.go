package wasmhost

import (
	"github.com/sovelma/kernel/capability"
	"github.com/sovelma/kernel/fsys"
	"github.com/sovelma/kernel/syncx"
)

// HostState is the per-guest data exposed to host functions: exactly one
// instance per Process, matching the core's {capabilities, fuel_remaining}
// record. The Fs tree and Sync registry are shared process-wide references
// (passed in at construction), not owned by the guest.
type HostState struct {
	Caps *capability.Table
	Fs   *fsys.Tree
	Sync *syncx.Registry

	fuel      uint64
	threshold uint64

	// currentWaker is the executor waker for the poll currently driving
	// this guest's invocation. Host functions that park on a sync
	// primitive register it with the primitive's waiter FIFO; it is only
	// valid for the duration of one poll and must be refreshed by the
	// Process before every Invocation.Step.
	currentWaker syncx.Waker

	// trapCh/resumeCh are the rendezvous channels between the goroutine
	// executing the guest's exported call and the Process polling it.
	// A host function wanting to pause sends a Trap on trapCh and then
	// receives from resumeCh before proceeding; see invocation.go.
	trapCh   chan Trap
	resumeCh chan struct{}
}

// NewHostState builds a HostState seeded with an explicit capability table.
// There is no ambient authority: a guest can reach only what its table
// (built by the spawner before instantiation) contains.
func NewHostState(caps *capability.Table, fs *fsys.Tree, sync *syncx.Registry, cfg FuelConfig) *HostState {
	return &HostState{
		Caps:      caps,
		Fs:        fs,
		Sync:      sync,
		threshold: cfg.Threshold,
		trapCh:    make(chan Trap),
		resumeCh:  make(chan struct{}),
	}
}

// ResetFuel tops up host fuel to slice at the start of a poll.
func (hs *HostState) ResetFuel(slice uint64) {
	hs.fuel = slice
}

// FuelThreshold returns the configured host-fuel yield threshold (T).
func (hs *HostState) FuelThreshold() uint64 {
	return hs.threshold
}

// SetCurrentWaker installs the executor waker for the poll about to drive
// this guest, so any host function that parks can register it.
func (hs *HostState) SetCurrentWaker(w syncx.Waker) {
	hs.currentWaker = w
}

// CurrentWaker returns the waker set by the driving poll.
func (hs *HostState) CurrentWaker() syncx.Waker {
	return hs.currentWaker
}

// ChargeFuel deducts cost from host fuel and, if the remainder has crossed
// below the threshold, traps Yield and blocks until resumed — before the
// caller does any further expensive work, per the dual-fuel contract. It
// returns once resumed; callers proceed with their operation afterward.
func (hs *HostState) ChargeFuel(cost uint64) {
	if hs.fuel <= cost {
		hs.fuel = 0
	} else {
		hs.fuel -= cost
	}
	if hs.fuel < hs.threshold {
		hs.Trap(Trap{Kind: TrapYield})
	}
}

// Trap sends t to the driving Process and blocks until it sends a resume
// signal back. Called from the goroutine executing the guest's exported
// function (see invocation.go); must never be called from the Process's
// own polling goroutine.
func (hs *HostState) Trap(t Trap) {
	hs.trapCh <- t
	<-hs.resumeCh
}
