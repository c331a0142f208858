package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// Invocation is the Go rendition of a ResumableInvocation: the persistent
// continuation of a paused guest call. wazero has no native resumable-call
// API, so the continuation is emulated by running the guest's exported
// function on a dedicated goroutine that blocks on HostState.resumeCh at
// every trap point (see HostState.Trap); Step is the only way to make that
// goroutine proceed: its first call starts it ("initiate a resumable
// call") and each later call resumes it ("resume the continuation with
// empty arguments").
//
// The goroutine's call is made against runCtx, a context held for the
// entire lifetime of the invocation — NOT any single poll's deadline.
// wazero's WithCloseOnContextDone closes the module the instant the context
// passed to Call is done, so a context that expires merely because one
// poll's slice elapsed while the guest was legitimately parked on a trap
// would kill the call before it ever gets to resume. runCancel is invoked
// only when Step sees the call finish, or when Step decides the call is a
// genuine runaway (exceeded a poll slice while actually executing, not
// parked); runCtx is also done when the caller's own parent context is
// cancelled.
type Invocation struct {
	hs      *HostState
	fn      api.Function
	doneCh  chan invocationResult
	started bool

	runCtx    context.Context
	runCancel context.CancelFunc
}

type invocationResult struct {
	values []uint64
	err    error
}

// NewInvocation wraps fn as a resumable invocation driven through hs's trap
// protocol. parent bounds the invocation's entire lifetime (multiple Step
// calls across multiple polls); it is distinct from the per-poll deadline
// each Step call receives.
func NewInvocation(parent context.Context, hs *HostState, fn api.Function) *Invocation {
	runCtx, cancel := context.WithCancel(parent)
	return &Invocation{hs: hs, fn: fn, doneCh: make(chan invocationResult, 1), runCtx: runCtx, runCancel: cancel}
}

// Outcome is the result of driving an Invocation one step: either it
// trapped (Trap non-nil, Finished false) or it ran to completion (Finished
// true, with the guest's result values or a fatal error).
type Outcome struct {
	Trap     *Trap
	Finished bool
	Values   []uint64
	Err      error
}

// Step starts the invocation (first call) or resumes it (subsequent
// calls), then blocks until the guest either traps again or finishes. Once
// started, the guest's exported function runs to completion (or to its
// next trap) against the invocation's own long-lived runCtx; pollCtx only
// bounds how long Step is willing to wait for that to happen before
// concluding the guest is burning its poll slice without yielding, the
// stand-in for engine-fuel exhaustion described in the fuel/trap protocol.
func (inv *Invocation) Step(pollCtx context.Context) Outcome {
	if !inv.started {
		inv.started = true
		go func() {
			values, err := inv.fn.Call(inv.runCtx)
			inv.doneCh <- invocationResult{values: values, err: err}
		}()
	} else {
		inv.hs.resumeCh <- struct{}{}
	}

	select {
	case t := <-inv.hs.trapCh:
		return Outcome{Trap: &t}
	case r := <-inv.doneCh:
		inv.runCancel()
		return Outcome{Finished: true, Values: r.values, Err: r.err}
	case <-pollCtx.Done():
		// The guest neither trapped nor finished within this poll's
		// slice: it is actively spinning rather than parked, so treat it
		// as a fatal, engine-fuel-exhaustion-style runaway and abort the
		// call by cancelling the invocation's own context.
		inv.runCancel()
		select {
		case r := <-inv.doneCh:
			if r.err == nil {
				r.err = pollCtx.Err()
			}
			return Outcome{Finished: true, Values: r.values, Err: r.err}
		case t := <-inv.hs.trapCh:
			// Rare race: the guest trapped at essentially the same
			// instant the slice elapsed. The trap is authoritative.
			return Outcome{Trap: &t}
		}
	}
}
