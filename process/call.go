package process

import (
	"context"

	"github.com/sovelma/kernel/syncx"
	"github.com/sovelma/kernel/wasmhost"
)

// Call is a task.Future driving one exported function through the
// fuel/trap/resumption protocol. It satisfies task.Future's Poll method, so
// it can be handed directly to an Executor (spawn_as_task) or polled
// standalone (call_async / the blocking Call helper on Process).
type Call struct {
	proc  *Process
	hs    *wasmhost.HostState
	entry string
	inv   *wasmhost.Invocation

	lastValues []uint64
}

// Poll implements task.Future. Each call tops up host fuel to the
// configured slice and bounds the guest's wall-clock execution for this
// poll to fuelCfg.PollSlice — the stand-in for wazero's absent
// instruction-fuel counter; exceeding it aborts the call exactly as
// engine-fuel exhaustion would (a fatal error, task ends).
func (c *Call) Poll(w syncx.Waker) bool {
	_, ready := c.poll(context.Background(), w)
	return ready
}

func (c *Call) poll(parent context.Context, w syncx.Waker) ([]uint64, bool) {
	c.hs.ResetFuel(c.proc.fuelCfg.SliceSize)
	c.hs.SetCurrentWaker(w)

	if c.inv == nil {
		fn := c.proc.mod.ExportedFunction(c.entry)
		// parent bounds the invocation's entire lifetime, not just this
		// poll: cancelling it when this poll returns would close the
		// module out from under a guest merely parked on a trap.
		c.inv = wasmhost.NewInvocation(parent, c.hs, fn)
	}

	pollCtx, cancel := context.WithTimeout(parent, c.proc.fuelCfg.PollSlice)
	defer cancel()

	outcome := c.inv.Step(pollCtx)
	if outcome.Finished {
		c.lastValues = outcome.Values
		c.proc.setResult(outcome.Err)
		return outcome.Values, true
	}

	if outcome.Trap.Kind == wasmhost.TrapYield {
		w.Wake()
	}
	return nil, false
}

// Values returns the exported function's return values once Poll/Call has
// reported completion.
func (c *Call) Values() []uint64 { return c.lastValues }
