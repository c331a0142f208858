package ops

import (
	"context"

	"github.com/sovelma/kernel/wasmhost"
	"github.com/tetratelabs/wazero/api"
)

// SchedYield implements `sp_sched_yield()`: always traps Yield, so a guest
// loop that calls it repeatedly produces exactly one scheduler re-queue per
// call.
func SchedYield(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module) int32 {
	return func(ctx context.Context, mod api.Module) int32 {
		hs.Trap(wasmhost.Trap{Kind: wasmhost.TrapYield})
		return 0
	}
}
