package process

import (
	"context"
	"testing"
	"time"

	"github.com/sovelma/kernel/fsys"
	"github.com/sovelma/kernel/syncx"
	"github.com/sovelma/kernel/task"
	"github.com/sovelma/kernel/wasmhost"
	"github.com/stretchr/testify/require"
)

// doubleYieldModule hand-assembles a WASM module (no compiler toolchain is
// available in this tree) whose "_start" imports and calls the "sp" host
// module's sp_sched_yield twice before returning. It exists to drive
// Invocation.Step through a real trap/resume/trap/resume/finish sequence:
// exactly the path a premature module close used to break after the very
// first trap (see invocation.go's runCtx/pollCtx split).
func doubleYieldModule() []byte {
	magic := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	// Type section: type 0 is () -> (i32), matching sp_sched_yield's Go
	// signature (ctx/mod don't count as wasm params; the int32 return
	// does); type 1 is () -> (), matching _start.
	typeSec := []byte{
		0x01, 0x08,
		0x02,
		0x60, 0x00, 0x01, 0x7F,
		0x60, 0x00, 0x00,
	}

	// Import section: one import, "sp"."sp_sched_yield" (func index 0),
	// of type 0.
	importSec := []byte{
		0x02, 0x15,
		0x01,
		0x02, 0x73, 0x70, // module "sp"
		0x0E, 0x73, 0x70, 0x5F, 0x73, 0x63, 0x68, 0x65, 0x64, 0x5F, 0x79, 0x69, 0x65, 0x6C, 0x64, // "sp_sched_yield"
		0x00, 0x00, // func import, type 0
	}

	// Function section: one locally defined function (func index 1), of
	// type 1.
	funcSec := []byte{0x03, 0x02, 0x01, 0x01}

	// Memory section: one memory, 1 page minimum.
	memSec := []byte{0x05, 0x03, 0x01, 0x00, 0x01}

	// Export section: "memory" (memory 0) and "_start" (func 1).
	exportSec := []byte{
		0x07, 0x13,
		0x02,
		0x06, 0x6D, 0x65, 0x6D, 0x6F, 0x72, 0x79, 0x02, 0x00, // "memory" mem 0
		0x06, 0x5F, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x01, // "_start" func 1
	}

	// Code section: _start's body calls func 0 (sp_sched_yield), drops
	// the i32 result, does it again, then ends.
	codeSec := []byte{
		0x0A, 0x0A,
		0x01,
		0x08,
		0x00,       // 0 local declarations
		0x10, 0x00, // call 0
		0x1A,       // drop
		0x10, 0x00, // call 0
		0x1A, // drop
		0x0B, // end
	}

	out := append([]byte{}, magic...)
	out = append(out, typeSec...)
	out = append(out, importSec...)
	out = append(out, funcSec...)
	out = append(out, memSec...)
	out = append(out, exportSec...)
	out = append(out, codeSec...)
	return out
}

func testFuelConfig() wasmhost.FuelConfig {
	return wasmhost.FuelConfig{
		SliceSize: 10_000,
		Threshold: 500,
		PollSlice: 200 * time.Millisecond,
	}
}

func spawnYieldingProcess(t *testing.T, ctx context.Context, engine *wasmhost.Engine) *Process {
	t.Helper()
	proc, err := Spawn(ctx, engine, doubleYieldModule(), fsys.New(), syncx.NewRegistry(), nil)
	require.NoError(t, err)
	return proc
}

// TestCallResumesAcrossMultipleTraps is the regression test for the
// critical invocation-lifetime bug: before the runCtx/pollCtx split, the
// context passed to the guest's Call was the same one cancelled when the
// first poll returned, so wazero closed the module while the guest was
// merely parked on its first trap and every subsequent resume failed with
// a module-closed error. A guest that traps twice and resumes twice must
// still finish cleanly.
func TestCallResumesAcrossMultipleTraps(t *testing.T) {
	ctx := context.Background()
	engine, err := wasmhost.NewEngine(ctx, testFuelConfig())
	require.NoError(t, err)
	defer engine.Close(ctx)

	proc := spawnYieldingProcess(t, ctx, engine)

	_, err = proc.Call(ctx, "_start")
	require.NoError(t, err)
	require.NoError(t, proc.LastError())
}

// TestSpawnAsTaskDrivesYieldingGuestToCompletion exercises the same resume
// path through the executor rather than the blocking Call helper: each
// trap re-queues the task via the waker, so the guest's two yields plus
// its final completion must surface as exactly three polls.
func TestSpawnAsTaskDrivesYieldingGuestToCompletion(t *testing.T) {
	ctx := context.Background()
	engine, err := wasmhost.NewEngine(ctx, testFuelConfig())
	require.NoError(t, err)
	defer engine.Close(ctx)

	proc := spawnYieldingProcess(t, ctx, engine)

	executor := task.NewExecutor()
	_, ok := proc.SpawnAsTask(executor, "_start", task.Normal)
	require.True(t, ok)

	polls := 0
	for executor.TaskCount() > 0 {
		polled := executor.RunReadyTasks()
		require.Greater(t, polled, 0, "executor made no progress while the task is still pending")
		polls += polled
	}

	require.Equal(t, 3, polls) // trap, trap, finish
	require.NoError(t, proc.LastError())
}
