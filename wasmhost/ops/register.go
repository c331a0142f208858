package ops

import (
	"github.com/sovelma/kernel/wasmhost"
	"github.com/tetratelabs/wazero"
)

// HostModuleName is the module name guests import host functions under.
const HostModuleName = "sp"

// Register attaches every host function to builder, closing each one over
// hs. Mirrors the teacher's HandlerDB registration sweep, just for host
// functions instead of procfs/sysfs node handlers.
func Register(builder wazero.HostModuleBuilder, hs *wasmhost.HostState) wazero.HostModuleBuilder {
	builder.NewFunctionBuilder().WithFunc(Print(hs)).Export("print")
	builder.NewFunctionBuilder().WithFunc(GetCapabilities(hs)).Export("sp_get_capabilities")

	builder.NewFunctionBuilder().WithFunc(FsOpen(hs)).Export("sp_fs_open")
	builder.NewFunctionBuilder().WithFunc(FsRead(hs)).Export("sp_fs_read")
	builder.NewFunctionBuilder().WithFunc(FsSize(hs)).Export("sp_fs_size")
	builder.NewFunctionBuilder().WithFunc(FsClose(hs)).Export("sp_fs_close")
	builder.NewFunctionBuilder().WithFunc(FsMkdir(hs)).Export("sp_fs_mkdir")

	builder.NewFunctionBuilder().WithFunc(SchedYield(hs)).Export("sp_sched_yield")

	builder.NewFunctionBuilder().WithFunc(MutexCreate(hs)).Export("sp_mutex_create")
	builder.NewFunctionBuilder().WithFunc(MutexLock(hs)).Export("sp_mutex_lock")
	builder.NewFunctionBuilder().WithFunc(MutexTryLock(hs)).Export("sp_mutex_try_lock")
	builder.NewFunctionBuilder().WithFunc(MutexUnlock(hs)).Export("sp_mutex_unlock")

	builder.NewFunctionBuilder().WithFunc(SemCreate(hs)).Export("sp_sem_create")
	builder.NewFunctionBuilder().WithFunc(SemAcquire(hs)).Export("sp_sem_acquire")
	builder.NewFunctionBuilder().WithFunc(SemTryAcquire(hs)).Export("sp_sem_try_acquire")
	builder.NewFunctionBuilder().WithFunc(SemRelease(hs)).Export("sp_sem_release")

	return builder
}
