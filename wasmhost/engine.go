package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
)

// Engine wraps a shared wazero.Runtime the way the original WasmEngine
// wrapped a single wasmi::Engine: module compilation is cheap and the
// compiled-module cache lives inside the runtime, so many Processes can
// share one Engine.
type Engine struct {
	runtime wazero.Runtime
	fuel    FuelConfig
}

// NewEngine returns an Engine configured with fuel and backed by a fresh
// wazero runtime. WithCloseOnContextDone ensures a poll-slice deadline
// (the engine-fuel wall-clock stand-in) actually aborts a runaway guest
// call instead of merely being ignored.
func NewEngine(ctx context.Context, fuel FuelConfig) (*Engine, error) {
	cfg := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	return &Engine{runtime: rt, fuel: fuel}, nil
}

// Runtime exposes the underlying wazero runtime for host-module
// registration and guest compilation.
func (e *Engine) Runtime() wazero.Runtime { return e.runtime }

// FuelConfig returns the engine's configured fuel tuning knobs.
func (e *Engine) FuelConfig() FuelConfig { return e.fuel }

// Close releases the runtime and every module compiled against it.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Compile compiles wasmBytes against the engine's shared runtime.
func (e *Engine) Compile(ctx context.Context, wasmBytes []byte) (wazero.CompiledModule, error) {
	return e.runtime.CompileModule(ctx, wasmBytes)
}
