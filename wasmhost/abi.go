package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero"
)

// HostModuleRegistrar is implemented by wasmhost/ops so this package does
// not need to import ops directly (ops already imports wasmhost; a direct
// back-import would cycle). process.Process supplies ops.Register as this
// function when wiring a new guest instance.
type HostModuleRegistrar func(builder wazero.HostModuleBuilder, hs *HostState) wazero.HostModuleBuilder

// InstantiateHostModule builds and instantiates the "sp" host module against
// engine's runtime, using register (ops.Register) to attach every host
// function to hs.
func InstantiateHostModule(ctx context.Context, e *Engine, hostModuleName string, hs *HostState, register HostModuleRegistrar) error {
	builder := e.Runtime().NewHostModuleBuilder(hostModuleName)
	builder = register(builder, hs)
	_, err := builder.Instantiate(ctx)
	return err
}
