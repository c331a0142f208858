//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package process implements Process lifecycle and driving (component G):
// spawning a guest module against a shared engine with an explicit,
// non-ambient set of initial capabilities, and the three ways to drive its
// execution (call, call_async, spawn_as_task) that all share the fuel/trap/
// resumption protocol in wasmhost. Grounded on the original kernel's
// kernel/src/wasm::WasmEngine::spawn_process and WasmProcess.
package process

import (
	"context"
	"sync"

	"github.com/sovelma/kernel/capability"
	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/fsys"
	"github.com/sovelma/kernel/syncx"
	"github.com/sovelma/kernel/task"
	"github.com/sovelma/kernel/wasmhost"
	"github.com/sovelma/kernel/wasmhost/ops"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// InitialCapability seeds one entry of a new process's capability table at
// spawn time. There is no ambient authority: a guest starts with exactly
// the capabilities its spawner lists here, nothing more.
type InitialCapability struct {
	Object domain.CapabilityObject
	Rights domain.Rights
}

// Process owns a guest's HostState and its instantiated module. It is not
// itself a task.Future; NewCall / CallAsync / SpawnAsTask hand out the
// resumable driver(s) that are.
type Process struct {
	engine  *wasmhost.Engine
	hs      *wasmhost.HostState
	mod     api.Module
	fuelCfg wasmhost.FuelConfig

	mu      sync.Mutex
	lastErr error
}

// Spawn compiles wasmBytes against engine, seeds a fresh HostState with
// initialCaps, instantiates the module with all host functions bound, and
// returns the owning Process. The module's start function is deliberately
// NOT auto-invoked during instantiation (wazero's default): doing so would
// run it blocking and non-resumably, defeating the entire fuel/trap
// protocol for any guest that does real work in _start. Instead the first
// call to NewCall/CallAsync/SpawnAsTask for "_start" drives it through the
// same resumable path as every other exported entry point.
func Spawn(ctx context.Context, engine *wasmhost.Engine, wasmBytes []byte, fsTree *fsys.Tree, syncReg *syncx.Registry, initialCaps []InitialCapability) (*Process, error) {
	compiled, err := engine.Compile(ctx, wasmBytes)
	if err != nil {
		return nil, err
	}

	caps := capability.NewTable()
	for _, c := range initialCaps {
		caps.Issue(c.Object, c.Rights)
	}

	fuelCfg := engine.FuelConfig()
	hs := wasmhost.NewHostState(caps, fsTree, syncReg, fuelCfg)
	if err := wasmhost.InstantiateHostModule(ctx, engine, ops.HostModuleName, hs, ops.Register); err != nil {
		return nil, err
	}

	modCfg := wazero.NewModuleConfig().WithStartFunctions()
	mod, err := engine.Runtime().InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, err
	}

	return &Process{engine: engine, hs: hs, mod: mod, fuelCfg: fuelCfg}, nil
}

// Capabilities returns the process's capability table, for host-side
// administration (e.g. revocation from outside the guest).
func (p *Process) Capabilities() *capability.Table { return p.hs.Caps }

func (p *Process) setResult(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// LastError reports the outcome of the most recently completed call, if
// any (nil both before any call completes and after a successful one).
func (p *Process) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// NewCall returns a resumable driver for exported function name, without
// taking ownership of the Process — callers may issue several over the
// process's lifetime (e.g. a blocking Call followed later by another).
func (p *Process) NewCall(name string) *Call {
	return &Call{proc: p, hs: p.hs, entry: name}
}

// Call drives name to completion synchronously, blocking the calling
// goroutine between polls until something wakes it (a Yield traps re-queues
// immediately; a MutexWait/SemWait trap waits for the corresponding
// release). This is the "blocking call(name, args)" entry point; it must
// never be invoked from inside the executor's own goroutine.
func (p *Process) Call(ctx context.Context, name string) ([]uint64, error) {
	c := p.NewCall(name)
	woken := make(chan struct{}, 1)
	w := syncx.WakerFunc(func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	})

	for {
		values, ready := c.poll(ctx, w)
		if ready {
			return values, p.LastError()
		}
		select {
		case <-woken:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// CallAsync returns a task.Future driving name, borrowing the process: the
// caller owns scheduling it (e.g. polling it directly, or handing it to a
// one-off executor) without transferring the Process itself anywhere.
func (p *Process) CallAsync(name string) *Call {
	return p.NewCall(name)
}

// SpawnAsTask moves a call to name into the executor as an owned task at
// priority, returning its task id.
func (p *Process) SpawnAsTask(executor *task.Executor, name string, priority task.Priority) (task.ID, bool) {
	return executor.Spawn(p.NewCall(name), priority)
}
