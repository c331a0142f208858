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

// Package wasmhost is the WASM host-function boundary: the wazero engine
// wrapper, HostState, the fuel/trap/resumption protocol of the dual-fuel
// design, and (in the ops subpackage) the concrete host functions. It is
// grounded on the original kernel's kernel/src/wasm package (mod.rs,
// host.rs), whose wasmi-based fuel and blocking `call` this package
// re-expresses against wazero, which has neither instruction fuel nor
// resumable calls natively.
package wasmhost

import "time"

// FuelConfig holds the tuning knobs for the dual-fuel scheme. These are
// not part of the guest ABI — any values work as long as Threshold leaves
// enough margin for the most expensive single host operation to complete
// after a trap.
type FuelConfig struct {
	// SliceSize (F) is the host-fuel budget replenished at the start of
	// every poll; engine fuel is emulated by PollSlice below.
	SliceSize uint64
	// Threshold (T) is the host-fuel floor below which a host function
	// traps Yield before doing further expensive work.
	Threshold uint64
	// PollSlice bounds, in wall-clock time, a single poll's guest
	// execution — the stand-in for wazero's absent instruction-fuel
	// counter. Exceeding it aborts the guest call via context
	// cancellation (wazero.RuntimeConfig.WithCloseOnContextDone), exactly
	// as real engine-fuel exhaustion would: a fatal trap terminating the
	// task.
	PollSlice time.Duration
}

// DefaultFuelConfig matches the fuel-bounded host work scenario: F=10000,
// T=500, so a host function costing 100 per call serves ~95 calls before
// yielding.
var DefaultFuelConfig = FuelConfig{
	SliceSize: 10_000,
	Threshold: 500,
	PollSlice: 100 * time.Millisecond,
}

// Per-operation host-fuel costs. A single constant per category, the way
// the spec's scenario assumes a flat per-operation cost; differentiating
// further is left as a tuning exercise the ABI does not constrain.
const (
	CostCapabilityLookup uint64 = 100
	CostFilesystemOp     uint64 = 100
	CostMemoryIO         uint64 = 100
	CostSyncOp           uint64 = 100
)
