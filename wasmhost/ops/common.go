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

// Package ops implements the concrete WASM host functions registered under
// the "sp" host module: one function (or a small related group) per file,
// mirroring handler/implementations' one-handler-per-file layout. Every
// function here closes over a *wasmhost.HostState and is registered by
// Register in register.go.
package ops

import (
	"github.com/sovelma/kernel/domain"
	"github.com/tetratelabs/wazero/api"
)

// readGuestBytes reads length bytes at ptr from guest linear memory. The
// bool result reports whether the read was in bounds; out-of-bounds maps to
// domain.ErrCodeMemoryReadFault at the call site. UTF-8 validity is a
// separate check left to callers, since a bounds failure and an encoding
// failure are distinct ABI codes.
func readGuestBytes(mod api.Module, ptr, length uint32) ([]byte, bool) {
	return mod.Memory().Read(ptr, length)
}

// writeResult writes result into the guest buffer at (ptr, bufLen). It
// reports tooSmall if result does not fit in bufLen bytes, and reports
// writeFault if the memory write itself failed bounds checking; the two
// map to distinct ABI codes (-8 and -9 respectively), so they are kept
// separate rather than collapsed into one bool.
func writeResult(mod api.Module, ptr, bufLen uint32, result []byte) (n int, tooSmall, writeFault bool) {
	if uint32(len(result)) > bufLen {
		return 0, true, false
	}
	if len(result) == 0 {
		return 0, false, false
	}
	if !mod.Memory().Write(ptr, result) {
		return 0, false, true
	}
	return len(result), false, false
}

func errCode(c domain.ErrCode) int32 { return int32(c) }
