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

package domain

import "errors"

// Sentinel errors shared by every subsystem. Each maps 1:1 to an ABI error
// code in wasmhost/errors.go; the mapping lives there so that domain stays
// free of WASM-specific concerns.
var (
	ErrCapNotFound      = errors.New("capability not found or stale generation")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotDirectory     = errors.New("not a directory")
	ErrNotFile          = errors.New("not a file")
	ErrInvalidHandle    = errors.New("invalid handle")
	ErrMutexHeld        = errors.New("mutex is held")
	ErrNoPermits        = errors.New("semaphore has no permits")
)

// ErrCode is the stable, negative, ABI-visible error taxonomy described by
// the host function contract. Every host function either returns a
// non-negative result or one of these values; no other negative value may
// cross the guest boundary.
type ErrCode int32

const (
	ErrCodeCapNotFound      ErrCode = -1
	ErrCodeNoMemoryExport   ErrCode = -2
	ErrCodeMemoryReadFault  ErrCode = -3
	ErrCodeInvalidUTF8      ErrCode = -4
	ErrCodePermissionDenied ErrCode = -5
	ErrCodeNotDirectory     ErrCode = -6
	ErrCodeFsOpFailed       ErrCode = -7
	ErrCodeBufferTooSmall   ErrCode = -8
	ErrCodeMemoryWriteFault ErrCode = -9
	ErrCodeNotFile          ErrCode = -10
	ErrCodeMutexHeld        ErrCode = -11
	ErrCodeNoPermits        ErrCode = -12
	ErrCodeInvalidSyncHdl   ErrCode = -13
)
