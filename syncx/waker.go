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

// Package syncx implements the async synchronization primitives exposed to
// guests: a CAS-based mutex and counting semaphore, each with a bounded
// FIFO of wakers, plus the process-wide registry that hands out monotonic
// handles for them. It is named syncx (not sync) purely to avoid shadowing
// the standard library package it otherwise closely parallels in spirit.
//
// Grounded on the original kernel's kernel/src/sync package: mutex.rs,
// semaphore.rs and registry.rs, translated from Rust Future::poll into Go's
// register-a-callback style, since Go has no native Future/Waker type.
package syncx

// MaxWaiters bounds the waiter FIFO of every mutex and semaphore, mirroring
// the original's fixed-capacity ArrayQueue<Waker>. When the FIFO is full
// the caller's waker is dropped: the caller is not registered, and it
// retries only when something else re-queues its task for another poll.
const MaxWaiters = 100

// Waker is the minimal contract a parked caller registers: Wake is invoked
// at most once, from whichever goroutine performs the unlock/release, and
// must not block. The task package's scheduler wakers satisfy this
// interface by re-queuing a task id onto its priority level.
type Waker interface {
	Wake()
}

// WakerFunc adapts a plain function to the Waker interface.
type WakerFunc func()

// Wake implements Waker.
func (f WakerFunc) Wake() { f() }
