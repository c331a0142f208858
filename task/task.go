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

// Package task implements the cooperative, priority-based executor that
// drives every WASM process. It is grounded on the original kernel's
// kernel/src/task package (executor.rs, mod.rs), translated from Rust's
// Future/Waker/Pin machinery into a minimal Go Future interface since Go
// has no native coroutine suspension primitive to mirror 1:1.
package task

import "github.com/sovelma/kernel/syncx"

// Priority is one of four static scheduling levels. Zero value is Idle, the
// lowest; Critical is the highest and always drains first.
type Priority int

const (
	Idle Priority = iota
	Normal
	High
	Critical
)

const numPriorities = int(Critical) + 1

// ID is a monotonic, globally unique task identifier.
type ID uint64

// Future is the minimal suspend/resume contract a Task drives. Poll is
// called with a Waker the future must store somewhere reachable if it
// returns false (pending) so that something, eventually, calls Wake() and
// causes the executor to poll it again. Returning true means the future is
// finished and the task is removed from the executor.
type Future interface {
	Poll(w syncx.Waker) (ready bool)
}

// Task pairs a Future with the scheduling metadata the executor needs.
type Task struct {
	ID       ID
	Priority Priority
	Future   Future
}

// YieldNow is a one-shot future: it wakes itself and reports pending on the
// first poll, then reports ready on the second, costing exactly one extra
// scheduler re-queue. A guest's sp_sched_yield does not go through YieldNow;
// it surfaces as a TrapYield, which process.Call's poll answers with one
// Wake.
type YieldNow struct {
	polled bool
}

// Poll implements Future.
func (y *YieldNow) Poll(w syncx.Waker) bool {
	if !y.polled {
		y.polled = true
		w.Wake()
		return false
	}
	return true
}
