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

// Package domain holds the shared types and interfaces that the capability,
// fsys, syncx, task and wasmhost packages all depend on, following the
// sysbox-fs convention of a dependency-free "domain" package sitting below
// every concrete subsystem.
package domain

// Rights is a bitset of operations a capability's holder is permitted to
// perform on the underlying object.
type Rights uint32

const (
	RightRead Rights = 1 << iota
	RightWrite
	RightExecute
	RightGrant
	RightCall
)

func (r Rights) Has(want Rights) bool { return r&want == want }

func (r Rights) String() string {
	var b []byte
	add := func(flag Rights, c byte) {
		if r.Has(flag) {
			b = append(b, c)
		} else {
			b = append(b, '-')
		}
	}
	add(RightRead, 'r')
	add(RightWrite, 'w')
	add(RightExecute, 'x')
	add(RightGrant, 'g')
	add(RightCall, 'c')
	return string(b)
}

// ObjectKind tags the variant held by a CapabilityObject.
type ObjectKind uint32

const (
	ObjectFile ObjectKind = iota
	ObjectDirectory
	ObjectMutex
	ObjectSemaphore
	ObjectOther ObjectKind = 255
)

// ApplicableRights returns the maximal right set an object kind admits.
// Capability derivation intersects a parent's rights against this set, so
// a file capability derived from a directory can never carry, say, EXECUTE.
func ApplicableRights(kind ObjectKind) Rights {
	switch kind {
	case ObjectDirectory:
		return RightRead | RightWrite | RightExecute | RightGrant
	case ObjectFile:
		return RightRead | RightWrite
	case ObjectMutex, ObjectSemaphore:
		return RightCall
	default:
		return RightRead | RightWrite | RightExecute | RightGrant | RightCall
	}
}

// CapabilityObject identifies the concrete resource a capability denotes.
// Handle is opaque outside the owning subsystem (a fsys.Handle, a syncx
// mutex/semaphore handle, ...).
type CapabilityObject struct {
	Kind   ObjectKind
	Handle uint64
}

// CapId is the 64-bit token passed across the guest boundary: a 32-bit
// dense slot index packed with a 32-bit generation counter.
type CapId uint64

// NewCapId packs an index and generation into a single 64-bit token.
func NewCapId(index, generation uint32) CapId {
	return CapId(uint64(index) | uint64(generation)<<32)
}

// Index returns the slot index embedded in the id.
func (c CapId) Index() uint32 { return uint32(c) }

// Generation returns the generation embedded in the id.
func (c CapId) Generation() uint32 { return uint32(c >> 32) }

// Capability is the full record stored behind a CapId in a CapabilityTable.
type Capability struct {
	ID         CapId
	Rights     Rights
	Object     CapabilityObject
	Generation uint32
}

// Live reports whether the capability's own generation still matches the
// generation embedded in its id; a stale copy fails this check even if its
// slot has been reused by a newer capability.
func (c Capability) Live() bool { return c.Generation == c.ID.Generation() }
