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

// Package capability implements the per-process capability table: issuance,
// lookup, rights-restricted derivation and generational revocation. It is
// grounded on common/capability.rs's CapId/Rights/Capability model from the
// original kernel, translated into a single-owner Go table guarded by a
// mutex (no process ever shares its table with another).
package capability

import (
	"sync"

	"github.com/sovelma/kernel/domain"
	log "github.com/sirupsen/logrus"
)

// slot holds the live capability at an index (zeroed once revoked), plus
// the generation to hand out the next time this index is reissued.
type slot struct {
	cap      domain.Capability
	occupied bool
	nextGen  uint32
}

// Table is a process-private capability table. It owns the monotonic index
// allocator and the per-index generation counters used for revocation.
type Table struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32 // indices whose slot is free and ready for reissue
}

// NewTable returns an empty capability table.
func NewTable() *Table {
	return &Table{}
}

// Issue assigns a fresh CapId for object with the given rights and stores
// the capability. A freed index is reused with its generation incremented;
// a never-used index is appended with generation zero.
func (t *Table) Issue(object domain.CapabilityObject, rights domain.Rights) domain.CapId {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index uint32
	var gen uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
		gen = t.slots[index].nextGen
	} else {
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
		gen = 0
	}

	id := domain.NewCapId(index, gen)
	t.slots[index] = slot{
		cap: domain.Capability{
			ID:         id,
			Rights:     rights,
			Object:     object,
			Generation: gen,
		},
		occupied: true,
		nextGen:  gen + 1,
	}
	return id
}

// Lookup returns the live capability for id, or ok=false if the index is
// unknown, free, or the id's generation does not match the stored one.
func (t *Table) Lookup(id domain.CapId) (domain.Capability, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := id.Index()
	if int(idx) >= len(t.slots) {
		return domain.Capability{}, false
	}
	s := t.slots[idx]
	if !s.occupied || !s.cap.Live() || s.cap.ID.Generation() != id.Generation() {
		return domain.Capability{}, false
	}
	return s.cap, true
}

// Derive creates a new capability for newObject from parentID, restricting
// requestedRights to the parent's rights intersected with the applicable
// rights of newObject.Kind. It fails with domain.ErrCapNotFound if the
// parent is not live, or domain.ErrPermissionDenied if requestedRights
// exceeds what the parent (and the object kind) allow.
func (t *Table) Derive(parentID domain.CapId, newObject domain.CapabilityObject, requestedRights domain.Rights) (domain.CapId, error) {
	parent, ok := t.Lookup(parentID)
	if !ok {
		return 0, domain.ErrCapNotFound
	}

	allowed := parent.Rights & domain.ApplicableRights(newObject.Kind)
	if requestedRights&^allowed != 0 {
		return 0, domain.ErrPermissionDenied
	}

	return t.Issue(newObject, requestedRights&allowed), nil
}

// Revoke removes id's entry. The slot's index becomes eligible for reissue
// with a strictly higher generation; any copy of the old id subsequently
// fails Lookup even if the index is reused, because its embedded generation
// no longer matches.
func (t *Table) Revoke(id domain.CapId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := id.Index()
	if int(idx) >= len(t.slots) {
		return false
	}
	s := &t.slots[idx]
	if !s.occupied || s.cap.ID.Generation() != id.Generation() {
		return false
	}
	s.occupied = false
	s.cap = domain.Capability{}
	t.free = append(t.free, idx)
	log.WithField("cap_id", uint64(id)).Debug("capability revoked")
	return true
}

// Len reports the number of live capabilities, for diagnostics and tests.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, s := range t.slots {
		if s.occupied {
			n++
		}
	}
	return n
}

// Snapshot returns every live capability, in index order. sp_get_capabilities
// marshals this slice into guest memory.
func (t *Table) Snapshot() []domain.Capability {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Capability, 0, len(t.slots))
	for _, s := range t.slots {
		if s.occupied {
			out = append(out, s.cap)
		}
	}
	return out
}
