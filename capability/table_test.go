package capability

import (
	"testing"

	"github.com/sovelma/kernel/domain"
	"github.com/stretchr/testify/require"
)

func TestIssueAndLookup(t *testing.T) {
	tbl := NewTable()
	id := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 1}, domain.RightRead)

	cap, ok := tbl.Lookup(id)
	require.True(t, ok)
	require.Equal(t, domain.RightRead, cap.Rights)
	require.Equal(t, uint32(0), id.Generation())
}

func TestRevokeThenLookupFails(t *testing.T) {
	tbl := NewTable()
	id := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 1}, domain.RightRead)

	require.True(t, tbl.Revoke(id))
	_, ok := tbl.Lookup(id)
	require.False(t, ok)
}

func TestRevokeThenReissueBumpsGeneration(t *testing.T) {
	tbl := NewTable()
	id := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 1}, domain.RightRead)
	require.True(t, tbl.Revoke(id))

	id2 := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 2}, domain.RightRead)
	require.Equal(t, id.Index(), id2.Index())
	require.Greater(t, id2.Generation(), id.Generation())

	// The stale copy of the original id must never resolve to the new capability.
	_, ok := tbl.Lookup(id)
	require.False(t, ok)
}

func TestDeriveRestrictsToParentAndObjectKind(t *testing.T) {
	tbl := NewTable()
	dir := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectDirectory, Handle: 1}, domain.RightRead)

	// File applicable rights are READ|WRITE; parent only has READ, so a
	// request for WRITE is rejected, and the derived capability can carry
	// READ only.
	_, err := tbl.Derive(dir, domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 2}, domain.RightRead|domain.RightWrite)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)

	childID, err := tbl.Derive(dir, domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 2}, domain.RightRead)
	require.NoError(t, err)

	child, ok := tbl.Lookup(childID)
	require.True(t, ok)
	require.Equal(t, domain.RightRead, child.Rights)
}

func TestDeriveRejectsRightsBeyondParent(t *testing.T) {
	tbl := NewTable()
	dir := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectDirectory, Handle: 1}, domain.RightRead)

	_, err := tbl.Derive(dir, domain.CapabilityObject{Kind: domain.ObjectDirectory, Handle: 2}, domain.RightGrant)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestDeriveFromUnknownParentFails(t *testing.T) {
	tbl := NewTable()
	_, err := tbl.Derive(domain.NewCapId(99, 0), domain.CapabilityObject{Kind: domain.ObjectFile}, domain.RightRead)
	require.ErrorIs(t, err, domain.ErrCapNotFound)
}

func TestSnapshotOnlyIncludesLive(t *testing.T) {
	tbl := NewTable()
	a := tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 1}, domain.RightRead)
	tbl.Issue(domain.CapabilityObject{Kind: domain.ObjectFile, Handle: 2}, domain.RightRead)
	tbl.Revoke(a)

	snap := tbl.Snapshot()
	require.Len(t, snap, 1)
	require.Equal(t, uint64(2), snap[0].Object.Handle)
}
