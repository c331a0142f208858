package fsys

// Handle is an opaque, monotonic identifier into a Tree's open-handle
// table. The open-handle table is the sole lifetime anchor for interior
// nodes: as long as a handle references a node, the node must not be
// pruned even if it becomes otherwise unreachable (the core does not
// implement removal, so this is currently an invariant with no code path
// that could violate it, but the table still decides reachability).
type Handle uint32

type openEntry struct {
	node *Node
}
