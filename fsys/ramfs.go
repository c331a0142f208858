package fsys

import (
	"fmt"
	"sync"
	"sync/atomic"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/spf13/afero"
)

// Tree is the hierarchical in-memory filesystem: a tree of File/Directory
// nodes backed by an afero.Fs for file content, plus the open-handle table
// that client code addresses nodes through. One Tree is shared process-wide,
// the way the original kernel's single global RAM filesystem was; capability
// Directory/File objects carry a Handle into this table.
type Tree struct {
	backing afero.Fs
	root    *Node

	mu      sync.RWMutex
	handles map[Handle]*openEntry
	nextID  uint64 // internal afero path allocator
	nextH   uint32

	// resolveCache memoizes absolute-path resolution from root, indexed by
	// path as its key. It is an immutable radix tree (structural sharing on
	// every insert, snapshot-consistent for concurrent readers) the way the
	// teacher's handlerDB indexes handlers by path; any structural mutation
	// (mkdir, AddFile) replaces it wholesale rather than editing nodes that
	// earlier readers may still be holding.
	resolveCache *iradix.Tree
}

// New returns an empty tree with a single root directory.
func New() *Tree {
	return &Tree{
		backing:      afero.NewMemMapFs(),
		root:         newDirNode(),
		handles:      make(map[Handle]*openEntry),
		resolveCache: iradix.New(),
	}
}

func (t *Tree) allocHandle(n *Node) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextH++
	h := Handle(t.nextH)
	t.handles[h] = &openEntry{node: n}
	return h
}

func (t *Tree) entry(h Handle) (*openEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.handles[h]
	return e, ok
}

// resolve walks components starting at start, failing NotFound on a
// missing component or on descending through a file. It never holds more
// than one node's lock at a time.
func (t *Tree) resolve(start *Node, components []string) (*Node, error) {
	cur := start
	for _, name := range components {
		child, ok := cur.lookupChild(name)
		if !ok {
			return nil, ErrNotFound
		}
		cur = child
	}
	return cur, nil
}

// Open resolves an absolute path from the tree root and returns a fresh
// handle to the resulting node. Resolution itself is cached in
// resolveCache keyed on path; a cache hit skips the component-by-component
// walk entirely.
func (t *Tree) Open(path string) (Handle, error) {
	t.mu.RLock()
	if v, ok := t.resolveCache.Get([]byte(path)); ok {
		t.mu.RUnlock()
		return t.allocHandle(v.(*Node)), nil
	}
	t.mu.RUnlock()

	node, err := t.resolve(t.root, splitPath(path))
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	newCache, _, _ := t.resolveCache.Insert([]byte(path), node)
	t.resolveCache = newCache
	t.mu.Unlock()

	return t.allocHandle(node), nil
}

// invalidateResolveCache discards every cached path resolution. Called
// after any structural mutation (mkdir, AddFile), since a cached path may
// now resolve to a different node or resolve at all for the first time.
func (t *Tree) invalidateResolveCache() {
	t.mu.Lock()
	t.resolveCache = iradix.New()
	t.mu.Unlock()
}

// OpenAt resolves path relative to an already-open directory handle.
func (t *Tree) OpenAt(base Handle, path string) (Handle, error) {
	e, ok := t.entry(base)
	if !ok {
		return 0, ErrInvalidHandle
	}
	if !e.node.isDir() {
		return 0, ErrNotDirectory
	}
	node, err := t.resolve(e.node, splitPath(path))
	if err != nil {
		return 0, err
	}
	return t.allocHandle(node), nil
}

// MkdirAt creates a new, empty directory named by the final component of
// path under the directory open at base. All but the last component must
// already exist. The final component must not already exist.
func (t *Tree) MkdirAt(base Handle, path string) error {
	e, ok := t.entry(base)
	if !ok {
		return ErrInvalidHandle
	}
	if !e.node.isDir() {
		return ErrNotDirectory
	}

	components := splitPath(path)
	if len(components) == 0 {
		return ErrExists
	}
	parent, err := t.resolve(e.node, components[:len(components)-1])
	if err != nil {
		return err
	}
	if !parent.isDir() {
		return ErrNotDirectory
	}

	leaf := components[len(components)-1]
	if !parent.addChild(leaf, newDirNode()) {
		return ErrExists
	}
	t.invalidateResolveCache()
	return nil
}

// AddFile inserts a file named by the final component of path under the
// directory open at base, seeding it with content. It is the construction
// primitive used when building a process's initial filesystem view (the
// core's fs contract has no guest-facing "create file"; only mkdir is
// exposed across the ABI).
func (t *Tree) AddFile(base Handle, path string, content []byte) error {
	e, ok := t.entry(base)
	if !ok {
		return ErrInvalidHandle
	}
	if !e.node.isDir() {
		return ErrNotDirectory
	}

	components := splitPath(path)
	if len(components) == 0 {
		return ErrExists
	}
	parent, err := t.resolve(e.node, components[:len(components)-1])
	if err != nil {
		return err
	}
	if !parent.isDir() {
		return ErrNotDirectory
	}

	id := atomic.AddUint64(&t.nextID, 1)
	backingPath := backingPathFor(id)
	if err := afero.WriteFile(t.backing, backingPath, content, 0o644); err != nil {
		return err
	}

	leaf := components[len(components)-1]
	if !parent.addChild(leaf, newFileNode(backingPath)) {
		return ErrExists
	}
	t.invalidateResolveCache()
	return nil
}

// Root returns a handle to the tree root, for seeding a process's initial
// Directory capability.
func (t *Tree) Root() Handle {
	return t.allocHandle(t.root)
}

// Read copies up to len(buf) bytes from the file at handle starting at
// offset. Reading past end-of-file returns (0, nil), never an error.
func (t *Tree) Read(h Handle, buf []byte, offset int64) (int, error) {
	e, ok := t.entry(h)
	if !ok {
		return 0, ErrInvalidHandle
	}
	return e.node.readAt(t.backing, buf, offset)
}

// Size returns a file's byte length, or zero for a directory.
func (t *Tree) Size(h Handle) (int64, error) {
	e, ok := t.entry(h)
	if !ok {
		return 0, ErrInvalidHandle
	}
	return e.node.size(t.backing)
}

// IsDir reports whether handle refers to a directory.
func (t *Tree) IsDir(h Handle) (bool, error) {
	e, ok := t.entry(h)
	if !ok {
		return false, ErrInvalidHandle
	}
	return e.node.isDir(), nil
}

// Close releases handle. Closing an already-closed or unknown handle is a
// no-op, matching the idempotence the contract requires.
func (t *Tree) Close(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handles, h)
	return nil
}

func backingPathFor(id uint64) string {
	return fmt.Sprintf("/f%x", id)
}
