package fsys

import (
	"io"
	"sync"

	"github.com/spf13/afero"
)

type nodeKind int

const (
	nodeFile nodeKind = iota
	nodeDirectory
)

// Node is one entry in the recursive FsNode tree: either a file, whose
// bytes live in the tree's backing afero filesystem, or a directory, whose
// children are named subnodes. Each node carries its own reader-writer
// lock, so the tree tolerates concurrent readers and one writer per node
// without a single global lock serializing unrelated subtrees.
type Node struct {
	mu   sync.RWMutex
	kind nodeKind

	// file-only
	backingPath string // path into the owning Tree's afero.Fs

	// directory-only
	children map[string]*Node
}

func newFileNode(backingPath string) *Node {
	return &Node{kind: nodeFile, backingPath: backingPath}
}

func newDirNode() *Node {
	return &Node{kind: nodeDirectory, children: make(map[string]*Node)}
}

func (n *Node) isDir() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.kind == nodeDirectory
}

// lookupChild resolves a single path component under n, which must be a
// directory. The lock is released before the caller descends further, so
// no two node locks are ever held simultaneously during traversal.
func (n *Node) lookupChild(name string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.kind != nodeDirectory {
		return nil, false
	}
	child, ok := n.children[name]
	return child, ok
}

// addChild inserts child under name if absent. Returns false if name is
// already taken (mkdir's "already exists" case) or n is not a directory.
func (n *Node) addChild(name string, child *Node) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.kind != nodeDirectory {
		return false
	}
	if _, exists := n.children[name]; exists {
		return false
	}
	n.children[name] = child
	return true
}

func (n *Node) size(backing afero.Fs) (int64, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.kind == nodeDirectory {
		return 0, nil
	}
	info, err := backing.Stat(n.backingPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (n *Node) readAt(backing afero.Fs, buf []byte, offset int64) (int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.kind != nodeFile {
		return 0, ErrNotFile
	}
	f, err := backing.Open(n.backingPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	nread, err := f.ReadAt(buf, offset)
	// Reading past EOF must return 0 bytes, never an error.
	if err == io.EOF {
		err = nil
	}
	return nread, err
}
