package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAtAndReadRoundTrip(t *testing.T) {
	tree := New()
	root := tree.Root()
	require.NoError(t, tree.AddFile(root, "hello.wasm", []byte{0x00, 0x61, 0x73, 0x6d}))

	h, err := tree.OpenAt(root, "hello.wasm")
	require.NoError(t, err)

	size, err := tree.Size(h)
	require.NoError(t, err)
	require.EqualValues(t, 4, size)

	buf := make([]byte, 4)
	n, err := tree.Read(h, buf, 0)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d}, buf)
}

func TestReadPastEOFReturnsZero(t *testing.T) {
	tree := New()
	root := tree.Root()
	require.NoError(t, tree.AddFile(root, "f", []byte{1, 2, 3}))
	h, err := tree.OpenAt(root, "f")
	require.NoError(t, err)

	buf := make([]byte, 8)
	n, err := tree.Read(h, buf, 100)
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestMkdirAtRejectsDuplicate(t *testing.T) {
	tree := New()
	root := tree.Root()
	require.NoError(t, tree.MkdirAt(root, "a"))
	err := tree.MkdirAt(root, "a")
	require.ErrorIs(t, err, ErrExists)
}

func TestCloseIsIdempotent(t *testing.T) {
	tree := New()
	root := tree.Root()
	require.NoError(t, tree.Close(root))
	require.NoError(t, tree.Close(root))
}

func TestOpenAtUnknownPathFails(t *testing.T) {
	tree := New()
	root := tree.Root()
	_, err := tree.OpenAt(root, "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSizeOfDirectoryIsZero(t *testing.T) {
	tree := New()
	root := tree.Root()
	require.NoError(t, tree.MkdirAt(root, "d"))
	h, err := tree.OpenAt(root, "d")
	require.NoError(t, err)

	size, err := tree.Size(h)
	require.NoError(t, err)
	require.EqualValues(t, 0, size)

	isDir, err := tree.IsDir(h)
	require.NoError(t, err)
	require.True(t, isDir)
}

func TestInvalidHandleFails(t *testing.T) {
	tree := New()
	_, err := tree.Size(Handle(9999))
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestReadAgainstDirectoryReturnsNotAFile(t *testing.T) {
	tree := New()
	root := tree.Root()
	require.NoError(t, tree.MkdirAt(root, "d"))
	h, err := tree.OpenAt(root, "d")
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = tree.Read(h, buf, 0)
	require.ErrorIs(t, err, ErrNotFile)
}

func TestOpenUsesResolveCacheAcrossCalls(t *testing.T) {
	tree := New()
	require.NoError(t, tree.AddFile(tree.Root(), "hello.wasm", []byte{1, 2, 3}))

	h1, err := tree.Open("/hello.wasm")
	require.NoError(t, err)
	h2, err := tree.Open("/hello.wasm")
	require.NoError(t, err)

	e1, ok := tree.entry(h1)
	require.True(t, ok)
	e2, ok := tree.entry(h2)
	require.True(t, ok)
	require.Same(t, e1.node, e2.node)
}

func TestOpenAfterMkdirInvalidatesCache(t *testing.T) {
	tree := New()
	_, err := tree.Open("/sub/leaf")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tree.MkdirAt(tree.Root(), "sub"))
	sub, err := tree.Open("/sub")
	require.NoError(t, err)
	require.NoError(t, tree.AddFile(sub, "leaf", []byte{9}))

	h, err := tree.Open("/sub/leaf")
	require.NoError(t, err)
	size, err := tree.Size(h)
	require.NoError(t, err)
	require.EqualValues(t, 1, size)
}
