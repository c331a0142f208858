package syncx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryHandlesAreMonotonicAndOneIndexed(t *testing.T) {
	r := NewRegistry()
	h1 := r.CreateMutex()
	h2 := r.CreateMutex()
	require.EqualValues(t, 1, h1)
	require.EqualValues(t, 2, h2)
}

func TestRegistryDestroyMakesLookupFail(t *testing.T) {
	r := NewRegistry()
	h := r.CreateSemaphore(3)
	_, ok := r.GetSemaphore(h)
	require.True(t, ok)

	r.DestroySemaphore(h)
	_, ok = r.GetSemaphore(h)
	require.False(t, ok)
}
