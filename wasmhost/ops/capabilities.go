package ops

import (
	"context"
	"encoding/binary"

	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/wasmhost"
	"github.com/tetratelabs/wazero/api"
)

// capTypeTag maps a domain.ObjectKind to the ABI's capability type tag
// encoding (File=0, Directory=1, Mutex=2, Semaphore=3, other=255).
func capTypeTag(kind domain.ObjectKind) uint32 {
	switch kind {
	case domain.ObjectFile:
		return 0
	case domain.ObjectDirectory:
		return 1
	case domain.ObjectMutex:
		return 2
	case domain.ObjectSemaphore:
		return 3
	default:
		return 255
	}
}

// GetCapabilities implements `sp_get_capabilities(ptr, len) -> count`: marshals
// the caller's entire capability table into guest memory as a packed
// little-endian {u64 id, u32 type, u32 rights} record per entry.
func GetCapabilities(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, ptr, bufLen uint32) int32 {
	const entrySize = 16
	return func(ctx context.Context, mod api.Module, ptr, bufLen uint32) int32 {
		hs.ChargeFuel(wasmhost.CostCapabilityLookup)

		caps := hs.Caps.Snapshot()
		buf := make([]byte, len(caps)*entrySize)
		for i, c := range caps {
			off := i * entrySize
			binary.LittleEndian.PutUint64(buf[off:], uint64(c.ID))
			binary.LittleEndian.PutUint32(buf[off+8:], capTypeTag(c.Object.Kind))
			binary.LittleEndian.PutUint32(buf[off+12:], uint32(c.Rights))
		}

		_, tooSmall, writeFault := writeResult(mod, ptr, bufLen, buf)
		if tooSmall {
			return errCode(domain.ErrCodeBufferTooSmall)
		}
		if writeFault {
			return errCode(domain.ErrCodeMemoryWriteFault)
		}
		return int32(len(caps))
	}
}
