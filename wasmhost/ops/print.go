package ops

import (
	"context"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/wasmhost"
	"github.com/tetratelabs/wazero/api"
)

// Print implements `print(ptr, len) -> i32`: debug-only console emission.
// The reference host function requires no capability; it is routed to the
// structured logger at debug level rather than raw stdout so guest output
// interleaves sanely with the rest of the kernel's logs.
func Print(hs *wasmhost.HostState) func(ctx context.Context, mod api.Module, ptr, length uint32) int32 {
	return func(ctx context.Context, mod api.Module, ptr, length uint32) int32 {
		hs.ChargeFuel(wasmhost.CostMemoryIO)

		data, ok := readGuestBytes(mod, ptr, length)
		if !ok {
			return errCode(domain.ErrCodeMemoryReadFault)
		}
		if !utf8.Valid(data) {
			return errCode(domain.ErrCodeInvalidUTF8)
		}
		log.WithField("source", "guest").Debug(string(data))
		return 0
	}
}
