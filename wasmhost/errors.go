package wasmhost

import (
	"errors"

	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/fsys"
)

// ToErrCode maps an internal error to the stable, negative ABI code a host
// function returns to the guest. The mapping — and only the mapping — is
// the part of the contract guests may depend on; everything upstream of it
// is free to use ordinary Go errors.
func ToErrCode(err error) domain.ErrCode {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrCapNotFound):
		return domain.ErrCodeCapNotFound
	case errors.Is(err, domain.ErrPermissionDenied):
		return domain.ErrCodePermissionDenied
	case errors.Is(err, domain.ErrNotDirectory):
		return domain.ErrCodeNotDirectory
	case errors.Is(err, domain.ErrNotFile):
		return domain.ErrCodeNotFile
	case errors.Is(err, domain.ErrInvalidHandle):
		return domain.ErrCodeInvalidSyncHdl
	case errors.Is(err, domain.ErrMutexHeld):
		return domain.ErrCodeMutexHeld
	case errors.Is(err, domain.ErrNoPermits):
		return domain.ErrCodeNoPermits
	}

	var fsErr *fsys.Error
	if errors.As(err, &fsErr) {
		switch fsErr.Kind {
		case fsys.NotFound:
			return domain.ErrCodeFsOpFailed
		case fsys.PermissionDenied:
			return domain.ErrCodePermissionDenied
		case fsys.NotAFile:
			return domain.ErrCodeNotFile
		case fsys.InvalidHandle:
			// Neither -13 (sync-handle-specific) nor -6 (not-a-directory)
			// fits a plain invalid filesystem handle; fall back to the
			// generic filesystem-operation-failed code.
			return domain.ErrCodeFsOpFailed
		}
	}

	return domain.ErrCodeFsOpFailed
}
