package wasmhost

import (
	"testing"

	"github.com/sovelma/kernel/domain"
	"github.com/sovelma/kernel/fsys"
	"github.com/stretchr/testify/require"
)

func TestToErrCodeMapsDomainSentinels(t *testing.T) {
	cases := []struct {
		err  error
		code domain.ErrCode
	}{
		{nil, 0},
		{domain.ErrCapNotFound, domain.ErrCodeCapNotFound},
		{domain.ErrPermissionDenied, domain.ErrCodePermissionDenied},
		{domain.ErrNotDirectory, domain.ErrCodeNotDirectory},
		{domain.ErrNotFile, domain.ErrCodeNotFile},
		{domain.ErrMutexHeld, domain.ErrCodeMutexHeld},
		{domain.ErrNoPermits, domain.ErrCodeNoPermits},
	}
	for _, c := range cases {
		require.Equal(t, c.code, ToErrCode(c.err))
	}
}

func TestToErrCodeMapsFsysErrors(t *testing.T) {
	require.Equal(t, domain.ErrCodeFsOpFailed, ToErrCode(fsys.ErrNotFound))
	require.Equal(t, domain.ErrCodePermissionDenied, ToErrCode(fsys.ErrExists))
	require.Equal(t, domain.ErrCodeFsOpFailed, ToErrCode(fsys.ErrInvalidHandle))
	require.Equal(t, domain.ErrCodeNotFile, ToErrCode(fsys.ErrNotFile))
}
