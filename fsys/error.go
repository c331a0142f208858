//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package fsys implements the hierarchical, in-memory filesystem that backs
// File and Directory capabilities. It is grounded on the original kernel's
// flat RamFs (kernel/src/fs/ramfs.rs) generalized into a recursive tree of
// FsNode the way the original's common/capability.rs already modeled
// Directory/File as distinct capability object kinds.
package fsys

import "errors"

// Error is the typed error returned by every fsys operation, following the
// sysbox-fs convention (fuse.IOerror) of carrying a stable kind alongside a
// human message instead of ad hoc string matching.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Kind enumerates the failure taxonomy from the filesystem contract.
type Kind int

const (
	NotFound Kind = iota
	PermissionDenied
	InvalidHandle
	NotAFile
)

func newErr(kind Kind, msg string) error { return &Error{Kind: kind, Msg: msg} }

var (
	// ErrNotFound is returned when a path component is missing or a
	// non-leaf component resolves to a file.
	ErrNotFound = newErr(NotFound, "not found")
	// ErrExists is returned by Mkdir when the final component already
	// exists in the parent directory.
	ErrExists = newErr(PermissionDenied, "already exists")
	// ErrNotDirectory is returned when an operation requiring a directory
	// is attempted against a file node.
	ErrNotDirectory = newErr(PermissionDenied, "not a directory")
	// ErrNotFile is returned when a read is attempted against a directory
	// node, distinct from ErrNotDirectory (whose PermissionDenied kind the
	// ABI reports as -5) so the ABI can report -10 (not a file).
	ErrNotFile = newErr(NotAFile, "not a file")
	// ErrInvalidHandle is returned for an unknown or wrong-kind handle.
	ErrInvalidHandle = newErr(InvalidHandle, "invalid handle")
)

// KindOf extracts the Kind from err, defaulting to NotFound for errors not
// produced by this package (never expected in practice, but keeps callers
// total).
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return NotFound
}
