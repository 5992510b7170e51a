// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import "errors"

// Sentinel errors for romfs3 operations. Use errors.Is in callers.
var (
	// ErrInvalidRoot means the build root path does not exist or is not a directory.
	ErrInvalidRoot = errors.New("build root is not a directory")
	// ErrInvariant means an offset computation or index rewrite violated a
	// structural invariant of the L3 format; the build is aborted.
	ErrInvariant = errors.New("L3 invariant violation")
	// ErrNameTooLong means an entry's encoded UTF-16LE name exceeds maxNameBytes.
	ErrNameTooLong = errors.New("entry name exceeds maximum encoded length")
	// ErrNilReader means the reader or its image is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrClosed means the reader is already closed.
	ErrClosed = errors.New("reader already closed")
	// ErrInvalidRange means a requested read range is invalid for the image.
	ErrInvalidRange = errors.New("invalid read range")
	// ErrZeroLengthRead means a zero-length read was rejected before crypto processing.
	ErrZeroLengthRead = errors.New("zero-length read rejected")
	// ErrInvalidExcludeRules means one or more exclude rules failed to compile.
	ErrInvalidExcludeRules = errors.New("invalid exclude rules")
	// ErrReadFailed wraps host open/seek/read failures reported by Reader.ReadAt.
	ErrReadFailed = errors.New("read failed")
)
