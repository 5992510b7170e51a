// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import "unicode/utf16"

// dirEntry is one in-memory directory record. Link fields hold sequence
// indexes during build and are rewritten to byte offsets by the linker.
type dirEntry struct {
	hostPath string
	nameUTF16 []uint16
	nameSize  int32 // bytes = len(nameUTF16)*2
	namePad   int32 // align(nameSize, nameAlign)
	entryOfs  int32 // byte offset within DIR_TABLE, set by the pruner
	bucketIdx int32

	parentDirOfs  int32
	siblingDirOfs int32
	childDirOfs   int32
	childFileOfs  int32
	prevDirOfs    int32
}

// fileEntry is one in-memory file record. Link fields hold sequence indexes
// during build and are rewritten to byte offsets by the linker.
type fileEntry struct {
	hostPath string
	relPath  string // path relative to the build root, slash-separated
	nameUTF16 []uint16
	nameSize  int32
	namePad   int32
	entryOfs  int32 // byte offset within FILE_TABLE, set at append time
	bucketIdx int32

	parentDirOfs   int32
	siblingFileOfs int32
	dataOfs        int64
	fileSize       int64
	prevFileOfs    int32
}

// entryStore holds the two index-addressable sequences the builder owns.
type entryStore struct {
	dirs  []*dirEntry
	files []*fileEntry
}

// encodeName converts a host child name to UTF-16LE code units and records
// its encoded and padded byte sizes. Root's name is empty.
func encodeName(name string) (units []uint16, size, padded int32, err error) {
	units = utf16.Encode([]rune(name))
	size = int32(len(units) * 2) //nolint:gosec // bounded by maxNameBytes check below
	if int(size) > maxNameBytes {
		return nil, 0, 0, ErrNameTooLong
	}

	padded = int32(align(int64(size), nameAlign))
	return units, size, padded, nil
}

// newRootDir creates the root directory entry: its own parent, no links yet.
func newRootDir(hostPath string) *dirEntry {
	return &dirEntry{
		hostPath:      hostPath,
		nameUTF16:     nil,
		nameSize:      0,
		namePad:       0,
		parentDirOfs:  0,
		siblingDirOfs: invalidOffset,
		childDirOfs:   invalidOffset,
		childFileOfs:  invalidOffset,
		prevDirOfs:    invalidOffset,
	}
}
