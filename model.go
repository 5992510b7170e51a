// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"time"

	"github.com/woozymasta/pathrules"
	"go.uber.org/zap"
)

// Internal binary layout and format limits.
const (
	// headerSize is the fixed byte size of the packed L3 header: Size(4) +
	// 4*sectionInfo(8 each) + DataOffset(4) = 40 bytes (0x28).
	headerSize = 40
	// dirEntrySize is the fixed byte size of a directory metadata record, name excluded.
	dirEntrySize = 24
	// fileEntrySize is the fixed byte size of a file metadata record, name excluded.
	fileEntrySize = 32
	// nameAlign is the byte alignment applied to every entry name and to section offsets.
	nameAlign = 4
	// fileDataAlign is the byte alignment applied to file data offsets and DataOffset.
	fileDataAlign = 16
	// blockSize is the alignment applied to the reported virtual image size.
	blockSize = 1 << 12
	// maxNameBytes bounds one entry name's encoded UTF-16LE byte length.
	maxNameBytes = 1024
)

// invalidOffset is the sentinel for "no link", in both index and byte-offset form.
const invalidOffset int32 = -1

// sectionType identifies one of the four L3 header sections, in on-disk order.
type sectionType int

// Section indices, in on-disk header order.
const (
	sectionDirHash sectionType = iota
	sectionDirTable
	sectionFileHash
	sectionFileTable
)

// sectionInfo is one header section descriptor: {offset, size} in bytes from blob start.
type sectionInfo struct {
	Offset uint32
	Size   uint32
}

// l3Header is the packed 40-byte L3 metadata header.
type l3Header struct {
	Size       uint32
	Section    [4]sectionInfo
	DataOffset uint32
}

// BuildOptions configures Build.
type BuildOptions struct {
	// Exclude lists host-path rules evaluated against each scanned child's
	// path relative to the build root; matched children are omitted from
	// the tree entirely (neither a dir nor a file entry is created for them).
	// An empty rule set excludes nothing.
	Exclude []pathrules.Rule
	// ExcludeMatcherOptions controls Exclude rule matching. Zero value uses
	// case-insensitive matching with a default action of include (only
	// explicit Exclude rules remove anything).
	ExcludeMatcherOptions pathrules.MatcherOptions
	// Logger receives build diagnostics: one summary line per build (with
	// scan/size failure counts) and a warning when the build is degraded.
	// Nil disables all logging; the build-quality flag on
	// Result is still set regardless of whether a Logger is supplied.
	Logger *zap.SugaredLogger
	// ComputeMetadataDigest requests a content digest of the emitted
	// header+hash-tables+metadata-tables region (see Result.MetadataDigest).
	ComputeMetadataDigest bool
}

// applyDefaults fills zero-valued build options with defaults.
func (opts *BuildOptions) applyDefaults() {
	if opts.ExcludeMatcherOptions == (pathrules.MatcherOptions{}) {
		opts.ExcludeMatcherOptions = pathrules.MatcherOptions{
			CaseInsensitive: true,
			DefaultAction:   pathrules.ActionInclude,
		}
	}

	if opts.ExcludeMatcherOptions.DefaultAction == pathrules.ActionUnknown {
		opts.ExcludeMatcherOptions.DefaultAction = pathrules.ActionInclude
	}
}

// Result carries build output statistics and the build-quality flag.
type Result struct {
	// DirCount is the number of directory entries in the final image, root included.
	DirCount int
	// FileCount is the number of file entries in the final image.
	FileCount int
	// ImageSize is the reported virtual image size: align(dataCursor+DataOffset, blockSize).
	ImageSize int64
	// DataOffset is the byte offset at which file data begins in the virtual image.
	DataOffset int64
	// Degraded reports whether any non-fatal ScanError/SizeError occurred during the build.
	Degraded bool
	// Duration is end-to-end build duration.
	Duration time.Duration
	// MetadataDigest is set when BuildOptions.ComputeMetadataDigest is true; it is the
	// content digest of the emitted header+hash-tables+metadata-tables byte region.
	MetadataDigest string
}

// Image is the immutable output of Build: the emitted L3 blob, the file-data
// offset map, and enough bookkeeping for Reader to serve byte ranges.
type Image struct {
	blob       []byte
	dataOffset int64
	imageSize  int64
	offsetMap  *offsetMap
	result     Result
	manifest   []ManifestEntry
}

// Blob returns the emitted header+hash-tables+metadata-tables region. Its
// length equals DataOffset(); it never contains file data.
func (im *Image) Blob() []byte {
	out := make([]byte, len(im.blob))
	copy(out, im.blob)
	return out
}

// DataOffset returns the byte offset at which file data begins.
func (im *Image) DataOffset() int64 {
	return im.dataOffset
}

// Size returns the virtual image size reported to consumers.
func (im *Image) Size() int64 {
	return im.imageSize
}

// Result returns the build statistics produced alongside this image.
func (im *Image) Result() Result {
	return im.result
}

// Manifest lists every file that survived into the image, in build order.
func (im *Image) Manifest() []ManifestEntry {
	out := make([]ManifestEntry, len(im.manifest))
	copy(out, im.manifest)
	return out
}

// ManifestEntry describes one file surviving into the built image.
type ManifestEntry struct {
	RelPath    string
	Size       int64
	DataOffset int64 // absolute offset into the virtual image
}

// align rounds data up to the next multiple of alignment.
func align(data, alignment int64) int64 {
	return (data + alignment - 1) / alignment * alignment
}
