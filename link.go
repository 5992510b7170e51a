// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

// link rewrites every dir/file link field and both hash bucket arrays from
// build-time sequence indexes to final byte offsets, per spec.md §4.6. It
// must run after createHash, since the hash keys themselves are pre-link
// parent byte offsets that are already final by that point.
func (b *builder) link(dirBuckets, fileBuckets []int32) {
	for i := range dirBuckets {
		dirBuckets[i] = b.dirOffsetOf(dirBuckets[i])
	}
	for i := range fileBuckets {
		fileBuckets[i] = b.fileOffsetOf(fileBuckets[i])
	}

	for _, d := range b.store.dirs {
		d.parentDirOfs = b.dirOffsetOf(d.parentDirOfs)
		d.siblingDirOfs = b.dirOffsetOf(d.siblingDirOfs)
		d.childDirOfs = b.dirOffsetOf(d.childDirOfs)
		d.childFileOfs = b.fileOffsetOf(d.childFileOfs)
		d.prevDirOfs = b.dirOffsetOf(d.prevDirOfs)
	}

	for _, f := range b.store.files {
		f.parentDirOfs = b.dirOffsetOf(f.parentDirOfs)
		f.siblingFileOfs = b.fileOffsetOf(f.siblingFileOfs)
		f.prevFileOfs = b.fileOffsetOf(f.prevFileOfs)
	}
}

// dirOffsetOf resolves a dir sequence index to its final DIR_TABLE byte offset.
func (b *builder) dirOffsetOf(idx int32) int32 {
	if idx == invalidOffset {
		return invalidOffset
	}

	return b.store.dirs[idx].entryOfs
}

// fileOffsetOf resolves a file sequence index to its final FILE_TABLE byte offset.
func (b *builder) fileOffsetOf(idx int32) int32 {
	if idx == invalidOffset {
		return invalidOffset
	}

	return b.store.files[idx].entryOfs
}
