// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

// primeFactors lists the small primes the bucket-count policy sieves against,
// per spec.md §4.5.
var primeFactors = []uint32{2, 3, 5, 7, 11, 13, 17}

// computeBucketCount returns the hash bucket count for n entries.
func computeBucketCount(n uint32) uint32 {
	switch {
	case n < 3:
		return 3
	case n <= 19:
		return n | 1
	default:
		for hasSmallFactor(n) {
			n++
		}
		return n
	}
}

// hasSmallFactor reports whether n is divisible by any of primeFactors.
func hasSmallFactor(n uint32) bool {
	for _, p := range primeFactors {
		if n%p == 0 {
			return true
		}
	}

	return false
}

// hashEntry computes the format-defined rotate-right-5/XOR hash of an entry's
// parent byte offset and UTF-16LE name, per spec.md §4.5 and §9.
func hashEntry(parentEntryOfs int32, name []uint16) uint32 {
	h := uint32(parentEntryOfs) ^ 0x075BCD15 //nolint:gosec // two's-complement reinterpretation is intentional
	for _, c := range name {
		h = rotateRight32(h, 5) ^ uint32(c)
	}

	return h
}

// rotateRight32 performs a 32-bit right rotation by n bits (0 <= n < 32).
func rotateRight32(v uint32, n uint) uint32 {
	return (v >> n) | (v << (32 - n))
}

// createHash builds the directory and file hash bucket arrays, chaining
// collisions via prevDirOfs/prevFileOfs in reverse-insertion order.
func (b *builder) createHash() (dirBuckets, fileBuckets []int32) {
	dirBuckets = newBucketArray(computeBucketCount(uint32(len(b.store.dirs)))) //nolint:gosec
	fileBuckets = newBucketArray(computeBucketCount(uint32(len(b.store.files)))) //nolint:gosec

	for i, d := range b.store.dirs {
		parentOfs := b.store.dirs[d.parentDirOfs].entryOfs
		idx := uint32(hashEntry(parentOfs, d.nameUTF16)) % uint32(len(dirBuckets))
		d.bucketIdx = int32(idx) //nolint:gosec

		if dirBuckets[idx] != invalidOffset {
			d.prevDirOfs = dirBuckets[idx]
		}
		dirBuckets[idx] = int32(i) //nolint:gosec
	}

	for i, f := range b.store.files {
		parentOfs := b.store.dirs[f.parentDirOfs].entryOfs
		idx := uint32(hashEntry(parentOfs, f.nameUTF16)) % uint32(len(fileBuckets))
		f.bucketIdx = int32(idx) //nolint:gosec

		if fileBuckets[idx] != invalidOffset {
			f.prevFileOfs = fileBuckets[idx]
		}
		fileBuckets[idx] = int32(i) //nolint:gosec
	}

	return dirBuckets, fileBuckets
}

// newBucketArray allocates a bucket array initialized to invalidOffset.
func newBucketArray(n uint32) []int32 {
	buckets := make([]int32, n)
	for i := range buckets {
		buckets[i] = invalidOffset
	}

	return buckets
}
