// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"encoding/binary"
	"fmt"
)

// computeLayout places the four sections contiguously after the header and
// derives dataOffset, the start of the file-data region.
func (b *builder) computeLayout(dirBuckets, fileBuckets []int32) (l3Header, error) {
	var hdr l3Header
	hdr.Size = headerSize

	dirHashSize := int64(len(dirBuckets)) * 4
	fileHashSize := int64(len(fileBuckets)) * 4

	dirHashOfs := align(headerSize, nameAlign)
	dirTableOfs := align(dirHashOfs+dirHashSize, nameAlign)
	fileHashOfs := align(dirTableOfs+b.dirTableSize, nameAlign)
	fileTableOfs := align(fileHashOfs+fileHashSize, nameAlign)
	dataOfs := align(fileTableOfs+b.fileTableSize, fileDataAlign)

	offsets := [4]int64{dirHashOfs, dirTableOfs, fileHashOfs, fileTableOfs}
	sizes := [4]int64{dirHashSize, b.dirTableSize, fileHashSize, b.fileTableSize}

	for i := range hdr.Section {
		off, err := checkOverflow(offsets[i], "section offset")
		if err != nil {
			return l3Header{}, err
		}
		sz, err := checkOverflow(sizes[i], "section size")
		if err != nil {
			return l3Header{}, err
		}
		hdr.Section[i] = sectionInfo{Offset: uint32(off), Size: uint32(sz)} //nolint:gosec // checkOverflow bounds v to s32 range
	}

	dataOfsChecked, err := checkOverflow(dataOfs, "data offset")
	if err != nil {
		return l3Header{}, err
	}
	hdr.DataOffset = uint32(dataOfsChecked) //nolint:gosec

	return hdr, nil
}

// emitBlob packs the header and the four table sections into one contiguous
// byte slice of length hdr.DataOffset, per spec.md §4.7's emit order.
func (b *builder) emitBlob(hdr l3Header, dirBuckets, fileBuckets []int32) ([]byte, error) {
	blob := make([]byte, hdr.DataOffset)

	writeHeader(blob, hdr)
	writeBucketArray(blob[hdr.Section[sectionDirHash].Offset:], dirBuckets)
	if err := writeDirTable(blob[hdr.Section[sectionDirTable].Offset:], b.store.dirs); err != nil {
		return nil, err
	}
	writeBucketArray(blob[hdr.Section[sectionFileHash].Offset:], fileBuckets)
	if err := writeFileTable(blob[hdr.Section[sectionFileTable].Offset:], b.store.files); err != nil {
		return nil, err
	}

	return blob, nil
}

// writeHeader packs the 40-byte little-endian header.
func writeHeader(dst []byte, hdr l3Header) {
	binary.LittleEndian.PutUint32(dst[0:4], hdr.Size)
	for i, s := range hdr.Section {
		base := 4 + i*8
		binary.LittleEndian.PutUint32(dst[base:base+4], s.Offset)
		binary.LittleEndian.PutUint32(dst[base+4:base+8], s.Size)
	}
	binary.LittleEndian.PutUint32(dst[36:40], hdr.DataOffset)
}

// writeBucketArray packs a hash bucket array as little-endian u32, encoding
// invalidOffset as 0xFFFFFFFF via the two's-complement bit pattern of -1.
func writeBucketArray(dst []byte, buckets []int32) {
	for i, v := range buckets {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], uint32(v)) //nolint:gosec // intentional bit-pattern reinterpretation
	}
}

// writeDirTable packs every directory entry followed by its padded name.
func writeDirTable(dst []byte, dirs []*dirEntry) error {
	for _, d := range dirs {
		base := d.entryOfs
		entry := dst[base:]
		putS32(entry[0:4], d.parentDirOfs)
		putS32(entry[4:8], d.siblingDirOfs)
		putS32(entry[8:12], d.childDirOfs)
		putS32(entry[12:16], d.childFileOfs)
		putS32(entry[16:20], d.prevDirOfs)
		putS32(entry[20:24], d.nameSize)

		if err := writeName(entry[dirEntrySize:], d.nameUTF16, d.namePad); err != nil {
			return err
		}
	}

	return nil
}

// writeFileTable packs every file entry followed by its padded name.
func writeFileTable(dst []byte, files []*fileEntry) error {
	for _, f := range files {
		base := f.entryOfs
		entry := dst[base:]
		putS32(entry[0:4], f.parentDirOfs)
		putS32(entry[4:8], f.siblingFileOfs)
		binary.LittleEndian.PutUint64(entry[8:16], uint64(f.dataOfs))  //nolint:gosec
		binary.LittleEndian.PutUint64(entry[16:24], uint64(f.fileSize)) //nolint:gosec
		putS32(entry[24:28], f.prevFileOfs)
		putS32(entry[28:32], f.nameSize)

		if err := writeName(entry[fileEntrySize:], f.nameUTF16, f.namePad); err != nil {
			return err
		}
	}

	return nil
}

// writeName packs a UTF-16LE name into a zero-padded field of exactly pad bytes.
func writeName(dst []byte, units []uint16, pad int32) error {
	if int64(len(dst)) < int64(pad) {
		return fmt.Errorf("%w: name field truncated", ErrInvariant)
	}

	for i, u := range units {
		binary.LittleEndian.PutUint16(dst[i*2:i*2+2], u)
	}

	return nil
}

// putS32 packs a signed 32-bit offset field as its two's-complement bit pattern.
func putS32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v)) //nolint:gosec // intentional bit-pattern reinterpretation
}
