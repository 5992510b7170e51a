// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
)

// offsetMap resolves a virtual-image byte offset within the file-data region
// to a host file path and an in-file skip, per spec.md §4.8.
type offsetMap struct {
	keys      []int64
	hostPaths []string
}

// newOffsetMap indexes every file with nonzero size by its absolute data
// start offset. Files are visited in ascending dataOfs order, so keys stay sorted.
func newOffsetMap(dataOffset int64, files []*fileEntry) *offsetMap {
	om := &offsetMap{}
	for _, f := range files {
		if f.fileSize <= 0 {
			continue
		}

		om.keys = append(om.keys, dataOffset+f.dataOfs)
		om.hostPaths = append(om.hostPaths, f.hostPath)
	}

	return om
}

// lookup finds the file with the largest data start at or below offset, via
// floor search. offset may lie past that file's end, in alignment padding.
func (om *offsetMap) lookup(offset int64) (hostPath string, skip int64, ok bool) {
	if len(om.keys) == 0 {
		return "", 0, false
	}

	i := sort.Search(len(om.keys), func(i int) bool { return om.keys[i] > offset })
	if i == 0 {
		return "", 0, false
	}

	i--
	return om.hostPaths[i], offset - om.keys[i], true
}

// Reader serves byte-ranges from an emitted L3 image: metadata bytes come
// from the in-memory blob, file-data bytes are read on demand from the host.
type Reader struct {
	blob       []byte
	dataOffset int64
	imageSize  int64
	offsets    *offsetMap
}

// newReader wraps a finished blob and offset map. Not exported: callers get
// a *Reader from Image.Reader.
func newReader(blob []byte, dataOffset, imageSize int64, offsets *offsetMap) *Reader {
	return &Reader{blob: blob, dataOffset: dataOffset, imageSize: imageSize, offsets: offsets}
}

// Size returns the virtual-image size reported to consumers.
func (r *Reader) Size() int64 {
	return r.imageSize
}

// DataOffset returns the byte offset at which file data begins. Callers
// issuing their own chunked reads must never let a single ReadAt span this
// boundary; see ReadAt's boundary-crossing truncation.
func (r *Reader) DataOffset() int64 {
	return r.dataOffset
}

// ReadAt implements io.ReaderAt over the virtual image. A read that would
// span the data_offset boundary, or run past image_size, is truncated to a
// zero-byte result rather than erroring, per spec.md §4.8/§6.
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrInvalidRange
	}
	if len(p) == 0 {
		return 0, nil
	}

	length := int64(len(p))
	if off+length > r.imageSize {
		return 0, nil
	}

	if off < r.dataOffset {
		if off+length > r.dataOffset {
			return 0, nil
		}

		return copy(p, r.blob[off:off+length]), nil
	}

	hostPath, skip, ok := r.offsets.lookup(off)
	if !ok {
		return 0, fmt.Errorf("%w: no file covers offset %d", ErrReadFailed, off)
	}

	f, err := os.Open(hostPath)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrReadFailed, hostPath, err)
	}
	defer func() { _ = f.Close() }()

	n, err := f.ReadAt(p, skip)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: read %s: %w", ErrReadFailed, hostPath, err)
	}

	return n, nil
}

// EncryptedReader decrypts AES-CTR-encrypted image bytes read through an
// underlying io.ReaderAt, per the encrypted-image collaborator in spec.md §6.
type EncryptedReader struct {
	ra           io.ReaderAt
	fileOffset   int64
	dataSize     int64
	cryptoOffset int64
	block        cipher.Block
	ctr          [16]byte
}

// NewEncryptedReader builds a reader over an AES-CTR-encrypted region of ra.
// fileOffset is where the encrypted bytes live in the underlying container;
// cryptoOffset is the logical keystream position corresponding to image
// offset 0 (usually 0, but nonzero when the encrypted region is a tail slice
// of a larger CTR-encrypted stream).
func NewEncryptedReader(ra io.ReaderAt, fileOffset, dataSize int64, key, ctr [16]byte, cryptoOffset int64) (*EncryptedReader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvariant, err)
	}

	return &EncryptedReader{
		ra:           ra,
		fileOffset:   fileOffset,
		dataSize:     dataSize,
		cryptoOffset: cryptoOffset,
		block:        block,
		ctr:          ctr,
	}, nil
}

// ReadAt decrypts dataSize-bounded bytes at logical offset off. Zero-length
// reads are rejected before the underlying read or any crypto call.
func (r *EncryptedReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, ErrZeroLengthRead
	}
	if off < 0 || off >= r.dataSize {
		return 0, ErrInvalidRange
	}

	length := int64(len(p))
	if off+length > r.dataSize {
		length = r.dataSize - off
	}

	raw := make([]byte, length)
	n, err := r.ra.ReadAt(raw, r.fileOffset+off)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	stream, err := ctrStreamAtOffset(r.block, r.ctr, r.cryptoOffset+off)
	if err != nil {
		return 0, err
	}

	stream.XORKeyStream(p[:n], raw[:n])
	return n, nil
}

// ctrStreamAtOffset builds a cipher.Stream positioned at byteOffset into the
// CTR keystream defined by iv, by advancing the 128-bit block counter and
// discarding the leftover partial-block bytes.
func ctrStreamAtOffset(block cipher.Block, iv [16]byte, byteOffset int64) (cipher.Stream, error) {
	if byteOffset < 0 {
		return nil, ErrInvalidRange
	}

	aesBlockSize := int64(block.BlockSize())
	blockIndex := byteOffset / aesBlockSize
	inBlock := int(byteOffset % aesBlockSize)

	advanced := incrementCounter(iv, blockIndex)
	stream := cipher.NewCTR(block, advanced[:])

	if inBlock > 0 {
		discard := make([]byte, inBlock)
		stream.XORKeyStream(discard, discard)
	}

	return stream, nil
}

// incrementCounter adds n to iv, treated as a 128-bit big-endian counter.
func incrementCounter(iv [16]byte, n int64) [16]byte {
	var carry uint64 = uint64(n) //nolint:gosec // n is a non-negative block count
	for i := len(iv) - 1; i >= 0 && carry > 0; i-- {
		sum := uint64(iv[i]) + carry
		iv[i] = byte(sum)
		carry = sum >> 8
	}

	return iv
}
