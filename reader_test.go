// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"
)

func TestReaderRejectsOffsetPastImageSize(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	reader := img.Reader()
	buf := make([]byte, 4)
	n, err := reader.ReadAt(buf, img.Size())
	if n != 0 || err != nil {
		t.Fatalf("ReadAt past image_size: n=%d err=%v, want n=0 err=nil", n, err)
	}
}

func TestReaderRefusesCrossingDataOffsetBoundary(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	reader := img.Reader()
	buf := make([]byte, 8)
	n, err := reader.ReadAt(buf, img.DataOffset()-4)
	if n != 0 || err != nil {
		t.Fatalf("ReadAt spanning data_offset: n=%d err=%v, want n=0 err=nil", n, err)
	}
}

func TestReaderServesBlobBytesDirectly(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	reader := img.Reader()
	buf := make([]byte, 4)
	n, err := reader.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("ReadAt(0): %v", err)
	}
	if !bytes.Equal(buf[:n], img.Blob()[0:n]) {
		t.Fatalf("ReadAt(0) diverges from Blob()")
	}
}

func TestReaderNegativeOffset(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err = img.Reader().ReadAt(make([]byte, 1), -1)
	if err == nil {
		t.Fatalf("ReadAt(-1): want error, got nil")
	}
}

func TestEncryptedReaderRoundTrips(t *testing.T) {
	t.Parallel()

	plain := bytes.Repeat([]byte("0123456789abcdef"), 4) // 64 bytes, multiple of the AES block size
	var key, ctr [16]byte
	if _, err := rand.Read(key[:]); err != nil {
		t.Fatalf("rand.Read key: %v", err)
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		t.Fatalf("aes.NewCipher: %v", err)
	}

	cipherText := make([]byte, len(plain))
	cipher.NewCTR(block, ctr[:]).XORKeyStream(cipherText, plain)

	ra := bytesReaderAt(cipherText)
	er, err := NewEncryptedReader(ra, 0, int64(len(plain)), key, ctr, 0)
	if err != nil {
		t.Fatalf("NewEncryptedReader: %v", err)
	}

	// Read a sub-range starting mid-block to exercise the partial-block skip.
	out := make([]byte, 10)
	n, err := er.ReadAt(out, 20)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 10 {
		t.Fatalf("ReadAt returned %d bytes, want 10", n)
	}
	if !bytes.Equal(out, plain[20:30]) {
		t.Fatalf("ReadAt(20,10) = %q, want %q", out, plain[20:30])
	}
}

func TestEncryptedReaderRejectsZeroLength(t *testing.T) {
	t.Parallel()

	var key, ctr [16]byte
	er, err := NewEncryptedReader(bytesReaderAt(nil), 0, 16, key, ctr, 0)
	if err != nil {
		t.Fatalf("NewEncryptedReader: %v", err)
	}

	_, err = er.ReadAt(nil, 0)
	if err != ErrZeroLengthRead {
		t.Fatalf("ReadAt(nil): err=%v, want ErrZeroLengthRead", err)
	}
}

// bytesReaderAt adapts a byte slice to io.ReaderAt for tests.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b)) {
		return 0, nil
	}
	n := copy(p, b[off:])
	return n, nil
}
