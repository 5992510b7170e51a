// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

/*
Package romfs3 builds a Nintendo 3DS RomFS Level-3 metadata image from a
host directory, and serves byte-ranges from the result as if it were a
contiguous RomFS blob. File data is never copied into the image: the
builder records an offset → host-path map, and the reader pulls file bytes
from the host filesystem on demand.

# Building

	img, err := romfs3.Build("/path/to/romfs_root", romfs3.BuildOptions{})
	if err != nil {
	    return err
	}
	fmt.Println(img.Result().FileCount, img.Size())

# Reading

	reader := img.Reader()
	buf := make([]byte, 64)
	n, err := reader.ReadAt(buf, img.DataOffset())
	if err != nil {
	    return err
	}
	_ = buf[:n]

# Excluding host paths

	img, err := romfs3.Build(root, romfs3.BuildOptions{
	    Exclude: []pathrules.Rule{
	        {Action: pathrules.ActionExclude, Pattern: "*.bak"},
	    },
	})

# Encrypted images

EncryptedReader decrypts a pre-existing AES-CTR-encrypted RomFS image read
through any io.ReaderAt, independent of Build:

	er, err := romfs3.NewEncryptedReader(file, fileOffset, dataSize, key, ctr, 0)
	if err != nil {
	    return err
	}
	n, err := er.ReadAt(buf, offset)
*/
package romfs3
