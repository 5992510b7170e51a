// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

// Package romfsrange serves byte-range reads over a built romfs3 image as
// an HTTP resource, the way an emulator's virtual-filesystem layer would.
package romfsrange

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelfs/romfs3"
)

// copyBufferSize is the per-request temporary buffer used to stream a range
// response from the image reader to the HTTP client.
const copyBufferSize = 64 * 1024

// copyBufferPool reuses range-response copy buffers across requests.
var copyBufferPool = sync.Pool{
	New: func() any {
		return new([copyBufferSize]byte)
	},
}

// Server exposes one romfs3 image over HTTP GET with Range support.
type Server struct {
	reader *romfs3.Reader
}

// New wraps reader for HTTP serving. reader is safe for concurrent use: each
// ReadAt call opens and closes its own host file handle.
func New(reader *romfs3.Reader) *Server {
	return &Server{reader: reader}
}

// Routes returns a chi.Router exposing GET /image with byte-range support.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/image", s.serveImage)
	r.Head("/image", s.serveImage)
	return r
}

// serveImage handles GET/HEAD /image, honoring a single-range Range header.
func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	size := s.reader.Size()
	w.Header().Set("Accept-Ranges", "bytes")

	start, end, hasRange, err := parseRange(r.Header.Get("Range"), size)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if !hasRange {
		start, end = 0, size-1
	}

	length := end - start + 1

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))

	if hasRange {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	if r.Method == http.MethodHead {
		return
	}

	if err := s.streamRange(w, start, length); err != nil {
		return // response headers are already committed; nothing more to do
	}
}

// streamRange copies length bytes from offset start into w, using a pooled
// buffer and the reader's io.ReaderAt interface. A chunk that would straddle
// the image's data_offset boundary is clamped to end exactly at that
// boundary, so no single underlying ReadAt call ever crosses it (romfs3.Reader
// refuses such a read and returns 0 bytes rather than erroring). Bytes of the
// data region that no host file covers (alignment padding between files and
// after the last one) are sent as zeros.
func (s *Server) streamRange(w io.Writer, start, length int64) error {
	// fileDataAlign is the alignment of every file's data start in the image.
	const fileDataAlign = 16

	bufPtr := copyBufferPool.Get().(*[copyBufferSize]byte) //nolint:forcetypeassert // pool only ever holds this type
	defer copyBufferPool.Put(bufPtr)
	buf := bufPtr[:]

	dataOffset := s.reader.DataOffset()

	for length > 0 {
		chunk := int64(len(buf))
		if chunk > length {
			chunk = length
		}
		if start < dataOffset && start+chunk > dataOffset {
			chunk = dataOffset - start
		}

		n, err := s.reader.ReadAt(buf[:chunk], start)
		if n == 0 && err == nil {
			if start < dataOffset {
				return nil // reader signals an out-of-range read as 0 bytes
			}
			// No file data at start: padding. No file's data begins before
			// the next aligned offset, so that stretch is all zeros.
			n = int(min(fileDataAlign-start%fileDataAlign, chunk))
			clear(buf[:n])
		}
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if err != nil {
			return err
		}

		start += int64(n)
		length -= int64(n)
	}

	return nil
}

// parseRange parses a single "bytes=start-end" Range header value.
func parseRange(header string, size int64) (start, end int64, ok bool, err error) {
	if header == "" {
		return 0, 0, false, nil
	}

	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return 0, 0, false, fmt.Errorf("unsupported range unit")
	}

	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return 0, 0, false, fmt.Errorf("multi-range requests are not supported")
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("malformed range")
	}

	switch {
	case parts[0] == "" && parts[1] != "":
		n, perr := strconv.ParseInt(parts[1], 10, 64)
		if perr != nil {
			return 0, 0, false, perr
		}
		if n > size {
			n = size
		}
		start, end = size-n, size-1
	case parts[1] == "":
		n, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil {
			return 0, 0, false, perr
		}
		start, end = n, size-1
	default:
		s, perr := strconv.ParseInt(parts[0], 10, 64)
		if perr != nil {
			return 0, 0, false, perr
		}
		e, perr := strconv.ParseInt(parts[1], 10, 64)
		if perr != nil {
			return 0, 0, false, perr
		}
		start, end = s, e
	}

	if start < 0 || end >= size || start > end {
		return 0, 0, false, fmt.Errorf("range out of bounds")
	}

	return start, end, true, nil
}
