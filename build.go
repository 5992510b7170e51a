// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"os"
	"time"

	"github.com/opencontainers/go-digest"
)

// Build scans rootHostPath and produces an L3 image, running the full
// scan → build (tree + prune + hash + link) → emit pipeline of spec.md §2.
func Build(rootHostPath string, opts BuildOptions) (*Image, error) {
	start := timeNow()

	info, err := os.Stat(rootHostPath)
	if err != nil || !info.IsDir() {
		return nil, ErrInvalidRoot
	}

	opts.applyDefaults()

	exclude, err := newExcludeMatcher(opts.Exclude, opts.ExcludeMatcherOptions)
	if err != nil {
		return nil, err
	}

	b := newBuilder(rootHostPath, exclude)
	if err := b.run(); err != nil {
		return nil, err
	}

	b.prune()

	dirBuckets, fileBuckets := b.createHash()
	b.link(dirBuckets, fileBuckets)

	hdr, err := b.computeLayout(dirBuckets, fileBuckets)
	if err != nil {
		return nil, err
	}

	blob, err := b.emitBlob(hdr, dirBuckets, fileBuckets)
	if err != nil {
		return nil, err
	}

	dataOffset := int64(hdr.DataOffset)
	imageSize := align(b.dataCursor+dataOffset, blockSize)

	result := Result{
		DirCount:   len(b.store.dirs),
		FileCount:  len(b.store.files),
		ImageSize:  imageSize,
		DataOffset: dataOffset,
		Degraded:   b.degraded,
		Duration:   timeSince(start),
	}

	if opts.ComputeMetadataDigest {
		result.MetadataDigest = digest.FromBytes(blob).String()
	}

	if opts.Logger != nil {
		logBuildSummary(opts.Logger, b, result)
	}

	return &Image{
		blob:       blob,
		dataOffset: dataOffset,
		imageSize:  imageSize,
		offsetMap:  newOffsetMap(dataOffset, b.store.files),
		result:     result,
		manifest:   buildManifest(dataOffset, b.store.files),
	}, nil
}

// buildManifest lists every surviving file with its relative path and
// absolute image offset, for CLI and diagnostic use.
func buildManifest(dataOffset int64, files []*fileEntry) []ManifestEntry {
	out := make([]ManifestEntry, len(files))
	for i, f := range files {
		out[i] = ManifestEntry{RelPath: f.relPath, Size: f.fileSize, DataOffset: dataOffset + f.dataOfs}
	}

	return out
}

// Reader returns a Reader serving byte ranges over im.
func (im *Image) Reader() *Reader {
	return newReader(im.blob, im.dataOffset, im.imageSize, im.offsetMap)
}

// logBuildSummary emits a structured diagnostics line for a completed build.
func logBuildSummary(log logSugarer, b *builder, result Result) {
	log.Infow("romfs3 build complete",
		"dirs", result.DirCount,
		"files", result.FileCount,
		"image_size", result.ImageSize,
		"data_offset", result.DataOffset,
		"degraded", result.Degraded,
		"scan_errors", b.scanErrors,
		"size_errors", b.sizeErrors,
		"duration", result.Duration,
	)

	if result.Degraded {
		log.Warnw("romfs3 build degraded",
			"root", b.store.dirs[0].hostPath,
			"scan_errors", b.scanErrors,
			"size_errors", b.sizeErrors,
		)
	}
}

// logSugarer is the subset of *zap.SugaredLogger that build diagnostics use.
type logSugarer interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
}

// timeNow and timeSince wrap the time package calls used for build timing.
func timeNow() time.Time                  { return time.Now() }
func timeSince(t time.Time) time.Duration { return time.Since(t) }
