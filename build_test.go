// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/pathrules"
)

// excludeRules builds an exclude-only rule set from bare glob patterns.
func excludeRules(patterns ...string) []pathrules.Rule {
	rules := make([]pathrules.Rule, len(patterns))
	for i, p := range patterns {
		rules[i] = pathrules.Rule{Action: pathrules.ActionExclude, Pattern: p}
	}

	return rules
}

// writeTree materializes a small directory tree under t.TempDir() and
// returns its root path.
func writeTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "a.bin"), []byte("ABC"))
	mustMkdir(t, filepath.Join(root, "sub"))
	mustWrite(t, filepath.Join(root, "sub", "f1"), []byte("hello"))
	mustWrite(t, filepath.Join(root, "sub", "f2"), []byte("hello world"))
	mustMkdir(t, filepath.Join(root, "empty"))

	return root
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil { //nolint:gosec
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func TestBuildEmptyRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	res := img.Result()
	if res.DirCount != 1 {
		t.Fatalf("DirCount=%d, want 1 (root only)", res.DirCount)
	}
	if res.FileCount != 0 {
		t.Fatalf("FileCount=%d, want 0", res.FileCount)
	}
	if res.Degraded {
		t.Fatalf("Degraded=true for a clean empty root")
	}
}

func TestBuildPrunesEmptySubtree(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	manifest := img.Manifest()
	if len(manifest) != 3 {
		t.Fatalf("Manifest len=%d, want 3 (a.bin, sub/f1, sub/f2)", len(manifest))
	}

	for _, m := range manifest {
		if m.RelPath == "" {
			t.Fatalf("manifest entry has empty RelPath")
		}
	}

	// "empty" had no children and must not survive pruning, so the image
	// should contain exactly two directories: root and "sub".
	if img.Result().DirCount != 2 {
		t.Fatalf("DirCount=%d, want 2 (root, sub)", img.Result().DirCount)
	}
}

func TestBuildRoundTripsFileBytes(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	img, err := Build(root, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	reader := img.Reader()
	for _, m := range img.Manifest() {
		buf := make([]byte, m.Size)
		n, err := reader.ReadAt(buf, m.DataOffset)
		if err != nil {
			t.Fatalf("ReadAt(%s): %v", m.RelPath, err)
		}
		if int64(n) != m.Size {
			t.Fatalf("ReadAt(%s) returned %d bytes, want %d", m.RelPath, n, m.Size)
		}

		want, err := os.ReadFile(filepath.Join(root, m.RelPath))
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", m.RelPath, err)
		}
		if string(buf) != string(want) {
			t.Fatalf("ReadAt(%s) = %q, want %q", m.RelPath, buf, want)
		}
	}
}

func TestBuildMetadataDigestStable(t *testing.T) {
	t.Parallel()

	root := writeTree(t)

	first, err := Build(root, BuildOptions{ComputeMetadataDigest: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	second, err := Build(root, BuildOptions{ComputeMetadataDigest: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if first.Result().MetadataDigest == "" {
		t.Fatalf("MetadataDigest is empty despite ComputeMetadataDigest")
	}
	if first.Result().MetadataDigest != second.Result().MetadataDigest {
		t.Fatalf("MetadataDigest differs across identical builds: %s != %s",
			first.Result().MetadataDigest, second.Result().MetadataDigest)
	}
}

func TestBuildInvalidRoot(t *testing.T) {
	t.Parallel()

	_, err := Build(filepath.Join(t.TempDir(), "does-not-exist"), BuildOptions{})
	if err == nil {
		t.Fatalf("Build on a missing root: want error, got nil")
	}
}

func TestBuildExcludesMatchedPaths(t *testing.T) {
	t.Parallel()

	root := writeTree(t)
	opts := BuildOptions{Exclude: excludeRules("sub/*")}

	img, err := Build(root, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, m := range img.Manifest() {
		if m.RelPath != "a.bin" {
			t.Fatalf("manifest contains excluded entry %q", m.RelPath)
		}
	}
	if len(img.Manifest()) != 1 {
		t.Fatalf("Manifest len=%d, want 1 (a.bin only)", len(img.Manifest()))
	}
}
