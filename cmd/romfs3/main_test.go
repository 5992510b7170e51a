// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/pathrules"
)

func TestParseExcludeFlag(t *testing.T) {
	t.Parallel()

	if rules := parseExcludeFlag(""); rules != nil {
		t.Fatalf("parseExcludeFlag(\"\") = %v, want nil", rules)
	}

	rules := parseExcludeFlag("*.bak,sub/*,,*.tmp")
	want := []pathrules.Rule{
		{Action: pathrules.ActionExclude, Pattern: "*.bak"},
		{Action: pathrules.ActionExclude, Pattern: "sub/*"},
		{Action: pathrules.ActionExclude, Pattern: "*.tmp"},
	}
	if len(rules) != len(want) {
		t.Fatalf("parseExcludeFlag len=%d, want %d: %v", len(rules), len(want), rules)
	}
	for i, r := range rules {
		if r != want[i] {
			t.Errorf("rule[%d]=%v, want %v", i, r, want[i])
		}
	}
}

// TestRunBuildWritesOutputBlob exercises runBuild end-to-end against a real
// host directory and confirms that a non-empty blob is written to -out.
func TestRunBuildWritesOutputBlob(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.bin"), []byte("hello"), 0o644); err != nil { //nolint:gosec
		t.Fatalf("WriteFile: %v", err)
	}

	out := filepath.Join(t.TempDir(), "image.romfs")
	if err := runBuild([]string{"-root", root, "-out", out}); err != nil {
		t.Fatalf("runBuild: %v", err)
	}

	blob, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", out, err)
	}
	if len(blob) == 0 {
		t.Fatalf("written blob is empty")
	}
}

func TestRunBuildRequiresRoot(t *testing.T) {
	t.Parallel()

	if err := runBuild(nil); err == nil {
		t.Fatalf("runBuild with no -root: want error, got nil")
	}
}

func TestRunLSListsFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.bin"), []byte("hi"), 0o644); err != nil { //nolint:gosec
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runLS([]string{"-root", root}); err != nil {
		t.Fatalf("runLS: %v", err)
	}
}

func TestRunCatReadsBackBytes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.bin"), []byte("hello"), 0o644); err != nil { //nolint:gosec
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runCat([]string{"-root", root, "-offset", "0", "-length", "4"}); err != nil {
		t.Fatalf("runCat: %v", err)
	}
}

func TestRunCatRequiresPositiveLength(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	if err := runCat([]string{"-root", root, "-length", "0"}); err == nil {
		t.Fatalf("runCat with -length 0: want error, got nil")
	}
}
