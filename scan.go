// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/woozymasta/pathrules"
)

// hostChild describes one entry returned by a directory scan.
type hostChild struct {
	name  string
	isDir bool
}

// excludeMatcher holds compiled host-path exclude rules for the scanner.
type excludeMatcher struct {
	matcher *pathrules.Matcher
}

// newExcludeMatcher compiles scan exclude rules. An empty rule set matches nothing.
func newExcludeMatcher(rules []pathrules.Rule, opts pathrules.MatcherOptions) (*excludeMatcher, error) {
	rules = normalizeExcludeRules(rules)
	if len(rules) == 0 {
		return nil, nil
	}

	matcher, err := pathrules.NewMatcher(rules, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: compile rules: %w", ErrInvalidExcludeRules, err)
	}

	return &excludeMatcher{matcher: matcher}, nil
}

// normalizeExcludeRules trims whitespace and drops empty patterns.
func normalizeExcludeRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := strings.TrimSpace(rule.Pattern)
		pattern = strings.ReplaceAll(pattern, `\`, "/")
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{Action: rule.Action, Pattern: pattern})
	}

	return normalized
}

// excluded reports whether relPath (slash-separated, relative to the build root)
// is excluded by the compiled rule set. A nil matcher excludes nothing.
func (m *excludeMatcher) excluded(relPath string) bool {
	if m == nil || m.matcher == nil {
		return false
	}

	return !m.matcher.Included(relPath, false)
}

// scanDir lists the immediate children of hostPath in raw host directory-
// iteration order (no re-sort), classifying each as a file or directory.
// An unreadable directory yields an empty child list and a non-fatal error.
func scanDir(hostPath string) ([]hostChild, error) {
	f, err := os.Open(hostPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", errScan, hostPath, err)
	}
	defer func() { _ = f.Close() }()

	// *os.File.ReadDir preserves raw directory-iteration order, unlike the
	// package-level os.ReadDir helper, which sorts by filename.
	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", errScan, hostPath, err)
	}

	children := make([]hostChild, 0, len(dirEntries))
	for _, de := range dirEntries {
		isDir := de.IsDir()
		if !isDir && de.Type()&os.ModeSymlink != 0 {
			// Follow symlinks far enough to classify dir vs file; broken
			// links are treated as zero-size files by statHostSize later.
			if info, statErr := os.Stat(path.Join(hostPath, de.Name())); statErr == nil {
				isDir = info.IsDir()
			}
		}

		children = append(children, hostChild{name: de.Name(), isDir: isDir})
	}

	return children, nil
}

// statHostSize returns a host file's size, treating stat failure as size 0
// per the SizeError recovery policy (spec.md §7).
func statHostSize(hostPath string) (int64, bool) {
	info, err := os.Stat(hostPath)
	if err != nil {
		return 0, false
	}

	return info.Size(), true
}

// errScan is the internal ScanError sentinel; wrapped into build diagnostics.
var errScan = fmt.Errorf("scan error")
