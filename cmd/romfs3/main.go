// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

// Command romfs3 builds, inspects, and serves RomFS Level-3 images from a
// host directory.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"
	"github.com/woozymasta/pathrules"

	"github.com/kestrelfs/romfs3"
	"github.com/kestrelfs/romfs3/internal/romfsrange"
	"github.com/kestrelfs/romfs3/internal/scanlog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:])
	case "ls":
		err = runLS(os.Args[2:])
	case "cat":
		err = runCat(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "romfs3:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: romfs3 <build|ls|cat|serve> [flags]")
}

// runBuild builds an image from a host directory and prints a summary table.
func runBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	root := fs.String("root", "", "host directory to build from")
	exclude := fs.String("exclude", "", "comma-separated host-relative exclude glob patterns")
	out := fs.String("out", "", "write the emitted L3 blob to this path (optional)")
	digest := fs.Bool("digest", false, "compute a metadata digest")
	debug := fs.Bool("debug", false, "verbose build diagnostics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *root == "" {
		return fmt.Errorf("build: -root is required")
	}

	bar := progressbar.New(-1)
	bar.Describe("scanning")
	defer func() { _ = bar.Finish() }()

	opts := romfs3.BuildOptions{
		Exclude:               parseExcludeFlag(*exclude),
		Logger:                scanlog.New(*debug),
		ComputeMetadataDigest: *digest,
	}
	defer scanlog.Sync()

	img, err := romfs3.Build(*root, opts)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	_ = bar.Finish()

	if *out != "" {
		if err := os.WriteFile(*out, img.Blob(), 0o644); err != nil { //nolint:gosec // CLI output file, not a secret
			return fmt.Errorf("build: write %s: %w", *out, err)
		}
	}

	printResult(img.Result())
	return nil
}

// parseExcludeFlag splits a comma-separated pattern list into pathrules.Rule values.
func parseExcludeFlag(raw string) []pathrules.Rule {
	if raw == "" {
		return nil
	}

	var rules []pathrules.Rule
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			if i > start {
				rules = append(rules, pathrules.Rule{Action: pathrules.ActionExclude, Pattern: raw[start:i]})
			}
			start = i + 1
		}
	}

	return rules
}

// printResult renders a build Result as a go-pretty table.
func printResult(res romfs3.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRow(table.Row{"Directories", res.DirCount})
	t.AppendRow(table.Row{"Files", res.FileCount})
	t.AppendRow(table.Row{"Image size", res.ImageSize})
	t.AppendRow(table.Row{"Data offset", res.DataOffset})
	t.AppendRow(table.Row{"Degraded", res.Degraded})
	t.AppendRow(table.Row{"Duration", res.Duration})
	if res.MetadataDigest != "" {
		t.AppendRow(table.Row{"Metadata digest", res.MetadataDigest})
	}
	t.Render()
}

// runLS builds an image and lists every file in its manifest, zero-size files
// included.
func runLS(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	root := fs.String("root", "", "host directory to build from")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *root == "" {
		return fmt.Errorf("ls: -root is required")
	}

	img, err := romfs3.Build(*root, romfs3.BuildOptions{})
	if err != nil {
		return fmt.Errorf("ls: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleColoredBright)
	t.AppendHeader(table.Row{"Path", "Size", "Data offset"})
	for _, m := range img.Manifest() {
		t.AppendRow(table.Row{m.RelPath, m.Size, m.DataOffset})
	}
	t.AppendFooter(table.Row{"Total", len(img.Manifest()), ""})
	t.Render()

	return nil
}

// runCat streams one absolute byte range of the built image to stdout.
func runCat(args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	root := fs.String("root", "", "host directory to build from")
	offset := fs.Int64("offset", 0, "absolute offset into the virtual image")
	length := fs.Int64("length", 0, "number of bytes to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *root == "" || *length <= 0 {
		return fmt.Errorf("cat: -root and a positive -length are required")
	}

	img, err := romfs3.Build(*root, romfs3.BuildOptions{})
	if err != nil {
		return fmt.Errorf("cat: %w", err)
	}

	reader := img.Reader()
	buf := make([]byte, *length)
	n, err := reader.ReadAt(buf, *offset)
	if err != nil {
		return fmt.Errorf("cat: %w", err)
	}

	_, err = os.Stdout.Write(buf[:n])
	return err
}

// runServe builds an image and serves it over HTTP with Range support.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	root := fs.String("root", "", "host directory to build from")
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *root == "" {
		return fmt.Errorf("serve: -root is required")
	}

	img, err := romfs3.Build(*root, romfs3.BuildOptions{Logger: scanlog.New(false)})
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer scanlog.Sync()

	srv := romfsrange.New(img.Reader())
	fmt.Printf("serving %d bytes on %s/image\n", img.Size(), *addr)
	return http.ListenAndServe(*addr, srv.Routes()) //nolint:gosec // CLI dev server, timeouts not load-bearing
}
