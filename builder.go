// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

import (
	"fmt"
	"path"
)

// buildPhase is the state of one work-stack frame.
type buildPhase int

const (
	phaseScan buildPhase = iota
	phaseRecurse
	phaseDone
)

// buildFrame is one work-stack element: a directory awaiting its children pass.
type buildFrame struct {
	dirIndex        int
	phase           buildPhase
	childDirIndices []int32
	recurseCursor   int
}

// builder owns the entry store and work stack for one Build call.
type builder struct {
	store         entryStore
	stack         []*buildFrame
	exclude       *excludeMatcher
	relPaths      []string // relPaths[i] is dirs[i]'s path relative to the build root
	dataCursor    int64    // running host file-data cursor, pre-alignment of next entry
	dirTableSize  int64    // DIR_TABLE size, set after pruning by assignDirEntryOffsets
	fileTableSize int64    // running FILE_TABLE size
	degraded      bool
	scanErrors    int
	sizeErrors    int
}

// newBuilder creates a builder whose root entry points at rootHostPath.
func newBuilder(rootHostPath string, exclude *excludeMatcher) *builder {
	b := &builder{exclude: exclude}
	root := newRootDir(rootHostPath)
	b.store.dirs = append(b.store.dirs, root)
	b.relPaths = append(b.relPaths, "")
	return b
}

// run executes the explicit-stack breadth-first traversal described in
// spec.md §4.3: one SCAN pass per directory materializes all of its
// immediate children before any of them is recursed into.
func (b *builder) run() error {
	b.stack = append(b.stack, &buildFrame{dirIndex: 0, phase: phaseScan})

	for len(b.stack) > 0 {
		top := b.stack[len(b.stack)-1]

		switch top.phase {
		case phaseScan:
			if err := b.scanFrame(top); err != nil {
				return err
			}
			top.phase = phaseRecurse
		case phaseRecurse:
			if top.recurseCursor < len(top.childDirIndices) {
				childIdx := top.childDirIndices[top.recurseCursor]
				top.recurseCursor++
				b.stack = append(b.stack, &buildFrame{dirIndex: int(childIdx), phase: phaseScan})
			} else {
				top.phase = phaseDone
			}
		case phaseDone:
			b.stack = b.stack[:len(b.stack)-1]
		}
	}

	return nil
}

// scanFrame lists the children of the frame's directory and appends a file
// or dir entry for each one not excluded, wiring child/sibling links.
func (b *builder) scanFrame(frame *buildFrame) error {
	dirIdx := frame.dirIndex
	dir := b.store.dirs[dirIdx]

	children, err := scanDir(dir.hostPath)
	if err != nil {
		b.degraded = true
		b.scanErrors++
		// ScanError: proceed with an empty child set, per spec.md §4.1/§7.
		return nil
	}

	for _, child := range children {
		relPath := child.name
		if b.relPaths[dirIdx] != "" {
			relPath = path.Join(b.relPaths[dirIdx], child.name)
		}

		if b.exclude.excluded(relPath) {
			continue
		}

		if child.isDir {
			childIdx := int32(len(b.store.dirs)) //nolint:gosec // bounded by practical tree sizes
			if dir.childDirOfs == invalidOffset {
				dir.childDirOfs = childIdx
			}

			frame.childDirIndices = append(frame.childDirIndices, childIdx)
			if err := b.appendDir(child.name, int32(dirIdx), relPath); err != nil { //nolint:gosec
				return err
			}
		} else {
			fileIdx := int32(len(b.store.files)) //nolint:gosec
			if dir.childFileOfs == invalidOffset {
				dir.childFileOfs = fileIdx
			}

			if err := b.appendFile(child.name, int32(dirIdx), relPath); err != nil { //nolint:gosec
				return err
			}
		}
	}

	return nil
}

// appendDir materializes a directory entry and wires it as the previous
// sibling's successor. Safe because a single SCAN pass appends all of one
// directory's children consecutively, before any of them is recursed into.
func (b *builder) appendDir(name string, parentIdx int32, relPath string) error {
	units, size, padded, err := encodeName(name)
	if err != nil {
		return err
	}

	newIdx := int32(len(b.store.dirs)) //nolint:gosec
	entry := &dirEntry{
		hostPath:      path.Join(b.store.dirs[parentIdx].hostPath, name),
		nameUTF16:     units,
		nameSize:      size,
		namePad:       padded,
		parentDirOfs:  parentIdx,
		siblingDirOfs: invalidOffset,
		childDirOfs:   invalidOffset,
		childFileOfs:  invalidOffset,
		prevDirOfs:    invalidOffset,
	}

	parent := b.store.dirs[parentIdx]
	if parent.childDirOfs != invalidOffset && parent.childDirOfs != newIdx {
		prevSibling := b.store.dirs[len(b.store.dirs)-1]
		prevSibling.siblingDirOfs = newIdx
	}

	b.store.dirs = append(b.store.dirs, entry)
	b.relPaths = append(b.relPaths, relPath)
	return nil
}

// appendFile materializes a file entry, assigns its data offset from the
// running data cursor, and wires it as the previous sibling's successor.
func (b *builder) appendFile(name string, parentIdx int32, relPath string) error {
	units, size, padded, err := encodeName(name)
	if err != nil {
		return err
	}

	parentPath := b.store.dirs[parentIdx].hostPath
	hostPath := path.Join(parentPath, name)

	fileSize, ok := statHostSize(hostPath)
	if !ok {
		b.degraded = true
		b.sizeErrors++
	}

	entryOfs := int32(align(b.fileTableSize, nameAlign)) //nolint:gosec
	dataOfs := align(b.dataCursor, fileDataAlign)

	newIdx := int32(len(b.store.files)) //nolint:gosec
	entry := &fileEntry{
		hostPath:       hostPath,
		relPath:        relPath,
		nameUTF16:      units,
		nameSize:       size,
		namePad:        padded,
		entryOfs:       entryOfs,
		parentDirOfs:   parentIdx,
		siblingFileOfs: invalidOffset,
		dataOfs:        dataOfs,
		fileSize:       fileSize,
		prevFileOfs:    invalidOffset,
	}

	parent := b.store.dirs[parentIdx]
	if parent.childFileOfs != invalidOffset && parent.childFileOfs != newIdx {
		prevSibling := b.store.files[len(b.store.files)-1]
		prevSibling.siblingFileOfs = newIdx
	}

	b.store.files = append(b.store.files, entry)
	b.fileTableSize = int64(entryOfs) + fileEntrySize + int64(padded)
	b.dataCursor = dataOfs + fileSize
	return nil
}

// checkOverflow returns an InvariantError if v does not fit in a signed 32-bit offset.
func checkOverflow(v int64, what string) (int32, error) {
	if v < 0 || v > int64(int32(1<<31-1)) {
		return 0, fmt.Errorf("%w: %s offset %d overflows s32", ErrInvariant, what, v)
	}

	return int32(v), nil
}
