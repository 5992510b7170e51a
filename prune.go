// SPDX-License-Identifier: MIT
// Copyright (c) 2026 kestrelfs
// Source: github.com/kestrelfs/romfs3

package romfs3

// prune repeatedly removes childless directories (root exempt) and rewrites
// every remaining directory index reference, per spec.md §4.4. It then
// assigns each surviving directory its running DIR_TABLE entryOfs.
func (b *builder) prune() {
	for {
		removed := -1
		for i := len(b.store.dirs) - 1; i > 0; i-- {
			d := b.store.dirs[i]
			if d.childDirOfs == invalidOffset && d.childFileOfs == invalidOffset {
				removed = i
				break
			}
		}

		if removed < 0 {
			break
		}

		b.removeDir(removed)
	}

	b.assignDirEntryOffsets()
}

// removeDir erases dirs[idx], repairs the sibling/child chain that pointed
// at it, and decrements every dir-index reference greater than idx.
func (b *builder) removeDir(idx int) {
	removedEntry := b.store.dirs[idx]
	parent := b.store.dirs[removedEntry.parentDirOfs]

	if idx > 0 && b.store.dirs[idx-1].siblingDirOfs == int32(idx) { //nolint:gosec
		b.store.dirs[idx-1].siblingDirOfs = removedEntry.siblingDirOfs
	} else if parent.childDirOfs == int32(idx) { //nolint:gosec
		parent.childDirOfs = removedEntry.siblingDirOfs
	}

	for _, d := range b.store.dirs {
		subDirOffset(&d.parentDirOfs, idx)
		subDirOffset(&d.siblingDirOfs, idx)
		subDirOffset(&d.childDirOfs, idx)
	}
	for _, f := range b.store.files {
		subDirOffset(&f.parentDirOfs, idx)
	}

	b.store.dirs = append(b.store.dirs[:idx], b.store.dirs[idx+1:]...)
	b.relPaths = append(b.relPaths[:idx], b.relPaths[idx+1:]...)
}

// subDirOffset decrements a dir-index reference if it lies past the removed index.
func subDirOffset(offset *int32, removedIdx int) {
	if *offset > int32(removedIdx) { //nolint:gosec
		*offset--
	}
}

// assignDirEntryOffsets computes each surviving directory's byte offset
// within DIR_TABLE and the running table size, using the same
// align(nameAlign) rule applied to files at append time.
func (b *builder) assignDirEntryOffsets() {
	var running int64
	for _, d := range b.store.dirs {
		d.entryOfs = int32(align(running, nameAlign)) //nolint:gosec
		running = int64(d.entryOfs) + dirEntrySize + int64(d.namePad)
	}

	b.dirTableSize = running
}
