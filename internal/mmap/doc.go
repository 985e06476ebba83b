// Package mmap maps files read-only into memory.
//
// Volume loaders decode voxel data straight out of the mapping instead of
// staging the whole raw file in a heap buffer first:
//
//	m, err := mmap.Open(rawPath)
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	decode(m.Bytes())
//
// Unix platforms use mmap(2) and madvise(2); Windows uses
// CreateFileMapping/MapViewOfFile and ignores access hints.
//
// A Mapping may be read concurrently. Close is idempotent, but the slice
// returned by Bytes must not be touched after Close returns.
package mmap
