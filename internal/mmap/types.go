package mmap

import "errors"

// AccessPattern is an advisory hint passed to madvise.
type AccessPattern int

const (
	AccessDefault AccessPattern = iota
	// AccessSequential suits a single front-to-back decode of a raw volume.
	AccessSequential
	AccessRandom
	AccessWillNeed
)

var (
	// ErrClosed is returned by operations on a closed Mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for files whose size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned for ranges outside the mapping.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)
