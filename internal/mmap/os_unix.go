//go:build unix

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, unix.Munmap, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	advice := unix.MADV_NORMAL
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	}

	// EINVAL means an unaligned range; the hint is optional.
	if err := unix.Madvise(data, advice); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
