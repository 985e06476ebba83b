package mmap

import (
	"io"
	"os"
	"sync/atomic"
)

// Mapping is a read-only view of a file's bytes.
type Mapping struct {
	path   string
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps the file at path read-only. Empty files yield an empty Mapping
// without touching the platform mapper.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 || int64(int(size)) != size {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Mapping{path: path}, nil
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &Mapping{path: path, data: data, unmap: unmap}, nil
}

// Path returns the mapped file's path.
func (m *Mapping) Path() string { return m.path }

// Close releases the mapping. Calling it twice is a no-op.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap == nil || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}

// Bytes returns the mapped bytes, or nil after Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the mapping length in bytes.
func (m *Mapping) Size() int {
	return len(m.data)
}

// Section returns the n bytes starting at off. It fails with
// ErrInvalidOffset when the range does not fit inside the mapping.
func (m *Mapping) Section(off, n int64) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || off > int64(len(m.data)) || n > int64(len(m.data))-off {
		return nil, ErrInvalidOffset
	}
	return m.data[off : off+n], nil
}

// Advise hints the kernel about the expected access pattern.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(m.data) == 0 {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt.
func (m *Mapping) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
