package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// ErrNotFound is returned when a blob does not exist. It is os.ErrNotExist so
// local and remote misses match the same errors.Is check.
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for names that are not clean relative paths.
var ErrInvalidName = errors.New("blobstore: invalid blob name")

// Store is an output sink of named blobs. Names are slash-separated paths
// relative to the store root, such as "client0/1/abc.nii".
type Store interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create opens a blob for streaming writes. The blob becomes visible
	// when the returned writer is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Put writes a whole blob.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a stored blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	Size() int64
	Close() error
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Abort discards the blob. Calling it after Close is a no-op.
	Abort() error
}

// Remover is implemented by stores that can drop a whole prefix at once.
type Remover interface {
	RemoveAll(ctx context.Context, prefix string) error
}

// DirMaker is implemented by stores with real directories.
type DirMaker interface {
	MkdirAll(ctx context.Context, name string) error
}

// CleanName validates a blob name and returns its canonical form.
func CleanName(name string) (string, error) {
	if name == "" || strings.Contains(name, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	clean := path.Clean(name)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// RemoveAll deletes every blob under prefix, using Remover when available.
// An empty prefix clears the whole store.
func RemoveAll(ctx context.Context, s Store, prefix string) error {
	if r, ok := s.(Remover); ok {
		return r.RemoveAll(ctx, prefix)
	}
	names, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Delete(ctx, name); err != nil {
			return fmt.Errorf("delete %s: %w", name, err)
		}
	}
	return nil
}

// MkdirAll creates name as a directory on stores that have directories and
// does nothing on flat object stores.
func MkdirAll(ctx context.Context, s Store, name string) error {
	if d, ok := s.(DirMaker); ok {
		return d.MkdirAll(ctx, name)
	}
	return nil
}

// ReadAll returns the full contents of a blob.
func ReadAll(ctx context.Context, s Store, name string) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	buf := make([]byte, b.Size())
	n, err := b.ReadAt(ctx, buf, 0)
	if err != nil && !(errors.Is(err, io.EOF) && int64(n) == b.Size()) {
		return nil, err
	}
	return buf[:n], nil
}
