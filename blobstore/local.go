package blobstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/hupe1980/nodulefed/internal/fs"
	"github.com/hupe1980/nodulefed/internal/mmap"
)

// LocalStore keeps blobs as files under a root directory.
type LocalStore struct {
	root string
	fs   fs.FileSystem
	perm os.FileMode
}

// LocalOption configures a LocalStore.
type LocalOption func(*LocalStore)

// WithFileSystem replaces the file system, typically with an fs.FaultyFS.
func WithFileSystem(fsys fs.FileSystem) LocalOption {
	return func(s *LocalStore) { s.fs = fsys }
}

// NewLocalStore returns a store rooted at root.
func NewLocalStore(root string, opts ...LocalOption) *LocalStore {
	s := &LocalStore{root: root, fs: fs.Default, perm: 0o644}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Root returns the root directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	clean, err := CleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Open maps the blob read-only.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	m, err := mmap.Open(p)
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// Create opens the file for writing, creating parent directories.
func (s *LocalStore) Create(_ context.Context, name string) (WritableBlob, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, s.perm)
	if err != nil {
		return nil, err
	}
	return &localWritableBlob{f: f, fs: s.fs, path: p}, nil
}

// Put writes data to name.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	w, err := s.Create(ctx, name)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Close()
}

func (s *LocalStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List walks the directory tree under prefix. Directories are not listed.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	var walk func(rel string) error
	walk = func(rel string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := s.fs.ReadDir(filepath.Join(s.root, filepath.FromSlash(rel)))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		for _, e := range entries {
			name := path.Join(rel, e.Name())
			if e.IsDir() {
				if err := walk(name); err != nil {
					return err
				}
				continue
			}
			if hasPrefix(name, prefix) {
				names = append(names, name)
			}
		}
		return nil
	}
	if err := walk(""); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll deletes the subtree at prefix. An empty prefix removes every
// entry under the root but keeps the root itself.
func (s *LocalStore) RemoveAll(_ context.Context, prefix string) error {
	if prefix != "" {
		p, err := s.path(prefix)
		if err != nil {
			return err
		}
		return s.fs.RemoveAll(p)
	}
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if err := s.fs.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// MkdirAll creates the directory name under the root.
func (s *LocalStore) MkdirAll(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	return s.fs.MkdirAll(p, 0o755)
}

func hasPrefix(name, prefix string) bool {
	return len(name) >= len(prefix) && name[:len(prefix)] == prefix
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.m.ReadAt(p, off)
}

func (b *localBlob) Close() error { return b.m.Close() }

func (b *localBlob) Size() int64 { return int64(b.m.Size()) }

// Bytes exposes the mapping without copying. Valid until Close.
func (b *localBlob) Bytes() []byte { return b.m.Bytes() }

type localWritableBlob struct {
	f    fs.File
	fs   fs.FileSystem
	path string
	done bool
}

func (w *localWritableBlob) Write(p []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.f.Write(p)
}

// Close syncs and closes the file. On failure the partial file is removed.
func (w *localWritableBlob) Close() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = w.fs.Remove(w.path)
		return err
	}
	if err := w.f.Close(); err != nil {
		_ = w.fs.Remove(w.path)
		return err
	}
	return nil
}

func (w *localWritableBlob) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.f.Close()
	return w.fs.Remove(w.path)
}

var _ io.WriteCloser = (*localWritableBlob)(nil)
