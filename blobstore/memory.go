package blobstore

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"sync"
)

// MemoryStore keeps blobs in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: ErrNotFound}
	}
	// Stored slices are never mutated in place, so sharing is safe.
	return &memoryBlob{data: data}, nil
}

func (m *MemoryStore) Create(_ context.Context, name string) (WritableBlob, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}
	return &memoryWritableBlob{store: m, name: name}, nil
}

func (m *MemoryStore) Put(_ context.Context, name string, data []byte) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	m.store(name, bytes.Clone(data))
	return nil
}

func (m *MemoryStore) store(name string, data []byte) {
	if data == nil {
		data = []byte{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, name)
	return nil
}

func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name := range m.blobs {
		if hasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// RemoveAll drops every blob whose name starts with prefix.
func (m *MemoryStore) RemoveAll(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name := range m.blobs {
		if hasPrefix(name, prefix) {
			delete(m.blobs, name)
		}
	}
	return nil
}

// Len returns the number of stored blobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

type memoryBlob struct {
	data []byte
}

func (b *memoryBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, os.ErrInvalid
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *memoryBlob) Close() error { return nil }

func (b *memoryBlob) Size() int64 { return int64(len(b.data)) }

type memoryWritableBlob struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWritableBlob) Write(p []byte) (int, error) {
	if w.done {
		return 0, os.ErrClosed
	}
	return w.buf.Write(p)
}

func (w *memoryWritableBlob) Close() error {
	if w.done {
		return os.ErrClosed
	}
	w.done = true
	w.store.store(w.name, bytes.Clone(w.buf.Bytes()))
	return nil
}

func (w *memoryWritableBlob) Abort() error {
	w.done = true
	return nil
}
