package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is the error returned by a Fault that does not name its own.
var ErrInjected = errors.New("fs: injected fault")

// Fault describes how operations on matching paths fail.
type Fault struct {
	FailOnOpen     bool
	FailAfterBytes int64 // per file; negative disables
	FailOnSync     bool
	FailOnClose    bool
	FailOnRemove   bool
	FailOnMkdir    bool
	Err            error
}

func (f Fault) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

type rule struct {
	pattern string
	fault   Fault
}

// FaultyFS wraps a FileSystem and fails operations on paths containing a
// registered pattern. Later rules win over earlier ones.
type FaultyFS struct {
	FS FileSystem

	mu     sync.Mutex
	rules  []rule
	opened int
}

// NewFaultyFS wraps fs, or Default when fs is nil.
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{FS: fs}
}

// AddRule registers a fault for every path containing pattern.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{pattern: pattern, fault: fault})
}

// Opened reports how many files were opened successfully.
func (f *FaultyFS) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opened
}

func (f *FaultyFS) match(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.rules) - 1; i >= 0; i-- {
		if strings.Contains(name, f.rules[i].pattern) {
			return f.rules[i].fault, true
		}
	}
	return Fault{FailAfterBytes: -1}, false
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	fault, ok := f.match(name)
	if ok && fault.FailOnOpen {
		return nil, &os.PathError{Op: "open", Path: name, Err: fault.err()}
	}

	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.opened++
	f.mu.Unlock()

	if !ok {
		return file, nil
	}
	return &faultyFile{File: file, fault: fault}, nil
}

func (f *FaultyFS) Remove(name string) error {
	if fault, ok := f.match(name); ok && fault.FailOnRemove {
		return &os.PathError{Op: "remove", Path: name, Err: fault.err()}
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) RemoveAll(path string) error {
	if fault, ok := f.match(path); ok && fault.FailOnRemove {
		return &os.PathError{Op: "removeall", Path: path, Err: fault.err()}
	}
	return f.FS.RemoveAll(path)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	if fault, ok := f.match(path); ok && fault.FailOnMkdir {
		return &os.PathError{Op: "mkdir", Path: path, Err: fault.err()}
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	return f.FS.ReadDir(name)
}

type faultyFile struct {
	File
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.fault.err()
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.fault.err()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.fault.err()
	}
	return ff.File.Close()
}
