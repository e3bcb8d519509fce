// Package diskmanager provides interfaces and implementations for managing disk-based file operations.
// SSTable writers use it as a byte sink and readers as a positional byte source.
package diskmanager

import (
	"io"
	"os"
	"path/filepath"
)

// FileHandle abstracts the file operations the storage engine needs:
// sequential appends while building a table, positional reads afterwards.
type FileHandle interface {
	// ReadAt reads len(b) bytes from the file starting at byte offset off.
	// It returns the number of bytes read and any error encountered.
	io.ReaderAt
	// Write appends len(b) bytes at the current end of the file.
	io.Writer
	// Close closes the file handle, rendering it unusable for I/O.
	Close() error
	// Sync commits the current contents of the file to stable storage.
	Sync() error
	// Stat returns the file stat
	Stat() (os.FileInfo, error)
}

type fileHandle struct {
	file *os.File
}

// NewFileHandle wraps an *os.File into a FileHandle implementation.
func NewFileHandle(file *os.File) FileHandle { return &fileHandle{file: file} }

func (fh *fileHandle) ReadAt(b []byte, off int64) (int, error) { return fh.file.ReadAt(b, off) }

func (fh *fileHandle) Write(b []byte) (int, error) { return fh.file.Write(b) }

func (fh *fileHandle) Close() error { return fh.file.Close() }

func (fh *fileHandle) Sync() error { return fh.file.Sync() }

func (fh *fileHandle) Stat() (os.FileInfo, error) { return fh.file.Stat() }

// DiskManager defines methods for file operations.
// Handles returned by Create and Open belong to the caller, who must close them.
type DiskManager interface {
	// Create creates the named file for writing, truncating any existing file.
	Create(path string) (FileHandle, error)
	// Open opens an existing file read-only.
	Open(path string) (FileHandle, error)
	// Delete removes the named file.
	Delete(path string) error
	// List returns the names of the regular files in dir whose name ends with
	// ext, sorted lexicographically. An empty ext matches all files.
	List(dir string, ext string) ([]string, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}

type diskManager struct {
	filePerm os.FileMode
	dirPerm  os.FileMode
}

// NewDiskManager creates a DiskManager backed by the OS filesystem.
func NewDiskManager() DiskManager {
	return &diskManager{
		filePerm: 0o644,
		dirPerm:  0o755,
	}
}

func (dm *diskManager) Create(path string) (FileHandle, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, dm.filePerm)
	if err != nil {
		return nil, err
	}
	return NewFileHandle(file), nil
}

func (dm *diskManager) Open(path string) (FileHandle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return NewFileHandle(file), nil
}

func (dm *diskManager) Delete(path string) error {
	return os.Remove(path)
}

func (dm *diskManager) List(dir string, ext string) ([]string, error) {
	// sorted by filename
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if HasExt(entry.Name(), ext) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

func (dm *diskManager) MkdirAll(dir string) error {
	return os.MkdirAll(dir, dm.dirPerm)
}

// HasExt reports whether name carries the extension ext.
func HasExt(name, ext string) bool {
	return ext == "" || filepath.Ext(name) == ext
}
