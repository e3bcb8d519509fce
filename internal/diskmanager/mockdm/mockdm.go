// Package mockdm provides a mock implementation of the disk manager for testing
package mockdm

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/kowanietz/lsm-tree-kv/internal/diskmanager"
)

// MockFile implements diskmanager.FileHandle for testing purposes.
// Handles opened on the same path share one MockFile.
type MockFile struct {
	mu     sync.RWMutex
	data   []byte
	name   string
	closed bool

	// writes that would grow the file past failAfter bytes fail
	failAfter  int
	failWrites bool
}

// Write appends b to the file
func (m *MockFile) Write(b []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites && len(m.data)+len(b) > m.failAfter {
		return 0, io.ErrShortWrite
	}
	m.data = append(m.data, b...)
	return len(b), nil
}

// ReadAt reads len(b) bytes from the file starting at byte offset off
func (m *MockFile) ReadAt(b []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(b, m.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Close closes the mock file
func (m *MockFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called on the file.
func (m *MockFile) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Sync simulates syncing file contents to disk
func (m *MockFile) Sync() error {
	return nil
}

// Stat returns file information
func (m *MockFile) Stat() (os.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &testFileInfo{size: int64(len(m.data)), name: filepath.Base(m.name)}, nil
}

// Bytes returns a copy of the file contents.
func (m *MockFile) Bytes() []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]byte(nil), m.data...)
}

// SetBytes replaces the file contents, e.g. to simulate on-disk corruption.
func (m *MockFile) SetBytes(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), b...)
}

type testFileInfo struct {
	size int64
	name string
}

func (m *testFileInfo) Name() string       { return m.name }
func (m *testFileInfo) Size() int64        { return m.size }
func (m *testFileInfo) Mode() os.FileMode  { return 0644 }
func (m *testFileInfo) ModTime() time.Time { return time.Now() }
func (m *testFileInfo) IsDir() bool        { return false }
func (m *testFileInfo) Sys() any           { return nil }

// MockDiskManager implements diskmanager.DiskManager interface for testing
type MockDiskManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	// failWritesAfter, when set, is applied to every file created afterwards.
	failWritesAfter *int
}

var _ diskmanager.DiskManager = (*MockDiskManager)(nil)

// NewMockDiskManager creates a new MockDiskManager instance
func NewMockDiskManager() *MockDiskManager {
	return &MockDiskManager{
		files: make(map[string]*MockFile),
	}
}

// FailWritesAfter makes files created from now on reject writes once they
// would grow past n bytes. A negative n disables the failure.
func (dm *MockDiskManager) FailWritesAfter(n int) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if n < 0 {
		dm.failWritesAfter = nil
		return
	}
	dm.failWritesAfter = &n
}

// Create creates or truncates a mock file
func (dm *MockDiskManager) Create(path string) (diskmanager.FileHandle, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	file := &MockFile{
		data: []byte{},
		name: path,
	}
	if dm.failWritesAfter != nil {
		file.failWrites = true
		file.failAfter = *dm.failWritesAfter
	}
	dm.files[path] = file
	return file, nil
}

// Open opens an existing mock file
func (dm *MockDiskManager) Open(path string) (diskmanager.FileHandle, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	file, exists := dm.files[path]
	if !exists {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	return file, nil
}

// File returns the mock file at path, or nil.
func (dm *MockDiskManager) File(path string) *MockFile {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.files[path]
}

// Delete removes a mock file
func (dm *MockDiskManager) Delete(path string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if _, exists := dm.files[path]; !exists {
		return &os.PathError{Op: "remove", Path: path, Err: os.ErrNotExist}
	}
	delete(dm.files, path)
	return nil
}

// List returns the sorted base names of mock files directly inside dir
// carrying the extension ext
func (dm *MockDiskManager) List(dir string, ext string) ([]string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var files []string
	for path := range dm.files {
		if filepath.Dir(path) != filepath.Clean(dir) {
			continue
		}
		name := filepath.Base(path)
		if diskmanager.HasExt(name, ext) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// MkdirAll is a no-op; mock directories exist implicitly
func (dm *MockDiskManager) MkdirAll(_ string) error {
	return nil
}
