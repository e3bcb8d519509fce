package sstable

import (
	"bytes"
	"io"
	"slices"
	"sort"

	"github.com/pkg/errors"

	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
	"github.com/kowanietz/lsm-tree-kv/internal/diskmanager"
	"github.com/kowanietz/lsm-tree-kv/internal/record"
)

// Reader serves point lookups from a finished SSTable. The whole index is
// held in memory; a lookup costs at most one positional read of the record.
type Reader struct {
	path       string
	file       diskmanager.FileHandle
	index      []record.IndexEntry
	dataEnd    int64
	numEntries uint32
}

// OpenReader opens the SSTable at path and loads its footer and index.
func OpenReader(dm diskmanager.DiskManager, path string) (*Reader, error) {
	file, err := dm.Open(path)
	if err != nil {
		return nil, dberr.IO(err, "open sstable "+path)
	}

	r := &Reader{path: path, file: file}
	if err := r.load(); err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "load sstable %s", path)
	}
	return r, nil
}

func (r *Reader) load() error {
	stat, err := r.file.Stat()
	if err != nil {
		return dberr.IO(err, "stat")
	}
	size := stat.Size()
	if size < record.FooterSize {
		return dberr.Corruption("file of %d bytes is too small to hold a footer", size)
	}

	footerOffset := size - record.FooterSize
	buf := make([]byte, record.FooterSize)
	if err := readAt(r.file, buf, footerOffset); err != nil {
		return errors.Wrap(err, "read footer")
	}
	footer, err := record.DecodeFooter(buf)
	if err != nil {
		return err
	}

	indexEnd := footer.IndexOffset + uint64(footer.IndexLen)
	if footer.IndexOffset > uint64(footerOffset) || indexEnd > uint64(footerOffset) {
		return dberr.Corruption("index region [%d, %d) lies outside the file body of %d bytes",
			footer.IndexOffset, indexEnd, footerOffset)
	}

	indexBuf := make([]byte, footer.IndexLen)
	if err := readAt(r.file, indexBuf, int64(footer.IndexOffset)); err != nil {
		return errors.Wrap(err, "read index")
	}
	index, err := record.DecodeIndex(indexBuf)
	if err != nil {
		return err
	}
	if len(index) != int(footer.NumEntries) {
		return dberr.Corruption("index holds %d entries, footer declares %d", len(index), footer.NumEntries)
	}
	for _, e := range index {
		if e.Offset >= footer.IndexOffset {
			return dberr.Corruption("index offset %d for key %q points past the data region", e.Offset, e.Key)
		}
	}

	// lookups binary search the index
	if !slices.IsSortedFunc(index, compareEntries) {
		slices.SortStableFunc(index, compareEntries)
	}

	r.index = index
	r.dataEnd = int64(footer.IndexOffset)
	r.numEntries = footer.NumEntries
	return nil
}

// Get returns the entry stored for key. ok is false, without any disk
// access, when the key is not in the index.
func (r *Reader) Get(key []byte) (record.Value, bool, error) {
	pos := sort.Search(len(r.index), func(i int) bool {
		return bytes.Compare(r.index[i].Key, key) >= 0
	})
	if pos == len(r.index) || !bytes.Equal(r.index[pos].Key, key) {
		return record.Value{}, false, nil
	}

	offset := r.index[pos].Offset
	diskKey, v, err := record.ReadDataAt(r.file, int64(offset), r.dataEnd)
	if err != nil {
		return record.Value{}, false, errors.Wrapf(err, "read %s at offset %d", r.path, offset)
	}
	if !bytes.Equal(diskKey, key) {
		return record.Value{}, false, dberr.Corruption("key mismatch at indexed offset %d in %s: index has %q, data has %q",
			offset, r.path, key, diskKey)
	}
	return v, true, nil
}

// NumEntries returns the entry count declared by the footer.
func (r *Reader) NumEntries() int {
	return int(r.numEntries)
}

// Path returns the file path of the SSTable.
func (r *Reader) Path() string {
	return r.path
}

// Close releases the file handle.
func (r *Reader) Close() error {
	return dberr.IO(r.file.Close(), "close sstable "+r.path)
}

func compareEntries(a, b record.IndexEntry) int {
	return bytes.Compare(a.Key, b.Key)
}

// readAt fills p from off. Running out of file is corruption, anything
// else an I/O failure.
func readAt(f diskmanager.FileHandle, p []byte, off int64) error {
	n, err := f.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return dberr.Corruption("short read at offset %d: got %d of %d bytes", off, n, len(p))
	}
	return dberr.IO(err, "read")
}
