package sstable

import (
	"bufio"
	"bytes"
	"math"

	"github.com/pkg/errors"

	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
	"github.com/kowanietz/lsm-tree-kv/internal/diskmanager"
	"github.com/kowanietz/lsm-tree-kv/internal/record"
)

const writeBufferSize = 64 * 1024

// Writer builds a new SSTable in a single pass: data records first, then
// the index, then the footer. Keys must be added in strictly ascending order.
type Writer struct {
	path    string
	file    diskmanager.FileHandle
	buf     *bufio.Writer
	index   []record.IndexEntry
	offset  uint64
	scratch []byte
	closed  bool
}

// NewWriter creates (or truncates) the file at path and returns a Writer for it.
func NewWriter(dm diskmanager.DiskManager, path string) (*Writer, error) {
	file, err := dm.Create(path)
	if err != nil {
		return nil, dberr.IO(err, "create sstable "+path)
	}
	return &Writer{
		path: path,
		file: file,
		buf:  bufio.NewWriterSize(file, writeBufferSize),
	}, nil
}

// Add appends a data record for key and records its offset in the index.
func (w *Writer) Add(key []byte, v record.Value) error {
	if w.closed {
		return dberr.InvalidArgument("sstable writer for %s is closed", w.path)
	}
	if n := len(w.index); n > 0 && bytes.Compare(key, w.index[n-1].Key) <= 0 {
		return dberr.InvalidArgument("key %q added after %q: keys must be strictly ascending", key, w.index[n-1].Key)
	}
	if uint64(len(key)) > math.MaxUint32 || uint64(v.Len()) > math.MaxUint32 {
		return dberr.InvalidArgument("record for key of %d bytes exceeds the 4GiB field limit", len(key))
	}
	if uint64(len(w.index)) == math.MaxUint32 {
		return dberr.InvalidArgument("sstable %s already holds the maximum number of entries", w.path)
	}

	w.scratch = record.AppendData(w.scratch[:0], key, v)
	if _, err := w.buf.Write(w.scratch); err != nil {
		return dberr.IO(err, "write data record")
	}

	w.index = append(w.index, record.IndexEntry{
		Key:    append([]byte(nil), key...),
		Offset: w.offset,
	})
	w.offset += uint64(len(w.scratch))
	return nil
}

// Finish writes the index and footer, syncs the file and closes it.
// The Writer cannot be used afterwards.
func (w *Writer) Finish() error {
	if w.closed {
		return dberr.InvalidArgument("sstable writer for %s is closed", w.path)
	}

	indexOffset := w.offset

	indexLen := 0
	for _, e := range w.index {
		indexLen += record.IndexOverhead + len(e.Key)
	}
	if uint64(indexLen) > math.MaxUint32 {
		_ = w.Abort()
		return dberr.InvalidArgument("index of %d bytes exceeds the 4GiB footer limit", indexLen)
	}

	indexBuf := make([]byte, 0, indexLen)
	for _, e := range w.index {
		indexBuf = record.AppendIndex(indexBuf, e.Key, e.Offset)
	}
	if _, err := w.buf.Write(indexBuf); err != nil {
		_ = w.Abort()
		return dberr.IO(err, "write index")
	}

	footer := record.Footer{
		IndexOffset: indexOffset,
		IndexLen:    uint32(indexLen),
		NumEntries:  uint32(len(w.index)),
	}
	if _, err := w.buf.Write(footer.Encode()); err != nil {
		_ = w.Abort()
		return dberr.IO(err, "write footer")
	}

	if err := w.buf.Flush(); err != nil {
		_ = w.Abort()
		return dberr.IO(err, "flush sstable")
	}
	// sync the file to make sure everything is written to disk
	if err := w.file.Sync(); err != nil {
		_ = w.Abort()
		return dberr.IO(err, "sync sstable")
	}

	w.closed = true
	if err := w.file.Close(); err != nil {
		return dberr.IO(err, "close sstable")
	}
	return nil
}

// Abort closes the underlying file without finishing it. The partial file
// is left on disk.
func (w *Writer) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return errors.Wrapf(w.file.Close(), "abort sstable %s", w.path)
}

// NumEntries returns the number of records added so far.
func (w *Writer) NumEntries() int {
	return len(w.index)
}

// Path returns the file path of the SSTable being written.
func (w *Writer) Path() string {
	return w.path
}
