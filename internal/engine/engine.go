// Package engine implements the log-structured merge tree: one active
// memtable in front of a newest-first list of immutable SSTables.
//
// An Engine is single-owner. Callers that share one across goroutines must
// serialize every call, which the root lsmtree.DB does with a mutex.
package engine

import (
	"bytes"
	"math"
	"path/filepath"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/kowanietz/lsm-tree-kv/internal/config"
	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
	"github.com/kowanietz/lsm-tree-kv/internal/diskmanager"
	"github.com/kowanietz/lsm-tree-kv/internal/memtable"
	"github.com/kowanietz/lsm-tree-kv/internal/sstable"
)

type Engine struct {
	dir     string
	dm      diskmanager.DiskManager
	cfg     config.Config
	logger  logrus.FieldLogger
	metrics *Metrics

	memtable memtable.Memtable
	// newest first
	readers []*sstable.Reader
	nextSeq uint64
}

// Stats is a point-in-time summary of the engine state.
type Stats struct {
	Tables          int
	MemtableEntries int
	MemtableBytes   int
	NextSeq         uint64
}

// Open recovers the tree stored in dir, creating the directory if needed.
// A nil cfg uses config.DefaultConfig.
func Open(dir string, cfg *config.Config) (*Engine, error) {
	return OpenWithDiskManager(dir, cfg, diskmanager.NewDiskManager())
}

// OpenWithDiskManager is Open with an explicit disk manager.
func OpenWithDiskManager(dir string, cfg *config.Config, dm diskmanager.DiskManager) (*Engine, error) {
	c := *config.DefaultConfig()
	if cfg != nil {
		c = *cfg
		c.FillDefaults()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(c.Registerer)
	if err != nil {
		return nil, err
	}

	if err := dm.MkdirAll(dir); err != nil {
		return nil, dberr.IO(err, "create data directory "+dir)
	}
	names, err := dm.List(dir, sstable.FileExt)
	if err != nil {
		return nil, dberr.IO(err, "list data directory "+dir)
	}

	readers, err := openReaders(dm, dir, names, c.RecoveryConcurrency)
	if err != nil {
		return nil, errors.Wrapf(err, "recover %s", dir)
	}
	slices.Reverse(readers)

	nextSeq := firstSeq
	for _, name := range names {
		if seq, ok := sstable.ParseSeq(name); ok && seq >= nextSeq {
			nextSeq = seq + 1
		}
	}

	e := &Engine{
		dir:      dir,
		dm:       dm,
		cfg:      c,
		logger:   c.Logger,
		metrics:  metrics,
		memtable: memtable.NewMemtable(),
		readers:  readers,
		nextSeq:  nextSeq,
	}
	e.metrics.setTables(len(readers))
	e.metrics.setMemtableSize(0)

	e.logger.WithFields(logrus.Fields{
		"dir":      dir,
		"tables":   len(readers),
		"next_seq": nextSeq,
	}).Info("opened lsm tree")
	return e, nil
}

// openReaders opens names in parallel, at most limit at a time, and returns
// the readers in the order of names. On failure every opened reader is closed.
func openReaders(dm diskmanager.DiskManager, dir string, names []string, limit int) ([]*sstable.Reader, error) {
	readers := make([]*sstable.Reader, len(names))

	eg := &errgroup.Group{}
	eg.SetLimit(limit)
	for i, name := range names {
		eg.Go(func() error {
			r, err := sstable.OpenReader(dm, filepath.Join(dir, name))
			if err != nil {
				return err
			}
			readers[i] = r
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		for _, r := range readers {
			if r != nil {
				_ = r.Close()
			}
		}
		return nil, err
	}
	return readers, nil
}

// Get returns the newest value stored for key. A tombstone in a newer layer
// masks every older value.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	if v, ok := e.memtable.Get(key); ok {
		e.metrics.get(sourceMemtable)
		if v.IsTombstone() {
			return nil, false, nil
		}
		return bytes.Clone(v.Bytes()), true, nil
	}

	for _, r := range e.readers {
		v, ok, err := r.Get(key)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		e.metrics.get(sourceSSTable)
		if v.IsTombstone() {
			return nil, false, nil
		}
		return v.Bytes(), true, nil
	}

	e.metrics.get(sourceMiss)
	return nil, false, nil
}

// Put stores value under key and flushes once the memtable reaches the
// configured size.
func (e *Engine) Put(key, value []byte) error {
	if err := checkLen("key", key); err != nil {
		return err
	}
	if err := checkLen("value", value); err != nil {
		return err
	}
	e.memtable.Put(key, value)
	return e.afterWrite()
}

// Delete records a tombstone for key, whether or not the key exists.
func (e *Engine) Delete(key []byte) error {
	if err := checkLen("key", key); err != nil {
		return err
	}
	e.memtable.Delete(key)
	return e.afterWrite()
}

func (e *Engine) afterWrite() error {
	e.metrics.setMemtableSize(e.memtable.SizeBytes())
	if e.memtable.SizeBytes() < e.cfg.MaxMemtableSize {
		return nil
	}
	return e.Flush()
}

func checkLen(what string, b []byte) error {
	if uint64(len(b)) > math.MaxUint32 {
		return dberr.InvalidArgument("%s of %d bytes exceeds the 4GiB limit", what, len(b))
	}
	return nil
}

// Flush writes the memtable to a new SSTable and starts a fresh memtable.
// An empty memtable is a no-op. On failure the memtable is kept and the
// partial file, if any, stays on disk.
func (e *Engine) Flush() error {
	if e.memtable.IsEmpty() {
		return nil
	}

	start := time.Now()
	seq := e.nextSeq
	e.nextSeq++
	path := filepath.Join(e.dir, sstable.FileName(seq))

	r, err := e.writeTable(path)
	if err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"seq":     seq,
			"entries": e.memtable.Len(),
		}).Warn("flush failed, memtable retained")
		return errors.Wrapf(err, "flush memtable to %s", path)
	}

	entries, size := e.memtable.Len(), e.memtable.SizeBytes()
	e.readers = slices.Insert(e.readers, 0, r)
	e.memtable = memtable.NewMemtable()

	e.metrics.flushed(start)
	e.metrics.setTables(len(e.readers))
	e.metrics.setMemtableSize(0)
	e.logger.WithFields(logrus.Fields{
		"seq":     seq,
		"entries": entries,
		"bytes":   size,
	}).Debug("flushed memtable")
	return nil
}

func (e *Engine) writeTable(path string) (*sstable.Reader, error) {
	w, err := sstable.NewWriter(e.dm, path)
	if err != nil {
		return nil, err
	}
	for key, v := range e.memtable.All() {
		if err := w.Add(key, v); err != nil {
			_ = w.Abort()
			return nil, err
		}
	}
	if err := w.Finish(); err != nil {
		return nil, err
	}
	return sstable.OpenReader(e.dm, path)
}

// Stats returns the current table count, memtable size and next sequence number.
func (e *Engine) Stats() Stats {
	return Stats{
		Tables:          len(e.readers),
		MemtableEntries: e.memtable.Len(),
		MemtableBytes:   e.memtable.SizeBytes(),
		NextSeq:         e.nextSeq,
	}
}

// Close releases every SSTable. It does not flush the memtable.
func (e *Engine) Close() error {
	var result *multierror.Error
	for _, r := range e.readers {
		if err := r.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	e.readers = nil
	e.metrics.setTables(0)
	return result.ErrorOrNil()
}
