// Package memtable implements an in-memory table structure for the database,
// providing fast access to recently written data before it is persisted to disk.
package memtable

import (
	"iter"

	"github.com/huandu/skiplist"

	"github.com/kowanietz/lsm-tree-kv/internal/record"
)

// Memtable defines the interface for an in-memory table that supports basic operations
type Memtable interface {
	// Put stores value under key, replacing any previous value or tombstone.
	Put(key, value []byte)
	// Delete records a tombstone for key, whether or not the key is present.
	Delete(key []byte)
	// Get returns the exact entry for key. ok is false when the key has no
	// entry at all; a deleted key returns a tombstone with ok true.
	Get(key []byte) (v record.Value, ok bool)
	// All yields every entry in ascending key order. Each call starts over.
	All() iter.Seq2[[]byte, record.Value]
	// SizeBytes is the flush heuristic: raw key and payload bytes only.
	SizeBytes() int
	Len() int
	IsEmpty() bool
}

// SkiplistMemtable implements the Memtable interface using a skiplist
// ordered by bytes.Compare
type SkiplistMemtable struct {
	sl   *skiplist.SkipList
	size int
}

// NewMemtable creates a new Memtable instance.
func NewMemtable() Memtable {
	return &SkiplistMemtable{
		sl: skiplist.New(skiplist.Bytes),
	}
}

// Put inserts or updates an entry in the memtable.
// An overwrite only moves the size by the payload delta; the key was
// already counted when first inserted.
func (m *SkiplistMemtable) Put(key, value []byte) {
	v := record.Stored(clone(value))

	if elem := m.sl.Get(key); elem != nil {
		old := elem.Value.(record.Value)
		m.size += v.Len() - old.Len()
		elem.Value = v
		return
	}

	m.size += len(key) + v.Len()
	m.sl.Set(clone(key), v)
}

// Delete marks the given key as deleted.
// Tombstones are recorded even for absent keys so that they mask older
// values in flushed tables.
func (m *SkiplistMemtable) Delete(key []byte) {
	if elem := m.sl.Get(key); elem != nil {
		old := elem.Value.(record.Value)
		if old.IsTombstone() {
			return
		}
		m.size -= old.Len()
		elem.Value = record.Tombstone()
		return
	}

	m.size += len(key)
	m.sl.Set(clone(key), record.Tombstone())
}

// Get retrieves an entry from the memtable by key
func (m *SkiplistMemtable) Get(key []byte) (record.Value, bool) {
	elem := m.sl.Get(key)
	if elem == nil {
		return record.Value{}, false
	}
	return elem.Value.(record.Value), true
}

// All returns the entries in ascending key order.
func (m *SkiplistMemtable) All() iter.Seq2[[]byte, record.Value] {
	return func(yield func([]byte, record.Value) bool) {
		for elem := m.sl.Front(); elem != nil; elem = elem.Next() {
			if !yield(elem.Key().([]byte), elem.Value.(record.Value)) {
				return
			}
		}
	}
}

// SizeBytes returns the approximate size of entries in the memtable in bytes
func (m *SkiplistMemtable) SizeBytes() int {
	return m.size
}

// Len returns the number of keys, tombstones included
func (m *SkiplistMemtable) Len() int {
	return m.sl.Len()
}

// IsEmpty reports whether the memtable holds no entries
func (m *SkiplistMemtable) IsEmpty() bool {
	return m.sl.Len() == 0
}

func clone(b []byte) []byte {
	return append(make([]byte, 0, len(b)), b...)
}
