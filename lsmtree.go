// Package lsmtree is an embedded key-value store based on the LSM-tree
// architecture.
//
// Writes land in a sorted in-memory memtable. Once the memtable reaches
// Config.MaxMemtableSize bytes it is flushed to an immutable SSTable file in
// the database directory. Reads consult the memtable first and then the
// SSTables from newest to oldest, so the most recent write or delete of a
// key always wins. Data still in the memtable is lost if the process exits
// without Close; call Flush to persist it earlier.
//
// Example usage:
//
//	db, err := lsmtree.Open("/path/to/database", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.Put([]byte("key"), []byte("value"))
//	if err != nil {
//		log.Printf("Put failed: %v", err)
//	}
//
//	value, exists, err := db.Get([]byte("key"))
//	if err == nil && exists {
//		fmt.Printf("Value: %s\n", string(value))
//	}
//
//	err = db.Delete([]byte("key"))
//	if err != nil {
//		log.Printf("Delete failed: %v", err)
//	}
package lsmtree

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/kowanietz/lsm-tree-kv/internal/config"
	"github.com/kowanietz/lsm-tree-kv/internal/dberr"
	"github.com/kowanietz/lsm-tree-kv/internal/engine"
)

// Config is an alias for config.Config, re-exported for user convenience.
type Config = config.Config

// Stats is an alias for engine.Stats, re-exported for user convenience.
type Stats = engine.Stats

// DefaultConfig returns a Config struct populated with default values. Re-exported for user convenience.
var DefaultConfig = config.DefaultConfig

// LoadConfig reads a YAML config file. Re-exported for user convenience.
var LoadConfig = config.Load

// Error predicates. Every error returned by a DB is an I/O error, a
// corruption error or an invalid argument error.
var (
	IsIO              = dberr.IsIO
	IsCorruption      = dberr.IsCorruption
	IsInvalidArgument = dberr.IsInvalidArgument
)

// ErrClosed is returned by operations on a closed DB.
var ErrClosed = dberr.InvalidArgument("database is closed")

// DB represents a thread-safe database instance.
// Every operation holds one exclusive lock, so a flush never interleaves
// with a read.
type DB struct {
	mu     sync.Mutex
	engine *engine.Engine
}

// Open opens or creates a database at the specified path.
//
// The directory will be created if it doesn't exist. If the database exists,
// every SSTable in it is opened; the memtable starts empty. A nil cfg uses
// DefaultConfig.
//
// Returns a DB instance or an error if the database can't be opened.
func Open(path string, cfg *Config) (*DB, error) {
	e, err := engine.Open(path, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{engine: e}, nil
}

// Put writes a key-value pair to the database.
// Overwrites the value if the key already exists. The write may flush the
// memtable to a new SSTable.
func (db *DB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.engine == nil {
		return ErrClosed
	}
	return db.engine.Put(key, value)
}

// Get retrieves the value for a given key.
// Returns the value and true if found, or nil and false if the key doesn't
// exist or was deleted.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.engine == nil {
		return nil, false, ErrClosed
	}
	return db.engine.Get(key)
}

// Delete removes the key and its value from the database.
// Deleting a missing key is not an error.
func (db *DB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.engine == nil {
		return ErrClosed
	}
	return db.engine.Delete(key)
}

// Flush persists the memtable to a new SSTable. It is a no-op when the
// memtable is empty.
func (db *DB) Flush() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.engine == nil {
		return ErrClosed
	}
	return db.engine.Flush()
}

// Stats returns a snapshot of the table count and memtable size.
func (db *DB) Stats() Stats {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.engine == nil {
		return Stats{}
	}
	return db.engine.Stats()
}

// Close gracefully shuts down the database, ensuring all data is persisted.
// This method flushes any remaining memtable data to disk and closes all
// open files. After calling Close, the database should not be used for
// any operations.
//
// It's recommended to call Close when you're done with the database,
// typically using defer:
//
//	db, err := lsmtree.Open("/path/to/database", nil)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
// Returns an error if any cleanup operation fails. Files are closed even
// when the final flush fails.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.engine == nil {
		return nil
	}

	var result *multierror.Error
	if err := db.engine.Flush(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "flush on close"))
	}
	if err := db.engine.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	db.engine = nil
	return result.ErrorOrNil()
}
