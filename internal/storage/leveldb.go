// Package storage implements the durable key/value layer the node's block
// index is written to: a thin wrapper over an embedded LevelDB instance.
// The whole-state snapshot itself is a JSON file and does not go through
// this package.
package storage

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Config holds storage configuration.
type Config struct {
	DataDir     string
	EnablePrune bool
}

// Database is the key/value storage interface the rest of the core
// depends on, so callers never import goleveldb directly.
type Database interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	Close() error
	NewBatch() Batch
}

// Batch accumulates writes for atomic application.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Write() error
	Reset()
}

// LevelDB implements Database on top of github.com/syndtr/goleveldb.
type LevelDB struct {
	config Config
	db     *leveldb.DB
}

// NewLevelDB opens (creating if absent) a LevelDB instance rooted at
// config.DataDir.
func NewLevelDB(config Config) (*LevelDB, error) {
	db, err := leveldb.OpenFile(config.DataDir, &opt.Options{})
	if err != nil {
		return nil, err
	}
	return &LevelDB{config: config, db: db}, nil
}

// Get retrieves a value by key.
func (db *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := db.db.Get(key, nil)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Put stores a key-value pair.
func (db *LevelDB) Put(key, value []byte) error {
	return db.db.Put(key, value, nil)
}

// Delete removes a key.
func (db *LevelDB) Delete(key []byte) error {
	return db.db.Delete(key, nil)
}

// Has checks if a key exists.
func (db *LevelDB) Has(key []byte) (bool, error) {
	return db.db.Has(key, nil)
}

// Close closes the underlying database handle.
func (db *LevelDB) Close() error {
	return db.db.Close()
}

// NewBatch creates a new batch of writes.
func (db *LevelDB) NewBatch() Batch {
	return &LevelDBBatch{db: db, batch: new(leveldb.Batch)}
}

// LevelDBBatch implements Batch over a goleveldb.Batch.
type LevelDBBatch struct {
	db    *LevelDB
	batch *leveldb.Batch
}

func (b *LevelDBBatch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return nil
}

func (b *LevelDBBatch) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *LevelDBBatch) Write() error {
	return b.db.db.Write(b.batch, nil)
}

func (b *LevelDBBatch) Reset() {
	b.batch.Reset()
}
