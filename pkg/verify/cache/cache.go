// Package cache provides an optional Badger DB-backed digest cache.
// Hashing tens of multi-gigabyte weight files dominates a verification
// run; when a file's size and mtime are unchanged since the digest was
// last computed, the cached digest can be reused. The cache is opt-in:
// the baseline run keeps no state between runs.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no entry exists for a filename.
var ErrNotFound = errors.New("cache: entry not found")

// Entry records the digest of one file as last observed.
type Entry struct {
	// Size is the file size in bytes at digest time.
	Size int64 `json:"size"`

	// MtimeNano is the file's modification time at digest time.
	MtimeNano int64 `json:"mtime_nano"`

	// SHA256 is the lowercase hex digest computed at that point.
	SHA256 string `json:"sha256"`
}

// Store is a digest cache backed by Badger DB. Keys are manifest
// filenames scoped by repository.
type Store struct {
	db   *badger.DB
	repo string
}

// Open opens or creates a cache at path, scoped to the given
// repository identifier.
func Open(path, repo string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening digest cache: %w", err)
	}
	return &Store{db: db, repo: repo}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) key(name string) []byte {
	return []byte(s.repo + "\x00" + name)
}

// Get retrieves the cached entry for a manifest filename.
func (s *Store) Get(name string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores the entry for a manifest filename.
func (s *Store) Put(name string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(name), data)
	})
}

// Lookup returns the cached digest for name if size and mtime still
// match what was recorded. The bool reports a usable hit.
func (s *Store) Lookup(name string, size, mtimeNano int64) (string, bool) {
	entry, err := s.Get(name)
	if err != nil {
		return "", false
	}
	if entry.Size != size || entry.MtimeNano != mtimeNano {
		return "", false
	}
	return entry.SHA256, true
}
