package cache

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no entry exists for a path.
var ErrNotFound = errors.New("cache entry not found")

// Store is the badger-backed key/value store behind Cache.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a store in dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for path.
func (s *Store) Get(path string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Put stores the entry for path.
func (s *Store) Put(path string, entry *Entry) error {
	value, err := entry.Encode()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(path), value)
	})
}

// PutBatch stores many entries in one write batch.
func (s *Store) PutBatch(entries map[string]*Entry) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for path, entry := range entries {
		value, err := entry.Encode()
		if err != nil {
			return err
		}
		if err := wb.Set(MakeKey(path), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Delete removes the entry for path, if any.
func (s *Store) Delete(paths ...string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, p := range paths {
			if err := txn.Delete(MakeKey(p)); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeletePrefix removes every key starting with prefix.
func (s *Store) DeletePrefix(prefix []byte) error {
	return s.db.DropPrefix(prefix)
}

// Paths calls fn for every cached path of the current version.
func (s *Store) Paths(fn func(path string) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			path, ok := ParseKey(it.Item().Key())
			if !ok {
				continue
			}
			if err := fn(path); err != nil {
				return err
			}
		}
		return nil
	})
}

// Size returns the on-disk size of the LSM tree and value log.
func (s *Store) Size() (lsm, vlog int64) {
	return s.db.Size()
}
