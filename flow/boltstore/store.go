// Package boltstore materializes flow task outputs in a boltdb file.
package boltstore

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
	"github.com/tabkit/tdk/flow"
)

var tablesBucket = []byte("tables")

// Store is a flow.Store backed by a single boltdb file.
type Store struct {
	db *bolt.DB
}

var _ flow.Store = &Store{}

// NewStore opens (creating if needed) the boltdb file at filename.
func NewStore(filename string) (*Store, error) {
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening db file '%v'", filename)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tablesBucket)
		return errors.Wrap(err, "creating tables bucket")
	})
	if err != nil {
		return nil, errors.Wrap(err, "ensuring bucket existence")
	}
	return &Store{db: db}, nil
}

// Get returns the blob stored under key, if any.
func (s *Store) Get(key string) (val []byte, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		got := tx.Bucket(tablesBucket).Get([]byte(key))
		if got == nil {
			return nil
		}
		ok = true
		val = make([]byte, len(got))
		copy(val, got)
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "reading bolt")
	}
	return val, ok, nil
}

// Put stores a blob under key.
func (s *Store) Put(key string, val []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(tablesBucket).Put([]byte(key), val)
	})
	return errors.Wrap(err, "writing bolt")
}

// Close syncs and closes the underlying db.
func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		return errors.Wrap(err, "syncing db")
	}
	return s.db.Close()
}
