// Package leveldbstore materializes flow task outputs in a leveldb
// directory.
package leveldbstore

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/tabkit/tdk/flow"
)

// Store is a flow.Store backed by leveldb.
type Store struct {
	db *leveldb.DB
}

var _ flow.Store = &Store{}

// NewStore opens (creating if needed) a leveldb database in dirname.
func NewStore(dirname string) (*Store, error) {
	db, err := leveldb.OpenFile(dirname, &opt.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at '%v'", dirname)
	}
	return &Store{db: db}, nil
}

// Get returns the blob stored under key, if any.
func (s *Store) Get(key string) ([]byte, bool, error) {
	val, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "reading leveldb")
	}
	return val, true, nil
}

// Put stores a blob under key.
func (s *Store) Put(key string, val []byte) error {
	return errors.Wrap(s.db.Put([]byte(key), val, nil), "writing leveldb")
}

// Close closes the underlying db.
func (s *Store) Close() error {
	return errors.Wrap(s.db.Close(), "closing leveldb")
}
