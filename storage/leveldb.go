package storage

import (
	kitstorage "github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/pkg/errors"
)

var _ Backend = (*LevelDB)(nil)

// LevelDB adapts the axiom-kit leveldb storage to Backend.
type LevelDB struct {
	db kitstorage.Storage
}

func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open leveldb at %s", path)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(key []byte) []byte {
	return l.db.Get(key)
}

func (l *LevelDB) Has(key []byte) bool {
	return l.db.Has(key)
}

func (l *LevelDB) Put(key, value []byte) {
	l.db.Put(key, value)
}

func (l *LevelDB) Delete(key []byte) {
	l.db.Delete(key)
}

func (l *LevelDB) NewBatch() Batch {
	return l.db.NewBatch()
}

func (l *LevelDB) Close() error {
	return l.db.Close()
}
