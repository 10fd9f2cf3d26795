package overlay

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelDBStore is the durable ParentStore backing TempStore in
// internal/node, grounded on AryanBagade-dynamoDB's use of goleveldb as
// its storage engine.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDBStore opens (creating if absent) a goleveldb database at
// dir.
func OpenLevelDBStore(dir string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("overlay: open leveldb at %s: %w", dir, err)
	}
	return &LevelDBStore{db: db}, nil
}

// Get implements ParentStore.
func (s *LevelDBStore) Get(key string) ([]byte, bool, error) {
	v, err := s.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	return v, true, nil
}

// Put implements ParentStore.
func (s *LevelDBStore) Put(key string, value []byte) error {
	return s.db.Put([]byte(key), value, nil)
}

// Close releases the underlying database handle.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
