package storage

import (
	"bytes"

	dbm "github.com/cometbft/cometbft-db"
)

// CometStore adapts a cometbft-db dbm.DB into Store, following the thin
// wrapper shape of the anchor-validator's kvdb.KVAdapter.
type CometStore struct {
	db dbm.DB
}

// NewCometStore wraps an already-opened cometbft-db database.
func NewCometStore(db dbm.DB) *CometStore {
	return &CometStore{db: db}
}

// NewGoLevelDBStore opens (or creates) a goleveldb-backed store at dir/name.
func NewGoLevelDBStore(name, dir string) (*CometStore, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, err
	}
	return NewCometStore(db), nil
}

// NewMemStore returns an in-process store backed by cometbft-db's memdb,
// used by tests; it never touches disk.
func NewMemStore() *CometStore {
	return NewCometStore(dbm.NewMemDB())
}

func (s *CometStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrNotFound
	}
	return v, nil
}

func (s *CometStore) Set(key, value []byte) error {
	return s.db.SetSync(key, value)
}

func (s *CometStore) Delete(key []byte) error {
	return s.db.DeleteSync(key)
}

func (s *CometStore) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	end := prefixUpperBound(prefix)
	it, err := s.db.Iterator(prefix, end)
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		if !fn(it.Key(), it.Value()) {
			break
		}
	}
	return it.Error()
}

func (s *CometStore) Batch(fn func(b WriteBatch) error) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	wrapper := &cometBatch{batch: batch}
	if err := fn(wrapper); err != nil {
		return err
	}
	return batch.WriteSync()
}

type cometBatch struct {
	batch dbm.Batch
}

func (b *cometBatch) Set(key, value []byte) {
	_ = b.batch.Set(key, value)
}

func (b *cometBatch) Delete(key []byte) {
	_ = b.batch.Delete(key)
}

// prefixUpperBound returns the smallest key greater than every key with
// the given prefix, for use as an iterator's exclusive end bound. A nil
// result means "no upper bound" (prefix is all 0xff bytes).
func prefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
