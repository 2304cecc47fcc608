// Package store keeps a local record of positions created through this
// process, so they can be listed and reopened across restarts.
package store

import (
	"encoding/json"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Record is one remembered position.
type Record struct {
	Address   common.Address `json:"address"`
	Owner     common.Address `json:"owner"`
	Base      common.Address `json:"base"`
	Quote     common.Address `json:"quote"`
	CreatedAt time.Time      `json:"created_at"`
}

// PositionStore is a Badger-backed record list keyed by owner and position.
type PositionStore struct {
	db *badger.DB
}

// Open opens (or creates) the store at path.
func Open(path string) (*PositionStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store: path is required")
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, errors.Wrap(err, "open position store")
	}
	return &PositionStore{db: db}, nil
}

func (s *PositionStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func key(owner, position common.Address) []byte {
	return []byte("pos/" + strings.ToLower(owner.Hex()) + "/" + strings.ToLower(position.Hex()))
}

// Save upserts a record.
func (s *PositionStore) Save(rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal record")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(rec.Owner, rec.Address), raw)
	})
}

// List returns every record of one owner.
func (s *PositionStore) List(owner common.Address) ([]Record, error) {
	prefix := []byte("pos/" + strings.ToLower(owner.Hex()) + "/")
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec Record
				if err := json.Unmarshal(val, &rec); err != nil {
					return errors.Wrap(err, "unmarshal record")
				}
				out = append(out, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Delete forgets one position. Deleting an unknown position is a no-op.
func (s *PositionStore) Delete(owner, position common.Address) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(owner, position))
	})
}
