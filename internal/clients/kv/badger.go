package kv

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"github.com/somanshu-agarwal/BareMinimum/internal/logger"
)

type config interface {
	Dir() string
}

// BadgerStore is the durable local blob store. The ledger keeps one JSON
// blob per profile key; writes are synchronous so a crash never leaves the
// store behind the last completed operation.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(config config) (*BadgerStore, error) {
	opts := badger.DefaultOptions(config.Dir()).
		WithLogger(nil).
		WithSyncWrites(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return &BadgerStore{db}, nil
}

// Get returns the blob stored under key, or nil when the key is absent.
func (s *BadgerStore) Get(key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "get blob")
	}
	return value, nil
}

func (s *BadgerStore) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	return errors.Wrap(err, "set blob")
}

func (s *BadgerStore) Close() {
	if err := s.db.Close(); err != nil {
		logger.Error("failed to close badger", zap.Error(err))
	}
}
