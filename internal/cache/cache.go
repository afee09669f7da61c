package cache

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Store keeps raw HTTP response bodies with a time to live.
// It is backed by badger, in memory unless a directory is given.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenStore opens a Store. An empty dir keeps everything in memory.
func OpenStore(dir string, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(dir).
		WithNumVersionsToKeep(1).
		WithLogger(&l{logger: logger})
	if dir == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts = opts.WithValueLogFileSize(1024 * 1024 * 100)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to badger.Open: %w", err)
	}

	return &Store{db: db, ttl: ttl}, nil
}

// Get returns the body stored for key. A missing key is not an error.
func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get from store: %w", err)
	}
	return value, true, nil
}

// Set stores value under key for the store's time to live.
func (s *Store) Set(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if s.ttl > 0 {
			entry = entry.WithTTL(s.ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to store: %w", err)
	}
	return nil
}

// Close closes the store. It's crucial to call it to ensure all the pending updates make their way to disk.
func (s *Store) Close() error {
	return s.db.Close()
}

// l adapts slog to the badger logger interface.
type l struct {
	logger *slog.Logger
}

func (l *l) Errorf(s string, i ...interface{}) {
	l.logger.Error(fmt.Sprintf(s, i...), "component", "badger")
}

func (l *l) Warningf(s string, i ...interface{}) {
	l.logger.Warn(fmt.Sprintf(s, i...), "component", "badger")
}

func (l *l) Infof(s string, i ...interface{}) {
	l.logger.Debug(fmt.Sprintf(s, i...), "component", "badger")
}

func (l *l) Debugf(s string, i ...interface{}) {
	l.logger.Debug(fmt.Sprintf(s, i...), "component", "badger")
}
