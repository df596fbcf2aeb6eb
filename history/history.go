// Package history persists past assessments in an embedded badger store so a
// re-scan can report how a file's risk changed since it was last seen.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"metarisk/logger"
	"metarisk/risk"
)

const (
	pathPrefix = "path/"
	timePrefix = "time/"
	sep        = 0x00
)

// Entry is one stored assessment.
type Entry struct {
	Path       string            `json:"path"`
	ScannedAt  time.Time         `json:"scanned_at"`
	Assessment risk.Assessment   `json:"assessment"`
	Hashes     map[string]string `json:"hashes,omitempty"`
}

// Store is safe for concurrent use.
type Store struct {
	db        *badger.DB
	closeOnce sync.Once
	closeErr  error
}

type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{})   { logger.Errorf(format, args...) }
func (badgerLogger) Warningf(format string, args ...interface{}) { logger.Warnf(format, args...) }
func (badgerLogger) Infof(format string, args ...interface{})    { logger.Debugf(format, args...) }
func (badgerLogger) Debugf(format string, args ...interface{})   { logger.Debugf(format, args...) }

// Open opens (creating if needed) a store under dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("history directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history directory %s: %w", dir, err)
	}
	return open(badger.DefaultOptions(dir).WithSyncWrites(true))
}

// OpenInMemory returns a store that is discarded on Close.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	opts = opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	return &Store{db: db}, nil
}

func pathKey(path string, at time.Time) []byte {
	key := append([]byte(pathPrefix+path), sep)
	return append(key, stamp(at)...)
}

func timeKey(path string, at time.Time) []byte {
	key := append([]byte(timePrefix), stamp(at)...)
	key = append(key, sep)
	return append(key, path...)
}

// stamp is fixed-width so lexical key order matches time order.
func stamp(at time.Time) []byte {
	return []byte(fmt.Sprintf("%020d", at.UTC().UnixNano()))
}

// Put records e. A zero ScannedAt is replaced with the current time.
func (s *Store) Put(e Entry) error {
	if e.Path == "" {
		return errors.New("history entry needs a path")
	}
	if e.ScannedAt.IsZero() {
		e.ScannedAt = time.Now()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(pathKey(e.Path, e.ScannedAt), value); err != nil {
			return err
		}
		return txn.Set(timeKey(e.Path, e.ScannedAt), pathKey(e.Path, e.ScannedAt))
	})
	if err != nil {
		return fmt.Errorf("store history for %s: %w", e.Path, err)
	}
	return nil
}

// Latest returns the most recent entry for path.
func (s *Store) Latest(path string) (Entry, bool, error) {
	var (
		entry Entry
		found bool
	)
	prefix := append([]byte(pathPrefix+path), sep)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), prefix...), 0xFF)
		it.Seek(seek)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		found = true
		return it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("read history for %s: %w", path, err)
	}
	return entry, found, nil
}

// Recent returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) Recent(limit int) ([]Entry, error) {
	var entries []Entry
	prefix := []byte(timePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(timePrefix + "\xff")); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			ref, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(ref)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var e Entry
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Close flushes and closes the store. Later calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
