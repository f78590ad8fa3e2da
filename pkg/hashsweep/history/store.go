package history

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no record matches an ID.
var ErrNotFound = errors.New("history record not found")

// ErrAmbiguousID is returned when an ID prefix matches several records.
var ErrAmbiguousID = errors.New("history id prefix is ambiguous")

// Key layout:
//
//	r:<unix nanos, 20 digits>:<id>  -> encoded Record
//	i:<id>                          -> record key
var (
	recordPrefix = []byte("r:")
	indexPrefix  = []byte("i:")
)

// Store wraps Badger for run history.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Open opens or creates a history store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores rec, assigning an ID and timestamp when they are unset.
func (s *Store) Put(rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}

	value, err := rec.Encode()
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	key := recordKey(rec.Timestamp, rec.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(rec.ID), key)
	})
}

// List returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(limit int) ([]Record, error) {
	records := []Record{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(bytes.Clone(recordPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(recordPrefix); it.Next() {
			var rec Record
			if err := it.Item().Value(rec.Decode); err != nil {
				return fmt.Errorf("decoding %s: %w", it.Item().Key(), err)
			}
			records = append(records, rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Get returns the record with the given ID. A unique ID prefix is accepted
// so the truncated IDs shown by list can be used.
func (s *Store) Get(id string) (*Record, error) {
	if id == "" {
		return nil, errors.New("history id cannot be empty")
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		key, err := s.resolve(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(rec.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// resolve maps an ID or unique ID prefix to its record key.
func (s *Store) resolve(txn *badger.Txn, id string) ([]byte, error) {
	item, err := txn.Get(indexKey(id))
	if err == nil {
		return item.ValueCopy(nil)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}

	prefix := indexKey(id)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var found []byte
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		if found != nil {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
		}
		found, err = it.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return found, nil
}

// Cleanup removes records older than retentionDays and returns how many
// were removed. A retention of zero or less keeps everything.
func (s *Store) Cleanup(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := recordKey(s.now().AddDate(0, 0, -retentionDays).UTC(), "")

	var stale [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(recordPrefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if bytes.Compare(key, cutoff) >= 0 {
				break
			}
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range stale {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
		if err := wb.Delete(indexKey(idFromKey(key))); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}

	return len(stale), nil
}

func recordKey(ts time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", recordPrefix, ts.UnixNano(), id)
}

// idFromKey extracts the ID from a record key.
func idFromKey(key []byte) string {
	rest := key[len(recordPrefix):]
	if i := bytes.IndexByte(rest, ':'); i >= 0 {
		return string(rest[i+1:])
	}
	return ""
}

func indexKey(id string) []byte {
	return append(bytes.Clone(indexPrefix), id...)
}
