// Package history keeps received datagrams in a bbolt database so they can
// be inspected after the discovery session has ended.
package history

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	RecordsBucket = "records"
)

// Store представляет базу данных полученных сообщений
type Store struct {
	db         *bbolt.DB
	mu         sync.RWMutex
	serializer Serializer
}

// Config содержит конфигурацию для Store
type Config struct {
	Path       string
	FileMode   os.FileMode
	Options    *bbolt.Options
	Serializer Serializer
}

// New открывает базу и создает bucket, если его нет
func New(cfg Config) (*Store, error) {
	if cfg.Serializer == nil {
		cfg.Serializer = &GobSerializer{}
	}

	if cfg.FileMode == 0 {
		cfg.FileMode = 0666
	}

	if cfg.Options == nil {
		cfg.Options = &bbolt.Options{Timeout: time.Second}
	}

	db, err := bbolt.Open(cfg.Path, cfg.FileMode, cfg.Options)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(RecordsBucket))
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &Store{
		db:         db,
		serializer: cfg.Serializer,
	}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrNilDB
	}
	return s.db.Close()
}

// Save stores rec and returns its ID. A missing ID is generated; generated
// IDs sort in arrival order.
func (s *Store) Save(rec *Record) (string, error) {
	if rec == nil {
		return "", ErrNilRecord
	}

	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		rec.ID = id.String()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}

	data, err := s.serializer.Serialize(rec)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(RecordsBucket))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return "", err
	}

	return rec.ID, nil
}

// Get загружает запись по ее ID
func (s *Store) Get(id string) (*Record, error) {
	var rec Record

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(RecordsBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrRecordNotFound
		}

		return s.serializer.Deserialize(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns up to limit records, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(limit int) ([]*Record, error) {
	var records []*Record

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(RecordsBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}

		c := bucket.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(records) >= limit {
				break
			}
			var rec Record
			if err := s.serializer.Deserialize(v, &rec); err != nil {
				return fmt.Errorf("record %s: %w", k, err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Store) Count() (int, error) {
	var n int

	s.mu.RLock()
	defer s.mu.RUnlock()

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(RecordsBucket))
		if bucket == nil {
			return ErrBucketNotFound
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// Clear удаляет все записи
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(RecordsBucket)); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(RecordsBucket))
		return err
	})
}
