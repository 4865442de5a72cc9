// Package storage provides persistent data storage for the churn service.
// It uses BoltDB as the underlying storage engine to keep an audit journal of
// the artifacts each process loaded at startup.
//
// Prediction requests and results are never written here.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	dbFile      = "churn-data.db"
	loadsBucket = "artifact_loads" // Bucket name for artifact load records
)

// Store provides persistent storage using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New opens (or creates) the database under dataPath and creates the
// buckets it needs.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFile)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(loadsBucket)); err != nil {
			return fmt.Errorf("create %s bucket: %w", loadsBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is not an error.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// put stores v as JSON under key in bucket.
func (s *Store) put(bucket string, key []byte, v any) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %s does not exist", bucket)
		}

		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		return b.Put(key, data)
	})
}

// scanRange calls fn for every value whose key lies in [startKey, endKey].
// A nil endKey scans to the end of the bucket.
func (s *Store) scanRange(bucket string, startKey, endKey []byte, fn func(v []byte) error) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()

		for k, v := c.Seek(startKey); k != nil && (endKey == nil || bytes.Compare(k, endKey) <= 0); k, v = c.Next() {
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	})
}

// last returns the value with the greatest key in bucket, or nil.
func (s *Store) last(bucket string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return nil
		}
		if _, v := b.Cursor().Last(); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}
