// Package session persists the single authenticated session on disk so the
// app can restore it across restarts.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/ruralshare/authflow/domain"
)

var (
	bucketName = []byte("session")
	recordKey  = []byte("current")
)

// BoltStore implements domain.SessionStore on a bbolt file. At most one
// session record exists at a time.
type BoltStore struct {
	db *bolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

var _ domain.SessionStore = (*BoltStore)(nil)

func (s *BoltStore) Save(_ context.Context, sess *domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(recordKey, data)
	})
}

func (s *BoltStore) Load(_ context.Context) (*domain.Session, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(recordKey); v != nil {
			data = append(data, v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, domain.ErrSessionNotFound
	}
	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(recordKey)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
