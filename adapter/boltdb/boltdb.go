// Package boltdb keeps the offsets of resumable page streams in a local bolt database file.
package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("userstream_page_offsets")

// OffsetStore implements userstream.OffsetStore.
type OffsetStore struct {
	DB *bolt.DB
}

// Open opens or creates the bolt database at path.
// Close must be called to release the file lock.
func Open(path string) (*OffsetStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &OffsetStore{DB: db}, nil
}

func (s *OffsetStore) Close() error {
	return s.DB.Close()
}

func (s *OffsetStore) LoadOffset(ctx context.Context, name string) (offset int, found bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	err = s.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		value := bucket.Get([]byte(name))
		if value == nil {
			return nil
		}
		if len(value) != 8 {
			return fmt.Errorf("boltdb: corrupt offset value for %q", name)
		}
		offset = int(binary.BigEndian.Uint64(value))
		found = true
		return nil
	})
	return offset, found, err
}

func (s *OffsetStore) SaveOffset(ctx context.Context, name string, offset int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("boltdb: negative offset: %d", offset)
	}
	return s.DB.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		value := make([]byte, 8)
		binary.BigEndian.PutUint64(value, uint64(offset))
		return bucket.Put([]byte(name), value)
	})
}

// DeleteOffset forgets the named stream, so it starts over from the first page.
func (s *OffsetStore) DeleteOffset(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.DB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(name))
	})
}
