package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketPermalink = "permalink"

// Bolt is a KV in a single bbolt bucket.
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates the bbolt database at path.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketPermalink))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketPermalink)).Get([]byte(key)); v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return value, found, err
}

func (b *Bolt) Put(key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPermalink)).Put([]byte(key), []byte(value))
	})
}

func (b *Bolt) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketPermalink)).Delete([]byte(key))
	})
}

func (b *Bolt) List(prefix string) (map[string]string, error) {
	result := make(map[string]string)
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketPermalink)).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			result[string(k)] = string(v)
		}
		return nil
	})
	return result, err
}

func (b *Bolt) Close() error { return b.db.Close() }
