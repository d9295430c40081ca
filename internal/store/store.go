// Package store persists the local-storage mirror of permalink params.
//
// Every backend is a flat string key/value store. Entry narrows a KV to a
// single key so it can serve as a permalink.Storage.
package store

import (
	"fmt"
	"path/filepath"

	"github.com/joeblew999/plat-permalink/internal/db"
	"github.com/joeblew999/plat-permalink/internal/permalink"
)

// Backend kinds accepted by Open.
const (
	KindMemory = "memory"
	KindBolt   = "bolt"
	KindDuckDB = "duckdb"
)

// KV is a string key/value store.
type KV interface {
	// Get returns the value of key and whether it exists.
	Get(key string) (string, bool, error)
	Put(key, value string) error
	Delete(key string) error
	// List returns every entry whose key starts with prefix.
	List(prefix string) (map[string]string, error)
	Close() error
}

// Open opens the backend named by kind, keeping its files in dataDir.
func Open(kind, dataDir string) (KV, error) {
	switch kind {
	case "", KindMemory:
		return NewMemory(), nil
	case KindBolt:
		return OpenBolt(filepath.Join(dataDir, "permalink.db"))
	case KindDuckDB:
		conn, err := db.Get(db.Config{DataDir: dataDir, DBName: "permalink"})
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		return NewDuckDB(conn)
	}
	return nil, fmt.Errorf("unknown store %q", kind)
}

// Entry returns the permalink.Storage backed by key in kv.
func Entry(kv KV, key string) permalink.Storage {
	return &entry{kv: kv, key: key}
}

type entry struct {
	kv  KV
	key string
}

func (e *entry) Load() (string, bool, error) { return e.kv.Get(e.key) }

func (e *entry) Save(value string) error { return e.kv.Put(e.key, value) }
