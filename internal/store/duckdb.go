package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// DuckDB is a KV in the local_storage table.
type DuckDB struct {
	db *sql.DB
}

// NewDuckDB creates the local_storage table on db if needed.
func NewDuckDB(db *sql.DB) (*DuckDB, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS local_storage (
		key VARCHAR PRIMARY KEY,
		value VARCHAR NOT NULL
	)`)
	if err != nil {
		return nil, fmt.Errorf("create local_storage: %w", err)
	}
	return &DuckDB{db: db}, nil
}

func (d *DuckDB) Get(key string) (string, bool, error) {
	var value string
	err := d.db.QueryRow(`SELECT value FROM local_storage WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (d *DuckDB) Put(key, value string) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO local_storage VALUES (?, ?)`, key, value)
	return err
}

func (d *DuckDB) Delete(key string) error {
	_, err := d.db.Exec(`DELETE FROM local_storage WHERE key = ?`, key)
	return err
}

func (d *DuckDB) List(prefix string) (map[string]string, error) {
	rows, err := d.db.Query(`SELECT key, value FROM local_storage WHERE starts_with(key, ?)`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		result[k] = v
	}
	return result, rows.Err()
}

// Close leaves the shared connection open; db.Close releases it.
func (d *DuckDB) Close() error { return nil }
