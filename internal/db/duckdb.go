// Package db holds the process-wide DuckDB connection.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration.
type Config struct {
	DataDir string
	DBName  string
}

// Path returns the database file for cfg.
func (c Config) Path() string {
	return filepath.Join(c.DataDir, "duckdb", c.DBName+".duckdb")
}

// Get returns the singleton DuckDB connection, opening it on first use.
// Later calls return the first connection regardless of cfg.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		path := cfg.Path()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			initErr = fmt.Errorf("failed to create duckdb directory: %w", err)
			return
		}
		instance, initErr = sql.Open("duckdb", path)
		if initErr != nil {
			return
		}
		// DuckDB allows a single writer per file.
		instance.SetMaxOpenConns(1)
		if err := instance.Ping(); err != nil {
			initErr = fmt.Errorf("failed to open %s: %w", path, err)
		}
	})
	return instance, initErr
}

// Close closes the database connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}
