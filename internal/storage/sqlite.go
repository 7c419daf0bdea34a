package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStorage keeps collections in a SQLite database file.
type SQLiteStorage struct {
	*sqlStorage
}

// NewSQLiteStorage opens path, or a private in-memory database for ":memory:".
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database exists per connection, and a
	// single writer avoids SQLITE_BUSY on files.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{sqlStorage: &sqlStorage{db: db, dialect: dialectSQLite}}
	if err := storage.initializeSchema("migrations/sqlite.sql"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return storage, nil
}
