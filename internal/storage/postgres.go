package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// PostgresStorage keeps collections in PostgreSQL, bodies as JSONB.
type PostgresStorage struct {
	*sqlStorage
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	return OpenPostgres(config.DSN())
}

// OpenPostgres connects with a ready-made DSN or postgres:// URL.
func OpenPostgres(dsn string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{sqlStorage: &sqlStorage{db: db, dialect: dialectPostgres}}

	// Initialize database schema
	if err := storage.initializeSchema("migrations/postgres.sql"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}
