package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrations embed.FS

// maxBatch caps the values bound in one IN list, well below the
// PostgreSQL (65535) and SQLite (32766) parameter limits.
const maxBatch = 500

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlStorage stores every collection in two shared tables: documents holds
// the JSON bodies and document_keys the indexed values used by filters.
type sqlStorage struct {
	db      *sql.DB
	dialect dialect
}

func (s *sqlStorage) initializeSchema(file string) error {
	// Read migrations file
	migrationSQL, err := migrations.ReadFile(file)
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	// Execute migrations
	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *sqlStorage) Collection(ctx context.Context, name string, indexed ...string) (Collection, error) {
	return &sqlCollection{
		store:   s,
		name:    name,
		indexed: append([]string(nil), indexed...),
	}, nil
}

func (s *sqlStorage) Close() error {
	return s.db.Close()
}

type sqlCollection struct {
	store   *sqlStorage
	name    string
	indexed []string
}

func (c *sqlCollection) q(query string) string {
	return c.store.dialect.rebind(query)
}

// inTx runs fn inside one transaction, which keeps a document and its keys
// consistent with each other.
func (c *sqlCollection) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *sqlCollection) InsertOne(ctx context.Context, id string, doc []byte) error {
	keys, err := extractKeys(doc, c.indexed)
	if err != nil {
		return fmt.Errorf("error indexing document %s: %w", id, err)
	}

	return c.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, c.q(`
			INSERT INTO documents (collection, id, body)
			VALUES (?, ?, ?)
			ON CONFLICT (collection, id) DO NOTHING`),
			c.name, id, string(doc))
		if err != nil {
			return fmt.Errorf("error inserting document: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if n == 0 {
			return ErrDuplicate
		}
		return c.writeKeys(ctx, tx, id, keys)
	})
}

func (c *sqlCollection) FindOne(ctx context.Context, id string) ([]byte, error) {
	var body []byte
	err := c.store.db.QueryRowContext(ctx, c.q(`
		SELECT body FROM documents
		WHERE collection = ? AND id = ?`),
		c.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying document: %w", err)
	}
	return body, nil
}

func (c *sqlCollection) FindMany(ctx context.Context, filter Filter) ([][]byte, error) {
	if filter.matchesNothing() {
		return nil, nil
	}

	found := make(map[string][]byte)
	for _, part := range filter.batches() {
		where, args := c.where(part)
		rows, err := c.store.db.QueryContext(ctx, c.q(`
			SELECT id, body FROM documents
			WHERE `+where), args...)
		if err != nil {
			return nil, fmt.Errorf("error querying documents: %w", err)
		}
		for rows.Next() {
			var (
				id   string
				body []byte
			)
			if err := rows.Scan(&id, &body); err != nil {
				rows.Close()
				return nil, fmt.Errorf("error scanning document: %w", err)
			}
			found[id] = body
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating documents: %w", err)
		}
	}

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	docs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, found[id])
	}
	return docs, nil
}

func (c *sqlCollection) UpdateOne(ctx context.Context, id string, doc []byte) error {
	keys, err := extractKeys(doc, c.indexed)
	if err != nil {
		return fmt.Errorf("error indexing document %s: %w", id, err)
	}

	return c.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, c.q(`
			UPDATE documents SET body = ?
			WHERE collection = ? AND id = ?`),
			string(doc), c.name, id)
		if err != nil {
			return fmt.Errorf("error updating document: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("error getting rows affected: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		if err := c.deleteKeys(ctx, tx, []string{id}); err != nil {
			return err
		}
		return c.writeKeys(ctx, tx, id, keys)
	})
}

func (c *sqlCollection) DeleteOne(ctx context.Context, id string) (int64, error) {
	return c.DeleteMany(ctx, In(FieldID, id))
}

func (c *sqlCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	if filter.matchesNothing() {
		return 0, nil
	}

	var deleted int64
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		ids, err := c.selectIDs(ctx, tx, filter)
		if err != nil || len(ids) == 0 {
			return err
		}

		if err := c.deleteKeys(ctx, tx, ids); err != nil {
			return err
		}
		for _, part := range chunk(ids, maxBatch) {
			placeholders, idArgs := inList(part)
			res, err := tx.ExecContext(ctx, c.q(`
				DELETE FROM documents
				WHERE collection = ? AND id IN (`+placeholders+`)`),
				append([]any{c.name}, idArgs...)...)
			if err != nil {
				return fmt.Errorf("error deleting documents: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("error getting rows affected: %w", err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// selectIDs returns the distinct ids matching filter.
func (c *sqlCollection) selectIDs(ctx context.Context, tx *sql.Tx, filter Filter) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	for _, part := range filter.batches() {
		where, args := c.where(part)
		rows, err := tx.QueryContext(ctx, c.q(`SELECT id FROM documents WHERE `+where), args...)
		if err != nil {
			return nil, fmt.Errorf("error querying documents: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("error scanning document id: %w", err)
			}
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error iterating documents: %w", err)
		}
	}
	return ids, nil
}

// where renders filter as a condition on the documents table.
func (c *sqlCollection) where(filter Filter) (string, []any) {
	switch filter.Field {
	case "":
		return "collection = ?", []any{c.name}
	case FieldID:
		placeholders, args := inList(filter.Values)
		return "collection = ? AND id IN (" + placeholders + ")", append([]any{c.name}, args...)
	default:
		placeholders, args := inList(filter.Values)
		return `collection = ? AND id IN (
			SELECT id FROM document_keys
			WHERE collection = ? AND field = ? AND value IN (` + placeholders + `))`,
			append([]any{c.name, c.name, filter.Field}, args...)
	}
}

func (c *sqlCollection) writeKeys(ctx context.Context, tx *sql.Tx, id string, keys map[string][]string) error {
	fields := make([]string, 0, len(keys))
	for field := range keys {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		for _, value := range keys[field] {
			if _, err := tx.ExecContext(ctx, c.q(`
				INSERT INTO document_keys (collection, id, field, value)
				VALUES (?, ?, ?, ?)`),
				c.name, id, field, value); err != nil {
				return fmt.Errorf("error writing document key: %w", err)
			}
		}
	}
	return nil
}

func (c *sqlCollection) deleteKeys(ctx context.Context, tx *sql.Tx, ids []string) error {
	for _, part := range chunk(ids, maxBatch) {
		placeholders, args := inList(part)
		_, err := tx.ExecContext(ctx, c.q(`
			DELETE FROM document_keys
			WHERE collection = ? AND id IN (`+placeholders+`)`),
			append([]any{c.name}, args...)...)
		if err != nil {
			return fmt.Errorf("error deleting document keys: %w", err)
		}
	}
	return nil
}

func inList(values []string) (string, []any) {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}

// batches splits a filter into filters of at most maxBatch values each.
func (f Filter) batches() []Filter {
	if f.Field == "" {
		return []Filter{f}
	}
	parts := chunk(f.Values, maxBatch)
	out := make([]Filter, 0, len(parts))
	for _, values := range parts {
		out = append(out, Filter{Field: f.Field, Values: values})
	}
	return out
}

func chunk(values []string, size int) [][]string {
	var out [][]string
	for len(values) > size {
		out = append(out, values[:size])
		values = values[size:]
	}
	if len(values) > 0 {
		out = append(out, values)
	}
	return out
}
