package storage

import (
	"context"
	"errors"
)

// FieldID filters on document ids.
const FieldID = "_id"

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when inserting an id that already exists.
	ErrDuplicate = errors.New("duplicate document id")
)

// Filter matches documents whose Field equals any of Values. For array
// fields a document matches when the array contains any of Values.
// An empty Field matches every document; a Field with no Values matches none.
type Filter struct {
	Field  string
	Values []string
}

// All matches every document of a collection.
var All = Filter{}

// In builds a Filter on field.
func In(field string, values ...string) Filter {
	return Filter{Field: field, Values: values}
}

func (f Filter) matchesNothing() bool {
	return f.Field != "" && len(f.Values) == 0
}

// Collection is one keyed set of JSON documents.
// Every call is atomic for the single document it touches; nothing spans
// two collections.
type Collection interface {
	InsertOne(ctx context.Context, id string, doc []byte) error
	FindOne(ctx context.Context, id string) ([]byte, error)
	FindMany(ctx context.Context, filter Filter) ([][]byte, error)
	UpdateOne(ctx context.Context, id string, doc []byte) error
	DeleteOne(ctx context.Context, id string) (int64, error)
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
}

// Driver opens collections on one backing store.
type Driver interface {
	// Collection opens (creating if needed) the named collection. indexed
	// lists the top-level fields, string or []string, that filters may use.
	Collection(ctx context.Context, name string, indexed ...string) (Collection, error)
	Close() error
}
