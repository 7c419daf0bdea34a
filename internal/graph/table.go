// Package graph holds the node, anchor and link stores. Each store owns one
// collection and validates what it writes; none of them looks into another
// store's collection. Cross-store integrity is the cascade package's job.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xaenox/hypergraph/internal/result"
	"github.com/xaenox/hypergraph/internal/storage"
)

// Collection names.
const (
	NodesCollection   = "nodes"
	AnchorsCollection = "anchors"
	LinksCollection   = "links"
)

// table is a typed view over one storage collection.
type table[T any] struct {
	coll storage.Collection
	kind string // "node", "anchor" or "link", used in messages
}

func (t *table[T]) insert(ctx context.Context, id string, v *T) (result.Result[*T], error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return result.Result[*T]{}, result.Infra("encode "+t.kind, err)
	}
	err = t.coll.InsertOne(ctx, id, doc)
	if errors.Is(err, storage.ErrDuplicate) {
		return result.Conflict[*T]("%s %q already exists", t.kind, id), nil
	}
	if err != nil {
		return result.Result[*T]{}, result.Infra("insert "+t.kind, err)
	}
	return result.Ok(v), nil
}

func (t *table[T]) get(ctx context.Context, id string) (result.Result[*T], error) {
	doc, err := t.coll.FindOne(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return result.NotFound[*T]("%s %q not found", t.kind, id), nil
	}
	if err != nil {
		return result.Result[*T]{}, result.Infra("find "+t.kind, err)
	}
	v, err := t.decode(doc)
	if err != nil {
		return result.Result[*T]{}, err
	}
	return result.Ok(v), nil
}

func (t *table[T]) find(ctx context.Context, filter storage.Filter) ([]*T, error) {
	docs, err := t.coll.FindMany(ctx, filter)
	if err != nil {
		return nil, result.Infra("find "+t.kind+"s", err)
	}
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := t.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t *table[T]) replace(ctx context.Context, id string, v *T) (result.Result[*T], error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return result.Result[*T]{}, result.Infra("encode "+t.kind, err)
	}
	err = t.coll.UpdateOne(ctx, id, doc)
	if errors.Is(err, storage.ErrNotFound) {
		return result.NotFound[*T]("%s %q not found", t.kind, id), nil
	}
	if err != nil {
		return result.Result[*T]{}, result.Infra("update "+t.kind, err)
	}
	return result.Ok(v), nil
}

// remove deletes one document. A missing document is success: the caller
// wanted it gone and it is.
func (t *table[T]) remove(ctx context.Context, id string) (result.Result[string], error) {
	if _, err := t.coll.DeleteOne(ctx, id); err != nil {
		return result.Result[string]{}, result.Infra("delete "+t.kind, err)
	}
	return result.Ok(id), nil
}

func (t *table[T]) removeMany(ctx context.Context, filter storage.Filter) (result.Result[int64], error) {
	n, err := t.coll.DeleteMany(ctx, filter)
	if err != nil {
		return result.Result[int64]{}, result.Infra("delete "+t.kind+"s", err)
	}
	return result.Ok(n), nil
}

func (t *table[T]) decode(doc []byte) (*T, error) {
	v := new(T)
	if err := json.Unmarshal(doc, v); err != nil {
		return nil, result.Infra("decode "+t.kind, fmt.Errorf("malformed stored document: %w", err))
	}
	return v, nil
}

func validationFailure[T any](err error) result.Result[T] {
	return result.Validation[T]("%s", err.Error())
}
