package graph

import (
	"context"

	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
	"github.com/xaenox/hypergraph/internal/storage"
)

// AnchorStore persists anchors. It does not check that the referenced node
// exists; that is up to whoever builds the anchor.
type AnchorStore struct {
	t table[models.Anchor]
}

func NewAnchorStore(ctx context.Context, d storage.Driver) (*AnchorStore, error) {
	coll, err := d.Collection(ctx, AnchorsCollection, "nodeId")
	if err != nil {
		return nil, result.Infra("open anchors", err)
	}
	return &AnchorStore{t: table[models.Anchor]{coll: coll, kind: "anchor"}}, nil
}

// Insert fails on a duplicate id, a missing nodeId, or a malformed extent.
func (s *AnchorStore) Insert(ctx context.Context, a *models.Anchor) (result.Result[*models.Anchor], error) {
	if a == nil {
		return result.Validation[*models.Anchor]("anchor is required"), nil
	}
	if err := a.Validate(); err != nil {
		return validationFailure[*models.Anchor](err), nil
	}
	stored := *a
	return s.t.insert(ctx, a.AnchorID, &stored)
}

func (s *AnchorStore) FindByID(ctx context.Context, id string) (result.Result[*models.Anchor], error) {
	return s.t.get(ctx, id)
}

// FindManyByID returns only the anchors found; callers needing an exact
// match compare lengths themselves.
func (s *AnchorStore) FindManyByID(ctx context.Context, ids []string) (result.Result[[]*models.Anchor], error) {
	return s.findMany(ctx, storage.In(storage.FieldID, ids...))
}

func (s *AnchorStore) FindByNodeIDs(ctx context.Context, nodeIDs []string) (result.Result[[]*models.Anchor], error) {
	return s.findMany(ctx, storage.In("nodeId", nodeIDs...))
}

func (s *AnchorStore) FindAll(ctx context.Context) (result.Result[[]*models.Anchor], error) {
	return s.findMany(ctx, storage.All)
}

// DeleteByID is idempotent.
func (s *AnchorStore) DeleteByID(ctx context.Context, id string) (result.Result[string], error) {
	return s.t.remove(ctx, id)
}

func (s *AnchorStore) DeleteManyByID(ctx context.Context, ids []string) (result.Result[int64], error) {
	return s.t.removeMany(ctx, storage.In(storage.FieldID, ids...))
}

func (s *AnchorStore) Clear(ctx context.Context) (result.Result[int64], error) {
	return s.t.removeMany(ctx, storage.All)
}

func (s *AnchorStore) findMany(ctx context.Context, filter storage.Filter) (result.Result[[]*models.Anchor], error) {
	anchors, err := s.t.find(ctx, filter)
	if err != nil {
		return result.Result[[]*models.Anchor]{}, err
	}
	return result.Ok(anchors), nil
}
