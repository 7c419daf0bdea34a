package graph

import (
	"context"
	"sort"

	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
	"github.com/xaenox/hypergraph/internal/storage"
)

// LinkStore persists links. The denormalized node ids are stored as given.
type LinkStore struct {
	t table[models.Link]
}

func NewLinkStore(ctx context.Context, d storage.Driver) (*LinkStore, error) {
	coll, err := d.Collection(ctx, LinksCollection, "anchor1Id", "anchor2Id", "anchor1NodeId", "anchor2NodeId")
	if err != nil {
		return nil, result.Infra("open links", err)
	}
	return &LinkStore{t: table[models.Link]{coll: coll, kind: "link"}}, nil
}

// Insert fails on a duplicate id or when both endpoints are the same anchor.
func (s *LinkStore) Insert(ctx context.Context, l *models.Link) (result.Result[*models.Link], error) {
	if l == nil {
		return result.Validation[*models.Link]("link is required"), nil
	}
	if err := l.Validate(); err != nil {
		return validationFailure[*models.Link](err), nil
	}
	stored := *l
	return s.t.insert(ctx, l.LinkID, &stored)
}

func (s *LinkStore) FindByID(ctx context.Context, id string) (result.Result[*models.Link], error) {
	return s.t.get(ctx, id)
}

// FindByAnchorIDs returns the links with either endpoint in anchorIDs.
func (s *LinkStore) FindByAnchorIDs(ctx context.Context, anchorIDs []string) (result.Result[[]*models.Link], error) {
	return s.findEither(ctx, "anchor1Id", "anchor2Id", anchorIDs)
}

// FindByNodeID returns the links touching any anchor of nodeID, using the
// denormalized node ids.
func (s *LinkStore) FindByNodeID(ctx context.Context, nodeID string) (result.Result[[]*models.Link], error) {
	return s.findEither(ctx, "anchor1NodeId", "anchor2NodeId", []string{nodeID})
}

func (s *LinkStore) FindAll(ctx context.Context) (result.Result[[]*models.Link], error) {
	links, err := s.t.find(ctx, storage.All)
	if err != nil {
		return result.Result[[]*models.Link]{}, err
	}
	return result.Ok(links), nil
}

// DeleteByID is idempotent.
func (s *LinkStore) DeleteByID(ctx context.Context, id string) (result.Result[string], error) {
	return s.t.remove(ctx, id)
}

// DeleteManyByID returns how many of ids were actually removed.
func (s *LinkStore) DeleteManyByID(ctx context.Context, ids []string) (result.Result[int64], error) {
	return s.t.removeMany(ctx, storage.In(storage.FieldID, ids...))
}

// DeleteByAnchorIDs removes every link with either endpoint in anchorIDs.
func (s *LinkStore) DeleteByAnchorIDs(ctx context.Context, anchorIDs []string) (result.Result[int64], error) {
	first, err := s.t.removeMany(ctx, storage.In("anchor1Id", anchorIDs...))
	if err != nil {
		return first, err
	}
	second, err := s.t.removeMany(ctx, storage.In("anchor2Id", anchorIDs...))
	if err != nil {
		return second, err
	}
	return result.Ok(first.Payload + second.Payload), nil
}

func (s *LinkStore) Clear(ctx context.Context) (result.Result[int64], error) {
	return s.t.removeMany(ctx, storage.All)
}

func (s *LinkStore) findEither(ctx context.Context, field1, field2 string, values []string) (result.Result[[]*models.Link], error) {
	byFirst, err := s.t.find(ctx, storage.In(field1, values...))
	if err != nil {
		return result.Result[[]*models.Link]{}, err
	}
	bySecond, err := s.t.find(ctx, storage.In(field2, values...))
	if err != nil {
		return result.Result[[]*models.Link]{}, err
	}

	seen := make(map[string]struct{}, len(byFirst))
	out := make([]*models.Link, 0, len(byFirst)+len(bySecond))
	for _, l := range append(byFirst, bySecond...) {
		if _, dup := seen[l.LinkID]; dup {
			continue
		}
		seen[l.LinkID] = struct{}{}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LinkID < out[j].LinkID })
	return result.Ok(out), nil
}
