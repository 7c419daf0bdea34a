package graph

import (
	"context"

	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
	"github.com/xaenox/hypergraph/internal/storage"
)

// NodeStore persists nodes and owns the filePath rules.
type NodeStore struct {
	t table[models.Node]
}

func NewNodeStore(ctx context.Context, d storage.Driver) (*NodeStore, error) {
	coll, err := d.Collection(ctx, NodesCollection, "filePath")
	if err != nil {
		return nil, result.Infra("open nodes", err)
	}
	return &NodeStore{t: table[models.Node]{coll: coll, kind: "node"}}, nil
}

// Insert fails on a duplicate id, an empty filePath, or a filePath that does
// not end in the node's id. Ancestors are not looked up here.
func (s *NodeStore) Insert(ctx context.Context, n *models.Node) (result.Result[*models.Node], error) {
	if n == nil {
		return result.Validation[*models.Node]("node is required"), nil
	}
	if err := n.Validate(); err != nil {
		return validationFailure[*models.Node](err), nil
	}
	return s.t.insert(ctx, n.NodeID, n.Clone())
}

func (s *NodeStore) FindByID(ctx context.Context, id string) (result.Result[*models.Node], error) {
	return s.t.get(ctx, id)
}

// FindManyByID returns the nodes that exist, silently skipping missing ids.
func (s *NodeStore) FindManyByID(ctx context.Context, ids []string) (result.Result[[]*models.Node], error) {
	return s.findMany(ctx, storage.In(storage.FieldID, ids...))
}

// FindDescendants returns every node that has id in its filePath before the
// last element. The node itself need not exist.
func (s *NodeStore) FindDescendants(ctx context.Context, id string) (result.Result[[]*models.Node], error) {
	nodes, err := s.t.find(ctx, storage.In("filePath", id))
	if err != nil {
		return result.Result[[]*models.Node]{}, err
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.FilePath.HasAncestor(id) {
			out = append(out, n)
		}
	}
	return result.Ok(out), nil
}

// FindChildren returns the direct children of id.
func (s *NodeStore) FindChildren(ctx context.Context, id string) (result.Result[[]*models.Node], error) {
	nodes, err := s.t.find(ctx, storage.In("filePath", id))
	if err != nil {
		return result.Result[[]*models.Node]{}, err
	}
	out := nodes[:0]
	for _, n := range nodes {
		if parent := n.FilePath.Parent(); parent != nil && parent.Last() == id {
			out = append(out, n)
		}
	}
	return result.Ok(out), nil
}

// FindRoots returns the nodes whose filePath has a single element.
func (s *NodeStore) FindRoots(ctx context.Context) (result.Result[[]*models.Node], error) {
	nodes, err := s.t.find(ctx, storage.All)
	if err != nil {
		return result.Result[[]*models.Node]{}, err
	}
	out := nodes[:0]
	for _, n := range nodes {
		if n.FilePath.IsRoot() {
			out = append(out, n)
		}
	}
	return result.Ok(out), nil
}

func (s *NodeStore) FindAll(ctx context.Context) (result.Result[[]*models.Node], error) {
	return s.findMany(ctx, storage.All)
}

// UpdateFields applies patch after validating every field against
// models.NodeFieldTypes. Nothing is written unless the whole patch is valid.
func (s *NodeStore) UpdateFields(ctx context.Context, id string, patch map[string]any) (result.Result[*models.Node], error) {
	if len(patch) == 0 {
		return result.Validation[*models.Node]("patch is empty"), nil
	}
	current, err := s.t.get(ctx, id)
	if err != nil || !current.Success {
		return current, err
	}
	patched, err := models.ApplyPatch(current.Payload, patch)
	if err != nil {
		return validationFailure[*models.Node](err), nil
	}
	return s.t.replace(ctx, id, patched)
}

// UpdatePath replaces the filePath of one node. Only the shape of newPath is
// checked; ancestors may be written later by a top-down caller.
func (s *NodeStore) UpdatePath(ctx context.Context, id string, newPath models.NodePath) (result.Result[*models.Node], error) {
	if err := newPath.Validate(id); err != nil {
		return validationFailure[*models.Node](err), nil
	}
	current, err := s.t.get(ctx, id)
	if err != nil || !current.Success {
		return current, err
	}
	n := current.Payload
	n.FilePath = newPath.Clone()
	return s.t.replace(ctx, id, n)
}

// DeleteByID is idempotent; deleting a missing node succeeds.
func (s *NodeStore) DeleteByID(ctx context.Context, id string) (result.Result[string], error) {
	return s.t.remove(ctx, id)
}

func (s *NodeStore) DeleteManyByID(ctx context.Context, ids []string) (result.Result[int64], error) {
	return s.t.removeMany(ctx, storage.In(storage.FieldID, ids...))
}

// Clear removes every node. Reserved for tests and resets.
func (s *NodeStore) Clear(ctx context.Context) (result.Result[int64], error) {
	return s.t.removeMany(ctx, storage.All)
}

func (s *NodeStore) findMany(ctx context.Context, filter storage.Filter) (result.Result[[]*models.Node], error) {
	nodes, err := s.t.find(ctx, filter)
	if err != nil {
		return result.Result[[]*models.Node]{}, err
	}
	return result.Ok(nodes), nil
}
