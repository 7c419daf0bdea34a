package cascade

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
)

type pathChange struct {
	id   string
	path models.NodePath
}

// MoveNode gives id the filePath newPath and rewrites the path of every
// descendant so that it keeps its position below id. All new paths are
// computed and validated before the first write.
func (c *Coordinator) MoveNode(ctx context.Context, id string, newPath models.NodePath) (result.Result[*models.Node], error) {
	if err := newPath.Validate(id); err != nil {
		return result.Validation[*models.Node]("%s", err.Error()), nil
	}
	field := zap.String("node_id", id)

	current, err := c.nodes.FindByID(ctx, id)
	if err != nil || !current.Success {
		return current, err
	}

	if parentPath := newPath.Parent(); parentPath != nil {
		parent, err := c.nodes.FindByID(ctx, parentPath.Last())
		if err != nil {
			return result.Result[*models.Node]{}, err
		}
		if !parent.Success {
			return result.Validation[*models.Node]("new parent %q does not exist", parentPath.Last()), nil
		}
		if !parent.Payload.FilePath.Equal(parentPath) {
			return result.Validation[*models.Node]("new path %v does not extend the path %v of parent %q",
				newPath, parent.Payload.FilePath, parentPath.Last()), nil
		}
	}

	desc, err := c.nodes.FindDescendants(ctx, id)
	if err != nil {
		return result.Result[*models.Node]{}, c.fail("find descendants", err, field)
	}

	plan := make([]pathChange, 0, len(desc.Payload))
	for _, d := range desc.Payload {
		rebased, ok := d.FilePath.Rebase(id, newPath)
		if !ok {
			return result.Validation[*models.Node]("descendant %q does not have %q in its path", d.NodeID, id), nil
		}
		if err := rebased.Validate(d.NodeID); err != nil {
			return result.Validation[*models.Node]("descendant %q: %s", d.NodeID, err.Error()), nil
		}
		plan = append(plan, pathChange{id: d.NodeID, path: rebased})
	}
	// Top-down, so every written path has its parent already in place.
	sort.SliceStable(plan, func(i, j int) bool { return len(plan[i].path) < len(plan[j].path) })

	moved, err := c.nodes.UpdatePath(ctx, id, newPath)
	if err != nil {
		return result.Result[*models.Node]{}, c.fail("update node path", err, field)
	}
	if !moved.Success {
		return moved, nil
	}

	for _, change := range plan {
		r, err := c.nodes.UpdatePath(ctx, change.id, change.path)
		if err != nil {
			return result.Result[*models.Node]{}, c.fail("update descendant path", err, field, zap.String("descendant_id", change.id))
		}
		if r.Is(result.KindNotFound) {
			// Deleted concurrently; nothing left to move.
			continue
		}
		if !r.Success {
			return result.Forward[*models.Node](r), nil
		}
	}

	c.logger.Info("node moved", field,
		zap.Strings("path", newPath),
		zap.Int("descendants", len(plan)))
	return moved, nil
}

// UpdateNode applies a field patch. A filePath in the patch is handled as a
// move, so descendants follow; the remaining fields are checked before
// anything is written.
func (c *Coordinator) UpdateNode(ctx context.Context, id string, patch map[string]any) (result.Result[*models.Node], error) {
	if _, hasPath := patch["filePath"]; !hasPath {
		return c.nodes.UpdateFields(ctx, id, patch)
	}

	current, err := c.nodes.FindByID(ctx, id)
	if err != nil || !current.Success {
		return current, err
	}
	// Dry run of the whole patch, path included.
	patched, err := models.ApplyPatch(current.Payload, patch)
	if err != nil {
		return result.Validation[*models.Node]("%s", err.Error()), nil
	}
	moved, err := c.MoveNode(ctx, id, patched.FilePath)
	if err != nil || !moved.Success {
		return moved, err
	}

	rest := make(map[string]any, len(patch)-1)
	for k, v := range patch {
		if k != "filePath" {
			rest[k] = v
		}
	}
	if len(rest) == 0 {
		return moved, nil
	}
	return c.nodes.UpdateFields(ctx, id, rest)
}
