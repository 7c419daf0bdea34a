package cascade

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
)

// Issue is one integrity violation.
type Issue struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// IntegrityReport lists what a sweep over all three collections found.
type IntegrityReport struct {
	Nodes   int `json:"nodes"`
	Anchors int `json:"anchors"`
	Links   int `json:"links"`

	BrokenPaths   []Issue `json:"brokenPaths"`
	OrphanAnchors []Issue `json:"orphanAnchors"`
	OrphanLinks   []Issue `json:"orphanLinks"`
	StaleLinks    []Issue `json:"staleLinks"`
}

// Clean reports whether the sweep found nothing.
func (r *IntegrityReport) Clean() bool {
	return len(r.BrokenPaths) == 0 && len(r.OrphanAnchors) == 0 &&
		len(r.OrphanLinks) == 0 && len(r.StaleLinks) == 0
}

// Check reads every node, anchor and link and reports:
//   - nodes whose filePath is malformed or names a missing or misplaced ancestor
//   - anchors whose node is gone
//   - links with a missing endpoint anchor
//   - links whose denormalized node ids disagree with their anchors
//
// Concurrent cascades can make Check report records that are about to be
// removed anyway.
func (c *Coordinator) Check(ctx context.Context) (result.Result[*IntegrityReport], error) {
	nodes, err := c.nodes.FindAll(ctx)
	if err != nil {
		return result.Result[*IntegrityReport]{}, err
	}
	anchors, err := c.anchors.FindAll(ctx)
	if err != nil {
		return result.Result[*IntegrityReport]{}, err
	}
	links, err := c.links.FindAll(ctx)
	if err != nil {
		return result.Result[*IntegrityReport]{}, err
	}

	report := &IntegrityReport{
		Nodes:   len(nodes.Payload),
		Anchors: len(anchors.Payload),
		Links:   len(links.Payload),
	}

	nodeByID := make(map[string]*models.Node, len(nodes.Payload))
	for _, n := range nodes.Payload {
		nodeByID[n.NodeID] = n
	}
	for _, n := range nodes.Payload {
		if reason := pathProblem(n, nodeByID); reason != "" {
			report.BrokenPaths = append(report.BrokenPaths, Issue{ID: n.NodeID, Reason: reason})
		}
	}

	anchorByID := make(map[string]*models.Anchor, len(anchors.Payload))
	for _, a := range anchors.Payload {
		anchorByID[a.AnchorID] = a
		if _, ok := nodeByID[a.NodeID]; !ok {
			report.OrphanAnchors = append(report.OrphanAnchors, Issue{
				ID:     a.AnchorID,
				Reason: fmt.Sprintf("node %q does not exist", a.NodeID),
			})
		}
	}

	for _, l := range links.Payload {
		a1, ok1 := anchorByID[l.Anchor1ID]
		a2, ok2 := anchorByID[l.Anchor2ID]
		switch {
		case !ok1:
			report.OrphanLinks = append(report.OrphanLinks, Issue{ID: l.LinkID, Reason: fmt.Sprintf("anchor %q does not exist", l.Anchor1ID)})
		case !ok2:
			report.OrphanLinks = append(report.OrphanLinks, Issue{ID: l.LinkID, Reason: fmt.Sprintf("anchor %q does not exist", l.Anchor2ID)})
		case a1.NodeID != l.Anchor1NodeID || a2.NodeID != l.Anchor2NodeID:
			report.StaleLinks = append(report.StaleLinks, Issue{
				ID: l.LinkID,
				Reason: fmt.Sprintf("node ids (%s, %s) do not match anchors (%s, %s)",
					l.Anchor1NodeID, l.Anchor2NodeID, a1.NodeID, a2.NodeID),
			})
		}
	}

	return result.Ok(report), nil
}

func pathProblem(n *models.Node, nodeByID map[string]*models.Node) string {
	if err := n.FilePath.Validate(n.NodeID); err != nil {
		return err.Error()
	}
	for i := 0; i < len(n.FilePath)-1; i++ {
		ancestorID := n.FilePath[i]
		ancestor, ok := nodeByID[ancestorID]
		if !ok {
			return fmt.Sprintf("ancestor %q does not exist", ancestorID)
		}
		if want := n.FilePath[:i+1]; !ancestor.FilePath.Equal(want) {
			return fmt.Sprintf("ancestor %q has path %v, expected %v", ancestorID, ancestor.FilePath, want)
		}
	}
	return ""
}

// Repair runs Check and removes orphan links and orphan anchors (with their
// links). Broken paths and stale links are left for an operator.
func (c *Coordinator) Repair(ctx context.Context) (result.Result[*Report], error) {
	checked, err := c.Check(ctx)
	if err != nil || !checked.Success {
		return result.Forward[*Report](checked), err
	}

	total := &Report{}
	if orphans := checked.Payload.OrphanLinks; len(orphans) > 0 {
		ids := make([]string, 0, len(orphans))
		for _, issue := range orphans {
			ids = append(ids, issue.ID)
		}
		removed, err := c.links.DeleteManyByID(ctx, ids)
		if err != nil {
			return result.Result[*Report]{}, c.fail("delete orphan links", err, zap.Strings("link_ids", ids))
		}
		total.Links = removed.Payload
	}
	for _, issue := range checked.Payload.OrphanAnchors {
		r, err := c.DeleteAnchor(ctx, issue.ID)
		if err != nil {
			return result.Result[*Report]{}, err
		}
		total.Anchors += r.Payload.Anchors
		total.Links += r.Payload.Links
	}

	c.logger.Info("repair finished",
		zap.Int64("anchors", total.Anchors),
		zap.Int64("links", total.Links),
		zap.Int("broken_paths", len(checked.Payload.BrokenPaths)),
		zap.Int("stale_links", len(checked.Payload.StaleLinks)))
	return result.Ok(total), nil
}
