// Package cascade keeps nodes, anchors and links consistent with each other.
//
// The backing store offers no transaction spanning collections, so every
// cross-collection change here is a sequence of single-collection steps.
// Deletes run links first, then anchors, then nodes, so a reader never sees
// a link without its anchor or an anchor without its node. Every step is
// idempotent: if a cascade stops part way (crash, store fault), calling it
// again with the same arguments finishes the job.
package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/hypergraph/internal/graph"
	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
	"github.com/xaenox/hypergraph/internal/storage"
)

// Report counts the records a cascade removed.
type Report struct {
	Nodes   int64 `json:"nodes"`
	Anchors int64 `json:"anchors"`
	Links   int64 `json:"links"`
}

// StepError names the cascade step that hit a store fault. Steps before it
// stay applied.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("cascade step %q failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Coordinator is the only component that writes across collections.
type Coordinator struct {
	nodes   *graph.NodeStore
	anchors *graph.AnchorStore
	links   *graph.LinkStore
	logger  *zap.Logger

	newID func() string
	now   func() time.Time
}

func New(nodes *graph.NodeStore, anchors *graph.AnchorStore, links *graph.LinkStore, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		nodes:   nodes,
		anchors: anchors,
		links:   links,
		logger:  logger,
		newID:   uuid.NewString,
		now:     time.Now,
	}
}

// Open builds the three stores on d and returns a coordinator over them.
func Open(ctx context.Context, d storage.Driver, logger *zap.Logger) (*Coordinator, error) {
	nodes, err := graph.NewNodeStore(ctx, d)
	if err != nil {
		return nil, err
	}
	anchors, err := graph.NewAnchorStore(ctx, d)
	if err != nil {
		return nil, err
	}
	links, err := graph.NewLinkStore(ctx, d)
	if err != nil {
		return nil, err
	}
	return New(nodes, anchors, links, logger), nil
}

func (c *Coordinator) Nodes() *graph.NodeStore     { return c.nodes }
func (c *Coordinator) Anchors() *graph.AnchorStore { return c.anchors }
func (c *Coordinator) Links() *graph.LinkStore     { return c.links }

// CreateNode inserts n under parentID, or as a root when parentID is empty.
// The filePath is derived from the parent; an empty NodeID gets a new uuid.
func (c *Coordinator) CreateNode(ctx context.Context, n *models.Node, parentID string) (result.Result[*models.Node], error) {
	if n == nil {
		return result.Validation[*models.Node]("node is required"), nil
	}
	node := n.Clone()
	if node.NodeID == "" {
		node.NodeID = c.newID()
	}

	path := models.NodePath{node.NodeID}
	if parentID != "" {
		parent, err := c.nodes.FindByID(ctx, parentID)
		if err != nil {
			return result.Result[*models.Node]{}, err
		}
		if !parent.Success {
			return result.NotFound[*models.Node]("parent node %q not found", parentID), nil
		}
		path = append(parent.Payload.FilePath.Clone(), node.NodeID)
	}
	node.FilePath = path

	return c.nodes.Insert(ctx, node)
}

// CreateAnchor inserts a after checking that its node exists. An empty
// AnchorID gets a new uuid.
func (c *Coordinator) CreateAnchor(ctx context.Context, a *models.Anchor) (result.Result[*models.Anchor], error) {
	if a == nil {
		return result.Validation[*models.Anchor]("anchor is required"), nil
	}
	anchor := *a
	if anchor.AnchorID == "" {
		anchor.AnchorID = c.newID()
	}
	if err := anchor.Validate(); err != nil {
		return result.Validation[*models.Anchor]("%s", err.Error()), nil
	}

	node, err := c.nodes.FindByID(ctx, anchor.NodeID)
	if err != nil {
		return result.Result[*models.Anchor]{}, err
	}
	if !node.Success {
		return result.NotFound[*models.Anchor]("node %q not found", anchor.NodeID), nil
	}
	return c.anchors.Insert(ctx, &anchor)
}

// CreateLink binds two existing, distinct anchors. This is the only place
// the link's node ids are derived from the anchors.
func (c *Coordinator) CreateLink(ctx context.Context, anchor1ID, anchor2ID, title, explainer string) (result.Result[*models.Link], error) {
	if anchor1ID == anchor2ID {
		return result.Validation[*models.Link]("a link cannot connect anchor %q to itself", anchor1ID), nil
	}

	first, err := c.anchors.FindByID(ctx, anchor1ID)
	if err != nil || !first.Success {
		return result.Forward[*models.Link](first), err
	}
	second, err := c.anchors.FindByID(ctx, anchor2ID)
	if err != nil || !second.Success {
		return result.Forward[*models.Link](second), err
	}

	link := &models.Link{
		LinkID:        c.newID(),
		Anchor1ID:     anchor1ID,
		Anchor2ID:     anchor2ID,
		Anchor1NodeID: first.Payload.NodeID,
		Anchor2NodeID: second.Payload.NodeID,
		Title:         title,
		Explainer:     explainer,
		DateCreated:   c.now().UTC(),
	}
	return c.links.Insert(ctx, link)
}

// DeleteLink removes one link. Deleting a missing link succeeds.
func (c *Coordinator) DeleteLink(ctx context.Context, id string) (result.Result[*Report], error) {
	r, err := c.links.DeleteByID(ctx, id)
	if err != nil {
		return result.Result[*Report]{}, c.fail("delete link", err, zap.String("link_id", id))
	}
	if !r.Success {
		return result.Forward[*Report](r), nil
	}
	return result.Ok(&Report{}), nil
}

// DeleteAnchor removes the links touching id, then the anchor.
func (c *Coordinator) DeleteAnchor(ctx context.Context, id string) (result.Result[*Report], error) {
	report := &Report{}
	field := zap.String("anchor_id", id)

	links, err := c.links.DeleteByAnchorIDs(ctx, []string{id})
	if err != nil {
		return result.Result[*Report]{}, c.fail("delete links", err, field)
	}
	report.Links = links.Payload
	c.logger.Debug("cascade step done", zap.String("step", "delete links"), field, zap.Int64("count", links.Payload))

	anchors, err := c.anchors.DeleteManyByID(ctx, []string{id})
	if err != nil {
		return result.Result[*Report]{}, c.fail("delete anchor", err, field)
	}
	report.Anchors = anchors.Payload

	c.logger.Info("anchor deleted", field, zap.Int64("links", report.Links))
	return result.Ok(report), nil
}

// DeleteNode removes id, every descendant of id, every anchor on any of
// them and every link touching those anchors.
func (c *Coordinator) DeleteNode(ctx context.Context, id string) (result.Result[*Report], error) {
	report := &Report{}
	field := zap.String("node_id", id)

	desc, err := c.nodes.FindDescendants(ctx, id)
	if err != nil {
		return result.Result[*Report]{}, c.fail("find descendants", err, field)
	}
	descIDs := make([]string, 0, len(desc.Payload))
	for _, n := range desc.Payload {
		descIDs = append(descIDs, n.NodeID)
	}
	nodeIDs := append([]string{id}, descIDs...)

	anchors, err := c.anchors.FindByNodeIDs(ctx, nodeIDs)
	if err != nil {
		return result.Result[*Report]{}, c.fail("find anchors", err, field)
	}
	anchorIDs := make([]string, 0, len(anchors.Payload))
	for _, a := range anchors.Payload {
		anchorIDs = append(anchorIDs, a.AnchorID)
	}
	c.logger.Debug("cascade planned", field,
		zap.Int("descendants", len(descIDs)),
		zap.Int("anchors", len(anchorIDs)))

	if len(anchorIDs) > 0 {
		links, err := c.links.DeleteByAnchorIDs(ctx, anchorIDs)
		if err != nil {
			return result.Result[*Report]{}, c.fail("delete links", err, field)
		}
		report.Links = links.Payload

		removed, err := c.anchors.DeleteManyByID(ctx, anchorIDs)
		if err != nil {
			return result.Result[*Report]{}, c.fail("delete anchors", err, field)
		}
		report.Anchors = removed.Payload
	}

	// Descendants go before the node itself: their filePath still names id,
	// so a retry after a partial run finds them again.
	if len(descIDs) > 0 {
		removed, err := c.nodes.DeleteManyByID(ctx, descIDs)
		if err != nil {
			return result.Result[*Report]{}, c.fail("delete descendants", err, field)
		}
		report.Nodes += removed.Payload
	}
	removed, err := c.nodes.DeleteManyByID(ctx, []string{id})
	if err != nil {
		return result.Result[*Report]{}, c.fail("delete node", err, field)
	}
	report.Nodes += removed.Payload

	c.logger.Info("node deleted", field,
		zap.Int64("nodes", report.Nodes),
		zap.Int64("anchors", report.Anchors),
		zap.Int64("links", report.Links))
	return result.Ok(report), nil
}

func (c *Coordinator) fail(step string, err error, fields ...zap.Field) error {
	c.logger.Error("cascade step failed", append(fields, zap.String("step", step), zap.Error(err))...)
	return &StepError{Step: step, Err: err}
}
