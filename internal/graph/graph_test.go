package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
	"github.com/xaenox/hypergraph/internal/storage"
)

type stores struct {
	nodes   *NodeStore
	anchors *AnchorStore
	links   *LinkStore
}

// runForAllDrivers runs testFn against the memory and SQLite backends.
func runForAllDrivers(t *testing.T, testFn func(t *testing.T, s stores)) {
	drivers := map[string]func() (storage.Driver, error){
		"Memory": func() (storage.Driver, error) { return storage.NewMemoryStorage(), nil },
		"SQLite": func() (storage.Driver, error) { return storage.NewSQLiteStorage(":memory:") },
	}
	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d, err := open()
			require.NoError(t, err)
			defer d.Close()

			var s stores
			s.nodes, err = NewNodeStore(ctx, d)
			require.NoError(t, err)
			s.anchors, err = NewAnchorStore(ctx, d)
			require.NoError(t, err)
			s.links, err = NewLinkStore(ctx, d)
			require.NoError(t, err)
			testFn(t, s)
		})
	}
}

func node(id string, path ...string) *models.Node {
	return &models.Node{NodeID: id, Type: models.TextNode, Title: id, FilePath: models.NodePath(path)}
}

type outcome[T any] struct {
	r   result.Result[T]
	err error
}

func expect[T any](r result.Result[T], err error) outcome[T] {
	return outcome[T]{r: r, err: err}
}

// ok fails the test unless the call succeeded, and returns the payload.
func (o outcome[T]) ok(t *testing.T) T {
	t.Helper()
	require.NoError(t, o.err)
	require.True(t, o.r.Success, o.r.Message)
	return o.r.Payload
}

func TestNodeInsert(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		got := expect(s.nodes.Insert(ctx, node("n1", "n1"))).ok(t)
		assert.Equal(t, "n1", got.NodeID)

		r, err := s.nodes.Insert(ctx, node("n1", "n1"))
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindConflict))
		assert.Nil(t, r.Payload)

		r, err = s.nodes.Insert(ctx, node("n2"))
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindValidation))

		r, err = s.nodes.Insert(ctx, node("n3", "n1"))
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindValidation))

		r, err = s.nodes.FindByID(ctx, "n3")
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindNotFound))
	})
}

func TestNodeHierarchyQueries(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		for _, n := range []*models.Node{
			node("root", "root"),
			node("a", "root", "a"),
			node("b", "root", "b"),
			node("a1", "root", "a", "a1"),
			node("other", "other"),
		} {
			expect(s.nodes.Insert(ctx, n)).ok(t)
		}

		desc := expect(s.nodes.FindDescendants(ctx, "root")).ok(t)
		assert.ElementsMatch(t, []string{"a", "b", "a1"}, ids(desc))

		desc = expect(s.nodes.FindDescendants(ctx, "a1")).ok(t)
		assert.Empty(t, desc)

		children := expect(s.nodes.FindChildren(ctx, "root")).ok(t)
		assert.ElementsMatch(t, []string{"a", "b"}, ids(children))

		roots := expect(s.nodes.FindRoots(ctx)).ok(t)
		assert.ElementsMatch(t, []string{"root", "other"}, ids(roots))

		many := expect(s.nodes.FindManyByID(ctx, []string{"a", "missing", "other"})).ok(t)
		assert.ElementsMatch(t, []string{"a", "other"}, ids(many))
	})
}

func TestNodeUpdatePath(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		expect(s.nodes.Insert(ctx, node("p", "p"))).ok(t)
		expect(s.nodes.Insert(ctx, node("n1", "n1"))).ok(t)

		for _, bad := range []models.NodePath{{}, {"x"}, {"n1", "p"}, {"n1", "n1"}} {
			r, err := s.nodes.UpdatePath(ctx, "n1", bad)
			require.NoError(t, err)
			assert.True(t, r.Is(result.KindValidation), "%v", bad)

			stored := expect(s.nodes.FindByID(ctx, "n1")).ok(t)
			assert.Equal(t, models.NodePath{"n1"}, stored.FilePath)
		}

		moved := expect(s.nodes.UpdatePath(ctx, "n1", models.NodePath{"p", "n1"})).ok(t)
		assert.Equal(t, models.NodePath{"p", "n1"}, moved.FilePath)

		stored := expect(s.nodes.FindByID(ctx, "n1")).ok(t)
		assert.Equal(t, models.NodePath{"p", "n1"}, stored.FilePath)

		r, err := s.nodes.UpdatePath(ctx, "ghost", models.NodePath{"ghost"})
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindNotFound))
	})
}

func TestNodeUpdateFields(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		expect(s.nodes.Insert(ctx, node("n1", "n1"))).ok(t)

		updated := expect(s.nodes.UpdateFields(ctx, "n1", map[string]any{
			"title":  "Renamed",
			"public": true,
		})).ok(t)
		assert.Equal(t, "Renamed", updated.Title)

		r, err := s.nodes.UpdateFields(ctx, "n1", map[string]any{
			"title":   "Half",
			"content": 42,
		})
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindValidation))

		stored := expect(s.nodes.FindByID(ctx, "n1")).ok(t)
		assert.Equal(t, "Renamed", stored.Title)
		assert.True(t, stored.Public)

		r, err = s.nodes.UpdateFields(ctx, "ghost", map[string]any{"title": "x"})
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindNotFound))
	})
}

func TestDeleteIsIdempotent(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		expect(s.nodes.Insert(ctx, node("n1", "n1"))).ok(t)
		expect(s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a1", NodeID: "n1"})).ok(t)
		expect(s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a2", NodeID: "n1"})).ok(t)
		expect(s.links.Insert(ctx, &models.Link{LinkID: "l1", Anchor1ID: "a1", Anchor2ID: "a2"})).ok(t)

		for i := 0; i < 2; i++ {
			assert.Equal(t, "n1", expect(s.nodes.DeleteByID(ctx, "n1")).ok(t))
			assert.Equal(t, "a1", expect(s.anchors.DeleteByID(ctx, "a1")).ok(t))
			assert.Equal(t, "l1", expect(s.links.DeleteByID(ctx, "l1")).ok(t))
		}
		expect(s.nodes.DeleteByID(ctx, "never-existed")).ok(t)

		assert.Empty(t, expect(s.nodes.FindAll(ctx)).ok(t))
		assert.Empty(t, expect(s.links.FindAll(ctx)).ok(t))
		assert.Len(t, expect(s.anchors.FindAll(ctx)).ok(t), 1)
	})
}

func TestAnchorInsert(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		extent := models.TextExtent{Text: "llo", StartCharacter: 2, EndCharacter: 5}
		expect(s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a1", NodeID: "n1", Extent: extent})).ok(t)

		// the node does not need to exist at store level
		got := expect(s.anchors.FindByID(ctx, "a1")).ok(t)
		assert.True(t, models.EqualExtents(extent, got.Extent))

		for name, a := range map[string]*models.Anchor{
			"duplicate":   {AnchorID: "a1", NodeID: "n1"},
			"no node":     {AnchorID: "a2"},
			"bad extent":  {AnchorID: "a3", NodeID: "n1", Extent: models.TextExtent{StartCharacter: 5, EndCharacter: 2}},
			"bad image":   {AnchorID: "a4", NodeID: "n1", Extent: models.ImageExtent{Left: 1, Right: 1, Top: 0, Bottom: 1}},
			"huge offset": {AnchorID: "a5", NodeID: "n1", Extent: models.TextExtent{Text: "x", StartCharacter: 0, EndCharacter: 1 << 31}},
			"nil payload": nil,
		} {
			r, err := s.anchors.Insert(ctx, a)
			require.NoError(t, err, name)
			assert.False(t, r.Success, name)
		}

		// an offset the decoder cannot read back is refused at write time
		r, err := s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a6", NodeID: "n1", Extent: models.TextExtent{Text: "x", EndCharacter: 1 << 31}})
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindValidation), r.Message)
		assert.Contains(t, r.Message, "extent.endCharacter")

		all := expect(s.anchors.FindAll(ctx)).ok(t)
		assert.Len(t, all, 1)
	})
}

func TestAnchorQueries(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		expect(s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a1", NodeID: "n1"})).ok(t)
		expect(s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a2", NodeID: "n2", Extent: models.ImageExtent{Left: 0, Top: 0, Right: 1, Bottom: 1}})).ok(t)
		expect(s.anchors.Insert(ctx, &models.Anchor{AnchorID: "a3", NodeID: "n2"})).ok(t)

		many := expect(s.anchors.FindManyByID(ctx, []string{"a1", "a3", "nope"})).ok(t)
		assert.Len(t, many, 2)

		byNode := expect(s.anchors.FindByNodeIDs(ctx, []string{"n2"})).ok(t)
		assert.Len(t, byNode, 2)

		n := expect(s.anchors.DeleteManyByID(ctx, []string{"a2", "a3"})).ok(t)
		assert.EqualValues(t, 2, n)

		n = expect(s.anchors.Clear(ctx)).ok(t)
		assert.EqualValues(t, 1, n)
	})
}

func TestLinkStore(t *testing.T) {
	runForAllDrivers(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		l1 := &models.Link{LinkID: "l1", Anchor1ID: "a1", Anchor2ID: "a2", Anchor1NodeID: "n1", Anchor2NodeID: "n2", Title: "t", DateCreated: created}
		l2 := &models.Link{LinkID: "l2", Anchor1ID: "a3", Anchor2ID: "a1", Anchor1NodeID: "n3", Anchor2NodeID: "n1", DateCreated: created}
		expect(s.links.Insert(ctx, l1)).ok(t)
		expect(s.links.Insert(ctx, l2)).ok(t)

		got := expect(s.links.FindByID(ctx, "l1")).ok(t)
		assert.True(t, l1.Equal(got))
		assert.True(t, created.Equal(got.DateCreated))

		r, err := s.links.Insert(ctx, &models.Link{LinkID: "self", Anchor1ID: "a1", Anchor2ID: "a1"})
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindValidation))

		r, err = s.links.Insert(ctx, l1)
		require.NoError(t, err)
		assert.True(t, r.Is(result.KindConflict))

		touching := expect(s.links.FindByAnchorIDs(ctx, []string{"a1"})).ok(t)
		assert.Equal(t, []string{"l1", "l2"}, linkIDs(touching))

		byNode := expect(s.links.FindByNodeID(ctx, "n2")).ok(t)
		assert.Equal(t, []string{"l1"}, linkIDs(byNode))

		n := expect(s.links.DeleteByAnchorIDs(ctx, []string{"a1"})).ok(t)
		assert.EqualValues(t, 2, n)
		n = expect(s.links.DeleteByAnchorIDs(ctx, []string{"a1"})).ok(t)
		assert.EqualValues(t, 0, n)
	})
}

func ids(nodes []*models.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.NodeID)
	}
	return out
}

func linkIDs(links []*models.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.LinkID)
	}
	return out
}
