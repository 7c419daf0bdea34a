package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNode() *Node {
	return &Node{
		NodeID:   "n1",
		Type:     LocationNode,
		Title:    "Old",
		FilePath: NodePath{"root", "n1"},
	}
}

func TestApplyPatch(t *testing.T) {
	n := sampleNode()

	out, err := ApplyPatch(n, map[string]any{
		"title":       "New",
		"content":     "body",
		"public":      true,
		"lat":         12.5,
		"lng":         float64(-3),
		"userReadIds": []any{"u1", "u2"},
		"filePath":    []any{"n1"},
		"type":        "location",
		"nodeId":      "n1",
	})
	require.NoError(t, err)

	assert.Equal(t, "New", out.Title)
	assert.Equal(t, "body", out.Content)
	assert.True(t, out.Public)
	require.NotNil(t, out.Lat)
	assert.Equal(t, 12.5, *out.Lat)
	assert.Equal(t, []string{"u1", "u2"}, out.UserReadIDs)
	assert.Equal(t, NodePath{"n1"}, out.FilePath)

	// original untouched
	assert.Equal(t, "Old", n.Title)
	assert.Equal(t, NodePath{"root", "n1"}, n.FilePath)
}

func TestApplyPatchIsAllOrNothing(t *testing.T) {
	tests := map[string]map[string]any{
		"wrong string type":   {"title": "ok", "content": 5},
		"unknown field":       {"title": "ok", "color": "red"},
		"bad enum":            {"type": "audio"},
		"type change":         {"type": "folder"},
		"id change":           {"nodeId": "n2"},
		"path wrong tail":     {"filePath": []any{"x"}},
		"path empty":          {"filePath": []any{}},
		"path not strings":    {"filePath": []any{1, "n1"}},
		"collection mixed":    {"userWriteIds": []any{"u1", false}},
		"number as string":    {"lat": "12"},
		"boolean as string":   {"public": "true"},
		"path with duplicate": {"filePath": []string{"n1", "n1"}},
	}
	for name, patch := range tests {
		t.Run(name, func(t *testing.T) {
			n := sampleNode()
			out, err := ApplyPatch(n, patch)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, "Old", n.Title)
		})
	}
}
