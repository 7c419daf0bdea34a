package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/hypergraph/internal/cascade"
	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/storage"
	"github.com/xaenox/hypergraph/pkg/config"
)

func TestParse(t *testing.T) {
	opts, cmd, err := parse([]string{"-config", "graph.yaml", "move-node", "n1", "root,n1"})
	require.NoError(t, err)
	assert.Equal(t, "graph.yaml", opts.configPath)
	assert.Equal(t, "move-node", cmd.name)
	assert.Equal(t, []string{"n1", "root,n1"}, cmd.args)

	_, cmd, err = parse([]string{"link", "a1", "a2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "a2"}, cmd.args)
}

func TestParseErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"no command":      nil,
		"unknown command": {"explode"},
		"too few":         {"get-node"},
		"too many":        {"check", "now"},
		"unknown flag":    {"-verbose", "check"},
	} {
		_, _, err := parse(args)
		assert.Error(t, err, name)
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Payload json.RawMessage `json:"payload"`
}

type cli struct {
	t *testing.T
	c *cascade.Coordinator
}

func newCLI(t *testing.T) *cli {
	c, err := cascade.Open(context.Background(), storage.NewMemoryStorage(), zaptest.NewLogger(t))
	require.NoError(t, err)
	return &cli{t: t, c: c}
}

// do runs one command line and decodes the envelope it printed.
func (x *cli) do(args ...string) (envelope, error) {
	x.t.Helper()
	_, cmd, err := parse(args)
	require.NoError(x.t, err)

	var out bytes.Buffer
	runErr := execute(context.Background(), x.c, cmd, &out)

	var env envelope
	require.NoError(x.t, json.Unmarshal(out.Bytes(), &env), out.String())
	return env, runErr
}

func (x *cli) ok(args ...string) json.RawMessage {
	x.t.Helper()
	env, err := x.do(args...)
	require.NoError(x.t, err)
	require.True(x.t, env.Success, env.Message)
	return env.Payload
}

func TestExecuteWorkflow(t *testing.T) {
	x := newCLI(t)

	var root, child models.Node
	require.NoError(t, json.Unmarshal(x.ok("create-node", "folder", "Inbox"), &root))
	require.NoError(t, json.Unmarshal(x.ok("create-node", "text", "Note", root.NodeID), &child))
	assert.Equal(t, models.NodePath{root.NodeID, child.NodeID}, child.FilePath)

	var a1, a2 models.Anchor
	require.NoError(t, json.Unmarshal(x.ok("anchor", child.NodeID, `{"type":"text","text":"hello","startCharacter":0,"endCharacter":5}`), &a1))
	require.NoError(t, json.Unmarshal(x.ok("anchor", root.NodeID), &a2))
	assert.Equal(t, models.TextExtent{Text: "hello", StartCharacter: 0, EndCharacter: 5}, a1.Extent)

	var link models.Link
	require.NoError(t, json.Unmarshal(x.ok("link", a1.AnchorID, a2.AnchorID, "greeting"), &link))
	assert.Equal(t, child.NodeID, link.Anchor1NodeID)
	assert.Equal(t, root.NodeID, link.Anchor2NodeID)

	var links []models.Link
	require.NoError(t, json.Unmarshal(x.ok("links", root.NodeID), &links))
	require.Len(t, links, 1)

	var children []models.Node
	require.NoError(t, json.Unmarshal(x.ok("children", root.NodeID), &children))
	require.Len(t, children, 1)
	assert.Equal(t, child.NodeID, children[0].NodeID)

	var moved models.Node
	require.NoError(t, json.Unmarshal(x.ok("move-node", child.NodeID, child.NodeID), &moved))
	assert.Equal(t, models.NodePath{child.NodeID}, moved.FilePath)

	var report cascade.Report
	require.NoError(t, json.Unmarshal(x.ok("delete-node", child.NodeID), &report))
	assert.Equal(t, cascade.Report{Nodes: 1, Anchors: 1, Links: 1}, report)

	var check cascade.IntegrityReport
	require.NoError(t, json.Unmarshal(x.ok("check"), &check))
	assert.True(t, check.Clean())
	assert.Equal(t, 1, check.Nodes)
	assert.Equal(t, 1, check.Anchors)
}

func TestExecuteFailureEnvelope(t *testing.T) {
	x := newCLI(t)

	env, err := x.do("get-node", "missing")
	assert.ErrorIs(t, err, errFailed)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "not found")
	assert.Equal(t, "null", string(env.Payload))

	env, err = x.do("anchor", "n1", `{"type":"text"`)
	assert.ErrorIs(t, err, errFailed)
	assert.False(t, env.Success)

	env, err = x.do("link", "a", "a")
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, env.Message, "itself")

	// deletes of missing records still succeed
	x.ok("delete-link", "missing")
	x.ok("delete-anchor", "missing")
}

func TestRunUsesConfiguredBackend(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Backend: config.BackendSQLite},
		SQLite:  config.SQLiteConfig{Path: ":memory:"},
	}
	var out bytes.Buffer
	err := run(context.Background(), cfg, &command{name: "check"}, &out, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"success": true`)
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, models.NodePath{}, splitPath(""))
	assert.Equal(t, models.NodePath{"a", "b"}, splitPath("a,b"))
}
