package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/xaenox/hypergraph/internal/cascade"
	"github.com/xaenox/hypergraph/internal/models"
	"github.com/xaenox/hypergraph/internal/result"
)

// errFailed marks a command whose envelope reported failure. The envelope
// has already been written, so main only sets the exit status.
var errFailed = errors.New("operation failed")

const usage = `Usage: hypergraph [flags] <command> [args]

Commands:
  check                              Report orphan anchors, orphan links, stale links and broken paths
  repair                             Delete orphan links and anchors found by check
  create-node <type> <title> [parentId]
  anchor <nodeId> [extent-json]      Create an anchor; no extent anchors the whole node
  link <anchor1> <anchor2> [title]   Link two anchors
  get-node|get-anchor|get-link <id>
  children <nodeId>                  Direct children of a node
  links <nodeId>                     Links touching any anchor of a node
  move-node <id> <a,b,id>            Give a node a new filePath, descendants follow
  delete-node|delete-anchor|delete-link <id>

Examples:
  hypergraph create-node folder Inbox
  hypergraph anchor n1 '{"type":"text","text":"hello","startCharacter":0,"endCharacter":5}'
  hypergraph -config hypergraph.yaml move-node n1 root,n1`

// options are the global flags.
type options struct {
	configPath string
}

// command is one parsed invocation.
type command struct {
	name string
	args []string
}

func parse(args []string) (*options, *command, error) {
	flagSet := flag.NewFlagSet("hypergraph", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	opts := &options{}
	flagSet.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w\n\n%s", err, usage)
	}

	rest := flagSet.Args()
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("command required\n\n%s", usage)
	}

	cmd := &command{name: rest[0], args: rest[1:]}
	lo, hi, ok := arity(cmd.name)
	if !ok {
		return nil, nil, fmt.Errorf("unknown command: %s\n\n%s", cmd.name, usage)
	}
	if len(cmd.args) < lo || len(cmd.args) > hi {
		return nil, nil, fmt.Errorf("%s: wrong number of arguments\n\n%s", cmd.name, usage)
	}
	return opts, cmd, nil
}

func arity(name string) (lo, hi int, ok bool) {
	switch name {
	case "check", "repair":
		return 0, 0, true
	case "get-node", "get-anchor", "get-link", "children", "links",
		"delete-node", "delete-anchor", "delete-link":
		return 1, 1, true
	case "move-node":
		return 2, 2, true
	case "anchor":
		return 1, 2, true
	case "link", "create-node":
		return 2, 3, true
	}
	return 0, 0, false
}

// execute runs cmd against c and writes the result envelope to w.
func execute(ctx context.Context, c *cascade.Coordinator, cmd *command, w io.Writer) error {
	arg := func(i int) string {
		if i < len(cmd.args) {
			return cmd.args[i]
		}
		return ""
	}

	switch cmd.name {
	case "check":
		return emit(c.Check(ctx))(w)
	case "repair":
		return emit(c.Repair(ctx))(w)

	case "create-node":
		n := &models.Node{Type: models.NodeType(arg(0)), Title: arg(1)}
		return emit(c.CreateNode(ctx, n, arg(2)))(w)
	case "anchor":
		extent, err := models.ParseExtent([]byte(arg(1)))
		if err != nil {
			return write(w, result.Validation[*models.Anchor]("%s", err.Error()))
		}
		return emit(c.CreateAnchor(ctx, &models.Anchor{NodeID: arg(0), Extent: extent}))(w)
	case "link":
		return emit(c.CreateLink(ctx, arg(0), arg(1), arg(2), ""))(w)

	case "get-node":
		return emit(c.Nodes().FindByID(ctx, arg(0)))(w)
	case "get-anchor":
		return emit(c.Anchors().FindByID(ctx, arg(0)))(w)
	case "get-link":
		return emit(c.Links().FindByID(ctx, arg(0)))(w)
	case "children":
		return emit(c.Nodes().FindChildren(ctx, arg(0)))(w)
	case "links":
		return emit(c.Links().FindByNodeID(ctx, arg(0)))(w)

	case "move-node":
		return emit(c.MoveNode(ctx, arg(0), splitPath(arg(1))))(w)

	case "delete-node":
		return emit(c.DeleteNode(ctx, arg(0)))(w)
	case "delete-anchor":
		return emit(c.DeleteAnchor(ctx, arg(0)))(w)
	case "delete-link":
		return emit(c.DeleteLink(ctx, arg(0)))(w)
	}
	return fmt.Errorf("unknown command: %s", cmd.name)
}

func splitPath(s string) models.NodePath {
	if s == "" {
		return models.NodePath{}
	}
	return models.NodePath(strings.Split(s, ","))
}

// emit takes an operation's (Result, error) pair and returns the step that
// writes it.
func emit[T any](r result.Result[T], err error) func(io.Writer) error {
	return func(w io.Writer) error {
		if err != nil {
			return err
		}
		return write(w, r)
	}
}

func write[T any](w io.Writer, r result.Result[T]) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return err
	}
	if !r.Success {
		return errFailed
	}
	return nil
}
