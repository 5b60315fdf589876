// Package graphdb is an embeddable property-graph database engine: a
// Cypher-family lexer, parser, logical planner and pull-based executor
// riding on a pluggable storage.Backend contract. Graph is the single
// public entry point callers embed; everything pipeline-internal lives
// under internal/.
package graphdb

import (
	"context"

	"github.com/adaworld/graphdb/internal/cypher/parser"
	"github.com/adaworld/graphdb/internal/exec"
	"github.com/adaworld/graphdb/internal/planner"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

// ExecutionStats mirrors the mutation counters every mutating operator
// increments, surfaced to callers alongside a QueryResult's rows.
type ExecutionStats struct {
	NodesCreated         int64
	NodesDeleted         int64
	RelationshipsCreated int64
	RelationshipsDeleted int64
	PropertiesSet        int64
	LabelsAdded          int64
	LabelsRemoved        int64
}

// QueryResult is the output of a single Execute/Mutate call: the ordered
// result columns, the materialised rows bound to them, and the
// statistics accumulated along the way.
type QueryResult struct {
	Columns []string
	Rows    []map[string]models.Value
	Stats   ExecutionStats
}

// Graph is a handle over one storage.Backend. It owns no state of its
// own beyond the backend reference; multiple Graph values may wrap the
// same backend concurrently, with isolation between them only as strong
// as the backend provides.
type Graph struct {
	Backend storage.Backend
}

// New returns a Graph handle over backend. backend is typically
// memory.New() (the mandatory reference backend) or a
// storage/sqlstore.Backend.
func New(backend storage.Backend) *Graph {
	return &Graph{Backend: backend}
}

// Execute compiles text through the lexer/parser/planner pipeline and
// runs the resulting plan against the graph's backend inside a fresh
// transaction, returning the full row set and accumulated statistics.
// Read queries open a read-only transaction; any statement whose plan
// contains a write operator opens a read-write one instead, so a plain
// MATCH...RETURN never pays for write-transaction overhead.
func (g *Graph) Execute(ctx context.Context, text string, params models.PropertyMap) (*QueryResult, error) {
	plan, err := compile(text, params)
	if err != nil {
		return nil, err
	}

	mode := storage.ReadOnly
	if writesData(plan) {
		mode = storage.ReadWrite
	}

	tx, err := g.Backend.BeginTx(ctx, mode)
	if err != nil {
		return nil, NewStorageError(err.Error())
	}

	ex := exec.New(g.Backend, tx, params)
	cols, rows, runErr := ex.Run(ctx, plan)
	if runErr != nil {
		_ = g.Backend.RollbackTx(ctx, tx)
		return nil, runErr
	}
	if err := g.Backend.CommitTx(ctx, tx); err != nil {
		return nil, NewStorageError(err.Error())
	}

	out := make([]map[string]models.Value, len(rows))
	for i, r := range rows {
		out[i] = map[string]models.Value(r)
	}

	return &QueryResult{
		Columns: cols,
		Rows:    out,
		Stats:   toExecutionStats(ex.Stats),
	}, nil
}

// Mutate is a thin alias for Execute intended for writes that need not
// produce rows — callers that only care about ExecutionStats can ignore
// the returned Columns/Rows. It is otherwise identical to Execute; the
// distinction is documentation, not behavior.
func (g *Graph) Mutate(ctx context.Context, text string, params models.PropertyMap) (*QueryResult, error) {
	return g.Execute(ctx, text, params)
}

// compile runs text through the lexer, parser and planner, producing a
// logical plan ready for the executor.
func compile(text string, params models.PropertyMap) (planner.Plan, error) {
	stmt, err := parser.Parse(text)
	if err != nil {
		return nil, err
	}
	return planner.Build(stmt, params)
}

func toExecutionStats(s *exec.Stats) ExecutionStats {
	if s == nil {
		return ExecutionStats{}
	}
	return ExecutionStats{
		NodesCreated:         s.NodesCreated,
		NodesDeleted:         s.NodesDeleted,
		RelationshipsCreated: s.RelationshipsCreated,
		RelationshipsDeleted: s.RelationshipsDeleted,
		PropertiesSet:        s.PropertiesSet,
		LabelsAdded:          s.LabelsAdded,
		LabelsRemoved:        s.LabelsRemoved,
	}
}

// writesData reports whether any operator in plan mutates storage, used
// to pick the transaction mode a query opens with.
func writesData(p planner.Plan) bool {
	switch n := p.(type) {
	case *planner.CreateNode:
		return true
	case *planner.CreateRel:
		return true
	case *planner.MergeNode:
		return true
	case *planner.SetProperty:
		return true
	case *planner.RemoveProperty:
		return true
	case *planner.RemoveLabel:
		return true
	case *planner.DeleteNode:
		return true
	case *planner.DeleteRel:
		return true
	case *planner.SchemaOp:
		return true
	case *planner.Filter:
		return writesData(n.Input)
	case *planner.Project:
		return writesData(n.Input)
	case *planner.Sort:
		return writesData(n.Input)
	case *planner.Distinct:
		return writesData(n.Input)
	case *planner.Skip:
		return writesData(n.Input)
	case *planner.Limit:
		return writesData(n.Input)
	case *planner.Aggregate:
		return writesData(n.Input)
	case *planner.Unwind:
		return writesData(n.Input)
	case *planner.Expand:
		return writesData(n.Input)
	case *planner.CallProcedure:
		return writesData(n.Input)
	case *planner.CartesianProduct:
		return writesData(n.Left) || writesData(n.Right)
	default:
		return false
	}
}
