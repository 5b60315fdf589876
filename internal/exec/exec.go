// Package exec is the pull-based tree-walking executor: it walks a
// planner.Plan against a storage.Backend, binding pattern variables
// into rows and accumulating execution statistics as it goes. Every
// operator is a cursor with a single Next method rather than one
// monolithic interpreter loop.
package exec

import (
	"context"
	"fmt"
	"sort"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/internal/planner"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

// Row is one bound result tuple: binding name -> value.
type Row map[string]models.Value

// Clone returns a shallow copy so downstream operators can extend a row
// without mutating the one an upstream operator (or a sibling branch of
// a CartesianProduct) still holds a reference to.
func (r Row) Clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stats accumulates the mutation counters every mutating operator
// increments, traveling with the QueryResult.
type Stats struct {
	NodesCreated         int64
	NodesDeleted         int64
	RelationshipsCreated int64
	RelationshipsDeleted int64
	PropertiesSet        int64
	LabelsAdded          int64
	LabelsRemoved        int64
}

// cursor is the pull-based contract every operator implements: Next
// returns the next row, or ok=false once exhausted. A non-nil err
// aborts the query immediately.
type cursor interface {
	Next(ctx context.Context) (row Row, ok bool, err error)
}

// Executor walks a single plan against one backend/transaction pair and
// owns the Stats accumulated along the way.
type Executor struct {
	Backend storage.Backend
	Tx      storage.Tx
	Params  models.PropertyMap
	Stats   *Stats
}

// New returns an executor ready to run a single plan.
func New(backend storage.Backend, tx storage.Tx, params models.PropertyMap) *Executor {
	if params == nil {
		params = models.PropertyMap{}
	}
	return &Executor{Backend: backend, Tx: tx, Params: params, Stats: &Stats{}}
}

// Run executes plan to completion, returning its result columns (in
// plan-defined order) and every row it produced. No partial rows are
// returned once an error fires.
func (ex *Executor) Run(ctx context.Context, plan planner.Plan) ([]string, []Row, error) {
	cur, err := ex.build(plan)
	if err != nil {
		return nil, nil, err
	}
	cols := Columns(plan)

	var rows []Row
	for {
		row, ok, err := cur.Next(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return cols, rows, nil
}

// Columns derives a plan's output column list without running it,
// following the outermost row-shaping operator. Plans with no
// projection (bare mutations with no RETURN) report no columns.
func Columns(plan planner.Plan) []string {
	switch p := plan.(type) {
	case *planner.Project:
		out := make([]string, len(p.Items))
		for i, it := range p.Items {
			out[i] = it.Alias
		}
		return out
	case *planner.Aggregate:
		out := make([]string, 0, len(p.GroupBy)+len(p.Aggregations))
		for _, it := range p.GroupBy {
			out = append(out, it.Alias)
		}
		for _, it := range p.Aggregations {
			out = append(out, it.Alias)
		}
		return out
	case *planner.Distinct:
		return Columns(p.Input)
	case *planner.Sort:
		return Columns(p.Input)
	case *planner.Skip:
		return Columns(p.Input)
	case *planner.Limit:
		return Columns(p.Input)
	default:
		return nil
	}
}

func (ex *Executor) build(plan planner.Plan) (cursor, error) {
	switch p := plan.(type) {
	case *planner.Argument:
		return &argumentCursor{}, nil

	case *planner.AllNodesScan:
		return &allNodesScanCursor{ex: ex, alias: p.Alias}, nil

	case *planner.NodeScan:
		return &nodeScanCursor{ex: ex, alias: p.Alias, label: p.Label}, nil

	case *planner.IndexLookup:
		return &indexLookupCursor{ex: ex, plan: p}, nil

	case *planner.Expand:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &expandCursor{ex: ex, input: input, plan: p}, nil

	case *planner.Filter:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &filterCursor{ex: ex, input: input, predicate: p.Predicate}, nil

	case *planner.Project:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &projectCursor{ex: ex, input: input, items: p.Items}, nil

	case *planner.Sort:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &sortCursor{ex: ex, input: input, keys: p.Keys}, nil

	case *planner.Distinct:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &distinctCursor{input: input, seen: map[string]struct{}{}}, nil

	case *planner.Skip:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &skipCursor{input: input, remaining: p.Count}, nil

	case *planner.Limit:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &limitCursor{input: input, remaining: p.Count}, nil

	case *planner.Aggregate:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &aggregateCursor{ex: ex, input: input, plan: p}, nil

	case *planner.CartesianProduct:
		left, err := ex.build(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := ex.build(p.Right)
		if err != nil {
			return nil, err
		}
		return &cartesianCursor{left: left, rightBuild: right}, nil

	case *planner.Unwind:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &unwindCursor{ex: ex, input: input, expr: p.Expr, alias: p.Alias}, nil

	case *planner.CreateNode:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &createNodeCursor{ex: ex, input: input, plan: p}, nil

	case *planner.CreateRel:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &createRelCursor{ex: ex, input: input, plan: p}, nil

	case *planner.MergeNode:
		return &mergeNodeCursor{ex: ex, plan: p}, nil

	case *planner.SetProperty:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &setPropertyCursor{ex: ex, input: input, plan: p}, nil

	case *planner.RemoveProperty:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &removePropertyCursor{ex: ex, input: input, plan: p}, nil

	case *planner.RemoveLabel:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &removeLabelCursor{ex: ex, input: input, plan: p}, nil

	case *planner.DeleteNode:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &deleteNodeCursor{ex: ex, input: input, plan: p}, nil

	case *planner.DeleteRel:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &deleteRelCursor{ex: ex, input: input, plan: p}, nil

	case *planner.CallProcedure:
		input, err := ex.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &callProcedureCursor{ex: ex, input: input, plan: p}, nil

	case *planner.SchemaOp:
		return &schemaOpCursor{ex: ex, plan: p}, nil

	default:
		return nil, gerr.NewExecutionError(fmt.Sprintf("unsupported plan node %T", plan))
	}
}

// ---- leaf / passthrough cursors ----

type argumentCursor struct{ done bool }

func (c *argumentCursor) Next(_ context.Context) (Row, bool, error) {
	if c.done {
		return nil, false, nil
	}
	c.done = true
	return Row{}, true, nil
}

type allNodesScanCursor struct {
	ex          *Executor
	alias       string
	nodes       []models.Node
	idx         int
	initialized bool
}

func (c *allNodesScanCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.initialized {
		nodes, err := c.ex.Backend.AllNodes(ctx, c.ex.Tx)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		c.nodes = nodes
		c.initialized = true
	}
	if c.idx >= len(c.nodes) {
		return nil, false, nil
	}
	n := c.nodes[c.idx]
	c.idx++
	return Row{c.alias: models.NodeValue(n)}, true, nil
}

type nodeScanCursor struct {
	ex          *Executor
	alias       string
	label       string
	nodes       []models.Node
	idx         int
	initialized bool
}

func (c *nodeScanCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.initialized {
		nodes, err := c.ex.Backend.AllNodes(ctx, c.ex.Tx)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		filtered := nodes[:0]
		for _, n := range nodes {
			if n.HasLabel(c.label) {
				filtered = append(filtered, n)
			}
		}
		c.nodes = filtered
		c.initialized = true
	}
	if c.idx >= len(c.nodes) {
		return nil, false, nil
	}
	n := c.nodes[c.idx]
	c.idx++
	return Row{c.alias: models.NodeValue(n)}, true, nil
}

type indexLookupCursor struct {
	ex          *Executor
	plan        *planner.IndexLookup
	ids         []models.NodeID
	idx         int
	initialized bool
}

func (c *indexLookupCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.initialized {
		val, err := evalExpr(ctx, c.ex, c.plan.Value, Row{})
		if err != nil {
			return nil, false, err
		}
		ids, err := c.ex.Backend.IndexLookup(ctx, c.ex.Tx, c.plan.Label, c.plan.Property, val)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		c.ids = ids
		c.initialized = true
	}
	for c.idx < len(c.ids) {
		id := c.ids[c.idx]
		c.idx++
		n, ok, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, id)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		if !ok {
			continue
		}
		return Row{c.plan.Alias: models.NodeValue(n)}, true, nil
	}
	return nil, false, nil
}

type expandCursor struct {
	ex      *Executor
	input   cursor
	plan    *planner.Expand
	curRow  Row
	pending []models.Relationship
	pidx    int
}

func (c *expandCursor) Next(ctx context.Context) (Row, bool, error) {
	for {
		if c.pending != nil && c.pidx < len(c.pending) {
			rel := c.pending[c.pidx]
			c.pidx++
			fromVal := c.curRow[c.plan.From]
			fromNode, err := fromVal.AsNode()
			if err != nil {
				return nil, false, gerr.NewTypeError("Node", fromVal.TypeName())
			}
			otherID, ok := rel.OtherNode(fromNode.ID)
			if !ok {
				continue
			}
			otherNode, found, err := c.ex.Backend.GetNode(ctx, c.ex.Tx, otherID)
			if err != nil {
				return nil, false, gerr.NewStorageError(err.Error())
			}
			if !found {
				continue
			}
			row := c.curRow.Clone()
			row[c.plan.To] = models.NodeValue(otherNode)
			if c.plan.RelAlias != "" {
				row[c.plan.RelAlias] = models.RelValue(rel)
			}
			return row, true, nil
		}

		row, ok, err := c.input.Next(ctx)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		c.curRow = row
		fromVal, ok := row[c.plan.From]
		if !ok {
			return nil, false, gerr.NewNotFound("binding " + c.plan.From)
		}
		fromNode, err := fromVal.AsNode()
		if err != nil {
			return nil, false, gerr.NewTypeError("Node", fromVal.TypeName())
		}
		rels, err := c.ex.Backend.GetRelationships(ctx, c.ex.Tx, fromNode.ID, c.plan.Dir, c.plan.RelTypes)
		if err != nil {
			return nil, false, gerr.NewStorageError(err.Error())
		}
		c.pending = rels
		c.pidx = 0
	}
}

type filterCursor struct {
	ex        *Executor
	input     cursor
	predicate ast.Expr
}

func (c *filterCursor) Next(ctx context.Context) (Row, bool, error) {
	for {
		row, ok, err := c.input.Next(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}
		v, err := evalExpr(ctx, c.ex, c.predicate, row)
		if err != nil {
			return nil, false, err
		}
		truth, known := v.Truthy()
		if known && truth {
			return row, true, nil
		}
	}
}

type projectCursor struct {
	ex    *Executor
	input cursor
	items []planner.ProjectItem
}

func (c *projectCursor) Next(ctx context.Context) (Row, bool, error) {
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	out := make(Row, len(c.items))
	for _, item := range c.items {
		v, err := evalExpr(ctx, c.ex, item.Expr, row)
		if err != nil {
			return nil, false, err
		}
		out[item.Alias] = v
	}
	return out, true, nil
}

type sortCursor struct {
	ex          *Executor
	input       cursor
	keys        []planner.SortKey
	rows        []Row
	idx         int
	initialized bool
}

func (c *sortCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.initialized {
		for {
			row, ok, err := c.input.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			c.rows = append(c.rows, row)
		}
		sort.SliceStable(c.rows, func(i, j int) bool {
			return c.less(ctx, c.rows[i], c.rows[j])
		})
		c.initialized = true
	}
	if c.idx >= len(c.rows) {
		return nil, false, nil
	}
	row := c.rows[c.idx]
	c.idx++
	return row, true, nil
}

func (c *sortCursor) less(ctx context.Context, a, b Row) bool {
	for _, key := range c.keys {
		va, erra := evalExpr(ctx, c.ex, key.Expr, a)
		vb, errb := evalExpr(ctx, c.ex, key.Expr, b)
		if erra != nil {
			va = models.Null()
		}
		if errb != nil {
			vb = models.Null()
		}
		aNull, bNull := va.IsNull(), vb.IsNull()
		if aNull || bNull {
			if aNull && bNull {
				continue
			}
			// nulls last for ascending, nulls first for descending.
			if key.Ascending {
				return !aNull
			}
			return aNull
		}
		c2 := models.CompareTotal(va, vb)
		if c2 == 0 {
			continue
		}
		if key.Ascending {
			return c2 < 0
		}
		return c2 > 0
	}
	return false
}

type distinctCursor struct {
	input cursor
	seen  map[string]struct{}
}

func (c *distinctCursor) Next(ctx context.Context) (Row, bool, error) {
	for {
		row, ok, err := c.input.Next(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}
		key := rowKey(row)
		if _, dup := c.seen[key]; dup {
			continue
		}
		c.seen[key] = struct{}{}
		return row, true, nil
	}
}

func rowKey(row Row) string {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	key := ""
	for _, n := range names {
		key += n + "=" + row[n].TypeName() + ":" + row[n].String() + "|"
	}
	return key
}

type skipCursor struct {
	input     cursor
	remaining int64
}

func (c *skipCursor) Next(ctx context.Context) (Row, bool, error) {
	for c.remaining > 0 {
		_, ok, err := c.input.Next(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}
		c.remaining--
	}
	return c.input.Next(ctx)
}

type limitCursor struct {
	input     cursor
	remaining int64
}

func (c *limitCursor) Next(ctx context.Context) (Row, bool, error) {
	if c.remaining <= 0 {
		return nil, false, nil
	}
	row, ok, err := c.input.Next(ctx)
	if err != nil || !ok {
		return nil, ok, err
	}
	c.remaining--
	return row, true, nil
}

type cartesianCursor struct {
	left        cursor
	rightBuild  cursor
	rightRows   []Row
	initialized bool
	curLeft     Row
	haveLeft    bool
	rightIdx    int
}

func (c *cartesianCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.initialized {
		for {
			row, ok, err := c.rightBuild.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				break
			}
			c.rightRows = append(c.rightRows, row)
		}
		c.initialized = true
	}
	for {
		if !c.haveLeft {
			row, ok, err := c.left.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			c.curLeft = row
			c.haveLeft = true
			c.rightIdx = 0
		}
		if c.rightIdx >= len(c.rightRows) {
			c.haveLeft = false
			continue
		}
		rightRow := c.rightRows[c.rightIdx]
		c.rightIdx++
		merged := c.curLeft.Clone()
		for k, v := range rightRow {
			merged[k] = v
		}
		return merged, true, nil
	}
}

type unwindCursor struct {
	ex     *Executor
	input  cursor
	expr   ast.Expr
	alias  string
	items  []models.Value
	idx    int
	curRow Row
	have   bool
}

func (c *unwindCursor) Next(ctx context.Context) (Row, bool, error) {
	for {
		if c.have && c.idx < len(c.items) {
			v := c.items[c.idx]
			c.idx++
			row := c.curRow.Clone()
			row[c.alias] = v
			return row, true, nil
		}
		row, ok, err := c.input.Next(ctx)
		if err != nil || !ok {
			return nil, ok, err
		}
		val, err := evalExpr(ctx, c.ex, c.expr, row)
		if err != nil {
			return nil, false, err
		}
		c.curRow = row
		switch {
		case val.IsNull():
			c.items, c.idx, c.have = nil, 0, false
			continue
		case val.Kind() == models.KindList:
			items, _ := val.AsList()
			c.items, c.idx, c.have = items, 0, true
		default:
			c.items, c.idx, c.have = []models.Value{val}, 0, true
		}
	}
}
