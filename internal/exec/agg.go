package exec

import (
	"context"
	"sort"
	"strings"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/planner"
	"github.com/adaworld/graphdb/models"
)

// aggregateCursor hash-groups input rows by GroupBy and folds
// Aggregations over each group. It materializes eagerly
// since every group's final value depends on every row that maps to it.
type aggregateCursor struct {
	ex          *Executor
	input       cursor
	plan        *planner.Aggregate
	groups      []Row
	idx         int
	initialized bool
}

func (c *aggregateCursor) Next(ctx context.Context) (Row, bool, error) {
	if !c.initialized {
		if err := c.run(ctx); err != nil {
			return nil, false, err
		}
		c.initialized = true
	}
	if c.idx >= len(c.groups) {
		return nil, false, nil
	}
	row := c.groups[c.idx]
	c.idx++
	return row, true, nil
}

type groupState struct {
	keyRow Row
	folds  []*foldState
}

func (c *aggregateCursor) run(ctx context.Context) error {
	order := make([]string, 0)
	states := make(map[string]*groupState)

	for {
		row, ok, err := c.input.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		keyRow := Row{}
		keyParts := make([]string, len(c.plan.GroupBy))
		for i, item := range c.plan.GroupBy {
			v, err := evalExpr(ctx, c.ex, item.Expr, row)
			if err != nil {
				return err
			}
			keyRow[item.Alias] = v
			keyParts[i] = v.TypeName() + ":" + v.String()
		}
		key := strings.Join(keyParts, "\x00")

		st, ok := states[key]
		if !ok {
			folds := make([]*foldState, len(c.plan.Aggregations))
			for i, item := range c.plan.Aggregations {
				folds[i] = newFoldState(item.Expr)
			}
			st = &groupState{keyRow: keyRow, folds: folds}
			states[key] = st
			order = append(order, key)
		}
		for i, item := range c.plan.Aggregations {
			if st.folds[i].star {
				st.folds[i].add(models.Null())
				continue
			}
			v, err := evalExpr(ctx, c.ex, funcArg(item.Expr), row)
			if err != nil {
				return err
			}
			st.folds[i].add(v)
		}
	}

	if len(order) == 0 && len(c.plan.GroupBy) == 0 {
		// No input rows and no grouping keys: aggregates over the empty
		// set still produce one row (count=0, sum=0, collect=[], others
		// null), the
		// same convention the reference dialect uses.
		folds := make([]*foldState, len(c.plan.Aggregations))
		for i, item := range c.plan.Aggregations {
			folds[i] = newFoldState(item.Expr)
		}
		order = append(order, "")
		states[""] = &groupState{keyRow: Row{}, folds: folds}
	}

	sort.Strings(order)
	groups := make([]Row, 0, len(order))
	for _, key := range order {
		st := states[key]
		out := st.keyRow.Clone()
		for i, item := range c.plan.Aggregations {
			out[item.Alias] = st.folds[i].result()
		}
		groups = append(groups, out)
	}
	c.groups = groups
	return nil
}

// funcArg unwraps the single argument of an aggregator FuncCall (e.g.
// count(n) -> n); count(*) has no argument and is handled in foldState.
func funcArg(e ast.Expr) ast.Expr {
	if fc, ok := e.(*ast.FuncCall); ok && len(fc.Args) == 1 {
		return fc.Args[0]
	}
	return e
}

// foldState accumulates one aggregator's running value across a group.
type foldState struct {
	kind     string
	distinct bool
	star     bool
	seen     map[string]struct{}

	count      int64
	sum        float64
	sumIsFloat bool
	min        *models.Value
	max        *models.Value
	items      []models.Value
}

func newFoldState(e ast.Expr) *foldState {
	fc, ok := e.(*ast.FuncCall)
	if !ok {
		return &foldState{kind: "count"}
	}
	fs := &foldState{kind: strings.ToLower(fc.Name), distinct: fc.Distinct, star: fc.Star}
	if fs.distinct {
		fs.seen = make(map[string]struct{})
	}
	return fs
}

func (f *foldState) add(v models.Value) {
	if f.distinct {
		key := v.TypeName() + ":" + v.String()
		if _, dup := f.seen[key]; dup {
			return
		}
		f.seen[key] = struct{}{}
	}
	switch f.kind {
	case "count":
		if f.star || !v.IsNull() {
			f.count++
		}
	case "sum":
		if v.IsNull() {
			return
		}
		if v.Kind() == models.KindFloat {
			f.sumIsFloat = true
		}
		fv, err := v.AsFloat()
		if err == nil {
			f.sum += fv
		}
	case "avg":
		if v.IsNull() {
			return
		}
		fv, err := v.AsFloat()
		if err == nil {
			f.sum += fv
			f.count++
		}
	case "min":
		if v.IsNull() {
			return
		}
		if f.min == nil || models.CompareTotal(v, *f.min) < 0 {
			vv := v
			f.min = &vv
		}
	case "max":
		if v.IsNull() {
			return
		}
		if f.max == nil || models.CompareTotal(v, *f.max) > 0 {
			vv := v
			f.max = &vv
		}
	case "collect":
		if !v.IsNull() {
			f.items = append(f.items, v)
		}
	}
}

func (f *foldState) result() models.Value {
	switch f.kind {
	case "count":
		return models.Int(f.count)
	case "sum":
		if f.sumIsFloat {
			return models.Float(f.sum)
		}
		return models.Int(int64(f.sum))
	case "avg":
		if f.count == 0 {
			return models.Null()
		}
		return models.Float(f.sum / float64(f.count))
	case "min":
		if f.min == nil {
			return models.Null()
		}
		return *f.min
	case "max":
		if f.max == nil {
			return models.Null()
		}
		return *f.max
	case "collect":
		return models.List(f.items)
	default:
		return models.Null()
	}
}
