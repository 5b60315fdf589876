// Package planner maps a parsed Cypher AST onto a tree of logical
// operators, backend-agnostic and ready for the executor to walk.
package planner

import (
	"fmt"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/cypher/token"
	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/models"
)

// Aggregator names recognised by the Aggregate operator.
var aggregatorNames = map[string]bool{
	"count": true, "sum": true, "avg": true, "min": true, "max": true, "collect": true,
}

// Plan is any logical plan node; every operator struct below implements
// it with a no-op marker method.
type Plan interface {
	planNode()
}

type AllNodesScan struct{ Alias string }

type NodeScan struct {
	Label string
	Alias string
}

type IndexLookup struct {
	Label    string
	Property string
	Alias    string
	Value    ast.Expr
}

type Expand struct {
	Input    Plan
	From     string
	Dir      models.Direction
	RelTypes []string
	To       string
	RelAlias string // "" if unnamed
}

type Filter struct {
	Input     Plan
	Predicate ast.Expr
}

// ProjectItem is one `expr AS alias` projection entry.
type ProjectItem struct {
	Expr  ast.Expr
	Alias string
}

type Project struct {
	Input Plan
	Items []ProjectItem
}

// SortKey is one ORDER BY entry.
type SortKey struct {
	Expr      ast.Expr
	Ascending bool
}

type Sort struct {
	Input Plan
	Keys  []SortKey
}

type Distinct struct{ Input Plan }

type Skip struct {
	Input Plan
	Count int64
}

type Limit struct {
	Input Plan
	Count int64
}

// AggItem is one `expr AS alias` aggregation or group-by entry.
type AggItem struct {
	Expr  ast.Expr
	Alias string
}

type Aggregate struct {
	Input        Plan
	GroupBy      []AggItem
	Aggregations []AggItem
}

type CartesianProduct struct {
	Left  Plan
	Right Plan
}

type Unwind struct {
	Input Plan
	Expr  ast.Expr
	Alias string
}

// CreateProperty is one `key: expr` entry in a CREATE/MERGE property map.
type CreateProperty struct {
	Key   string
	Value ast.Expr
}

type CreateNode struct {
	Input      Plan // piped so multi-pattern CREATE composes via CartesianProduct upstream
	Labels     []string
	Properties []CreateProperty
	Alias      string
}

type CreateRel struct {
	Input      Plan
	SrcAlias   string
	DstAlias   string
	Type       string
	Properties []CreateProperty
	Alias      string // "" if the relationship pattern was unnamed
}

// MergeSetItem is one `var.key = expr` ON CREATE/ON MATCH assignment.
type MergeSetItem struct {
	Variable string
	Key      string
	Value    ast.Expr
}

type MergeNode struct {
	Labels     []string
	Properties []CreateProperty
	Alias      string
	OnCreate   []MergeSetItem
	OnMatch    []MergeSetItem
}

type SetProperty struct {
	Input    Plan
	Variable string
	Key      string
	Value    ast.Expr
}

type RemoveProperty struct {
	Input    Plan
	Variable string
	Key      string
}

type RemoveLabel struct {
	Input    Plan
	Variable string
	Label    string
}

type DeleteNode struct {
	Input    Plan
	Variable string
	Detach   bool
}

type DeleteRel struct {
	Input    Plan
	Variable string
}

type CallProcedure struct {
	Input  Plan
	Name   string
	Args   []ast.Expr
	Yields []string
}

// Argument is the seed leaf producing exactly one empty row.
type Argument struct{}

type SchemaOp struct {
	Kind     ast.SchemaKind
	Label    string
	Property string
	Unique   bool
}

func (*AllNodesScan) planNode()     {}
func (*NodeScan) planNode()         {}
func (*IndexLookup) planNode()      {}
func (*Expand) planNode()           {}
func (*Filter) planNode()           {}
func (*Project) planNode()          {}
func (*Sort) planNode()             {}
func (*Distinct) planNode()         {}
func (*Skip) planNode()             {}
func (*Limit) planNode()            {}
func (*Aggregate) planNode()        {}
func (*CartesianProduct) planNode() {}
func (*Unwind) planNode()           {}
func (*CreateNode) planNode()       {}
func (*CreateRel) planNode()        {}
func (*MergeNode) planNode()        {}
func (*SetProperty) planNode()      {}
func (*RemoveProperty) planNode()   {}
func (*RemoveLabel) planNode()      {}
func (*DeleteNode) planNode()       {}
func (*DeleteRel) planNode()        {}
func (*CallProcedure) planNode()    {}
func (*Argument) planNode()         {}
func (*SchemaOp) planNode()         {}

// planner carries the anonymous-alias counter, scoped to a single
// Build call (never shared across statements).
type planner struct {
	anonCounter int
}

func (pl *planner) nextAnon() string {
	pl.anonCounter++
	return fmt.Sprintf("_anon_%d", pl.anonCounter)
}

// Build lowers a parsed statement to its logical plan. params is
// accepted for parity with the storage/executor contract (future
// constant-folding of parameter-dependent SKIP/LIMIT); it is not
// consulted today since SKIP and LIMIT only admit literal integers.
func Build(stmt ast.Statement, params models.PropertyMap) (Plan, error) {
	pl := &planner{}
	switch s := stmt.(type) {
	case *ast.Query:
		return pl.planQuery(s)
	case *ast.Create:
		return pl.planCreate(s)
	case *ast.Merge:
		return pl.planMerge(s)
	case *ast.Delete:
		return pl.planDelete(s)
	case *ast.Set:
		return pl.planSet(s)
	case *ast.Remove:
		return pl.planRemove(s)
	case *ast.Schema:
		return &SchemaOp{Kind: s.Kind, Label: s.Label, Property: s.Property, Unique: s.Unique}, nil
	default:
		return nil, gerr.NewPlanError("unrecognized statement type")
	}
}

func (pl *planner) planQuery(q *ast.Query) (Plan, error) {
	var current Plan = &Argument{}
	haveSeed := false

	for _, part := range q.Parts {
		switch {
		case part.Match != nil:
			p, err := pl.planMatchClause(part.Match, current, haveSeed)
			if err != nil {
				return nil, err
			}
			current = p
			haveSeed = true
		case part.With != nil:
			p, err := pl.planWithClause(part.With, current)
			if err != nil {
				return nil, err
			}
			current = p
		case part.Unwind != nil:
			current = &Unwind{Input: current, Expr: part.Unwind.Expr, Alias: part.Unwind.Alias}
		case part.Call != nil:
			current = &CallProcedure{Input: current, Name: part.Call.Name, Args: part.Call.Args, Yields: part.Call.Yield}
		}
	}

	return pl.planReturnLike(current, q.Return.Distinct, q.Return.Items, q.Return.OrderBy, q.Return.Skip, q.Return.Limit)
}

// planMatchClause plans one MATCH's patterns (left-deep CartesianProduct
// across patterns within the clause), applies its WHERE, and composes
// it onto the existing plan via another CartesianProduct once a seed
// already exists, so successive MATCH clauses stay left-deep.
func (pl *planner) planMatchClause(m *ast.MatchClause, into Plan, haveSeed bool) (Plan, error) {
	if m.Optional {
		return nil, gerr.NewPlanError("OPTIONAL MATCH is not supported")
	}
	clausePlan, err := pl.planPatterns(m.Patterns)
	if err != nil {
		return nil, err
	}
	if m.Where != nil {
		clausePlan = pushdownIndexLookup(clausePlan, m.Where)
		clausePlan = &Filter{Input: clausePlan, Predicate: m.Where}
	}
	if !haveSeed {
		return clausePlan, nil
	}
	return &CartesianProduct{Left: into, Right: clausePlan}, nil
}

// pushdownIndexLookup swaps a NodeScan seed for an IndexLookup when the
// WHERE clause pins an equality on the scanned alias's property. The
// backend answers from an index when it has one over (label, property)
// and degrades to a scan+filter when it doesn't, so the swap never
// changes the result set; the enclosing Filter still applies the full
// predicate afterwards.
func pushdownIndexLookup(p Plan, where ast.Expr) Plan {
	scan, ok := p.(*NodeScan)
	if !ok {
		return p
	}
	prop, value, found := eqConjunct(where, scan.Alias)
	if !found {
		return p
	}
	return &IndexLookup{Label: scan.Label, Property: prop, Alias: scan.Alias, Value: value}
}

// eqConjunct walks an AND chain looking for `alias.key = <literal|param>`
// (either operand order) and returns the first pushable conjunct.
func eqConjunct(e ast.Expr, alias string) (string, ast.Expr, bool) {
	bin, ok := e.(*ast.BinaryOp)
	if !ok {
		return "", nil, false
	}
	switch bin.Op {
	case token.AND:
		if prop, v, ok := eqConjunct(bin.Left, alias); ok {
			return prop, v, true
		}
		return eqConjunct(bin.Right, alias)
	case token.EQ:
		if prop, v, ok := eqSide(bin.Left, bin.Right, alias); ok {
			return prop, v, true
		}
		return eqSide(bin.Right, bin.Left, alias)
	}
	return "", nil, false
}

func eqSide(lhs, rhs ast.Expr, alias string) (string, ast.Expr, bool) {
	pa, ok := lhs.(*ast.PropertyAccess)
	if !ok {
		return "", nil, false
	}
	id, ok := pa.Target.(*ast.Ident)
	if !ok || id.Name != alias {
		return "", nil, false
	}
	switch rhs.(type) {
	case *ast.Literal, *ast.Parameter:
		return pa.Key, rhs, true
	}
	return "", nil, false
}

func (pl *planner) planPatterns(patterns []ast.Pattern) (Plan, error) {
	var plans []Plan
	for _, pat := range patterns {
		p, err := pl.planPattern(pat)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if len(plans) == 0 {
		return &Argument{}, nil
	}
	current := plans[0]
	for _, p := range plans[1:] {
		current = &CartesianProduct{Left: current, Right: p}
	}
	return current, nil
}

// propsFilter builds the AND-chain `alias.k1 = v1 AND alias.k2 = v2 ...`
// that an inline pattern property map (e.g. `(n:Person {name: "Ada"})`)
// stands for, so the planner can fold it into an ordinary Filter instead
// of the executor needing special-case matching logic.
func propsFilter(alias string, props *ast.MapLiteral) ast.Expr {
	if props == nil || len(props.Keys) == 0 {
		return nil
	}
	var expr ast.Expr
	for i, k := range props.Keys {
		cmp := &ast.BinaryOp{
			Op:    token.EQ,
			Left:  &ast.PropertyAccess{Target: &ast.Ident{Name: alias}, Key: k},
			Right: props.Values[i],
		}
		if expr == nil {
			expr = cmp
		} else {
			expr = &ast.BinaryOp{Op: token.AND, Left: expr, Right: cmp}
		}
	}
	return expr
}

// labelFilters wraps p in a label-test Filter per label, constraining a
// binding the scan itself doesn't already narrow (labels beyond the
// seed scan's first, or any label on an Expand's far node).
func labelFilters(p Plan, alias string, labels []string) Plan {
	for _, l := range labels {
		p = &Filter{Input: p, Predicate: &ast.LabelTest{Target: &ast.Ident{Name: alias}, Label: l}}
	}
	return p
}

// planPattern builds nested Expands for a chained pattern, the first
// node becoming the seed scan. Inline node/relationship property
// maps are folded into Filters over the alias they constrain.
func (pl *planner) planPattern(pat ast.Pattern) (Plan, error) {
	if len(pat.Elements) == 0 {
		return &Argument{}, nil
	}

	var current Plan
	var lastAlias string
	i := 0
	for i < len(pat.Elements) {
		el := pat.Elements[i]
		switch {
		case el.Node != nil:
			alias := el.Node.Alias
			if alias == "" {
				alias = pl.nextAnon()
			}
			if current == nil {
				if len(el.Node.Labels) == 0 {
					current = &AllNodesScan{Alias: alias}
				} else {
					// The first label drives the scan; the rest become
					// ordinary label-test filters.
					current = &NodeScan{Label: el.Node.Labels[0], Alias: alias}
					current = labelFilters(current, alias, el.Node.Labels[1:])
				}
				if f := propsFilter(alias, el.Node.Properties); f != nil {
					current = &Filter{Input: current, Predicate: f}
				}
			}
			lastAlias = alias
			i++

		case el.Rel != nil:
			if lastAlias == "" {
				return nil, gerr.NewPlanError("relationship pattern without preceding node")
			}
			if el.Rel.VarLength != nil {
				return nil, gerr.NewPlanError("variable-length relationship patterns are not supported")
			}
			from := lastAlias
			i++
			if i >= len(pat.Elements) || pat.Elements[i].Node == nil {
				return nil, gerr.NewPlanError("relationship pattern must end with a node")
			}
			toNode := pat.Elements[i].Node
			toAlias := toNode.Alias
			if toAlias == "" {
				toAlias = pl.nextAnon()
			}
			i++

			var dir models.Direction
			switch el.Rel.Direction {
			case ast.DirOutgoing:
				dir = models.Outgoing
			case ast.DirIncoming:
				dir = models.Incoming
			default:
				dir = models.Both
			}

			relAlias := el.Rel.Alias
			if relAlias == "" && el.Rel.Properties != nil {
				relAlias = pl.nextAnon()
			}

			input := current
			if input == nil {
				input = &Argument{}
			}
			current = &Expand{
				Input:    input,
				From:     from,
				Dir:      dir,
				RelTypes: el.Rel.Types,
				To:       toAlias,
				RelAlias: relAlias,
			}
			current = labelFilters(current, toAlias, toNode.Labels)
			if f := propsFilter(toAlias, toNode.Properties); f != nil {
				current = &Filter{Input: current, Predicate: f}
			}
			if f := propsFilter(relAlias, el.Rel.Properties); f != nil {
				current = &Filter{Input: current, Predicate: f}
			}
			lastAlias = toAlias
		}
	}

	if current == nil {
		return nil, gerr.NewPlanError("empty pattern")
	}
	return current, nil
}

// planWithClause plans a WITH pipeline stage: filter on its own WHERE
// only applies after projection (a continuing pipeline re-scopes
// bindings), so this mirrors planReturnLike's Sort/Project/Distinct
// ordering but re-applies Filter post-projection for the WHERE that
// follows WITH's item list in the grammar.
func (pl *planner) planWithClause(w *ast.WithClause, input Plan) (Plan, error) {
	current := input
	if len(w.OrderBy) > 0 {
		keys := make([]SortKey, len(w.OrderBy))
		for i, o := range w.OrderBy {
			keys[i] = SortKey{Expr: resolveOrderKey(o.Expr, w.Items), Ascending: o.Ascending}
		}
		current = &Sort{Input: current, Keys: keys}
	}

	current = pl.projectOrAggregate(current, w.Items)

	if w.Distinct {
		current = &Distinct{Input: current}
	}
	if w.Where != nil {
		current = &Filter{Input: current, Predicate: w.Where}
	}
	if skip, ok := literalInt(w.Skip); ok {
		current = &Skip{Input: current, Count: skip}
	}
	if limit, ok := literalInt(w.Limit); ok {
		current = &Limit{Input: current, Count: limit}
	}
	return current, nil
}

// planReturnLike implements the shared RETURN/WITH tail: Sort before
// Project, Aggregate-vs-Project on aggregator presence, Distinct wraps
// the projection, then Skip/Limit wrap everything.
func (pl *planner) planReturnLike(input Plan, distinct bool, items []ast.ReturnItem, orderBy []ast.OrderItem, skipExpr, limitExpr ast.Expr) (Plan, error) {
	current := input
	if len(orderBy) > 0 {
		keys := make([]SortKey, len(orderBy))
		for i, o := range orderBy {
			keys[i] = SortKey{Expr: resolveOrderKey(o.Expr, items), Ascending: o.Ascending}
		}
		current = &Sort{Input: current, Keys: keys}
	}

	current = pl.projectOrAggregate(current, items)

	if distinct {
		current = &Distinct{Input: current}
	}
	if skip, ok := literalInt(skipExpr); ok {
		current = &Skip{Input: current, Count: skip}
	}
	if limit, ok := literalInt(limitExpr); ok {
		current = &Limit{Input: current, Count: limit}
	}
	return current, nil
}

// resolveOrderKey lets ORDER BY reference a projection alias even
// though Sort runs before Project: a bare identifier naming an item's
// alias is rewritten to that item's expression. Aggregated items stay
// as-is since their value doesn't exist until after grouping.
func resolveOrderKey(e ast.Expr, items []ast.ReturnItem) ast.Expr {
	id, ok := e.(*ast.Ident)
	if !ok {
		return e
	}
	for _, it := range items {
		alias := it.Alias
		if alias == "" {
			alias = defaultAlias(it.Expr)
		}
		if alias == id.Name && !containsAggregator(it.Expr) {
			return it.Expr
		}
	}
	return e
}

// projectOrAggregate emits Aggregate when any item contains an
// aggregator call; non-aggregator items become group-by keys.
// Otherwise emits a plain Project.
func (pl *planner) projectOrAggregate(input Plan, items []ast.ReturnItem) Plan {
	hasAgg := false
	for _, it := range items {
		if containsAggregator(it.Expr) {
			hasAgg = true
			break
		}
	}

	if !hasAgg {
		projItems := make([]ProjectItem, len(items))
		for i, it := range items {
			alias := it.Alias
			if alias == "" {
				alias = defaultAlias(it.Expr)
			}
			projItems[i] = ProjectItem{Expr: it.Expr, Alias: alias}
		}
		return &Project{Input: input, Items: projItems}
	}

	var groupBy, aggs []AggItem
	for _, it := range items {
		alias := it.Alias
		if alias == "" {
			alias = defaultAlias(it.Expr)
		}
		if containsAggregator(it.Expr) {
			aggs = append(aggs, AggItem{Expr: it.Expr, Alias: alias})
		} else {
			groupBy = append(groupBy, AggItem{Expr: it.Expr, Alias: alias})
		}
	}
	return &Aggregate{Input: input, GroupBy: groupBy, Aggregations: aggs}
}

func containsAggregator(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.FuncCall:
		return aggregatorNames[v.Name]
	case *ast.BinaryOp:
		return containsAggregator(v.Left) || containsAggregator(v.Right)
	case *ast.UnaryOp:
		return containsAggregator(v.Operand)
	case *ast.PropertyAccess:
		return containsAggregator(v.Target)
	case *ast.IndexAccess:
		return containsAggregator(v.Target) || containsAggregator(v.Index)
	case *ast.CaseExpr:
		if v.Test != nil && containsAggregator(v.Test) {
			return true
		}
		for _, w := range v.Whens {
			if containsAggregator(w.When) || containsAggregator(w.Then) {
				return true
			}
		}
		return v.Else != nil && containsAggregator(v.Else)
	default:
		return false
	}
}

// defaultAlias renders the expression's source text as its implicit
// RETURN/WITH alias when no `AS alias` is given, e.g. `n.name`.
func defaultAlias(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.PropertyAccess:
		return defaultAlias(v.Target) + "." + v.Key
	case *ast.Literal:
		return literalAlias(v)
	case *ast.FuncCall:
		args := ""
		for i, a := range v.Args {
			if i > 0 {
				args += ", "
			}
			args += defaultAlias(a)
		}
		if v.Star {
			args = "*"
		}
		return v.Name + "(" + args + ")"
	case *ast.Parameter:
		return "$" + v.Name
	default:
		return "expr"
	}
}

func literalAlias(l *ast.Literal) string {
	switch l.Kind {
	case ast.LitInt:
		return fmt.Sprintf("%d", l.Int)
	case ast.LitFloat:
		return fmt.Sprintf("%g", l.Float)
	case ast.LitString:
		return l.Str
	case ast.LitBool:
		return fmt.Sprintf("%t", l.Bool)
	default:
		return "null"
	}
}

// literalInt extracts a literal integer for SKIP/LIMIT; these admit
// only literal integers, so any other expression (including absence)
// yields ok=false.
func literalInt(e ast.Expr) (int64, bool) {
	if e == nil {
		return 0, false
	}
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.LitInt {
		return 0, false
	}
	return lit.Int, true
}

// planCreate plans leading MATCH clauses (if any) as the seed, then
// threads every pattern through one chain of CreateNode/CreateRel
// operators so later operators can resolve earlier bindings from the
// running row. Aliases bound by the MATCH clauses are reused, not
// re-created, which is what lets the dump exporter's
// `MATCH (a {_id: ...}), (b {_id: ...}) CREATE (a)-[:T]->(b)` form
// reconnect existing nodes.
func (pl *planner) planCreate(c *ast.Create) (Plan, error) {
	current, err := pl.planMatchesAndWhere(c.Matches, nil)
	if err != nil {
		return nil, err
	}

	bound := make(map[string]bool)
	for _, m := range c.Matches {
		for _, pat := range m.Patterns {
			for _, n := range pat.Nodes() {
				if n.Alias != "" {
					bound[n.Alias] = true
				}
			}
		}
	}

	for _, pat := range c.Patterns {
		current, err = pl.planCreatePattern(current, bound, pat)
		if err != nil {
			return nil, err
		}
	}

	if c.Return != nil {
		return pl.planReturnLike(current, c.Return.Distinct, c.Return.Items, c.Return.OrderBy, c.Return.Skip, c.Return.Limit)
	}
	return current, nil
}

// planCreatePattern plans one CREATE pattern onto input: a chain of
// CreateNode operators for each node-pattern, with a CreateRel threaded
// in after each relationship-pattern referencing the two node aliases
// either side of it. Every element shares the same Input chain so the
// relationship's src/dst bindings are visible by the time CreateRel
// runs. Aliases already in bound are reused from the row instead of
// created; aliases this pattern creates are added to bound.
func (pl *planner) planCreatePattern(input Plan, bound map[string]bool, pat ast.Pattern) (Plan, error) {
	for i, el := range pat.Elements {
		if el.Rel == nil {
			continue
		}
		if len(el.Rel.Types) != 1 {
			return nil, gerr.NewPlanError("CREATE relationship pattern requires exactly one type")
		}
		if i == 0 || pat.Elements[i-1].Node == nil {
			return nil, gerr.NewPlanError("relationship pattern without preceding node")
		}
		if i+1 >= len(pat.Elements) || pat.Elements[i+1].Node == nil {
			return nil, gerr.NewPlanError("relationship pattern must end with a node")
		}
	}

	current := input
	var lastAlias string
	var pendingRel *ast.RelPattern
	for _, el := range pat.Elements {
		switch {
		case el.Node != nil:
			alias := el.Node.Alias
			if alias == "" {
				alias = pl.nextAnon()
			}
			if !bound[alias] {
				current = &CreateNode{
					Input:      current,
					Labels:     el.Node.Labels,
					Properties: mapLiteralToProps(el.Node.Properties),
					Alias:      alias,
				}
				bound[alias] = true
			}
			if pendingRel != nil {
				srcAlias, dstAlias := lastAlias, alias
				if pendingRel.Direction == ast.DirIncoming {
					srcAlias, dstAlias = dstAlias, srcAlias
				}
				current = &CreateRel{
					Input:      current,
					SrcAlias:   srcAlias,
					DstAlias:   dstAlias,
					Type:       pendingRel.Types[0],
					Properties: mapLiteralToProps(pendingRel.Properties),
					Alias:      pendingRel.Alias,
				}
				pendingRel = nil
			}
			lastAlias = alias
		case el.Rel != nil:
			pendingRel = el.Rel
		}
	}

	return current, nil
}

func (pl *planner) planMerge(m *ast.Merge) (Plan, error) {
	var nodePattern *ast.NodePattern
	for _, el := range m.Pattern.Elements {
		if el.Node != nil {
			nodePattern = el.Node
			break
		}
	}
	if nodePattern == nil {
		return nil, gerr.NewPlanError("MERGE requires at least one node pattern")
	}

	alias := nodePattern.Alias
	if alias == "" {
		alias = pl.nextAnon()
	}

	var current Plan = &MergeNode{
		Labels:     nodePattern.Labels,
		Properties: mapLiteralToProps(nodePattern.Properties),
		Alias:      alias,
		OnCreate:   setItemsToMergeItems(m.OnCreate),
		OnMatch:    setItemsToMergeItems(m.OnMatch),
	}

	if m.Return != nil {
		return pl.planReturnLike(current, m.Return.Distinct, m.Return.Items, m.Return.OrderBy, m.Return.Skip, m.Return.Limit)
	}
	return current, nil
}

func (pl *planner) planDelete(d *ast.Delete) (Plan, error) {
	current, err := pl.planMatchesAndWhere(d.Matches, nil)
	if err != nil {
		return nil, err
	}
	relAliases := make(map[string]bool)
	for _, m := range d.Matches {
		for _, pat := range m.Patterns {
			for _, r := range pat.Rels() {
				if r.Alias != "" {
					relAliases[r.Alias] = true
				}
			}
		}
	}
	for _, target := range d.Targets {
		ident, ok := target.(*ast.Ident)
		if !ok {
			return nil, gerr.NewPlanError("DELETE target must be a variable")
		}
		if relAliases[ident.Name] {
			current = &DeleteRel{Input: current, Variable: ident.Name}
			continue
		}
		current = &DeleteNode{Input: current, Variable: ident.Name, Detach: d.Detach}
	}
	return current, nil
}

func (pl *planner) planSet(s *ast.Set) (Plan, error) {
	current, err := pl.planMatchesAndWhereFromSet(s.Matches)
	if err != nil {
		return nil, err
	}
	for _, item := range s.Items {
		current = &SetProperty{Input: current, Variable: item.Variable, Key: item.Key, Value: item.Value}
	}
	if s.Return != nil {
		return pl.planReturnLike(current, s.Return.Distinct, s.Return.Items, s.Return.OrderBy, s.Return.Skip, s.Return.Limit)
	}
	return current, nil
}

func (pl *planner) planRemove(r *ast.Remove) (Plan, error) {
	current, err := pl.planMatchesAndWhereFromRemove(r.Matches)
	if err != nil {
		return nil, err
	}
	for _, item := range r.Items {
		if item.Label != "" {
			current = &RemoveLabel{Input: current, Variable: item.Variable, Label: item.Label}
		} else {
			current = &RemoveProperty{Input: current, Variable: item.Variable, Key: item.Key}
		}
	}
	if r.Return != nil {
		return pl.planReturnLike(current, r.Return.Distinct, r.Return.Items, r.Return.OrderBy, r.Return.Skip, r.Return.Limit)
	}
	return current, nil
}

// planMatchesAndWhere plans the leading `(MATCH ...)* [WHERE ...]` shape
// shared by Create/Delete/Set/Remove, left-deep-joining every MATCH's patterns.
func (pl *planner) planMatchesAndWhere(matches []ast.MatchClause, _ ast.Expr) (Plan, error) {
	var current Plan = &Argument{}
	haveSeed := false
	for i := range matches {
		p, err := pl.planMatchClause(&matches[i], current, haveSeed)
		if err != nil {
			return nil, err
		}
		current = p
		haveSeed = true
	}
	return current, nil
}

func (pl *planner) planMatchesAndWhereFromSet(matches []ast.MatchClause) (Plan, error) {
	return pl.planMatchesAndWhere(matches, nil)
}

func (pl *planner) planMatchesAndWhereFromRemove(matches []ast.MatchClause) (Plan, error) {
	return pl.planMatchesAndWhere(matches, nil)
}

func mapLiteralToProps(m *ast.MapLiteral) []CreateProperty {
	if m == nil {
		return nil
	}
	props := make([]CreateProperty, len(m.Keys))
	for i, k := range m.Keys {
		props[i] = CreateProperty{Key: k, Value: m.Values[i]}
	}
	return props
}

func setItemsToMergeItems(items []ast.SetItem) []MergeSetItem {
	out := make([]MergeSetItem, len(items))
	for i, it := range items {
		out[i] = MergeSetItem{Variable: it.Variable, Key: it.Key, Value: it.Value}
	}
	return out
}
