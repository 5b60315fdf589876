package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/cypher/parser"
)

func mustPlan(t *testing.T, src string) Plan {
	t.Helper()
	stmt, err := parser.Parse(src)
	require.NoError(t, err, "parse %q", src)
	p, err := Build(stmt, nil)
	require.NoError(t, err, "plan %q", src)
	return p
}

func TestPlan_NodeScanChosenForLabel(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) RETURN n")
	proj, ok := p.(*Project)
	require.True(t, ok)
	scan, ok := proj.Input.(*NodeScan)
	require.True(t, ok)
	assert.Equal(t, "Person", scan.Label)
	assert.Equal(t, "n", scan.Alias)
}

func TestPlan_AllNodesScanWithoutLabel(t *testing.T) {
	p := mustPlan(t, "MATCH (n) RETURN n")
	proj := p.(*Project)
	_, ok := proj.Input.(*AllNodesScan)
	assert.True(t, ok)
}

func TestPlan_ExtraLabelsBecomeFilters(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person:Admin) RETURN n")
	proj := p.(*Project)
	f, ok := proj.Input.(*Filter)
	require.True(t, ok)
	lt, ok := f.Predicate.(*ast.LabelTest)
	require.True(t, ok)
	assert.Equal(t, "Admin", lt.Label)
	scan, ok := f.Input.(*NodeScan)
	require.True(t, ok)
	assert.Equal(t, "Person", scan.Label)
}

func TestPlan_SortPrecedesProject(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) RETURN n.name AS name ORDER BY name")
	proj, ok := p.(*Project)
	require.True(t, ok)
	srt, ok := proj.Input.(*Sort)
	require.True(t, ok)
	// The alias sort key resolves back to the projected expression so it
	// can evaluate against pre-projection bindings.
	_, isProp := srt.Keys[0].Expr.(*ast.PropertyAccess)
	assert.True(t, isProp)
}

func TestPlan_SkipLimitWrapEverything(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) RETURN n SKIP 2 LIMIT 3")
	lim, ok := p.(*Limit)
	require.True(t, ok)
	assert.EqualValues(t, 3, lim.Count)
	skp, ok := lim.Input.(*Skip)
	require.True(t, ok)
	assert.EqualValues(t, 2, skp.Count)
	_, ok = skp.Input.(*Project)
	assert.True(t, ok)
}

func TestPlan_DistinctWrapsProjection(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) RETURN DISTINCT n.team")
	d, ok := p.(*Distinct)
	require.True(t, ok)
	_, ok = d.Input.(*Project)
	assert.True(t, ok)
}

func TestPlan_AggregateWhenAggregatorPresent(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) RETURN n.team AS team, count(n) AS cnt")
	agg, ok := p.(*Aggregate)
	require.True(t, ok)
	require.Len(t, agg.GroupBy, 1)
	assert.Equal(t, "team", agg.GroupBy[0].Alias)
	require.Len(t, agg.Aggregations, 1)
	assert.Equal(t, "cnt", agg.Aggregations[0].Alias)
}

func TestPlan_ChainedPatternPlansNestedExpands(t *testing.T) {
	p := mustPlan(t, "MATCH (a:Person)-[:KNOWS]->(b)-[:KNOWS]->(c) RETURN c")
	proj := p.(*Project)
	outer, ok := proj.Input.(*Expand)
	require.True(t, ok)
	assert.Equal(t, "c", outer.To)
	inner, ok := outer.Input.(*Expand)
	require.True(t, ok)
	assert.Equal(t, "a", inner.From)
	assert.Equal(t, "b", inner.To)
	_, ok = inner.Input.(*NodeScan)
	assert.True(t, ok)
}

func TestPlan_MultipleMatchesLeftDeepCartesian(t *testing.T) {
	p := mustPlan(t, "MATCH (a:Person) MATCH (b:Company) RETURN a, b")
	proj := p.(*Project)
	cp, ok := proj.Input.(*CartesianProduct)
	require.True(t, ok)
	_, ok = cp.Left.(*NodeScan)
	assert.True(t, ok)
	_, ok = cp.Right.(*NodeScan)
	assert.True(t, ok)
}

func TestPlan_IndexLookupPushdownOnEquality(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) WHERE n.name = 'Ada' RETURN n")
	proj := p.(*Project)
	f, ok := proj.Input.(*Filter)
	require.True(t, ok)
	il, ok := f.Input.(*IndexLookup)
	require.True(t, ok)
	assert.Equal(t, "Person", il.Label)
	assert.Equal(t, "name", il.Property)
	assert.Equal(t, "n", il.Alias)
}

func TestPlan_NoPushdownOnRangePredicate(t *testing.T) {
	p := mustPlan(t, "MATCH (n:Person) WHERE n.age > 30 RETURN n")
	proj := p.(*Project)
	f := proj.Input.(*Filter)
	_, ok := f.Input.(*NodeScan)
	assert.True(t, ok)
}

func TestPlan_MergeLowersToMergeNode(t *testing.T) {
	p := mustPlan(t, "MERGE (n:Person {name: 'Ada'}) ON CREATE SET n.created = true")
	m, ok := p.(*MergeNode)
	require.True(t, ok)
	assert.Equal(t, []string{"Person"}, m.Labels)
	require.Len(t, m.OnCreate, 1)
	assert.Equal(t, "created", m.OnCreate[0].Key)
}

func TestPlan_CreateRelChainThreadsInput(t *testing.T) {
	p := mustPlan(t, "CREATE (a:Person)-[:KNOWS]->(b:Person)")
	rel, ok := p.(*CreateRel)
	require.True(t, ok)
	assert.Equal(t, "a", rel.SrcAlias)
	assert.Equal(t, "b", rel.DstAlias)
	assert.Equal(t, "KNOWS", rel.Type)
	dst, ok := rel.Input.(*CreateNode)
	require.True(t, ok)
	assert.Equal(t, "b", dst.Alias)
	src, ok := dst.Input.(*CreateNode)
	require.True(t, ok)
	assert.Equal(t, "a", src.Alias)
	_, ok = src.Input.(*Argument)
	assert.True(t, ok)
}

func TestPlan_Determinism(t *testing.T) {
	src := "MATCH (:Person)-[:KNOWS]->(:Person) RETURN count(*) AS cnt"
	stmt, err := parser.Parse(src)
	require.NoError(t, err)
	p1, err := Build(stmt, nil)
	require.NoError(t, err)
	p2, err := Build(stmt, nil)
	require.NoError(t, err)
	// The anonymous-alias counter is plan-scoped, so repeated planning of
	// the same statement yields structurally equal trees.
	assert.Equal(t, p1, p2)
}

func TestPlan_ErrorOnVarLengthPattern(t *testing.T) {
	stmt, err := parser.Parse("MATCH (a)-[:KNOWS*1..3]->(b) RETURN a")
	require.NoError(t, err)
	_, err = Build(stmt, nil)
	assert.Error(t, err)
}

func TestPlan_ErrorOnOptionalMatch(t *testing.T) {
	stmt, err := parser.Parse("OPTIONAL MATCH (a:Person) RETURN a")
	require.NoError(t, err)
	_, err = Build(stmt, nil)
	assert.Error(t, err)
}

func TestPlan_SchemaOp(t *testing.T) {
	p := mustPlan(t, "CREATE INDEX FOR (n:Person) ON (n.name)")
	op, ok := p.(*SchemaOp)
	require.True(t, ok)
	assert.Equal(t, "Person", op.Label)
	assert.Equal(t, "name", op.Property)
	assert.False(t, op.Unique)
}
