package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/cypher/ast"
)

func TestParse_SimpleMatchReturn(t *testing.T) {
	stmt, err := Parse("MATCH (n:Person) RETURN n.name")
	require.NoError(t, err)
	q, ok := stmt.(*ast.Query)
	require.True(t, ok)
	require.Len(t, q.Parts, 1)
	require.NotNil(t, q.Parts[0].Match)
	require.Len(t, q.Parts[0].Match.Patterns, 1)
	nodes := q.Parts[0].Match.Patterns[0].Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "n", nodes[0].Alias)
	assert.Equal(t, []string{"Person"}, nodes[0].Labels)
	require.Len(t, q.Return.Items, 1)
	_, ok = q.Return.Items[0].Expr.(*ast.PropertyAccess)
	assert.True(t, ok)
}

func TestParse_RelationshipPattern(t *testing.T) {
	stmt, err := Parse("MATCH (a)-[r:KNOWS]->(b) RETURN a, r, b")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	pat := q.Parts[0].Match.Patterns[0]
	rels := pat.Rels()
	require.Len(t, rels, 1)
	assert.Equal(t, "r", rels[0].Alias)
	assert.Equal(t, []string{"KNOWS"}, rels[0].Types)
	assert.Equal(t, ast.DirOutgoing, rels[0].Direction)
}

func TestParse_VarLengthRelationship(t *testing.T) {
	stmt, err := Parse("MATCH (a)-[:KNOWS*1..3]->(b) RETURN a")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	rels := q.Parts[0].Match.Patterns[0].Rels()
	require.NotNil(t, rels[0].VarLength)
	require.NotNil(t, rels[0].VarLength.Min)
	require.NotNil(t, rels[0].VarLength.Max)
	assert.Equal(t, 1, *rels[0].VarLength.Min)
	assert.Equal(t, 3, *rels[0].VarLength.Max)
}

func TestParse_WhereExpressionPrecedence(t *testing.T) {
	stmt, err := Parse("MATCH (n) WHERE n.age > 10 AND n.name = 'Ada' OR n.banned RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	where := q.Parts[0].Match.Where
	or, ok := where.(*ast.BinaryOp)
	require.True(t, ok)
	// OR has the lowest precedence, so it must be the top-level node.
	_, leftIsAnd := or.Left.(*ast.BinaryOp)
	assert.True(t, leftIsAnd)
}

func TestParse_OrderSkipLimit(t *testing.T) {
	stmt, err := Parse("MATCH (n) RETURN n ORDER BY n.age DESC SKIP 5 LIMIT 10")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Return.OrderBy, 1)
	assert.False(t, q.Return.OrderBy[0].Ascending)
	require.NotNil(t, q.Return.Skip)
	require.NotNil(t, q.Return.Limit)
}

func TestParse_CreatePattern(t *testing.T) {
	stmt, err := Parse("CREATE (n:Person {name: 'Ada', age: 30})")
	require.NoError(t, err)
	c, ok := stmt.(*ast.Create)
	require.True(t, ok)
	require.Len(t, c.Patterns, 1)
	node := c.Patterns[0].Nodes()[0]
	assert.Equal(t, []string{"Person"}, node.Labels)
	require.NotNil(t, node.Properties)
	assert.Equal(t, []string{"name", "age"}, node.Properties.Keys)
}

func TestParse_MergeWithOnCreateOnMatch(t *testing.T) {
	stmt, err := Parse("MERGE (n:Person {name: 'Ada'}) ON CREATE SET n.created = true ON MATCH SET n.seen = true")
	require.NoError(t, err)
	m, ok := stmt.(*ast.Merge)
	require.True(t, ok)
	require.Len(t, m.OnCreate, 1)
	require.Len(t, m.OnMatch, 1)
	assert.Equal(t, "created", m.OnCreate[0].Key)
	assert.Equal(t, "seen", m.OnMatch[0].Key)
}

func TestParse_DeleteDetach(t *testing.T) {
	stmt, err := Parse("MATCH (n) DETACH DELETE n")
	require.NoError(t, err)
	d, ok := stmt.(*ast.Delete)
	require.True(t, ok)
	assert.True(t, d.Detach)
	require.Len(t, d.Targets, 1)
}

func TestParse_SetClause(t *testing.T) {
	stmt, err := Parse("MATCH (n) SET n.age = 31")
	require.NoError(t, err)
	s, ok := stmt.(*ast.Set)
	require.True(t, ok)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "age", s.Items[0].Key)
}

func TestParse_RemoveLabelAndProperty(t *testing.T) {
	stmt, err := Parse("MATCH (n) REMOVE n.age, n:Deprecated")
	require.NoError(t, err)
	r, ok := stmt.(*ast.Remove)
	require.True(t, ok)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "age", r.Items[0].Key)
	assert.Equal(t, "Deprecated", r.Items[1].Label)
}

func TestParse_SchemaCreateIndex(t *testing.T) {
	stmt, err := Parse("CREATE INDEX FOR (n:Person) ON (n.name)")
	require.NoError(t, err)
	s, ok := stmt.(*ast.Schema)
	require.True(t, ok)
	assert.Equal(t, ast.SchemaCreateIndex, s.Kind)
	assert.Equal(t, "Person", s.Label)
	assert.Equal(t, "name", s.Property)
	assert.False(t, s.Unique)
}

func TestParse_SchemaCreateConstraintIsUnique(t *testing.T) {
	stmt, err := Parse("CREATE CONSTRAINT FOR (n:Person) ON (n.email)")
	require.NoError(t, err)
	s := stmt.(*ast.Schema)
	assert.Equal(t, ast.SchemaCreateConstraint, s.Kind)
	assert.True(t, s.Unique)
}

func TestParse_AggregateFuncCall(t *testing.T) {
	stmt, err := Parse("MATCH (n) RETURN count(n), collect(DISTINCT n.name)")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	c1 := q.Return.Items[0].Expr.(*ast.FuncCall)
	assert.Equal(t, "count", c1.Name)
	c2 := q.Return.Items[1].Expr.(*ast.FuncCall)
	assert.Equal(t, "collect", c2.Name)
	assert.True(t, c2.Distinct)
}

func TestParse_CountStar(t *testing.T) {
	stmt, err := Parse("MATCH (n) RETURN count(*)")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	c := q.Return.Items[0].Expr.(*ast.FuncCall)
	assert.True(t, c.Star)
}

func TestParse_CaseExpression(t *testing.T) {
	stmt, err := Parse("MATCH (n) RETURN CASE WHEN n.age > 18 THEN 'adult' ELSE 'minor' END")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	c := q.Return.Items[0].Expr.(*ast.CaseExpr)
	require.Nil(t, c.Test)
	require.Len(t, c.Whens, 1)
	require.NotNil(t, c.Else)
}

func TestParse_WithClausePipeline(t *testing.T) {
	stmt, err := Parse("MATCH (n) WITH n, count(n) AS c WHERE c > 1 RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.Len(t, q.Parts, 2)
	require.NotNil(t, q.Parts[1].With)
	assert.Equal(t, "c", q.Parts[1].With.Items[1].Alias)
}

func TestParse_UnwindClause(t *testing.T) {
	stmt, err := Parse("UNWIND [1, 2, 3] AS x RETURN x")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.NotNil(t, q.Parts[0].Unwind)
	assert.Equal(t, "x", q.Parts[0].Unwind.Alias)
}

func TestParse_CallYield(t *testing.T) {
	stmt, err := Parse("CALL db.labels() YIELD label RETURN label")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	require.NotNil(t, q.Parts[0].Call)
	assert.Equal(t, "db.labels", q.Parts[0].Call.Name)
	assert.Equal(t, []string{"label"}, q.Parts[0].Call.Yield)
}

func TestParse_CartesianMultipleMatches(t *testing.T) {
	stmt, err := Parse("MATCH (a) MATCH (b) RETURN a, b")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	assert.Len(t, q.Parts, 2)
}

func TestParse_PowerIsRightAssociative(t *testing.T) {
	stmt, err := Parse("RETURN 2 ^ 3 ^ 2")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	top := q.Return.Items[0].Expr.(*ast.BinaryOp)
	// 2 ^ (3 ^ 2): the right child must itself be the nested power.
	_, rightIsPow := top.Right.(*ast.BinaryOp)
	assert.True(t, rightIsPow)
	lit, leftIsLit := top.Left.(*ast.Literal)
	require.True(t, leftIsLit)
	assert.Equal(t, int64(2), lit.Int)
}

func TestParse_SyntaxErrorOnBadToken(t *testing.T) {
	_, err := Parse("MATCH (n RETURN n")
	require.Error(t, err)
}

func TestParse_StringMatchOperators(t *testing.T) {
	stmt, err := Parse("MATCH (n) WHERE n.name STARTS WITH 'A' RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	sm, ok := q.Parts[0].Match.Where.(*ast.StringMatch)
	require.True(t, ok)
	assert.Equal(t, ast.MatchStartsWith, sm.Op)
}

func TestParse_RegexOperator(t *testing.T) {
	stmt, err := Parse("MATCH (n) WHERE n.name =~ '^A' RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	sm, ok := q.Parts[0].Match.Where.(*ast.StringMatch)
	require.True(t, ok)
	assert.Equal(t, ast.MatchRegex, sm.Op)
}

func TestParse_InExpression(t *testing.T) {
	stmt, err := Parse("MATCH (n) WHERE n.age IN [1, 2, 3] RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	in, ok := q.Parts[0].Match.Where.(*ast.InExpr)
	require.True(t, ok)
	_, isList := in.List.(*ast.ListExpr)
	assert.True(t, isList)
}

func TestParse_IsNullAndIsNotNull(t *testing.T) {
	stmt, err := Parse("MATCH (n) WHERE n.age IS NULL RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	nc, ok := q.Parts[0].Match.Where.(*ast.NullCheck)
	require.True(t, ok)
	assert.False(t, nc.Negated)

	stmt, err = Parse("MATCH (n) WHERE n.age IS NOT NULL RETURN n")
	require.NoError(t, err)
	q = stmt.(*ast.Query)
	nc = q.Parts[0].Match.Where.(*ast.NullCheck)
	assert.True(t, nc.Negated)
}

func TestParse_ParameterReference(t *testing.T) {
	stmt, err := Parse("MATCH (n) WHERE n.name = $name RETURN n")
	require.NoError(t, err)
	q := stmt.(*ast.Query)
	cmp := q.Parts[0].Match.Where.(*ast.BinaryOp)
	_, ok := cmp.Right.(*ast.Parameter)
	assert.True(t, ok)
}
