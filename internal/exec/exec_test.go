package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/cypher/parser"
	"github.com/adaworld/graphdb/internal/planner"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/internal/storage/memory"
	"github.com/adaworld/graphdb/models"
)

// run parses, plans and executes src against a fresh read-write backend
// transaction, returning the output columns and rows.
func run(t *testing.T, b *memory.Backend, src string, params models.PropertyMap) ([]string, []Row, *Stats) {
	t.Helper()
	stmt, err := parser.Parse(src)
	require.NoError(t, err, "parse %q", src)
	plan, err := planner.Build(stmt, params)
	require.NoError(t, err, "plan %q", src)

	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)

	ex := New(b, tx, params)
	cols, rows, err := ex.Run(ctx, plan)
	require.NoError(t, err, "exec %q", src)
	return cols, rows, ex.Stats
}

func TestExec_CreateAndMatchReturn(t *testing.T) {
	b := memory.New()
	_, _, stats := run(t, b, `CREATE (:Person {name: "Ada", age: 36})`, nil)
	assert.EqualValues(t, 1, stats.NodesCreated)

	cols, rows, _ := run(t, b, `MATCH (n:Person) RETURN n.name AS name, n.age AS age`, nil)
	require.Equal(t, []string{"name", "age"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Ada"), rows[0]["name"])
	assert.Equal(t, models.Int(36), rows[0]["age"])
}

func TestExec_WhereFilterAndOrderLimit(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada", age: 36})`, nil)
	run(t, b, `CREATE (:Person {name: "Bob", age: 24})`, nil)
	run(t, b, `CREATE (:Person {name: "Cy", age: 41})`, nil)

	cols, rows, _ := run(t, b,
		`MATCH (n:Person) WHERE n.age > 30 RETURN n.name AS name ORDER BY n.age DESC LIMIT 1`, nil)
	require.Equal(t, []string{"name"}, cols)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Cy"), rows[0]["name"])
}

func TestExec_RelationshipExpand(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada"})-[:KNOWS]->(:Person {name: "Bob"})`, nil)

	_, rows, _ := run(t, b,
		`MATCH (a:Person {name: "Ada"})-[:KNOWS]->(b:Person) RETURN b.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Bob"), rows[0]["name"])
}

func TestExec_MergeCreatesOnceThenMatches(t *testing.T) {
	b := memory.New()
	run(t, b, `MERGE (n:Person {name: "Ada"}) ON CREATE SET n.created = true`, nil)
	run(t, b, `MERGE (n:Person {name: "Ada"}) ON MATCH SET n.seen = true`, nil)

	n, err := b.NodeCount(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, rows, _ := run(t, b, `MATCH (n:Person {name: "Ada"}) RETURN n.created AS created, n.seen AS seen`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Bool(true), rows[0]["created"])
	assert.Equal(t, models.Bool(true), rows[0]["seen"])
}

func TestExec_SetRemoveAndDelete(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada", age: 36})`, nil)
	run(t, b, `MATCH (n:Person) SET n.age = 37`, nil)

	_, rows, _ := run(t, b, `MATCH (n:Person) RETURN n.age AS age`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Int(37), rows[0]["age"])

	run(t, b, `MATCH (n:Person) REMOVE n.age`, nil)
	_, rows, _ = run(t, b, `MATCH (n:Person) RETURN n.age AS age`, nil)
	require.Len(t, rows, 1)
	assert.True(t, rows[0]["age"].IsNull())

	_, _, stats := run(t, b, `MATCH (n:Person) DELETE n`, nil)
	assert.EqualValues(t, 1, stats.NodesDeleted)

	n, err := b.NodeCount(context.Background(), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestExec_AggregateCountAndGroupBy(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {team: "red", score: 3})`, nil)
	run(t, b, `CREATE (:Person {team: "red", score: 5})`, nil)
	run(t, b, `CREATE (:Person {team: "blue", score: 9})`, nil)

	cols, rows, _ := run(t, b,
		`MATCH (n:Person) RETURN n.team AS team, count(*) AS cnt, sum(n.score) AS total ORDER BY team`, nil)
	require.Equal(t, []string{"team", "cnt", "total"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, models.String("blue"), rows[0]["team"])
	assert.Equal(t, models.Int(1), rows[0]["cnt"])
	assert.Equal(t, models.Int(9), rows[0]["total"])
	assert.Equal(t, models.String("red"), rows[1]["team"])
	assert.Equal(t, models.Int(2), rows[1]["cnt"])
	assert.Equal(t, models.Int(8), rows[1]["total"])
}

func TestExec_AggregateOverEmptySetProducesOneRow(t *testing.T) {
	b := memory.New()
	_, rows, _ := run(t, b, `MATCH (n:Person) RETURN count(n) AS cnt, sum(n.score) AS total`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.Int(0), rows[0]["cnt"])
	assert.Equal(t, models.Int(0), rows[0]["total"])
}

func TestExec_Parameters(t *testing.T) {
	b := memory.New()
	params := models.PropertyMap{"name": models.String("Ada")}
	run(t, b, `CREATE (:Person {name: $name})`, params)

	_, rows, _ := run(t, b, `MATCH (n:Person {name: $name}) RETURN n.name AS name`, params)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Ada"), rows[0]["name"])
}

func TestExec_UnwindList(t *testing.T) {
	b := memory.New()
	_, rows, _ := run(t, b, `UNWIND [1, 2, 3] AS x RETURN x`, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, models.Int(1), rows[0]["x"])
	assert.Equal(t, models.Int(2), rows[1]["x"])
	assert.Equal(t, models.Int(3), rows[2]["x"])
}

func TestExec_DetachDeleteRequiredForIncidentRelationships(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada"})-[:KNOWS]->(:Person {name: "Bob"})`, nil)

	stmt, err := parser.Parse(`MATCH (n:Person {name: "Ada"}) DELETE n`)
	require.NoError(t, err)
	plan, err := planner.Build(stmt, nil)
	require.NoError(t, err)

	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)
	ex := New(b, tx, nil)
	_, _, err = ex.Run(ctx, plan)
	assert.Error(t, err)

	run(t, b, `MATCH (n:Person {name: "Ada"}) DETACH DELETE n`, nil)
	n, err := b.NodeCount(ctx, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestExec_DistinctDedupes(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {team: "red"})`, nil)
	run(t, b, `CREATE (:Person {team: "red"})`, nil)
	run(t, b, `CREATE (:Person {team: "blue"})`, nil)

	_, rows, _ := run(t, b, `MATCH (n:Person) RETURN DISTINCT n.team AS team ORDER BY team`, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, models.String("blue"), rows[0]["team"])
	assert.Equal(t, models.String("red"), rows[1]["team"])
}

func TestExec_MultiHopTraversal(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada"})-[:KNOWS]->(:Person {name: "Bob"})-[:KNOWS]->(:Person {name: "Cy"})`, nil)

	_, rows, _ := run(t, b,
		`MATCH (a:Person {name: "Ada"})-[:KNOWS]->(b)-[:KNOWS]->(c) RETURN c.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Cy"), rows[0]["name"])
}

func TestExec_CallProcedureYield(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada"})`, nil)
	run(t, b, `CREATE (:Company {name: "Acme"})`, nil)

	cols, rows, _ := run(t, b, `CALL db.labels() YIELD name RETURN name ORDER BY name`, nil)
	require.Equal(t, []string{"name"}, cols)
	require.Len(t, rows, 2)
	assert.Equal(t, models.String("Company"), rows[0]["name"])
	assert.Equal(t, models.String("Person"), rows[1]["name"])
}

func TestExec_ThreeValuedLogic(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada", active: true})`, nil)
	run(t, b, `CREATE (:Person {name: "Bob"})`, nil)

	// Bob's missing property evaluates to null, which is not true, so
	// only Ada passes the filter.
	_, rows, _ := run(t, b, `MATCH (n:Person) WHERE n.active RETURN n.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Ada"), rows[0]["name"])

	// NOT null is still null, so Bob doesn't pass either.
	_, rows, _ = run(t, b, `MATCH (n:Person) WHERE NOT n.active RETURN n.name AS name`, nil)
	assert.Len(t, rows, 0)
}

func TestExec_InOperator(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada"})`, nil)
	run(t, b, `CREATE (:Person {name: "Bob"})`, nil)

	_, rows, _ := run(t, b, `MATCH (n:Person) WHERE n.name IN ["Ada", "Cy"] RETURN n.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Ada"), rows[0]["name"])
}

func TestExec_StringOperators(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {name: "Ada"})`, nil)
	run(t, b, `CREATE (:Person {name: "Alan"})`, nil)
	run(t, b, `CREATE (:Person {name: "Bob"})`, nil)

	_, rows, _ := run(t, b, `MATCH (n:Person) WHERE n.name STARTS WITH "A" RETURN n.name AS name ORDER BY name`, nil)
	require.Len(t, rows, 2)

	_, rows, _ = run(t, b, `MATCH (n:Person) WHERE n.name ENDS WITH "b" RETURN n.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("Bob"), rows[0]["name"])

	_, rows, _ = run(t, b, `MATCH (n:Person) WHERE n.name =~ "^A.a.*" RETURN n.name AS name ORDER BY name`, nil)
	require.Len(t, rows, 2)
}

func TestExec_IndexLookupMatchesScan(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE INDEX FOR (n:Person) ON (n.name)`, nil)
	run(t, b, `CREATE (:Person {name: "Ada"})`, nil)
	run(t, b, `CREATE (:Person {name: "Ada"})`, nil)
	run(t, b, `CREATE (:Person {name: "Bob"})`, nil)

	_, rows, _ := run(t, b, `MATCH (n:Person) WHERE n.name = "Ada" RETURN n.name AS name`, nil)
	assert.Len(t, rows, 2)
}

func TestExec_WithPipelineFiltersAggregates(t *testing.T) {
	b := memory.New()
	run(t, b, `CREATE (:Person {team: "red"})`, nil)
	run(t, b, `CREATE (:Person {team: "red"})`, nil)
	run(t, b, `CREATE (:Person {team: "blue"})`, nil)

	_, rows, _ := run(t, b,
		`MATCH (n:Person) WITH n.team AS team, count(*) AS cnt WHERE cnt > 1 RETURN team`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, models.String("red"), rows[0]["team"])
}
