package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

func writeTx(t *testing.T, b *Backend) storage.Tx {
	t.Helper()
	tx, err := b.BeginTx(context.Background(), storage.ReadWrite)
	require.NoError(t, err)
	return tx
}

func TestBackend_AllNodesAscendingIDOrder(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	var ids []models.NodeID
	for i := 0; i < 5; i++ {
		id, err := b.CreateNode(ctx, tx, []string{"N"}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	nodes, err := b.AllNodes(ctx, tx)
	require.NoError(t, err)
	require.Len(t, nodes, 5)
	for i, n := range nodes {
		assert.Equal(t, ids[i], n.ID)
	}
}

func TestBackend_GetRelationshipsAscendingOrderAndFilter(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	a, err := b.CreateNode(ctx, tx, nil, nil)
	require.NoError(t, err)
	c, err := b.CreateNode(ctx, tx, nil, nil)
	require.NoError(t, err)

	r1, err := b.CreateRelationship(ctx, tx, a, c, "KNOWS", nil)
	require.NoError(t, err)
	r2, err := b.CreateRelationship(ctx, tx, a, c, "LIKES", nil)
	require.NoError(t, err)
	r3, err := b.CreateRelationship(ctx, tx, c, a, "KNOWS", nil)
	require.NoError(t, err)

	out, err := b.GetRelationships(ctx, tx, a, models.Both, nil)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, []models.RelID{r1, r2, r3}, []models.RelID{out[0].ID, out[1].ID, out[2].ID})

	out, err = b.GetRelationships(ctx, tx, a, models.Outgoing, []string{"KNOWS"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, r1, out[0].ID)

	out, err = b.GetRelationships(ctx, tx, a, models.Incoming, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, r3, out[0].ID)
}

func TestBackend_WriteRequiresReadWriteTx(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadOnly)
	require.NoError(t, err)

	_, err = b.CreateNode(ctx, tx, nil, nil)
	assert.Error(t, err)
}

func TestBackend_RelationshipEndpointsMustBeLive(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	_, err := b.CreateRelationship(ctx, tx, 41, 42, "KNOWS", nil)
	assert.Error(t, err)
}

func TestBackend_DeleteNodeGuardsIncidentRelationships(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	a, _ := b.CreateNode(ctx, tx, nil, nil)
	c, _ := b.CreateNode(ctx, tx, nil, nil)
	_, err := b.CreateRelationship(ctx, tx, a, c, "KNOWS", nil)
	require.NoError(t, err)

	assert.Error(t, b.DeleteNode(ctx, tx, a))
	require.NoError(t, b.DetachDeleteNode(ctx, tx, a))

	n, err := b.NodeCount(ctx, tx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	r, err := b.RelationshipCount(ctx, tx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, r)
}

func TestBackend_IndexLookupUsesIndexAfterBackfill(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	for _, name := range []string{"Ada", "Bob", "Ada"} {
		_, err := b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{"name": models.String(name)})
		require.NoError(t, err)
	}
	require.NoError(t, b.CreateIndex(ctx, "Person.name", "Person", "name", storage.IndexBTree))

	ids, err := b.IndexLookup(ctx, tx, "Person", "name", models.String("Ada"))
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	// The index stays current as properties change.
	require.NoError(t, b.SetNodeProperty(ctx, tx, ids[0], "name", valPtr(models.String("Eve"))))
	ids, err = b.IndexLookup(ctx, tx, "Person", "name", models.String("Ada"))
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func valPtr(v models.Value) *models.Value { return &v }

func TestBackend_RollbackIsANoOp(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	_, err := b.CreateNode(ctx, tx, nil, nil)
	require.NoError(t, err)
	require.NoError(t, b.RollbackTx(ctx, tx))

	n, err := b.NodeCount(ctx, tx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBackend_BuiltinProcedures(t *testing.T) {
	b := New()
	ctx := context.Background()
	tx := writeTx(t, b)

	a, _ := b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{"name": models.String("Ada")})
	c, _ := b.CreateNode(ctx, tx, []string{"Company"}, models.PropertyMap{"name": models.String("Acme")})
	_, err := b.CreateRelationship(ctx, tx, a, c, "WORKS_AT", nil)
	require.NoError(t, err)

	res, err := b.CallProcedure(ctx, tx, "db.labels", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, models.String("Company"), res.Rows[0]["label"])
	assert.Equal(t, models.String("Person"), res.Rows[1]["label"])

	res, err = b.CallProcedure(ctx, tx, "db.relationshipTypes", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, models.String("WORKS_AT"), res.Rows[0]["relationshipType"])

	res, err = b.CallProcedure(ctx, tx, "db.propertyKeys", nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, models.String("name"), res.Rows[0]["propertyKey"])
}
