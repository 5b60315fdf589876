package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

func TestConnectMemory(t *testing.T) {
	b, err := Connect(":memory:", false)
	require.NoError(t, err)
	defer b.Close()

	caps := b.Capabilities()
	assert.True(t, caps.Transactions)
	assert.True(t, caps.Indexes)
}

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := Connect(":memory:", false)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestCreateAndGetNode(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)

	id, err := b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{
		"name": models.String("Ada"),
	})
	require.NoError(t, err)
	require.NoError(t, b.CommitTx(ctx, tx))

	readTx, err := b.BeginTx(ctx, storage.ReadOnly)
	require.NoError(t, err)
	n, ok, err := b.GetNode(ctx, readTx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, n.HasLabel("Person"))
	v, _ := n.Get("name")
	s, _ := v.AsString()
	assert.Equal(t, "Ada", s)
}

func TestCreateRelationshipRequiresLiveEndpoints(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)

	_, err = b.CreateRelationship(ctx, tx, 999, 1000, "KNOWS", models.PropertyMap{})
	require.Error(t, err)
}

func TestDeleteNodeWithIncidentRelationshipFails(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)

	a, err := b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{})
	require.NoError(t, err)
	c, err := b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{})
	require.NoError(t, err)
	_, err = b.CreateRelationship(ctx, tx, a, c, "KNOWS", models.PropertyMap{})
	require.NoError(t, err)
	require.NoError(t, b.CommitTx(ctx, tx))

	tx2, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)
	err = b.DeleteNode(ctx, tx2, a)
	assert.Error(t, err)

	require.NoError(t, b.DetachDeleteNode(ctx, tx2, a))
	require.NoError(t, b.CommitTx(ctx, tx2))
}

func TestRollbackDiscardsWrites(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()

	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)
	_, err = b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{})
	require.NoError(t, err)
	require.NoError(t, b.RollbackTx(ctx, tx))

	readTx, err := b.BeginTx(ctx, storage.ReadOnly)
	require.NoError(t, err)
	count, err := b.NodeCount(ctx, readTx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestIndexLookupMatchesScanFilter(t *testing.T) {
	b := openTestBackend(t)
	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)

	for _, name := range []string{"Alice", "Bob", "Alice"} {
		_, err := b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{"name": models.String(name)})
		require.NoError(t, err)
	}
	require.NoError(t, b.CommitTx(ctx, tx))

	readTx, err := b.BeginTx(ctx, storage.ReadOnly)
	require.NoError(t, err)
	ids, err := b.IndexLookup(ctx, readTx, "Person", "name", models.String("Alice"))
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
