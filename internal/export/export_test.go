package export

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/internal/storage/memory"
	"github.com/adaworld/graphdb/models"
)

func seedGraph(t *testing.T, b *memory.Backend) (alice, bob, charlie, acme models.NodeID) {
	t.Helper()
	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)

	alice, err = b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{
		"name": models.String("Alice"), "age": models.Int(30),
	})
	require.NoError(t, err)
	bob, err = b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{
		"name": models.String("Bob"), "age": models.Int(25),
	})
	require.NoError(t, err)
	charlie, err = b.CreateNode(ctx, tx, []string{"Person"}, models.PropertyMap{
		"name": models.String("Charlie"), "age": models.Int(35),
	})
	require.NoError(t, err)
	acme, err = b.CreateNode(ctx, tx, []string{"Company"}, models.PropertyMap{
		"name": models.String("Acme"), "employees": models.Int(100),
	})
	require.NoError(t, err)

	_, err = b.CreateRelationship(ctx, tx, alice, bob, "KNOWS", models.PropertyMap{})
	require.NoError(t, err)
	_, err = b.CreateRelationship(ctx, tx, bob, charlie, "KNOWS", models.PropertyMap{})
	require.NoError(t, err)
	_, err = b.CreateRelationship(ctx, tx, alice, acme, "WORKS_AT", models.PropertyMap{})
	require.NoError(t, err)

	require.NoError(t, b.CommitTx(ctx, tx))
	return alice, bob, charlie, acme
}

func TestDumpNodeCount(t *testing.T) {
	b := memory.New()
	seedGraph(t, b)

	var buf strings.Builder
	require.NoError(t, Dump(context.Background(), b, &buf))

	createCount := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "CREATE (n") {
			createCount++
		}
	}
	assert.Equal(t, 4, createCount)
}

func TestDumpRelationshipCount(t *testing.T) {
	b := memory.New()
	seedGraph(t, b)

	var buf strings.Builder
	require.NoError(t, Dump(context.Background(), b, &buf))

	matchCount := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "MATCH (a") {
			matchCount++
		}
	}
	assert.Equal(t, 3, matchCount)
}

func TestDumpNodesPrecedeRelationships(t *testing.T) {
	b := memory.New()
	seedGraph(t, b)

	var buf strings.Builder
	require.NoError(t, Dump(context.Background(), b, &buf))
	dump := buf.String()

	firstMatch := strings.Index(dump, "MATCH (a")
	lastCreate := strings.LastIndex(dump, "CREATE (n")
	require.NotEqual(t, -1, firstMatch)
	require.NotEqual(t, -1, lastCreate)
	assert.Greater(t, firstMatch, lastCreate)
}

func TestDumpElidesInternalProperties(t *testing.T) {
	b := memory.New()
	ctx := context.Background()
	tx, err := b.BeginTx(ctx, storage.ReadWrite)
	require.NoError(t, err)
	_, err = b.CreateNode(ctx, tx, []string{"Thing"}, models.PropertyMap{
		"visible": models.String("yes"), "_hidden": models.String("no"),
	})
	require.NoError(t, err)
	require.NoError(t, b.CommitTx(ctx, tx))

	var buf strings.Builder
	require.NoError(t, Dump(ctx, b, &buf))
	dump := buf.String()

	assert.Contains(t, dump, "visible: 'yes'")
	assert.NotContains(t, dump, "_hidden")
	assert.Contains(t, dump, "_id:")
}

func TestFormatValueEscapesQuotes(t *testing.T) {
	assert.Equal(t, "'it\\'s'", formatValue(models.String("it's")))
	assert.Equal(t, "42", formatValue(models.Int(42)))
	assert.Equal(t, "true", formatValue(models.Bool(true)))
	assert.Equal(t, "null", formatValue(models.Null()))
}

func TestFormatPropertiesSortsKeys(t *testing.T) {
	props := models.PropertyMap{
		"zeta":  models.Int(1),
		"alpha": models.Int(2),
	}
	assert.Equal(t, "alpha: 2, zeta: 1", formatProperties(props))
}
