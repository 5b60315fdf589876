package procedure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

func echoProc(_ context.Context, _ storage.Tx, args []models.Value) (storage.ProcedureResult, error) {
	return storage.ProcedureResult{
		Columns: []string{"value"},
		Rows:    []map[string]models.Value{{"value": args[0]}},
	}, nil
}

func TestRegistry_RegisterAndCall(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test.echo", echoProc))
	assert.True(t, r.Has("test.echo"))

	res, err := r.Call(context.Background(), nil, "test.echo", []models.Value{models.Int(7)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, models.Int(7), res.Rows[0]["value"])
}

func TestRegistry_RejectsDuplicateAndEmptyNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test.echo", echoProc))
	assert.Error(t, r.Register("test.echo", echoProc))
	assert.Error(t, r.Register("", echoProc))
	assert.Error(t, r.Register("test.nil", nil))
}

func TestRegistry_AliasResolvesToCanonical(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test.echo", echoProc))
	require.NoError(t, r.RegisterAlias("echo", "test.echo"))
	assert.True(t, r.Has("echo"))

	res, err := r.Call(context.Background(), nil, "echo", []models.Value{models.String("hi")})
	require.NoError(t, err)
	assert.Equal(t, models.String("hi"), res.Rows[0]["value"])

	assert.Error(t, r.RegisterAlias("echo", "test.echo"))
	assert.Error(t, r.RegisterAlias("other", "test.missing"))
}

func TestRegistry_UnregisterRemovesAliases(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("test.echo", echoProc))
	require.NoError(t, r.RegisterAlias("echo", "test.echo"))
	require.NoError(t, r.Unregister("test.echo"))
	assert.False(t, r.Has("test.echo"))
	assert.False(t, r.Has("echo"))

	_, err := r.Call(context.Background(), nil, "echo", nil)
	assert.Error(t, err)
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b.second", echoProc))
	require.NoError(t, r.Register("a.first", echoProc))
	assert.Equal(t, []string{"a.first", "b.second"}, r.List())
}
