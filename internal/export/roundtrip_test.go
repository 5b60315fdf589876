package export

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	graphdb "github.com/adaworld/graphdb"
	"github.com/adaworld/graphdb/internal/storage/memory"
)

// statements splits a dump into executable statements, dropping the
// `// ` header lines the exporter emits.
func statements(dump string) []string {
	var out []string
	for _, line := range strings.Split(dump, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func TestDumpRoundTripRebuildsGraph(t *testing.T) {
	src := memory.New()
	seedGraph(t, src)
	ctx := context.Background()

	var buf strings.Builder
	require.NoError(t, Dump(ctx, src, &buf))

	dst := memory.New()
	g := graphdb.New(dst)
	for _, stmt := range statements(buf.String()) {
		_, err := g.Execute(ctx, stmt, nil)
		require.NoError(t, err, "replaying %q", stmt)
	}

	srcNodes, err := src.NodeCount(ctx, nil)
	require.NoError(t, err)
	dstNodes, err := dst.NodeCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, srcNodes, dstNodes)

	srcRels, err := src.RelationshipCount(ctx, nil)
	require.NoError(t, err)
	dstRels, err := dst.RelationshipCount(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, srcRels, dstRels)

	res, err := g.Execute(ctx, `MATCH (n:Person) RETURN n.name AS name ORDER BY name`, nil)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "Alice", res.Rows[0]["name"].String())
	assert.Equal(t, "Bob", res.Rows[1]["name"].String())
	assert.Equal(t, "Charlie", res.Rows[2]["name"].String())
}
