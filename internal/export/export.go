// Package export implements the Cypher text dump: a full-graph
// traversal that serialises every node and relationship as a
// self-contained, re-loadable Cypher script. It is the engine's only
// serialisation boundary and drives the storage.Backend directly,
// bypassing the query pipeline entirely.
package export

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

// Dump writes a Cypher DUMP script for the full contents of backend to
// w: a header, then one CREATE statement per node (carrying an injected
// _id property), then one MATCH...CREATE statement per relationship
// (locating its endpoints by that same _id). Re-feeding the script to
// the engine reconstructs the same node/relationship set up to id
// remapping.
func Dump(ctx context.Context, backend storage.Backend, w io.Writer) error {
	tx, err := backend.BeginTx(ctx, storage.ReadOnly)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}

	nodeCount, err := backend.NodeCount(ctx, tx)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}
	relCount, err := backend.RelationshipCount(ctx, tx)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}

	if err := writeHeader(w, nodeCount, relCount); err != nil {
		return gerr.NewIOError(err.Error())
	}

	nodes, err := backend.AllNodes(ctx, tx)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}
	for _, n := range nodes {
		if err := writeNode(w, n); err != nil {
			return gerr.NewIOError(err.Error())
		}
	}

	if _, err := io.WriteString(w, "\n// Relationships\n"); err != nil {
		return gerr.NewIOError(err.Error())
	}

	for _, n := range nodes {
		rels, err := backend.GetRelationships(ctx, tx, n.ID, models.Outgoing, nil)
		if err != nil {
			return gerr.NewStorageError(err.Error())
		}
		for _, rel := range rels {
			if err := writeRelationship(w, rel); err != nil {
				return gerr.NewIOError(err.Error())
			}
		}
	}

	if err := backend.CommitTx(ctx, tx); err != nil {
		return gerr.NewStorageError(err.Error())
	}
	return nil
}

func writeHeader(w io.Writer, nodeCount, relCount int64) error {
	lines := []string{
		"// graphdb Cypher DUMP",
		"// Generated for re-import into this engine or any Cypher-compatible system",
		fmt.Sprintf("// Nodes: %d", nodeCount),
		fmt.Sprintf("// Relationships: %d", relCount),
		"",
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func writeNode(w io.Writer, n models.Node) error {
	labelsStr := ""
	if len(n.Labels) > 0 {
		labelsStr = ":" + strings.Join(n.Labels, ":")
	}

	propsStr := formatProperties(n.Properties)
	idProp := fmt.Sprintf("_id: %d", n.ID)
	if propsStr != "" {
		idProp += ", " + propsStr
	}

	_, err := fmt.Fprintf(w, "CREATE (n%s {%s});\n", labelsStr, idProp)
	return err
}

func writeRelationship(w io.Writer, rel models.Relationship) error {
	propsStr := formatProperties(rel.Properties)
	propsPart := ""
	if propsStr != "" {
		propsPart = " {" + propsStr + "}"
	}

	_, err := fmt.Fprintf(w, "MATCH (a {_id: %d}), (b {_id: %d}) CREATE (a)-[:%s%s]->(b);\n",
		rel.Src, rel.Dst, rel.Type, propsPart)
	return err
}

// formatProperties renders a PropertyMap as a Cypher property-list body
// (key: value, ...), eliding any key beginning with '_' (internal
// properties, the _id the exporter itself injects included) and
// iterating keys in sorted order so output is deterministic.
func formatProperties(props models.PropertyMap) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		if strings.HasPrefix(k, "_") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+formatValue(props[k]))
	}
	return strings.Join(parts, ", ")
}

// formatValue renders a single Value as a Cypher literal: strings
// single-quoted with ' escaped, scalars in their canonical decimal
// forms, lists and maps recursively.
func formatValue(v models.Value) string {
	switch v.Kind() {
	case models.KindString:
		s, _ := v.AsString()
		return "'" + strings.ReplaceAll(s, "'", "\\'") + "'"
	case models.KindInt:
		i, _ := v.AsInt()
		return strconv.FormatInt(i, 10)
	case models.KindFloat:
		f, _ := v.AsFloat()
		s := strconv.FormatFloat(f, 'f', -1, 64)
		// Keep a decimal point so the literal reloads as a Float
		// ("NaN" and "±Inf" carry an N or I and are left as they are).
		if !strings.ContainsAny(s, ".NI") {
			s += ".0"
		}
		return s
	case models.KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case models.KindNull:
		return "null"
	case models.KindList:
		items, _ := v.AsList()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = formatValue(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case models.KindMap:
		m, _ := v.AsMap()
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+formatValue(m[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "null"
	}
}
