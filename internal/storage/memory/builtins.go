package memory

import (
	"context"
	"sort"

	"github.com/adaworld/graphdb/internal/procedure"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

// registerBuiltins wires the reference backend's introspection
// procedures, in the spirit of Neo4j's own db.* procedures, so CALL
// has real built-ins to dispatch to.
func registerBuiltins(reg *procedure.Registry, b *Backend) {
	_ = reg.Register("db.labels", func(_ context.Context, _ storage.Tx, _ []models.Value) (storage.ProcedureResult, error) {
		b.labelMu.RLock()
		names := make([]string, 0, len(b.labels))
		for l, ids := range b.labels {
			if len(ids) > 0 {
				names = append(names, l)
			}
		}
		b.labelMu.RUnlock()
		sort.Strings(names)

		rows := make([]map[string]models.Value, len(names))
		for i, l := range names {
			rows[i] = map[string]models.Value{"label": models.String(l)}
		}
		return storage.ProcedureResult{Columns: []string{"label"}, Rows: rows}, nil
	})

	_ = reg.Register("db.relationshipTypes", func(_ context.Context, _ storage.Tx, _ []models.Value) (storage.ProcedureResult, error) {
		b.relsMu.RLock()
		seen := make(map[string]struct{})
		for _, rec := range b.rels {
			seen[rec.relType] = struct{}{}
		}
		b.relsMu.RUnlock()

		types := make([]string, 0, len(seen))
		for t := range seen {
			types = append(types, t)
		}
		sort.Strings(types)

		rows := make([]map[string]models.Value, len(types))
		for i, t := range types {
			rows[i] = map[string]models.Value{"relationshipType": models.String(t)}
		}
		return storage.ProcedureResult{Columns: []string{"relationshipType"}, Rows: rows}, nil
	})

	_ = reg.Register("db.propertyKeys", func(_ context.Context, _ storage.Tx, _ []models.Value) (storage.ProcedureResult, error) {
		seen := make(map[string]struct{})
		b.nodesMu.RLock()
		for _, rec := range b.nodes {
			for k := range rec.properties {
				seen[k] = struct{}{}
			}
		}
		b.nodesMu.RUnlock()
		b.relsMu.RLock()
		for _, rec := range b.rels {
			for k := range rec.props {
				seen[k] = struct{}{}
			}
		}
		b.relsMu.RUnlock()

		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		rows := make([]map[string]models.Value, len(keys))
		for i, k := range keys {
			rows[i] = map[string]models.Value{"propertyKey": models.String(k)}
		}
		return storage.ProcedureResult{Columns: []string{"propertyKey"}, Rows: rows}, nil
	})
}
