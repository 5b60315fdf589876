// Package procedure implements the name-to-implementation registry that
// CALL statements dispatch through: a sync.RWMutex-guarded map with
// alias support and conflict detection, keyed by dotted
// "namespace.name" identifiers. Procedures are registered in-process by
// the backend that owns them; there is no dynamic loading.
package procedure

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

// Func is one registered procedure implementation. It receives the
// evaluated call arguments and returns a row set whose Columns name the
// procedure's own output fields; a CALL ... YIELD clause renames them
// positionally one level up, in the executor.
type Func func(ctx context.Context, tx storage.Tx, args []models.Value) (storage.ProcedureResult, error)

// Registry maps "namespace.name" identifiers to Func implementations.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	procs   map[string]Func
	aliases map[string]string
}

// NewRegistry returns an empty registry. Built-in procedures are
// registered separately by the backend that constructs one (see
// internal/storage/memory's registerBuiltins) so the registry itself
// stays domain-agnostic.
func NewRegistry() *Registry {
	return &Registry{
		procs:   make(map[string]Func),
		aliases: make(map[string]string),
	}
}

// Register adds a procedure under its canonical dotted name. Re-
// registering the same name, or an empty name, is a conflict and is
// rejected.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("procedure name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("procedure %q cannot be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[name]; exists {
		return fmt.Errorf("procedure %q already registered", name)
	}
	r.procs[name] = fn
	return nil
}

// RegisterAlias makes alias resolve to the same implementation as
// canonical. Returns an error if alias conflicts with an existing
// mapping or canonical isn't registered.
func (r *Registry) RegisterAlias(alias, canonical string) error {
	if alias == "" {
		return fmt.Errorf("alias cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[canonical]; !exists {
		return fmt.Errorf("cannot alias to unregistered procedure %q", canonical)
	}
	if existing, exists := r.aliases[alias]; exists {
		return fmt.Errorf("alias %q conflicts with existing mapping to %q", alias, existing)
	}
	r.aliases[alias] = canonical
	return nil
}

// Unregister removes a procedure and any aliases pointing at it.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[name]; !exists {
		return fmt.Errorf("procedure %q not found", name)
	}
	delete(r.procs, name)
	for alias, canonical := range r.aliases {
		if canonical == name {
			delete(r.aliases, alias)
		}
	}
	return nil
}

// Has reports whether name (or an alias of it) is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.procs[name]; ok {
		return true
	}
	_, ok := r.aliases[name]
	return ok
}

// List returns every registered canonical procedure name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches name (resolving aliases) with args against tx, failing
// with a NotFound-flavored error if nothing is registered under it. The
// error itself is a plain error; callers in the executor wrap it as
// graphdb.NewNotFound before returning it across the public API boundary.
func (r *Registry) Call(ctx context.Context, tx storage.Tx, name string, args []models.Value) (storage.ProcedureResult, error) {
	r.mu.RLock()
	fn, ok := r.procs[name]
	if !ok {
		if canonical, aliased := r.aliases[name]; aliased {
			fn, ok = r.procs[canonical]
		}
	}
	r.mu.RUnlock()
	if !ok {
		return storage.ProcedureResult{}, fmt.Errorf("no procedure registered for %q", name)
	}
	return fn(ctx, tx, args)
}
