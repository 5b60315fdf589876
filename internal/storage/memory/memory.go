// Package memory implements the in-memory reference backend: two
// id-keyed record tables, adjacency lists for relationship
// traversal, a label-bucket index for NodeScan, and a set of simple
// property indexes for IndexLookup. Every collection is guarded by its
// own sync.RWMutex — narrowest-lock discipline, no global mutex.
// Transactions are id-only: mutations apply immediately and Rollback is
// a documented no-op.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/internal/procedure"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

type tx struct {
	id   uint64
	mode storage.TxMode
}

func (t *tx) ID() uint64           { return t.id }
func (t *tx) Mode() storage.TxMode { return t.mode }

type nodeRecord struct {
	labels     []string
	properties models.PropertyMap
}

type relRecord struct {
	src, dst models.NodeID
	relType  string
	props    models.PropertyMap
}

type indexKey struct {
	label    string
	property string
}

type index struct {
	name   string
	kind   storage.IndexType
	label  string
	prop   string
	unique bool
	// buckets maps the property value's canonical string form to the
	// set of node ids carrying that value, a hash bucket rather than a
	// real ordered structure.
	indexMu sync.RWMutex
	buckets map[string]map[models.NodeID]struct{}
}

// Backend is the reference in-memory storage.Backend implementation.
type Backend struct {
	nodesMu sync.RWMutex
	nodes   map[models.NodeID]*nodeRecord

	relsMu sync.RWMutex
	rels   map[models.RelID]*relRecord
	outAdj map[models.NodeID][]models.RelID
	inAdj  map[models.NodeID][]models.RelID

	labelMu sync.RWMutex
	labels  map[string]map[models.NodeID]struct{}

	idxMu       sync.RWMutex
	indexes     map[string]*index     // index name -> index
	indexesByLK map[indexKey][]*index // (label, property) -> indexes on it

	txMu  sync.Mutex
	txSeq uint64

	nextNodeID atomic.Uint64
	nextRelID  atomic.Uint64

	procs *procedure.Registry
}

// New returns an empty reference backend with the built-in introspection
// procedures registered (db.labels, db.relationshipTypes, db.propertyKeys).
func New() *Backend {
	b := &Backend{
		nodes:       make(map[models.NodeID]*nodeRecord),
		rels:        make(map[models.RelID]*relRecord),
		outAdj:      make(map[models.NodeID][]models.RelID),
		inAdj:       make(map[models.NodeID][]models.RelID),
		labels:      make(map[string]map[models.NodeID]struct{}),
		indexes:     make(map[string]*index),
		indexesByLK: make(map[indexKey][]*index),
	}
	b.procs = procedure.NewRegistry()
	registerBuiltins(b.procs, b)
	return b
}

func (b *Backend) BeginTx(_ context.Context, mode storage.TxMode) (storage.Tx, error) {
	b.txMu.Lock()
	b.txSeq++
	id := b.txSeq
	b.txMu.Unlock()
	return &tx{id: id, mode: mode}, nil
}

func (b *Backend) CommitTx(_ context.Context, _ storage.Tx) error { return nil }

// RollbackTx is a documented no-op: mutations already applied through
// this transaction remain applied. There is no undo log; callers that
// need real rollback should use a transactional backend.
func (b *Backend) RollbackTx(_ context.Context, _ storage.Tx) error { return nil }

func (b *Backend) requireWrite(t storage.Tx) error {
	if t == nil || t.Mode() != storage.ReadWrite {
		return gerr.NewStorageError("write operation requires a read-write transaction")
	}
	return nil
}

func (b *Backend) CreateNode(_ context.Context, t storage.Tx, labelList []string, props models.PropertyMap) (models.NodeID, error) {
	if err := b.requireWrite(t); err != nil {
		return 0, err
	}
	id := models.NodeID(b.nextNodeID.Add(1))
	rec := &nodeRecord{labels: append([]string(nil), labelList...), properties: props.Clone()}
	if rec.properties == nil {
		rec.properties = models.PropertyMap{}
	}

	b.nodesMu.Lock()
	b.nodes[id] = rec
	b.nodesMu.Unlock()

	b.labelMu.Lock()
	for _, l := range rec.labels {
		if b.labels[l] == nil {
			b.labels[l] = make(map[models.NodeID]struct{})
		}
		b.labels[l][id] = struct{}{}
	}
	b.labelMu.Unlock()

	for _, l := range rec.labels {
		for k, v := range rec.properties {
			b.indexInsert(l, k, v, id)
		}
	}
	return id, nil
}

func (b *Backend) nodeToValue(id models.NodeID, rec *nodeRecord) models.Node {
	return models.Node{
		ID:         id,
		ElementID:  fmt.Sprintf("%d", id),
		Labels:     append([]string(nil), rec.labels...),
		Properties: rec.properties.Clone(),
	}
}

func (b *Backend) GetNode(_ context.Context, _ storage.Tx, id models.NodeID) (models.Node, bool, error) {
	b.nodesMu.RLock()
	rec, ok := b.nodes[id]
	b.nodesMu.RUnlock()
	if !ok {
		return models.Node{}, false, nil
	}
	return b.nodeToValue(id, rec), true, nil
}

// AllNodes returns nodes in ascending id order.
func (b *Backend) AllNodes(_ context.Context, _ storage.Tx) ([]models.Node, error) {
	b.nodesMu.RLock()
	defer b.nodesMu.RUnlock()
	ids := make([]models.NodeID, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.nodeToValue(id, b.nodes[id]))
	}
	return out, nil
}

func (b *Backend) DeleteNode(_ context.Context, t storage.Tx, id models.NodeID) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.relsMu.RLock()
	incident := len(b.outAdj[id]) + len(b.inAdj[id])
	b.relsMu.RUnlock()
	if incident > 0 {
		return gerr.NewConstraintViolation("cannot delete node with incident relationships without DETACH")
	}

	b.nodesMu.Lock()
	rec, ok := b.nodes[id]
	if ok {
		delete(b.nodes, id)
	}
	b.nodesMu.Unlock()
	if !ok {
		return gerr.NewNotFound("node")
	}

	b.labelMu.Lock()
	for _, l := range rec.labels {
		delete(b.labels[l], id)
	}
	b.labelMu.Unlock()

	for _, l := range rec.labels {
		for k, v := range rec.properties {
			b.indexRemove(l, k, v, id)
		}
	}
	return nil
}

// DetachDeleteNode deletes every relationship incident to id, then the
// node itself. Called by the executor's DeleteNode{Detach:true} operator.
func (b *Backend) DetachDeleteNode(ctx context.Context, t storage.Tx, id models.NodeID) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.relsMu.RLock()
	incident := append(append([]models.RelID(nil), b.outAdj[id]...), b.inAdj[id]...)
	b.relsMu.RUnlock()
	for _, rid := range incident {
		if err := b.DeleteRelationship(ctx, t, rid); err != nil {
			if _, isNotFound := asNotFound(err); !isNotFound {
				return err
			}
		}
	}
	b.nodesMu.Lock()
	rec, ok := b.nodes[id]
	if ok {
		delete(b.nodes, id)
	}
	b.nodesMu.Unlock()
	if !ok {
		return gerr.NewNotFound("node")
	}
	b.labelMu.Lock()
	for _, l := range rec.labels {
		delete(b.labels[l], id)
	}
	b.labelMu.Unlock()
	for _, l := range rec.labels {
		for k, v := range rec.properties {
			b.indexRemove(l, k, v, id)
		}
	}
	return nil
}

func asNotFound(err error) (*gerr.Error, bool) {
	e, ok := err.(*gerr.Error)
	if ok && e.Kind == gerr.ErrNotFound {
		return e, true
	}
	return nil, false
}

func (b *Backend) SetNodeProperty(_ context.Context, t storage.Tx, id models.NodeID, key string, value *models.Value) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.nodesMu.Lock()
	rec, ok := b.nodes[id]
	if !ok {
		b.nodesMu.Unlock()
		return gerr.NewNotFound("node")
	}
	old, hadOld := rec.properties[key]
	if value == nil {
		delete(rec.properties, key)
	} else {
		rec.properties[key] = *value
	}
	labelsCopy := append([]string(nil), rec.labels...)
	b.nodesMu.Unlock()

	for _, l := range labelsCopy {
		if hadOld {
			b.indexRemove(l, key, old, id)
		}
		if value != nil {
			b.indexInsert(l, key, *value, id)
		}
	}
	return nil
}

func (b *Backend) AddLabel(_ context.Context, t storage.Tx, id models.NodeID, label string) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.nodesMu.Lock()
	rec, ok := b.nodes[id]
	if !ok {
		b.nodesMu.Unlock()
		return gerr.NewNotFound("node")
	}
	if rec.HasLabelInternal(label) {
		b.nodesMu.Unlock()
		return nil
	}
	rec.labels = append(rec.labels, label)
	props := rec.properties
	b.nodesMu.Unlock()

	b.labelMu.Lock()
	if b.labels[label] == nil {
		b.labels[label] = make(map[models.NodeID]struct{})
	}
	b.labels[label][id] = struct{}{}
	b.labelMu.Unlock()

	for k, v := range props {
		b.indexInsert(label, k, v, id)
	}
	return nil
}

func (r *nodeRecord) HasLabelInternal(label string) bool {
	for _, l := range r.labels {
		if l == label {
			return true
		}
	}
	return false
}

func (b *Backend) RemoveLabel(_ context.Context, t storage.Tx, id models.NodeID, label string) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.nodesMu.Lock()
	rec, ok := b.nodes[id]
	if !ok {
		b.nodesMu.Unlock()
		return gerr.NewNotFound("node")
	}
	kept := rec.labels[:0]
	removed := false
	for _, l := range rec.labels {
		if l == label {
			removed = true
			continue
		}
		kept = append(kept, l)
	}
	rec.labels = kept
	props := rec.properties
	b.nodesMu.Unlock()

	if !removed {
		return nil
	}
	b.labelMu.Lock()
	delete(b.labels[label], id)
	b.labelMu.Unlock()

	for k, v := range props {
		b.indexRemove(label, k, v, id)
	}
	return nil
}

func (b *Backend) CreateRelationship(_ context.Context, t storage.Tx, src, dst models.NodeID, relType string, props models.PropertyMap) (models.RelID, error) {
	if err := b.requireWrite(t); err != nil {
		return 0, err
	}
	b.nodesMu.RLock()
	_, srcOK := b.nodes[src]
	_, dstOK := b.nodes[dst]
	b.nodesMu.RUnlock()
	if !srcOK || !dstOK {
		return 0, gerr.NewConstraintViolation("relationship endpoints must refer to live nodes")
	}

	id := models.RelID(b.nextRelID.Add(1))
	rec := &relRecord{src: src, dst: dst, relType: relType, props: props.Clone()}
	if rec.props == nil {
		rec.props = models.PropertyMap{}
	}
	b.relsMu.Lock()
	b.rels[id] = rec
	b.outAdj[src] = append(b.outAdj[src], id)
	b.inAdj[dst] = append(b.inAdj[dst], id)
	b.relsMu.Unlock()
	return id, nil
}

func (b *Backend) relToValue(id models.RelID, rec *relRecord) models.Relationship {
	return models.Relationship{
		ID: id, Src: rec.src, Dst: rec.dst, Type: rec.relType,
		Properties: rec.props.Clone(),
	}
}

func (b *Backend) GetRelationship(_ context.Context, _ storage.Tx, id models.RelID) (models.Relationship, bool, error) {
	b.relsMu.RLock()
	rec, ok := b.rels[id]
	b.relsMu.RUnlock()
	if !ok {
		return models.Relationship{}, false, nil
	}
	return b.relToValue(id, rec), true, nil
}

// GetRelationships returns matches in ascending rel-id order.
func (b *Backend) GetRelationships(_ context.Context, _ storage.Tx, node models.NodeID, dir models.Direction, typeFilter []string) ([]models.Relationship, error) {
	b.relsMu.RLock()
	defer b.relsMu.RUnlock()

	var ids []models.RelID
	if dir == models.Outgoing || dir == models.Both {
		ids = append(ids, b.outAdj[node]...)
	}
	if dir == models.Incoming || dir == models.Both {
		ids = append(ids, b.inAdj[node]...)
	}

	uniq := make(map[models.RelID]struct{}, len(ids))
	out := make([]models.RelID, 0, len(ids))
	for _, id := range ids {
		if _, seen := uniq[id]; seen {
			continue
		}
		uniq[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	typeSet := map[string]bool(nil)
	if len(typeFilter) > 0 {
		typeSet = make(map[string]bool, len(typeFilter))
		for _, ty := range typeFilter {
			typeSet[ty] = true
		}
	}

	rels := make([]models.Relationship, 0, len(out))
	for _, id := range out {
		rec := b.rels[id]
		if typeSet != nil && !typeSet[rec.relType] {
			continue
		}
		rels = append(rels, b.relToValue(id, rec))
	}
	return rels, nil
}

func (b *Backend) DeleteRelationship(_ context.Context, t storage.Tx, id models.RelID) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.relsMu.Lock()
	defer b.relsMu.Unlock()
	rec, ok := b.rels[id]
	if !ok {
		return gerr.NewNotFound("relationship")
	}
	delete(b.rels, id)
	b.outAdj[rec.src] = removeRelID(b.outAdj[rec.src], id)
	b.inAdj[rec.dst] = removeRelID(b.inAdj[rec.dst], id)
	return nil
}

func removeRelID(ids []models.RelID, target models.RelID) []models.RelID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

func (b *Backend) SetRelProperty(_ context.Context, t storage.Tx, id models.RelID, key string, value *models.Value) error {
	if err := b.requireWrite(t); err != nil {
		return err
	}
	b.relsMu.Lock()
	defer b.relsMu.Unlock()
	rec, ok := b.rels[id]
	if !ok {
		return gerr.NewNotFound("relationship")
	}
	if value == nil {
		delete(rec.props, key)
	} else {
		rec.props[key] = *value
	}
	return nil
}

func (b *Backend) NodeCount(_ context.Context, _ storage.Tx) (int64, error) {
	b.nodesMu.RLock()
	defer b.nodesMu.RUnlock()
	return int64(len(b.nodes)), nil
}

func (b *Backend) RelationshipCount(_ context.Context, _ storage.Tx) (int64, error) {
	b.relsMu.RLock()
	defer b.relsMu.RUnlock()
	return int64(len(b.rels)), nil
}

func (b *Backend) CreateIndex(_ context.Context, name, label, property string, kind storage.IndexType) error {
	b.idxMu.Lock()
	defer b.idxMu.Unlock()
	if _, exists := b.indexes[name]; exists {
		return gerr.NewConstraintViolation(fmt.Sprintf("index %q already exists", name))
	}
	idx := &index{
		name: name, kind: kind, label: label, prop: property,
		unique:  kind == storage.IndexUnique,
		buckets: make(map[string]map[models.NodeID]struct{}),
	}
	b.indexes[name] = idx
	key := indexKey{label: label, property: property}
	b.indexesByLK[key] = append(b.indexesByLK[key], idx)

	// Backfill from existing nodes carrying the label.
	b.labelMu.RLock()
	ids := make([]models.NodeID, 0, len(b.labels[label]))
	for id := range b.labels[label] {
		ids = append(ids, id)
	}
	b.labelMu.RUnlock()
	b.nodesMu.RLock()
	for _, id := range ids {
		if rec, ok := b.nodes[id]; ok {
			if v, ok := rec.properties[property]; ok {
				idx.insert(v, id)
			}
		}
	}
	b.nodesMu.RUnlock()
	return nil
}

func (b *Backend) DropIndex(_ context.Context, name string) error {
	b.idxMu.Lock()
	defer b.idxMu.Unlock()
	idx, ok := b.indexes[name]
	if !ok {
		return gerr.NewNotFound("index")
	}
	delete(b.indexes, name)
	key := indexKey{label: idx.label, property: idx.prop}
	kept := b.indexesByLK[key][:0]
	for _, other := range b.indexesByLK[key] {
		if other != idx {
			kept = append(kept, other)
		}
	}
	b.indexesByLK[key] = kept
	return nil
}

// IndexLookup uses an index if one exists over (label, property);
// otherwise it falls back to a scan+filter, producing the same result
// set either way.
func (b *Backend) IndexLookup(ctx context.Context, t storage.Tx, label, property string, value models.Value) ([]models.NodeID, error) {
	b.idxMu.RLock()
	candidates := b.indexesByLK[indexKey{label: label, property: property}]
	b.idxMu.RUnlock()

	if len(candidates) > 0 {
		idx := candidates[0]
		idx.mu().RLock()
		set := idx.buckets[valueKey(value)]
		hits := make([]models.NodeID, 0, len(set))
		for id := range set {
			hits = append(hits, id)
		}
		idx.mu().RUnlock()
		// Bucket keys are string renderings, so unequal values can share
		// a bucket; keep only nodes whose property is Equal to value.
		ids := make([]models.NodeID, 0, len(hits))
		b.nodesMu.RLock()
		for _, id := range hits {
			if rec, ok := b.nodes[id]; ok {
				if v, ok := rec.properties[property]; ok && v.Equal(value) {
					ids = append(ids, id)
				}
			}
		}
		b.nodesMu.RUnlock()
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return ids, nil
	}

	nodes, err := b.AllNodes(ctx, t)
	if err != nil {
		return nil, err
	}
	var out []models.NodeID
	for _, n := range nodes {
		if !n.HasLabel(label) {
			continue
		}
		if v, ok := n.Properties[property]; ok && v.Equal(value) {
			out = append(out, n.ID)
		}
	}
	return out, nil
}

func (b *Backend) Capabilities() storage.Capabilities {
	return storage.Capabilities{Transactions: true, Indexes: true, Procedures: true, VectorSearch: false}
}

func (b *Backend) CallProcedure(ctx context.Context, t storage.Tx, name string, args []models.Value) (storage.ProcedureResult, error) {
	return b.procs.Call(ctx, t, name, args)
}

// Procedures exposes the backend's procedure registry so callers can
// register additional domain procedures (similarity search, custom
// scoring and the like) without the engine knowing anything about
// their internals.
func (b *Backend) Procedures() *procedure.Registry { return b.procs }

func valueKey(v models.Value) string { return v.TypeName() + ":" + v.String() }

func (idx *index) insert(v models.Value, id models.NodeID) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	k := valueKey(v)
	if idx.buckets[k] == nil {
		idx.buckets[k] = make(map[models.NodeID]struct{})
	}
	idx.buckets[k][id] = struct{}{}
}

func (idx *index) remove(v models.Value, id models.NodeID) {
	idx.indexMu.Lock()
	defer idx.indexMu.Unlock()
	k := valueKey(v)
	delete(idx.buckets[k], id)
}

func (idx *index) mu() *sync.RWMutex { return &idx.indexMu }

func (b *Backend) indexInsert(label, property string, v models.Value, id models.NodeID) {
	b.idxMu.RLock()
	candidates := b.indexesByLK[indexKey{label: label, property: property}]
	b.idxMu.RUnlock()
	for _, idx := range candidates {
		idx.insert(v, id)
	}
}

func (b *Backend) indexRemove(label, property string, v models.Value, id models.NodeID) {
	b.idxMu.RLock()
	candidates := b.indexesByLK[indexKey{label: label, property: property}]
	b.idxMu.RUnlock()
	for _, idx := range candidates {
		idx.remove(v, id)
	}
}
