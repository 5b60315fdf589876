// Package sqlstore is a GORM-backed storage.Backend, proving the
// contract is actually backend-agnostic against something other than
// the in-memory reference. It is additive: the planner and executor
// never import it, only cmd/cyphersh wires it in behind a -backend=sql
// flag. Connect picks its dialector from the DSN: postgres://... gets
// the Postgres driver, anything else is treated as a SQLite file path.
package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/adaworld/graphdb/internal/gerr"
	"github.com/adaworld/graphdb/internal/procedure"
	"github.com/adaworld/graphdb/internal/storage"
	"github.com/adaworld/graphdb/models"
)

// graphNodeRow is the GORM model backing one property-graph node.
// Labels and Properties are JSON columns (gorm.io/datatypes), letting
// models.Value's own JSON marshaling double as the column codec.
type graphNodeRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Labels     datatypes.JSON
	Properties datatypes.JSON
}

func (graphNodeRow) TableName() string { return "graph_nodes" }

type graphRelationshipRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	Src        uint64 `gorm:"index:idx_rel_src"`
	Dst        uint64 `gorm:"index:idx_rel_dst"`
	Type       string `gorm:"index:idx_rel_type"`
	Properties datatypes.JSON
}

func (graphRelationshipRow) TableName() string { return "graph_relationships" }

type graphIndexRow struct {
	Name     string `gorm:"primaryKey"`
	Label    string
	Property string
	Kind     int
	Unique   bool
}

func (graphIndexRow) TableName() string { return "graph_indexes" }

// Connect opens a database connection and runs migrations, choosing a
// Postgres dialector for postgres://... DSNs and a SQLite one (via
// glebarez/sqlite, the pure-Go driver, so embedders need no cgo
// toolchain) for everything else, treating the DSN as a file path.
func Connect(dsn string, debug bool) (*Backend, error) {
	if !isPostgresDSN(dsn) {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	gcfg := &gorm.Config{}
	if debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	if isPostgresDSN(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := db.AutoMigrate(&graphNodeRow{}, &graphRelationshipRow{}, &graphIndexRow{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	b := &Backend{db: db}
	b.procs = procedure.NewRegistry()
	return b, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// execWithRetry retries fn on SQLite's "database is locked" error,
// which GORM surfaces as the raw driver error string.
func execWithRetry(fn func() error) error {
	const maxRetries = 5
	var err error
	for i := 0; i < maxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("database is locked after %d retries: %w", maxRetries, err)
}

// tx wraps a real GORM transaction when mode is ReadWrite, or the plain
// connection for ReadOnly. Unlike the in-memory reference backend,
// sqlstore gives Commit/Rollback real isolation via the underlying SQL
// engine's own transaction support.
type tx struct {
	id   uint64
	mode storage.TxMode
	db   *gorm.DB
}

func (t *tx) ID() uint64           { return t.id }
func (t *tx) Mode() storage.TxMode { return t.mode }

// Backend implements storage.Backend over a *gorm.DB connection.
type Backend struct {
	db    *gorm.DB
	procs *procedure.Registry

	mu    sync.Mutex
	txSeq uint64
}

func (b *Backend) BeginTx(_ context.Context, mode storage.TxMode) (storage.Tx, error) {
	b.mu.Lock()
	b.txSeq++
	id := b.txSeq
	b.mu.Unlock()

	if mode == storage.ReadOnly {
		return &tx{id: id, mode: mode, db: b.db}, nil
	}
	gtx := b.db.Begin()
	if gtx.Error != nil {
		return nil, gtx.Error
	}
	return &tx{id: id, mode: mode, db: gtx}, nil
}

func (b *Backend) CommitTx(_ context.Context, t storage.Tx) error {
	st := t.(*tx)
	if st.mode == storage.ReadOnly {
		return nil
	}
	return st.db.Commit().Error
}

func (b *Backend) RollbackTx(_ context.Context, t storage.Tx) error {
	st := t.(*tx)
	if st.mode == storage.ReadOnly {
		return nil
	}
	return st.db.Rollback().Error
}

func (b *Backend) requireWrite(t storage.Tx) (*gorm.DB, error) {
	st, ok := t.(*tx)
	if !ok || st.mode != storage.ReadWrite {
		return nil, gerr.NewStorageError("write operation requires a read-write transaction")
	}
	return st.db, nil
}

func (b *Backend) conn(t storage.Tx) *gorm.DB {
	if st, ok := t.(*tx); ok {
		return st.db
	}
	return b.db
}

func (b *Backend) CreateNode(ctx context.Context, t storage.Tx, labels []string, props models.PropertyMap) (models.NodeID, error) {
	conn, err := b.requireWrite(t)
	if err != nil {
		return 0, err
	}
	labelsJSON, propsJSON, err := encodeNode(labels, props)
	if err != nil {
		return 0, gerr.NewStorageError(err.Error())
	}
	row := graphNodeRow{Labels: labelsJSON, Properties: propsJSON}
	if err := execWithRetry(func() error { return conn.WithContext(ctx).Create(&row).Error }); err != nil {
		return 0, gerr.NewStorageError(err.Error())
	}
	return models.NodeID(row.ID), nil
}

func encodeNode(labels []string, props models.PropertyMap) (datatypes.JSON, datatypes.JSON, error) {
	labelsB, err := json.Marshal(labels)
	if err != nil {
		return nil, nil, err
	}
	propsB, err := json.Marshal(props)
	if err != nil {
		return nil, nil, err
	}
	return datatypes.JSON(labelsB), datatypes.JSON(propsB), nil
}

func decodeNode(row graphNodeRow) (models.Node, error) {
	var labels []string
	if len(row.Labels) > 0 {
		if err := json.Unmarshal(row.Labels, &labels); err != nil {
			return models.Node{}, err
		}
	}
	props := models.PropertyMap{}
	if len(row.Properties) > 0 {
		if err := json.Unmarshal(row.Properties, &props); err != nil {
			return models.Node{}, err
		}
	}
	return models.Node{
		ID:         models.NodeID(row.ID),
		ElementID:  fmt.Sprintf("%d", row.ID),
		Labels:     labels,
		Properties: props,
	}, nil
}

func (b *Backend) GetNode(ctx context.Context, t storage.Tx, id models.NodeID) (models.Node, bool, error) {
	var row graphNodeRow
	err := b.conn(t).WithContext(ctx).First(&row, "id = ?", uint64(id)).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.Node{}, false, nil
		}
		return models.Node{}, false, gerr.NewStorageError(err.Error())
	}
	n, err := decodeNode(row)
	if err != nil {
		return models.Node{}, false, gerr.NewStorageError(err.Error())
	}
	return n, true, nil
}

// AllNodes returns nodes in ascending id order; the executor never
// depends on which backend it runs against for ordering.
func (b *Backend) AllNodes(ctx context.Context, t storage.Tx) ([]models.Node, error) {
	var rows []graphNodeRow
	if err := b.conn(t).WithContext(ctx).Order("id asc").Find(&rows).Error; err != nil {
		return nil, gerr.NewStorageError(err.Error())
	}
	out := make([]models.Node, 0, len(rows))
	for _, row := range rows {
		n, err := decodeNode(row)
		if err != nil {
			return nil, gerr.NewStorageError(err.Error())
		}
		out = append(out, n)
	}
	return out, nil
}

func (b *Backend) DeleteNode(ctx context.Context, t storage.Tx, id models.NodeID) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	var incident int64
	if err := conn.WithContext(ctx).Model(&graphRelationshipRow{}).
		Where("src = ? OR dst = ?", uint64(id), uint64(id)).Count(&incident).Error; err != nil {
		return gerr.NewStorageError(err.Error())
	}
	if incident > 0 {
		return gerr.NewConstraintViolation("cannot delete node with incident relationships without DETACH")
	}
	res := conn.WithContext(ctx).Delete(&graphNodeRow{}, "id = ?", uint64(id))
	if res.Error != nil {
		return gerr.NewStorageError(res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return gerr.NewNotFound("node")
	}
	return nil
}

func (b *Backend) DetachDeleteNode(ctx context.Context, t storage.Tx, id models.NodeID) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	if err := conn.WithContext(ctx).
		Where("src = ? OR dst = ?", uint64(id), uint64(id)).
		Delete(&graphRelationshipRow{}).Error; err != nil {
		return gerr.NewStorageError(err.Error())
	}
	res := conn.WithContext(ctx).Delete(&graphNodeRow{}, "id = ?", uint64(id))
	if res.Error != nil {
		return gerr.NewStorageError(res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return gerr.NewNotFound("node")
	}
	return nil
}

func (b *Backend) SetNodeProperty(ctx context.Context, t storage.Tx, id models.NodeID, key string, value *models.Value) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	var row graphNodeRow
	if err := conn.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return gerr.NewNotFound("node")
		}
		return gerr.NewStorageError(err.Error())
	}
	props := models.PropertyMap{}
	if len(row.Properties) > 0 {
		_ = json.Unmarshal(row.Properties, &props)
	}
	if value == nil {
		delete(props, key)
	} else {
		props[key] = *value
	}
	propsB, err := json.Marshal(props)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}
	return execWithRetry(func() error {
		return conn.WithContext(ctx).Model(&graphNodeRow{}).Where("id = ?", uint64(id)).
			Update("properties", datatypes.JSON(propsB)).Error
	})
}

func (b *Backend) AddLabel(ctx context.Context, t storage.Tx, id models.NodeID, label string) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	var row graphNodeRow
	if err := conn.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return gerr.NewNotFound("node")
		}
		return gerr.NewStorageError(err.Error())
	}
	var labels []string
	if len(row.Labels) > 0 {
		_ = json.Unmarshal(row.Labels, &labels)
	}
	for _, l := range labels {
		if l == label {
			return nil
		}
	}
	labels = append(labels, label)
	labelsB, err := json.Marshal(labels)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}
	return conn.WithContext(ctx).Model(&graphNodeRow{}).Where("id = ?", uint64(id)).
		Update("labels", datatypes.JSON(labelsB)).Error
}

func (b *Backend) RemoveLabel(ctx context.Context, t storage.Tx, id models.NodeID, label string) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	var row graphNodeRow
	if err := conn.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return gerr.NewNotFound("node")
		}
		return gerr.NewStorageError(err.Error())
	}
	var labels []string
	if len(row.Labels) > 0 {
		_ = json.Unmarshal(row.Labels, &labels)
	}
	kept := labels[:0]
	for _, l := range labels {
		if l != label {
			kept = append(kept, l)
		}
	}
	labelsB, err := json.Marshal(kept)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}
	return conn.WithContext(ctx).Model(&graphNodeRow{}).Where("id = ?", uint64(id)).
		Update("labels", datatypes.JSON(labelsB)).Error
}

func (b *Backend) CreateRelationship(ctx context.Context, t storage.Tx, src, dst models.NodeID, relType string, props models.PropertyMap) (models.RelID, error) {
	conn, err := b.requireWrite(t)
	if err != nil {
		return 0, err
	}
	var srcCount, dstCount int64
	conn.WithContext(ctx).Model(&graphNodeRow{}).Where("id = ?", uint64(src)).Count(&srcCount)
	conn.WithContext(ctx).Model(&graphNodeRow{}).Where("id = ?", uint64(dst)).Count(&dstCount)
	if srcCount == 0 || dstCount == 0 {
		return 0, gerr.NewConstraintViolation("relationship endpoints must refer to live nodes")
	}
	propsB, err := json.Marshal(props)
	if err != nil {
		return 0, gerr.NewStorageError(err.Error())
	}
	row := graphRelationshipRow{Src: uint64(src), Dst: uint64(dst), Type: relType, Properties: datatypes.JSON(propsB)}
	if err := execWithRetry(func() error { return conn.WithContext(ctx).Create(&row).Error }); err != nil {
		return 0, gerr.NewStorageError(err.Error())
	}
	return models.RelID(row.ID), nil
}

func decodeRel(row graphRelationshipRow) (models.Relationship, error) {
	props := models.PropertyMap{}
	if len(row.Properties) > 0 {
		if err := json.Unmarshal(row.Properties, &props); err != nil {
			return models.Relationship{}, err
		}
	}
	return models.Relationship{
		ID: models.RelID(row.ID), Src: models.NodeID(row.Src), Dst: models.NodeID(row.Dst),
		Type: row.Type, Properties: props,
	}, nil
}

func (b *Backend) GetRelationship(ctx context.Context, t storage.Tx, id models.RelID) (models.Relationship, bool, error) {
	var row graphRelationshipRow
	if err := b.conn(t).WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.Relationship{}, false, nil
		}
		return models.Relationship{}, false, gerr.NewStorageError(err.Error())
	}
	rel, err := decodeRel(row)
	if err != nil {
		return models.Relationship{}, false, gerr.NewStorageError(err.Error())
	}
	return rel, true, nil
}

func (b *Backend) GetRelationships(ctx context.Context, t storage.Tx, node models.NodeID, dir models.Direction, typeFilter []string) ([]models.Relationship, error) {
	q := b.conn(t).WithContext(ctx).Model(&graphRelationshipRow{})
	switch dir {
	case models.Outgoing:
		q = q.Where("src = ?", uint64(node))
	case models.Incoming:
		q = q.Where("dst = ?", uint64(node))
	default:
		q = q.Where("src = ? OR dst = ?", uint64(node), uint64(node))
	}
	if len(typeFilter) > 0 {
		q = q.Where("type IN ?", typeFilter)
	}
	var rows []graphRelationshipRow
	if err := q.Order("id asc").Find(&rows).Error; err != nil {
		return nil, gerr.NewStorageError(err.Error())
	}
	out := make([]models.Relationship, 0, len(rows))
	for _, row := range rows {
		rel, err := decodeRel(row)
		if err != nil {
			return nil, gerr.NewStorageError(err.Error())
		}
		out = append(out, rel)
	}
	return out, nil
}

func (b *Backend) DeleteRelationship(ctx context.Context, t storage.Tx, id models.RelID) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	res := conn.WithContext(ctx).Delete(&graphRelationshipRow{}, "id = ?", uint64(id))
	if res.Error != nil {
		return gerr.NewStorageError(res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return gerr.NewNotFound("relationship")
	}
	return nil
}

func (b *Backend) SetRelProperty(ctx context.Context, t storage.Tx, id models.RelID, key string, value *models.Value) error {
	conn, err := b.requireWrite(t)
	if err != nil {
		return err
	}
	var row graphRelationshipRow
	if err := conn.WithContext(ctx).First(&row, "id = ?", uint64(id)).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return gerr.NewNotFound("relationship")
		}
		return gerr.NewStorageError(err.Error())
	}
	props := models.PropertyMap{}
	if len(row.Properties) > 0 {
		_ = json.Unmarshal(row.Properties, &props)
	}
	if value == nil {
		delete(props, key)
	} else {
		props[key] = *value
	}
	propsB, err := json.Marshal(props)
	if err != nil {
		return gerr.NewStorageError(err.Error())
	}
	return conn.WithContext(ctx).Model(&graphRelationshipRow{}).Where("id = ?", uint64(id)).
		Update("properties", datatypes.JSON(propsB)).Error
}

func (b *Backend) NodeCount(ctx context.Context, t storage.Tx) (int64, error) {
	var count int64
	if err := b.conn(t).WithContext(ctx).Model(&graphNodeRow{}).Count(&count).Error; err != nil {
		return 0, gerr.NewStorageError(err.Error())
	}
	return count, nil
}

func (b *Backend) RelationshipCount(ctx context.Context, t storage.Tx) (int64, error) {
	var count int64
	if err := b.conn(t).WithContext(ctx).Model(&graphRelationshipRow{}).Count(&count).Error; err != nil {
		return 0, gerr.NewStorageError(err.Error())
	}
	return count, nil
}

func (b *Backend) CreateIndex(ctx context.Context, name, label, property string, kind storage.IndexType) error {
	row := graphIndexRow{Name: name, Label: label, Property: property, Kind: int(kind), Unique: kind == storage.IndexUnique}
	if err := b.db.WithContext(ctx).Create(&row).Error; err != nil {
		return gerr.NewConstraintViolation(fmt.Sprintf("index %q already exists", name))
	}
	return nil
}

func (b *Backend) DropIndex(ctx context.Context, name string) error {
	res := b.db.WithContext(ctx).Delete(&graphIndexRow{}, "name = ?", name)
	if res.Error != nil {
		return gerr.NewStorageError(res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return gerr.NewNotFound("index")
	}
	return nil
}

// IndexLookup loads the node table and matches label membership and
// the property value in Go. JSON-path pushdown differs between SQLite's
// json_extract and Postgres's ->> operator, so the portable form stays
// client-side; the result set is the same as a scan+filter.
func (b *Backend) IndexLookup(ctx context.Context, t storage.Tx, label, property string, value models.Value) ([]models.NodeID, error) {
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

// Procedures exposes the backend's own procedure registry for embedders
// that want to register domain procedures against the SQL backend too.
func (b *Backend) Procedures() *procedure.Registry { return b.procs }

// Close releases the underlying database connection.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
