// Package storage defines the narrow, backend-agnostic contract every
// storage implementation must satisfy: transactional CRUD on nodes and
// relationships, index management, and procedure dispatch. The executor
// (internal/exec) is generic over this interface; internal/storage/memory
// is the mandatory in-memory reference backend and internal/storage/sqlstore
// is an additional GORM-backed implementation proving the contract is
// actually backend-agnostic.
package storage

import (
	"context"

	"github.com/adaworld/graphdb/models"
)

// TxMode distinguishes a read-only transaction from a read-write one.
type TxMode int

const (
	ReadOnly TxMode = iota
	ReadWrite
)

// Tx is an opaque handle to a backend transaction. Its only public
// surface is an id and its mode; backends type-assert or otherwise track their own
// internal state keyed by it.
type Tx interface {
	ID() uint64
	Mode() TxMode
}

// IndexType enumerates the index descriptor kinds.
type IndexType int

const (
	IndexBTree IndexType = iota
	IndexFullText
	IndexUnique
	IndexVector
)

// Capabilities is an informational bitset a backend reports about which
// contract features it actually backs with real behavior versus no-ops.
type Capabilities struct {
	Transactions bool
	Indexes      bool
	Procedures   bool
	VectorSearch bool
}

// ProcedureResult is the row stream a CALL dispatch returns: each row is
// a string-keyed map of output values, ordered positionally per the
// procedure's own declared columns (renamed by the statement's YIELD list
// one level up, in the executor).
type ProcedureResult struct {
	Columns []string
	Rows    []map[string]models.Value
}

// Backend is the full storage contract. Every method takes a Context
// first per the Go idiom for a suspendable operation: a call may
// legitimately block on a lock, a goroutine-scheduled I/O wait, or a
// real database round trip, and callers may cancel it via ctx.
type Backend interface {
	BeginTx(ctx context.Context, mode TxMode) (Tx, error)
	CommitTx(ctx context.Context, tx Tx) error
	RollbackTx(ctx context.Context, tx Tx) error

	CreateNode(ctx context.Context, tx Tx, labels []string, props models.PropertyMap) (models.NodeID, error)
	GetNode(ctx context.Context, tx Tx, id models.NodeID) (models.Node, bool, error)
	AllNodes(ctx context.Context, tx Tx) ([]models.Node, error)
	DeleteNode(ctx context.Context, tx Tx, id models.NodeID) error
	// DetachDeleteNode deletes every relationship incident to id, then
	// id itself, atomically with respect to the backend's own isolation
	// guarantees.
	DetachDeleteNode(ctx context.Context, tx Tx, id models.NodeID) error
	SetNodeProperty(ctx context.Context, tx Tx, id models.NodeID, key string, value *models.Value) error
	AddLabel(ctx context.Context, tx Tx, id models.NodeID, label string) error
	RemoveLabel(ctx context.Context, tx Tx, id models.NodeID, label string) error

	CreateRelationship(ctx context.Context, tx Tx, src, dst models.NodeID, relType string, props models.PropertyMap) (models.RelID, error)
	GetRelationship(ctx context.Context, tx Tx, id models.RelID) (models.Relationship, bool, error)
	GetRelationships(ctx context.Context, tx Tx, node models.NodeID, dir models.Direction, typeFilter []string) ([]models.Relationship, error)
	DeleteRelationship(ctx context.Context, tx Tx, id models.RelID) error
	SetRelProperty(ctx context.Context, tx Tx, id models.RelID, key string, value *models.Value) error

	NodeCount(ctx context.Context, tx Tx) (int64, error)
	RelationshipCount(ctx context.Context, tx Tx) (int64, error)

	CreateIndex(ctx context.Context, name, label, property string, kind IndexType) error
	DropIndex(ctx context.Context, name string) error
	IndexLookup(ctx context.Context, tx Tx, label, property string, value models.Value) ([]models.NodeID, error)

	Capabilities() Capabilities
	CallProcedure(ctx context.Context, tx Tx, name string, args []models.Value) (ProcedureResult, error)
}
