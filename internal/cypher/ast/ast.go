// Package ast defines the Cypher abstract syntax tree produced by the
// parser, one struct per statement, clause, pattern and expression node.
package ast

import "github.com/adaworld/graphdb/internal/cypher/token"

// Statement is the root of any parsed Cypher statement.
type Statement interface {
	statementNode()
	Pos() int
}

// Direction is a relationship-pattern's arrow direction.
type Direction int

const (
	DirOutgoing Direction = iota // -[...]->
	DirIncoming                  // <-[...]-
	DirEither                    // -[...]-
)

// VarLength is the optional `*min..max` repetition on a relationship
// pattern. Nil bounds mean "unbounded" on that side; a pattern with no
// `*` at all is represented by a nil *VarLength on RelPattern.
type VarLength struct {
	Min *int
	Max *int
}

// NodePattern is `( [alias] (:label)* [propMap] )`.
type NodePattern struct {
	Position   int
	Alias      string // "" if anonymous; planner assigns _anon_<n>
	Labels     []string
	Properties *MapLiteral // nil if absent
}

// RelPattern is `-[ [alias] (:type (|type)*)? (*varLength)? propMap? ]-`
// together with its direction.
type RelPattern struct {
	Position   int
	Alias      string
	Types      []string
	VarLength  *VarLength
	Direction  Direction
	Properties *MapLiteral
}

// PatternElement is one alternating slot in a Pattern: either a
// NodePattern or a RelPattern.
type PatternElement struct {
	Node *NodePattern
	Rel  *RelPattern
}

// Pattern is a non-empty chain of alternating node/relationship
// patterns, always starting and ending with a NodePattern.
type Pattern struct {
	Elements []PatternElement
}

// Nodes returns the node patterns in the chain, in order.
func (p Pattern) Nodes() []*NodePattern {
	var out []*NodePattern
	for _, e := range p.Elements {
		if e.Node != nil {
			out = append(out, e.Node)
		}
	}
	return out
}

// Rels returns the relationship patterns in the chain, in order.
func (p Pattern) Rels() []*RelPattern {
	var out []*RelPattern
	for _, e := range p.Elements {
		if e.Rel != nil {
			out = append(out, e.Rel)
		}
	}
	return out
}

// ---- Expressions ----

// Expr is any node in the expression tree.
type Expr interface {
	exprNode()
	Pos() int
}

type ExprBase struct{ Position int }

func (e ExprBase) Pos() int { return e.Position }

// Literal holds a parsed scalar/list/map constant.
type Literal struct {
	ExprBase
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
	// Kind == LitList / LitMap read List / MapLit instead.
	List   []Expr
	MapLit *MapLiteral
}

type LiteralKind int

const (
	LitNull LiteralKind = iota
	LitBool
	LitInt
	LitFloat
	LitString
	LitList
	LitMap
)

func (Literal) exprNode() {}

// MapLiteral is `{ key: expr, ... }`, order-preserving for deterministic
// re-serialization (e.g. by the exporter).
type MapLiteral struct {
	Position int
	Keys     []string
	Values   []Expr
}

func (m *MapLiteral) exprNode() {}
func (m *MapLiteral) Pos() int  { return m.Position }

// Parameter is `$name`.
type Parameter struct {
	ExprBase
	Name string
}

func (Parameter) exprNode() {}

// Ident is a bare variable reference.
type Ident struct {
	ExprBase
	Name string
}

func (Ident) exprNode() {}

// PropertyAccess is `expr.key`.
type PropertyAccess struct {
	ExprBase
	Target Expr
	Key    string
}

func (PropertyAccess) exprNode() {}

// LabelTest is `expr:Label`, evaluating to a boolean.
type LabelTest struct {
	ExprBase
	Target Expr
	Label  string
}

func (LabelTest) exprNode() {}

// IndexAccess is `expr[index]`.
type IndexAccess struct {
	ExprBase
	Target Expr
	Index  Expr
}

func (IndexAccess) exprNode() {}

// FuncCall is `name(args...)`, covering both scalar functions and
// aggregators (count, sum, avg, min, max, collect); Distinct marks
// `count(DISTINCT e)`-style forms.
type FuncCall struct {
	ExprBase
	Name     string
	Args     []Expr
	Distinct bool
	Star     bool // count(*)
}

func (FuncCall) exprNode() {}

// UnaryOp covers unary minus and NOT.
type UnaryOp struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

func (UnaryOp) exprNode() {}

// BinaryOp covers every left-associative binary operator plus the
// right-associative `^`.
type BinaryOp struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

func (BinaryOp) exprNode() {}

// NullCheck is `expr IS [NOT] NULL`.
type NullCheck struct {
	ExprBase
	Operand Expr
	Negated bool
}

func (NullCheck) exprNode() {}

// InExpr is `expr IN list_expr`.
type InExpr struct {
	ExprBase
	Operand Expr
	List    Expr
}

func (InExpr) exprNode() {}

// StringMatch covers STARTS WITH / ENDS WITH / CONTAINS / =~.
type StringMatchOp int

const (
	MatchStartsWith StringMatchOp = iota
	MatchEndsWith
	MatchContains
	MatchRegex
)

type StringMatch struct {
	ExprBase
	Op      StringMatchOp
	Operand Expr
	Pattern Expr
}

func (StringMatch) exprNode() {}

// CaseExpr is `CASE [test] WHEN cond/val THEN result ... [ELSE else] END`.
// Generic form: if Test is non-nil this is the simple-case form (compares
// Test against each When value); otherwise each When is a boolean guard.
type CaseWhen struct {
	When Expr
	Then Expr
}

type CaseExpr struct {
	ExprBase
	Test  Expr // nil for the searched-CASE form
	Whens []CaseWhen
	Else  Expr // nil if absent
}

func (CaseExpr) exprNode() {}

// ListExpr is a `[e1, e2, ...]` list constructor.
type ListExpr struct {
	ExprBase
	Items []Expr
}

func (ListExpr) exprNode() {}

// ---- Clauses ----

// MatchClause is one `[OPTIONAL] MATCH pattern_list [WHERE expr]`.
type MatchClause struct {
	Position int
	Optional bool
	Patterns []Pattern
	Where    Expr // nil if absent
}

// ReturnItem is one projected expression with an optional alias.
type ReturnItem struct {
	Expr  Expr
	Alias string // "" uses the expression's rendered text
}

// OrderItem is one `ORDER BY` key.
type OrderItem struct {
	Expr      Expr
	Ascending bool
}

// ReturnClause is `RETURN [DISTINCT] item_list [ORDER BY ...] [SKIP ...] [LIMIT ...]`.
type ReturnClause struct {
	Position int
	Distinct bool
	Items    []ReturnItem
	OrderBy  []OrderItem
	Skip     Expr // nil if absent; must be a literal integer
	Limit    Expr
}

// WithClause mirrors ReturnClause's projection/order/paging shape but
// continues the pipeline instead of terminating it.
type WithClause struct {
	Position int
	Distinct bool
	Items    []ReturnItem
	Where    Expr
	OrderBy  []OrderItem
	Skip     Expr
	Limit    Expr
}

// UnwindClause is `UNWIND expr AS alias`.
type UnwindClause struct {
	Position int
	Expr     Expr
	Alias    string
}

// CallClause is `CALL dotted_name(args) [YIELD ident_list]`.
type CallClause struct {
	Position int
	Name     string
	Args     []Expr
	Yield    []string // nil if YIELD omitted
}

// QueryPart is one of the clause kinds that can appear in the body of a
// Query statement, in source order.
type QueryPart struct {
	Match  *MatchClause
	With   *WithClause
	Unwind *UnwindClause
	Call   *CallClause
}

// Query is `(MATCH ...)+ (WITH ...)* RETURN ...`. Parts holds every
// MATCH/WITH/UNWIND/CALL clause in the order they appeared; Return is
// the mandatory terminal clause.
type Query struct {
	Position int
	Parts    []QueryPart
	Return   *ReturnClause
}

func (*Query) statementNode() {}
func (q *Query) Pos() int     { return q.Position }

// Create is `(MATCH ...)* CREATE pattern_list [RETURN ...]`. Leading
// MATCH clauses bind existing nodes the created pattern may reference
// by alias, the shape the dump exporter emits for relationships.
type Create struct {
	Position int
	Matches  []MatchClause
	Patterns []Pattern
	Return   *ReturnClause // nil if absent
}

func (*Create) statementNode() {}
func (c *Create) Pos() int     { return c.Position }

// SetItem is `variable.key = expr`, the only SET shape this subset
// supports; other shapes are a PlanError.
type SetItem struct {
	Variable string
	Key      string
	Value    Expr
}

// Merge is `MERGE pattern [ON CREATE SET ...] [ON MATCH SET ...] [RETURN ...]`.
type Merge struct {
	Position int
	Pattern  Pattern
	OnCreate []SetItem
	OnMatch  []SetItem
	Return   *ReturnClause
}

func (*Merge) statementNode() {}
func (m *Merge) Pos() int     { return m.Position }

// Delete is `(MATCH ...)* [WHERE ...] [DETACH] DELETE id_list`.
type Delete struct {
	Position int
	Matches  []MatchClause
	Detach   bool
	Targets  []Expr // identifiers (or expressions resolving to node/rel values)
}

func (*Delete) statementNode() {}
func (d *Delete) Pos() int     { return d.Position }

// Set is `(MATCH ...)* [WHERE ...] SET set_items [RETURN ...]`.
type Set struct {
	Position int
	Matches  []MatchClause
	Items    []SetItem
	Return   *ReturnClause
}

func (*Set) statementNode() {}
func (s *Set) Pos() int     { return s.Position }

// RemoveItem is either `variable.key` (drop a property) or
// `variable:Label` (drop a label).
type RemoveItem struct {
	Variable string
	Key      string // "" if this is a label removal
	Label    string // "" if this is a property removal
}

// Remove is `(MATCH ...)* [WHERE ...] REMOVE remove_items [RETURN ...]`.
type Remove struct {
	Position int
	Matches  []MatchClause
	Items    []RemoveItem
	Return   *ReturnClause
}

func (*Remove) statementNode() {}
func (r *Remove) Pos() int     { return r.Position }

// SchemaKind distinguishes the four schema command shapes.
type SchemaKind int

const (
	SchemaCreateIndex SchemaKind = iota
	SchemaDropIndex
	SchemaCreateConstraint
	SchemaDropConstraint
)

// Schema is `(CREATE|DROP) (INDEX|CONSTRAINT) FOR node_pattern ON property_ref`.
type Schema struct {
	Position int
	Kind     SchemaKind
	Label    string
	Property string
	Unique   bool // CONSTRAINT forms only
}

func (*Schema) statementNode() {}
func (s *Schema) Pos() int     { return s.Position }
