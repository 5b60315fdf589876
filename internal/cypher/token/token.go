// Package token defines the Cypher lexer's token kinds and source spans.
package token

import "strings"

// Kind identifies a token's lexical category.
type Kind int

const (
	EOF Kind = iota

	// Keywords
	MATCH
	OPTIONAL
	WHERE
	RETURN
	WITH
	UNWIND
	CREATE
	MERGE
	DELETE
	DETACH
	SET
	REMOVE
	ORDER
	BY
	SKIP
	LIMIT
	ASC
	DESC
	DISTINCT
	AND
	OR
	NOT
	XOR
	IS
	NULL
	TRUE
	FALSE
	IN
	AS
	CASE
	WHEN
	THEN
	ELSE
	END
	EXISTS
	INDEX
	CONSTRAINT
	DROP
	ON
	FOR
	CALL
	YIELD
	STARTS
	ENDS
	CONTAINS
	UNIQUE

	// Literals
	INTEGER
	FLOAT
	STRING

	// Identifiers and parameters
	IDENT
	PARAMETER

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	DOT
	COMMA
	COLON
	SEMICOLON
	PIPE
	STAR
	ARROW  // ->
	LARROW // <-
	DASH   // -
	DOTDOT // ..

	// Operators
	EQ    // =
	NEQ   // <>
	LT    // <
	LTE   // <=
	GT    // >
	GTE   // >=
	PLUS  // + (DASH doubles as the binary minus operator; see parser)
	SLASH // /
	PERCENT
	CARET
	PLUSEQ // +=
	REGEX  // =~
)

var keywords = map[string]Kind{
	"MATCH": MATCH, "OPTIONAL": OPTIONAL, "WHERE": WHERE, "RETURN": RETURN,
	"WITH": WITH, "UNWIND": UNWIND, "CREATE": CREATE, "MERGE": MERGE,
	"DELETE": DELETE, "DETACH": DETACH, "SET": SET, "REMOVE": REMOVE,
	"ORDER": ORDER, "BY": BY, "SKIP": SKIP, "LIMIT": LIMIT,
	"ASC": ASC, "ASCENDING": ASC, "DESC": DESC, "DESCENDING": DESC,
	"DISTINCT": DISTINCT, "AND": AND, "OR": OR, "NOT": NOT, "XOR": XOR,
	"IS": IS, "NULL": NULL, "TRUE": TRUE, "FALSE": FALSE, "IN": IN,
	"AS": AS, "CASE": CASE, "WHEN": WHEN, "THEN": THEN, "ELSE": ELSE,
	"END": END, "EXISTS": EXISTS, "INDEX": INDEX, "CONSTRAINT": CONSTRAINT,
	"DROP": DROP, "ON": ON, "FOR": FOR, "CALL": CALL, "YIELD": YIELD,
	"STARTS": STARTS, "ENDS": ENDS, "CONTAINS": CONTAINS, "UNIQUE": UNIQUE,
}

// Lookup classifies an identifier as a keyword (case-insensitively) or
// returns IDENT.
func Lookup(ident string) Kind {
	if kind, ok := keywords[strings.ToUpper(ident)]; ok {
		return kind
	}
	return IDENT
}

// Span is a byte-offset range into the source, start-inclusive/end-exclusive.
type Span struct {
	Start int
	End   int
}

// Token is one lexical unit: its kind, literal text, and source span.
type Token struct {
	Kind Kind
	Text string
	Span Span
}

var names = map[Kind]string{
	EOF: "EOF", MATCH: "MATCH", OPTIONAL: "OPTIONAL", WHERE: "WHERE",
	RETURN: "RETURN", WITH: "WITH", UNWIND: "UNWIND", CREATE: "CREATE",
	MERGE: "MERGE", DELETE: "DELETE", DETACH: "DETACH", SET: "SET",
	REMOVE: "REMOVE", ORDER: "ORDER", BY: "BY", SKIP: "SKIP", LIMIT: "LIMIT",
	ASC: "ASC", DESC: "DESC", DISTINCT: "DISTINCT", AND: "AND", OR: "OR",
	NOT: "NOT", XOR: "XOR", IS: "IS", NULL: "NULL", TRUE: "TRUE",
	FALSE: "FALSE", IN: "IN", AS: "AS", CASE: "CASE", WHEN: "WHEN",
	THEN: "THEN", ELSE: "ELSE", END: "END", EXISTS: "EXISTS", INDEX: "INDEX",
	CONSTRAINT: "CONSTRAINT", DROP: "DROP", ON: "ON", FOR: "FOR", CALL: "CALL",
	YIELD: "YIELD", STARTS: "STARTS", ENDS: "ENDS", CONTAINS: "CONTAINS",
	UNIQUE:  "UNIQUE",
	INTEGER: "INTEGER", FLOAT: "FLOAT", STRING: "STRING", IDENT: "IDENT",
	PARAMETER: "PARAMETER", LPAREN: "(", RPAREN: ")", LBRACKET: "[",
	RBRACKET: "]", LBRACE: "{", RBRACE: "}", DOT: ".", COMMA: ",",
	COLON: ":", SEMICOLON: ";", PIPE: "|", STAR: "*", ARROW: "->",
	LARROW: "<-", DASH: "-", DOTDOT: "..", EQ: "=", NEQ: "<>", LT: "<",
	LTE: "<=", GT: ">", GTE: ">=", PLUS: "+", SLASH: "/", PERCENT: "%",
	CARET: "^", PLUSEQ: "+=", REGEX: "=~",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "UNKNOWN"
}
