package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaworld/graphdb/internal/cypher/token"
)

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestLex_SimpleMatch(t *testing.T) {
	tokens, err := Lex("MATCH (n:Person) RETURN n")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.MATCH, token.LPAREN, token.IDENT, token.COLON, token.IDENT,
		token.RPAREN, token.RETURN, token.IDENT, token.EOF,
	}, kinds(tokens))
}

func TestLex_RelationshipPattern(t *testing.T) {
	tokens, err := Lex("(a)-[:KNOWS]->(b)")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.LPAREN, token.IDENT, token.RPAREN, token.DASH, token.LBRACKET,
		token.COLON, token.IDENT, token.RBRACKET, token.ARROW, token.LPAREN,
		token.IDENT, token.RPAREN, token.EOF,
	}, kinds(tokens))
}

func TestLex_StringLiteral(t *testing.T) {
	tokens, err := Lex("'hello world'")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.STRING, tokens[0].Kind)
	assert.Equal(t, "hello world", tokens[0].Text)
}

func TestLex_StringEscapes(t *testing.T) {
	tokens, err := Lex(`'it\'s a \\test\n'`)
	require.NoError(t, err)
	assert.Equal(t, "it's a \\test\n", tokens[0].Text)
}

func TestLex_Parameter(t *testing.T) {
	tokens, err := Lex("$name")
	require.NoError(t, err)
	assert.Equal(t, token.PARAMETER, tokens[0].Kind)
	assert.Equal(t, "name", tokens[0].Text)
	assert.Equal(t, 0, tokens[0].Span.Start)
	assert.Equal(t, 5, tokens[0].Span.End)
}

func TestLex_BlockComment(t *testing.T) {
	tokens, err := Lex("MATCH /* this is a comment */ (n) RETURN n")
	require.NoError(t, err)
	ks := kinds(tokens)
	assert.Equal(t, token.MATCH, ks[0])
	assert.Equal(t, token.LPAREN, ks[1])
}

func TestLex_BlockCommentMultiline(t *testing.T) {
	tokens, err := Lex("MATCH /* multi\nline\ncomment */ (n)")
	require.NoError(t, err)
	ks := kinds(tokens)
	assert.Contains(t, ks, token.MATCH)
	assert.Contains(t, ks, token.LPAREN)
}

func TestLex_UnterminatedBlockComment(t *testing.T) {
	_, err := Lex("MATCH /* unterminated")
	require.Error(t, err)
	gerr, ok := err.(interface{ Code() string })
	require.True(t, ok)
	assert.Equal(t, "SYNTAX_ERROR", gerr.Code())
}

func TestLex_UnterminatedString(t *testing.T) {
	_, err := Lex("'unterminated")
	require.Error(t, err)
}

func TestLex_LineComment(t *testing.T) {
	tokens, err := Lex("MATCH (n) // trailing comment\nRETURN n")
	require.NoError(t, err)
	ks := kinds(tokens)
	assert.Equal(t, []token.Kind{token.MATCH, token.LPAREN, token.IDENT, token.RPAREN, token.RETURN, token.IDENT, token.EOF}, ks)
}

func TestLex_Numbers(t *testing.T) {
	tokens, err := Lex("42 3.14 0")
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, token.INTEGER, tokens[0].Kind)
	assert.Equal(t, token.FLOAT, tokens[1].Kind)
	assert.Equal(t, token.INTEGER, tokens[2].Kind)
}

func TestLex_Operators(t *testing.T) {
	tokens, err := Lex("= <> < <= > >= + - * / % ^ += =~")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.DASH, token.STAR, token.SLASH, token.PERCENT,
		token.CARET, token.PLUSEQ, token.REGEX, token.EOF,
	}, kinds(tokens))
}

func TestLex_KeywordsCaseInsensitive(t *testing.T) {
	tokens, err := Lex("match Where return")
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.MATCH, token.WHERE, token.RETURN, token.EOF}, kinds(tokens))
}

func TestLex_UnexpectedCharacter(t *testing.T) {
	_, err := Lex("MATCH (n) # bad")
	require.Error(t, err)
}

// Idempotence: concatenating token texts with inter-token gaps reproduces
// the source, establishing spans are correct and non-overlapping.
func TestLex_SpansReconstructSource(t *testing.T) {
	src := "MATCH (n:Person {age: 30}) RETURN n.name"
	tokens, err := Lex(src)
	require.NoError(t, err)
	for _, tok := range tokens {
		if tok.Kind == token.EOF {
			continue
		}
		if tok.Kind == token.STRING || tok.Kind == token.PARAMETER {
			continue // text differs from span slice due to quoting/sigil
		}
		assert.Equal(t, tok.Text, src[tok.Span.Start:tok.Span.End], "span mismatch for %v", tok.Kind)
	}
}

func TestLex_Determinism(t *testing.T) {
	src := "MATCH (a)-[r:KNOWS*1..3]->(b) WHERE a.name =~ '^A' RETURN a, b"
	t1, err1 := Lex(src)
	t2, err2 := Lex(src)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, t1, t2)
}
