// Package parser is the recursive-descent, one-token-lookahead Cypher
// parser: statements, patterns, and a precedence-climbing expression
// grammar, with no backtracking.
package parser

import (
	"fmt"
	"strconv"

	"github.com/adaworld/graphdb/internal/cypher/ast"
	"github.com/adaworld/graphdb/internal/cypher/lexer"
	"github.com/adaworld/graphdb/internal/cypher/token"
	"github.com/adaworld/graphdb/internal/gerr"
)

type parser struct {
	tokens []token.Token
	pos    int
}

// Parse lexes and parses a single Cypher statement.
func Parse(src string) (ast.Statement, error) {
	tokens, err := lexer.Lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == token.SEMICOLON {
		p.advance()
	}
	if p.cur().Kind != token.EOF {
		return nil, p.errorf("unexpected trailing input")
	}
	return stmt, nil
}

func (p *parser) cur() token.Token { return p.tokens[p.pos] }
func (p *parser) advance() token.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *parser) errorf(format string, args ...any) error {
	return gerr.NewSyntaxError(p.cur().Span.Start, fmt.Sprintf(format, args...))
}

// expect consumes the current token if it matches k, otherwise reports
// a SyntaxError citing its span start.
func (p *parser) expect(k token.Kind) (token.Token, error) {
	if p.cur().Kind != k {
		return token.Token{}, gerr.NewSyntaxError(p.cur().Span.Start,
			"expected "+k.String()+", found "+p.cur().Kind.String())
	}
	return p.advance(), nil
}

func (p *parser) parseStatement() (ast.Statement, error) {
	switch p.cur().Kind {
	case token.CREATE:
		if p.peekIsSchema() {
			return p.parseSchema()
		}
		return p.parseCreate(nil)
	case token.DROP:
		return p.parseSchema()
	case token.MERGE:
		return p.parseMerge()
	case token.MATCH, token.OPTIONAL:
		return p.parseMatchLeadStatement()
	case token.UNWIND, token.CALL, token.WITH, token.RETURN:
		return p.parseQuery(p.cur().Span.Start, nil)
	case token.DELETE, token.DETACH:
		return p.parseDelete(nil)
	case token.SET:
		return p.parseSet(nil)
	case token.REMOVE:
		return p.parseRemove(nil)
	default:
		return nil, p.errorf("unexpected token at start of statement: %s", p.cur().Kind.String())
	}
}

// peekIsSchema distinguishes `CREATE INDEX ...` / `CREATE CONSTRAINT ...`
// from a pattern-creating `CREATE (...)`.
func (p *parser) peekIsSchema() bool {
	if p.pos+1 >= len(p.tokens) {
		return false
	}
	k := p.tokens[p.pos+1].Kind
	return k == token.INDEX || k == token.CONSTRAINT
}

func (p *parser) parseSchema() (*ast.Schema, error) {
	start := p.cur().Span.Start
	var kind ast.SchemaKind
	// A CONSTRAINT is always a unique constraint over (label, property).
	unique := false
	switch p.advance().Kind {
	case token.CREATE:
		switch p.advance().Kind {
		case token.INDEX:
			kind = ast.SchemaCreateIndex
		case token.CONSTRAINT:
			kind = ast.SchemaCreateConstraint
			unique = true
		default:
			return nil, p.errorf("expected INDEX or CONSTRAINT")
		}
	case token.DROP:
		switch p.advance().Kind {
		case token.INDEX:
			kind = ast.SchemaDropIndex
		case token.CONSTRAINT:
			kind = ast.SchemaDropConstraint
			unique = true
		default:
			return nil, p.errorf("expected INDEX or CONSTRAINT")
		}
	default:
		return nil, p.errorf("expected CREATE or DROP")
	}

	if _, err := p.expect(token.FOR); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if p.at(token.IDENT) {
		p.advance() // alias, unused
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	label, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ON); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IDENT); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.DOT); err != nil {
		return nil, err
	}
	prop, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return &ast.Schema{Position: start, Kind: kind, Label: label.Text, Property: prop.Text, Unique: unique}, nil
}

func (p *parser) parseCreate(matches []ast.MatchClause) (*ast.Create, error) {
	start := p.cur().Span.Start
	if len(matches) > 0 {
		start = matches[0].Position
	}
	p.advance() // CREATE
	patterns, err := p.parsePatternList()
	if err != nil {
		return nil, err
	}
	ret, err := p.parseOptionalReturn()
	if err != nil {
		return nil, err
	}
	return &ast.Create{Position: start, Matches: matches, Patterns: patterns, Return: ret}, nil
}

func (p *parser) parseMerge() (*ast.Merge, error) {
	start := p.advance().Span.Start // MERGE
	pat, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	m := &ast.Merge{Position: start, Pattern: pat}
	for p.at(token.ON) {
		p.advance()
		switch p.advance().Kind {
		case token.CREATE:
			items, err := p.parseSetItemsAfterSet()
			if err != nil {
				return nil, err
			}
			m.OnCreate = items
		case token.MATCH:
			items, err := p.parseSetItemsAfterSet()
			if err != nil {
				return nil, err
			}
			m.OnMatch = items
		default:
			return nil, p.errorf("expected CREATE or MATCH after ON")
		}
	}
	ret, err := p.parseOptionalReturn()
	if err != nil {
		return nil, err
	}
	m.Return = ret
	return m, nil
}

// parseSetItemsAfterSet parses `SET item, item, ...` where the leading
// SET keyword is still unconsumed.
func (p *parser) parseSetItemsAfterSet() ([]ast.SetItem, error) {
	if _, err := p.expect(token.SET); err != nil {
		return nil, err
	}
	return p.parseSetItems()
}

func (p *parser) parseSetItems() ([]ast.SetItem, error) {
	var items []ast.SetItem
	for {
		item, err := p.parseSetItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	return items, nil
}

func (p *parser) parseSetItem() (ast.SetItem, error) {
	variable, err := p.expect(token.IDENT)
	if err != nil {
		return ast.SetItem{}, err
	}
	if _, err := p.expect(token.DOT); err != nil {
		return ast.SetItem{}, err
	}
	key, err := p.expect(token.IDENT)
	if err != nil {
		return ast.SetItem{}, err
	}
	if _, err := p.expect(token.EQ); err != nil {
		return ast.SetItem{}, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return ast.SetItem{}, err
	}
	return ast.SetItem{Variable: variable.Text, Key: key.Text, Value: value}, nil
}

// parseMatchLeadStatement parses the family of statements that begin
// with one or more MATCH clauses: Query, Delete, Set, Remove, Create.
func (p *parser) parseMatchLeadStatement() (ast.Statement, error) {
	start := p.cur().Span.Start
	var matches []ast.MatchClause
	for p.at(token.MATCH) || p.at(token.OPTIONAL) {
		m, err := p.parseMatchClause()
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}

	switch p.cur().Kind {
	case token.DELETE, token.DETACH:
		return p.parseDelete(matches)
	case token.SET:
		return p.parseSet(matches)
	case token.REMOVE:
		return p.parseRemove(matches)
	case token.CREATE:
		return p.parseCreate(matches)
	case token.WITH, token.UNWIND, token.CALL, token.RETURN:
		return p.parseQuery(start, matches)
	default:
		return nil, p.errorf("expected WITH, UNWIND, CALL, RETURN, CREATE, SET, REMOVE or DELETE after MATCH")
	}
}

func (p *parser) parseQuery(start int, leading []ast.MatchClause) (*ast.Query, error) {
	var parts []ast.QueryPart
	for _, m := range leading {
		mm := m
		parts = append(parts, ast.QueryPart{Match: &mm})
	}
	for {
		switch p.cur().Kind {
		case token.MATCH, token.OPTIONAL:
			m, err := p.parseMatchClause()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.QueryPart{Match: &m})
		case token.WITH:
			w, err := p.parseWithClause()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.QueryPart{With: w})
		case token.UNWIND:
			u, err := p.parseUnwindClause()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.QueryPart{Unwind: u})
		case token.CALL:
			c, err := p.parseCallClause()
			if err != nil {
				return nil, err
			}
			parts = append(parts, ast.QueryPart{Call: c})
		case token.RETURN:
			ret, err := p.parseReturnClause()
			if err != nil {
				return nil, err
			}
			return &ast.Query{Position: start, Parts: parts, Return: ret}, nil
		default:
			return nil, p.errorf("expected MATCH, WITH, UNWIND, CALL or RETURN")
		}
	}
}

func (p *parser) parseDelete(matches []ast.MatchClause) (*ast.Delete, error) {
	start := p.cur().Span.Start
	if len(matches) > 0 {
		start = matches[0].Position
	}
	detach := false
	if p.at(token.DETACH) {
		p.advance()
		detach = true
	}
	if _, err := p.expect(token.DELETE); err != nil {
		return nil, err
	}
	var targets []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		targets = append(targets, e)
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	return &ast.Delete{Position: start, Matches: matches, Detach: detach, Targets: targets}, nil
}

func (p *parser) parseSet(matches []ast.MatchClause) (*ast.Set, error) {
	start := p.cur().Span.Start
	if len(matches) > 0 {
		start = matches[0].Position
	}
	items, err := p.parseSetItemsAfterSet()
	if err != nil {
		return nil, err
	}
	ret, err := p.parseOptionalReturn()
	if err != nil {
		return nil, err
	}
	return &ast.Set{Position: start, Matches: matches, Items: items, Return: ret}, nil
}

func (p *parser) parseRemove(matches []ast.MatchClause) (*ast.Remove, error) {
	start := p.cur().Span.Start
	if len(matches) > 0 {
		start = matches[0].Position
	}
	if _, err := p.expect(token.REMOVE); err != nil {
		return nil, err
	}
	var items []ast.RemoveItem
	for {
		variable, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		switch p.cur().Kind {
		case token.DOT:
			p.advance()
			key, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			items = append(items, ast.RemoveItem{Variable: variable.Text, Key: key.Text})
		case token.COLON:
			p.advance()
			label, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			items = append(items, ast.RemoveItem{Variable: variable.Text, Label: label.Text})
		default:
			return nil, p.errorf("expected '.' or ':' after REMOVE target")
		}
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	ret, err := p.parseOptionalReturn()
	if err != nil {
		return nil, err
	}
	return &ast.Remove{Position: start, Matches: matches, Items: items, Return: ret}, nil
}

func (p *parser) parseOptionalReturn() (*ast.ReturnClause, error) {
	if !p.at(token.RETURN) {
		return nil, nil
	}
	return p.parseReturnClause()
}

func (p *parser) parseMatchClause() (ast.MatchClause, error) {
	start := p.cur().Span.Start
	optional := false
	if p.at(token.OPTIONAL) {
		p.advance()
		optional = true
	}
	if _, err := p.expect(token.MATCH); err != nil {
		return ast.MatchClause{}, err
	}
	patterns, err := p.parsePatternList()
	if err != nil {
		return ast.MatchClause{}, err
	}
	var where ast.Expr
	if p.at(token.WHERE) {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return ast.MatchClause{}, err
		}
	}
	return ast.MatchClause{Position: start, Optional: optional, Patterns: patterns, Where: where}, nil
}

func (p *parser) parseWithClause() (*ast.WithClause, error) {
	start := p.advance().Span.Start // WITH
	distinct := false
	if p.at(token.DISTINCT) {
		p.advance()
		distinct = true
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	w := &ast.WithClause{Position: start, Distinct: distinct, Items: items}
	if p.at(token.WHERE) {
		p.advance()
		w.Where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	order, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	w.OrderBy, w.Skip, w.Limit = order, skip, limit
	return w, nil
}

func (p *parser) parseUnwindClause() (*ast.UnwindClause, error) {
	start := p.advance().Span.Start // UNWIND
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AS); err != nil {
		return nil, err
	}
	alias, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	return &ast.UnwindClause{Position: start, Expr: e, Alias: alias.Text}, nil
}

func (p *parser) parseCallClause() (*ast.CallClause, error) {
	start := p.advance().Span.Start // CALL
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	name := nameTok.Text
	for p.at(token.DOT) {
		p.advance()
		part, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		name += "." + part.Text
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.at(token.RPAREN) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	c := &ast.CallClause{Position: start, Name: name, Args: args}
	if p.at(token.YIELD) {
		p.advance()
		for {
			id, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			c.Yield = append(c.Yield, id.Text)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	return c, nil
}

func (p *parser) parseReturnClause() (*ast.ReturnClause, error) {
	start := p.advance().Span.Start // RETURN
	distinct := false
	if p.at(token.DISTINCT) {
		p.advance()
		distinct = true
	}
	items, err := p.parseReturnItems()
	if err != nil {
		return nil, err
	}
	r := &ast.ReturnClause{Position: start, Distinct: distinct, Items: items}
	order, skip, limit, err := p.parseOrderSkipLimit()
	if err != nil {
		return nil, err
	}
	r.OrderBy, r.Skip, r.Limit = order, skip, limit
	return r, nil
}

func (p *parser) parseReturnItems() ([]ast.ReturnItem, error) {
	var items []ast.ReturnItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		alias := ""
		if p.at(token.AS) {
			p.advance()
			id, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			alias = id.Text
		}
		items = append(items, ast.ReturnItem{Expr: e, Alias: alias})
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	return items, nil
}

func (p *parser) parseOrderSkipLimit() ([]ast.OrderItem, ast.Expr, ast.Expr, error) {
	var order []ast.OrderItem
	var skip, limit ast.Expr
	var err error

	if p.at(token.ORDER) {
		p.advance()
		if _, err = p.expect(token.BY); err != nil {
			return nil, nil, nil, err
		}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, nil, nil, err
			}
			asc := true
			if p.at(token.ASC) {
				p.advance()
			} else if p.at(token.DESC) {
				p.advance()
				asc = false
			}
			order = append(order, ast.OrderItem{Expr: e, Ascending: asc})
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if p.at(token.SKIP) {
		p.advance()
		skip, err = p.parseExpr()
		if err != nil {
			return nil, nil, nil, err
		}
	}
	if p.at(token.LIMIT) {
		p.advance()
		limit, err = p.parseExpr()
		if err != nil {
			return nil, nil, nil, err
		}
	}
	return order, skip, limit, nil
}

// ---- Patterns ----

func (p *parser) parsePatternList() ([]ast.Pattern, error) {
	var patterns []ast.Pattern
	for {
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}
	return patterns, nil
}

func (p *parser) parsePattern() (ast.Pattern, error) {
	node, err := p.parseNodePattern()
	if err != nil {
		return ast.Pattern{}, err
	}
	pat := ast.Pattern{Elements: []ast.PatternElement{{Node: node}}}
	for p.at(token.DASH) || p.at(token.LARROW) {
		rel, err := p.parseRelPattern()
		if err != nil {
			return ast.Pattern{}, err
		}
		nextNode, err := p.parseNodePattern()
		if err != nil {
			return ast.Pattern{}, err
		}
		pat.Elements = append(pat.Elements, ast.PatternElement{Rel: rel}, ast.PatternElement{Node: nextNode})
	}
	return pat, nil
}

func (p *parser) parseNodePattern() (*ast.NodePattern, error) {
	start := p.cur().Span.Start
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	n := &ast.NodePattern{Position: start}
	if p.at(token.IDENT) {
		n.Alias = p.advance().Text
	}
	for p.at(token.COLON) {
		p.advance()
		lbl, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		n.Labels = append(n.Labels, lbl.Text)
	}
	if p.at(token.LBRACE) {
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		n.Properties = m
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return n, nil
}

// parseRelPattern parses one of `-[...]->`, `<-[...]-`, `-[...]-`.
func (p *parser) parseRelPattern() (*ast.RelPattern, error) {
	start := p.cur().Span.Start
	leftArrow := false
	if p.at(token.LARROW) {
		p.advance()
		leftArrow = true
	} else {
		if _, err := p.expect(token.DASH); err != nil {
			return nil, err
		}
	}

	r := &ast.RelPattern{Position: start}
	if p.at(token.LBRACKET) {
		p.advance()
		if p.at(token.IDENT) {
			r.Alias = p.advance().Text
		}
		if p.at(token.COLON) {
			p.advance()
			t, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			r.Types = append(r.Types, t.Text)
			for p.at(token.PIPE) {
				p.advance()
				t, err := p.expect(token.IDENT)
				if err != nil {
					return nil, err
				}
				r.Types = append(r.Types, t.Text)
			}
		}
		if p.at(token.STAR) {
			p.advance()
			vl, err := p.parseVarLength()
			if err != nil {
				return nil, err
			}
			r.VarLength = vl
		}
		if p.at(token.LBRACE) {
			m, err := p.parseMapLiteral()
			if err != nil {
				return nil, err
			}
			r.Properties = m
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
	}

	if leftArrow {
		if _, err := p.expect(token.DASH); err != nil {
			return nil, err
		}
		r.Direction = ast.DirIncoming
		return r, nil
	}

	if p.at(token.ARROW) {
		p.advance()
		r.Direction = ast.DirOutgoing
		return r, nil
	}
	if _, err := p.expect(token.DASH); err != nil {
		return nil, err
	}
	r.Direction = ast.DirEither
	return r, nil
}

// parseVarLength parses `min? '..' max? | integer` following a `*`.
func (p *parser) parseVarLength() (*ast.VarLength, error) {
	vl := &ast.VarLength{}
	if p.at(token.INTEGER) {
		n, err := p.parseIntLiteralTok()
		if err != nil {
			return nil, err
		}
		if p.at(token.DOTDOT) {
			vl.Min = &n
			p.advance()
			if p.at(token.INTEGER) {
				m, err := p.parseIntLiteralTok()
				if err != nil {
					return nil, err
				}
				vl.Max = &m
			}
			return vl, nil
		}
		vl.Min, vl.Max = &n, &n
		return vl, nil
	}
	if p.at(token.DOTDOT) {
		p.advance()
		if p.at(token.INTEGER) {
			m, err := p.parseIntLiteralTok()
			if err != nil {
				return nil, err
			}
			vl.Max = &m
		}
		return vl, nil
	}
	return vl, nil // bare `*`: unbounded
}

func (p *parser) parseIntLiteralTok() (int, error) {
	tok, err := p.expect(token.INTEGER)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(tok.Text)
	if convErr != nil {
		return 0, gerr.NewSyntaxError(tok.Span.Start, "invalid integer literal: "+tok.Text)
	}
	return n, nil
}

func (p *parser) parseMapLiteral() (*ast.MapLiteral, error) {
	start := p.cur().Span.Start
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	m := &ast.MapLiteral{Position: start}
	if !p.at(token.RBRACE) {
		for {
			key, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.COLON); err != nil {
				return nil, err
			}
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			m.Keys = append(m.Keys, key.Text)
			m.Values = append(m.Values, val)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return m, nil
}

// ---- Expressions: precedence-climbing ----
//
// Precedence low→high: OR, XOR, AND, NOT, comparison, additive,
// multiplicative, power (right-assoc), unary, postfix, atom.

func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) {
		pos := p.advance().Span.Start
		right, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.ExprBase{Position: pos}, Op: token.OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseXor() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.XOR) {
		pos := p.advance().Span.Start
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.ExprBase{Position: pos}, Op: token.XOR, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		pos := p.advance().Span.Start
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.ExprBase{Position: pos}, Op: token.AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (ast.Expr, error) {
	if p.at(token.NOT) {
		pos := p.advance().Span.Start
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{ExprBase: ast.ExprBase{Position: pos}, Op: token.NOT, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
			op := p.advance()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.BinaryOp{ExprBase: ast.ExprBase{Position: op.Span.Start}, Op: op.Kind, Left: left, Right: right}
		case token.IS:
			pos := p.advance().Span.Start
			negated := false
			if p.at(token.NOT) {
				p.advance()
				negated = true
			}
			if _, err := p.expect(token.NULL); err != nil {
				return nil, err
			}
			left = &ast.NullCheck{ExprBase: ast.ExprBase{Position: pos}, Operand: left, Negated: negated}
		case token.IN:
			pos := p.advance().Span.Start
			list, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.InExpr{ExprBase: ast.ExprBase{Position: pos}, Operand: left, List: list}
		case token.STARTS:
			pos := p.advance().Span.Start
			if _, err := p.expectIdentKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.StringMatch{ExprBase: ast.ExprBase{Position: pos}, Op: ast.MatchStartsWith, Operand: left, Pattern: right}
		case token.ENDS:
			pos := p.advance().Span.Start
			if _, err := p.expectIdentKeyword("WITH"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.StringMatch{ExprBase: ast.ExprBase{Position: pos}, Op: ast.MatchEndsWith, Operand: left, Pattern: right}
		case token.CONTAINS:
			pos := p.advance().Span.Start
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.StringMatch{ExprBase: ast.ExprBase{Position: pos}, Op: ast.MatchContains, Operand: left, Pattern: right}
		case token.REGEX:
			pos := p.advance().Span.Start
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = &ast.StringMatch{ExprBase: ast.ExprBase{Position: pos}, Op: ast.MatchRegex, Operand: left, Pattern: right}
		default:
			return left, nil
		}
	}
}

// expectIdentKeyword handles the two-word operators ENDS WITH / STARTS
// WITH, where WITH is lexed as the WITH keyword token, not IDENT.
func (p *parser) expectIdentKeyword(word string) (token.Token, error) {
	if word == "WITH" && p.at(token.WITH) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorf("expected %s", word)
}

func (p *parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.DASH) {
		op := p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.ExprBase{Position: op.Span.Start}, Op: op.Kind, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		op := p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{ExprBase: ast.ExprBase{Position: op.Span.Start}, Op: op.Kind, Left: left, Right: right}
	}
	return left, nil
}

// parsePower is right-associative: recurse on itself for the RHS.
func (p *parser) parsePower() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.at(token.CARET) {
		op := p.advance()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryOp{ExprBase: ast.ExprBase{Position: op.Span.Start}, Op: token.CARET, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.at(token.DASH) {
		pos := p.advance().Span.Start
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{ExprBase: ast.ExprBase{Position: pos}, Op: token.DASH, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.DOT:
			pos := p.advance().Span.Start
			key, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &ast.PropertyAccess{ExprBase: ast.ExprBase{Position: pos}, Target: expr, Key: key.Text}
		case token.COLON:
			pos := p.advance().Span.Start
			label, err := p.expect(token.IDENT)
			if err != nil {
				return nil, err
			}
			expr = &ast.LabelTest{ExprBase: ast.ExprBase{Position: pos}, Target: expr, Label: label.Text}
		case token.LBRACKET:
			pos := p.advance().Span.Start
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			expr = &ast.IndexAccess{ExprBase: ast.ExprBase{Position: pos}, Target: expr, Index: idx}
		default:
			return expr, nil
		}
	}
}

func (p *parser) parseAtom() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.INTEGER:
		p.advance()
		n, err := strconv.ParseInt(tok.Text, 10, 64)
		if err != nil {
			return nil, gerr.NewSyntaxError(tok.Span.Start, "invalid integer literal: "+tok.Text)
		}
		return &ast.Literal{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Kind: ast.LitInt, Int: n}, nil
	case token.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, gerr.NewSyntaxError(tok.Span.Start, "invalid float literal: "+tok.Text)
		}
		return &ast.Literal{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Kind: ast.LitFloat, Float: f}, nil
	case token.STRING:
		p.advance()
		return &ast.Literal{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Kind: ast.LitString, Str: tok.Text}, nil
	case token.TRUE:
		p.advance()
		return &ast.Literal{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Kind: ast.LitBool, Bool: true}, nil
	case token.FALSE:
		p.advance()
		return &ast.Literal{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Kind: ast.LitBool, Bool: false}, nil
	case token.NULL:
		p.advance()
		return &ast.Literal{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Kind: ast.LitNull}, nil
	case token.PARAMETER:
		p.advance()
		return &ast.Parameter{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Name: tok.Text}, nil
	case token.LBRACKET:
		return p.parseListExpr()
	case token.LBRACE:
		m, err := p.parseMapLiteral()
		if err != nil {
			return nil, err
		}
		return &ast.Literal{ExprBase: ast.ExprBase{Position: m.Position}, Kind: ast.LitMap, MapLit: m}, nil
	case token.CASE:
		return p.parseCaseExpr()
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	case token.IDENT:
		return p.parseIdentOrCall()
	default:
		return nil, p.errorf("unexpected token in expression: %s", tok.Kind.String())
	}
}

func (p *parser) parseIdentOrCall() (ast.Expr, error) {
	tok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if !p.at(token.LPAREN) {
		return &ast.Ident{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Name: tok.Text}, nil
	}
	p.advance() // LPAREN
	call := &ast.FuncCall{ExprBase: ast.ExprBase{Position: tok.Span.Start}, Name: tok.Text}
	if p.at(token.DISTINCT) {
		p.advance()
		call.Distinct = true
	}
	if p.at(token.STAR) {
		p.advance()
		call.Star = true
	} else if !p.at(token.RPAREN) {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, a)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	return call, nil
}

func (p *parser) parseListExpr() (ast.Expr, error) {
	start := p.advance().Span.Start // '['
	l := &ast.ListExpr{ExprBase: ast.ExprBase{Position: start}}
	if !p.at(token.RBRACKET) {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			l.Items = append(l.Items, e)
			if !p.at(token.COMMA) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(token.RBRACKET); err != nil {
		return nil, err
	}
	return l, nil
}

func (p *parser) parseCaseExpr() (ast.Expr, error) {
	start := p.advance().Span.Start // CASE
	c := &ast.CaseExpr{ExprBase: ast.ExprBase{Position: start}}
	if !p.at(token.WHEN) {
		test, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Test = test
	}
	for p.at(token.WHEN) {
		p.advance()
		when, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, ast.CaseWhen{When: when, Then: then})
	}
	if p.at(token.ELSE) {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Else = e
	}
	if _, err := p.expect(token.END); err != nil {
		return nil, err
	}
	return c, nil
}
