// Package lexer tokenizes Cypher source text with a hand-written
// character scanner producing tokens with byte-offset spans.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adaworld/graphdb/internal/cypher/token"
	"github.com/adaworld/graphdb/internal/gerr"
)

type lexer struct {
	src string
	pos int // byte offset of the next rune to read
}

// Lex tokenizes src into a token stream terminated by an EOF token.
// Two textually identical inputs always produce byte-for-byte identical
// token sequences, spans included.
func Lex(src string) ([]token.Token, error) {
	l := &lexer{src: src}
	var tokens []token.Token

	for {
		if err := l.skipTrivia(); err != nil {
			return nil, err
		}
		if l.atEOF() {
			break
		}

		start := l.pos
		r := l.peek()

		switch {
		case r == '\'' || r == '"':
			tok, err := l.lexString(r)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case unicode.IsDigit(r):
			tokens = append(tokens, l.lexNumber())

		case r == '$':
			tok, err := l.lexParameter()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)

		case isIdentStart(r):
			tokens = append(tokens, l.lexIdent())

		default:
			tok, err := l.lexPunct()
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
		}

		if l.pos == start {
			// Safety net: no lexing branch above is allowed to make no
			// progress, but guard against an infinite loop regardless.
			return nil, gerr.NewSyntaxError(start, fmt.Sprintf("unexpected character: %q", r))
		}
	}

	tokens = append(tokens, token.Token{
		Kind: token.EOF,
		Span: token.Span{Start: len(src), End: len(src)},
	})
	return tokens, nil
}

func (l *lexer) atEOF() bool { return l.pos >= len(l.src) }

func (l *lexer) peek() rune {
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+offset:])
	return r
}

func (l *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	return r
}

// skipTrivia skips whitespace, line comments and (non-nesting) block
// comments. An unterminated block comment reports a SyntaxError at the
// comment's opening `/*`.
func (l *lexer) skipTrivia() error {
	for !l.atEOF() {
		r := l.peek()
		switch {
		case unicode.IsSpace(r):
			l.advance()
		case r == '/' && l.peekAt(1) == '/':
			for !l.atEOF() && l.peek() != '\n' {
				l.advance()
			}
		case r == '/' && l.peekAt(1) == '*':
			commentStart := l.pos
			l.advance()
			l.advance()
			for {
				if l.atEOF() {
					return gerr.NewSyntaxError(commentStart, "unterminated block comment")
				}
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentCont(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (l *lexer) lexIdent() token.Token {
	start := l.pos
	for !l.atEOF() && isIdentCont(l.peek()) {
		l.advance()
	}
	text := l.src[start:l.pos]
	return token.Token{Kind: token.Lookup(text), Text: text, Span: token.Span{Start: start, End: l.pos}}
}

func (l *lexer) lexNumber() token.Token {
	start := l.pos
	isFloat := false
	for !l.atEOF() {
		r := l.peek()
		switch {
		case unicode.IsDigit(r):
			l.advance()
		case r == '.' && !isFloat && unicode.IsDigit(l.peekAt(1)):
			isFloat = true
			l.advance()
		default:
			goto done
		}
	}
done:
	text := l.src[start:l.pos]
	kind := token.INTEGER
	if isFloat {
		kind = token.FLOAT
	}
	return token.Token{Kind: kind, Text: text, Span: token.Span{Start: start, End: l.pos}}
}

func (l *lexer) lexString(quote rune) (token.Token, error) {
	start := l.pos
	l.advance() // consume opening quote
	var sb strings.Builder
	for {
		if l.atEOF() {
			return token.Token{}, gerr.NewSyntaxError(start, "unterminated string literal")
		}
		r := l.advance()
		switch {
		case r == '\\':
			if l.atEOF() {
				return token.Token{}, gerr.NewSyntaxError(start, "unterminated string literal")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '\\':
				sb.WriteRune('\\')
			case quote:
				sb.WriteRune(quote)
			default:
				sb.WriteRune('\\')
				sb.WriteRune(esc)
			}
		case r == quote:
			return token.Token{
				Kind: token.STRING,
				Text: sb.String(),
				Span: token.Span{Start: start, End: l.pos},
			}, nil
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *lexer) lexParameter() (token.Token, error) {
	start := l.pos
	l.advance() // consume '$'
	nameStart := l.pos
	for !l.atEOF() && isIdentCont(l.peek()) {
		l.advance()
	}
	if l.pos == nameStart {
		return token.Token{}, gerr.NewSyntaxError(start, "expected parameter name after '$'")
	}
	return token.Token{
		Kind: token.PARAMETER,
		Text: l.src[nameStart:l.pos],
		Span: token.Span{Start: start, End: l.pos},
	}, nil
}

func (l *lexer) lexPunct() (token.Token, error) {
	start := l.pos
	r := l.advance()
	mk := func(kind token.Kind, text string) (token.Token, error) {
		return token.Token{Kind: kind, Text: text, Span: token.Span{Start: start, End: l.pos}}, nil
	}
	switch r {
	case '(':
		return mk(token.LPAREN, "(")
	case ')':
		return mk(token.RPAREN, ")")
	case '[':
		return mk(token.LBRACKET, "[")
	case ']':
		return mk(token.RBRACKET, "]")
	case '{':
		return mk(token.LBRACE, "{")
	case '}':
		return mk(token.RBRACE, "}")
	case ',':
		return mk(token.COMMA, ",")
	case ':':
		return mk(token.COLON, ":")
	case ';':
		return mk(token.SEMICOLON, ";")
	case '|':
		return mk(token.PIPE, "|")
	case '*':
		return mk(token.STAR, "*")
	case '.':
		if l.peek() == '.' {
			l.advance()
			return mk(token.DOTDOT, "..")
		}
		return mk(token.DOT, ".")
	case '+':
		if l.peek() == '=' {
			l.advance()
			return mk(token.PLUSEQ, "+=")
		}
		return mk(token.PLUS, "+")
	case '/':
		return mk(token.SLASH, "/")
	case '%':
		return mk(token.PERCENT, "%")
	case '^':
		return mk(token.CARET, "^")
	case '=':
		if l.peek() == '~' {
			l.advance()
			return mk(token.REGEX, "=~")
		}
		return mk(token.EQ, "=")
	case '<':
		switch l.peek() {
		case '=':
			l.advance()
			return mk(token.LTE, "<=")
		case '-':
			l.advance()
			return mk(token.LARROW, "<-")
		case '>':
			l.advance()
			return mk(token.NEQ, "<>")
		default:
			return mk(token.LT, "<")
		}
	case '>':
		if l.peek() == '=' {
			l.advance()
			return mk(token.GTE, ">=")
		}
		return mk(token.GT, ">")
	case '-':
		if l.peek() == '>' {
			l.advance()
			return mk(token.ARROW, "->")
		}
		return mk(token.DASH, "-")
	default:
		return token.Token{}, gerr.NewSyntaxError(start, fmt.Sprintf("unexpected character: %q", r))
	}
}
