// Package parser turns a token stream into an arena-backed ast.Ast
// (spec §4.2). Layout is indentation-sensitive: a block is either a
// single statement after `then` on the same line, or a newline into
// deeper indentation; a line at the same or lesser indent closes the
// block. A block expected but not
// found at deeper indentation yields a distinguished IndentationError
// so a REPL can ask for more input (spec §4.2, §6.1, §8 property 12).
package parser

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/lexer"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/token"
)

// Parser holds the buffered token stream and the Ast under
// construction. Parse aborts at the first error (spec §4.2 "Error
// policy": no token-level recovery beyond reporting the first
// failure).
type Parser struct {
	toks []token.Token
	pos  int

	a *ast.Ast

	// indentStack[i] is the indentation width a block at depth i was
	// opened at; 0 is the implicit top-level width.
	indentStack []int
}

// New tokenizes src eagerly (via lexer.Tokens) and returns a ready
// Parser. Whitespace tokens are retained in the stream; every other
// consumer skips them except the block/indent logic below.
func New(src string) *Parser {
	l := lexer.New(src)
	toks := l.Tokens()
	return &Parser{toks: toks, a: ast.New(), indentStack: []int{0}}
}

// Parse parses a full program and returns its Ast, or the first error
// encountered.
func Parse(src string) (*ast.Ast, error) {
	p := New(src)
	root, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	p.a.Root = root
	return p.a, nil
}

func (p *Parser) errf(sp token.Span, format string, args ...interface{}) error {
	return &lumenerr.ParseError{Message: sprintf(format, args...), Span: sp}
}

func (p *Parser) indentationErr(sp token.Span, msg string) error {
	return &lumenerr.ParseError{Message: msg, Span: sp, Indentation: true}
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// --- token stream helpers -------------------------------------------------

func (p *Parser) cur() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) at(k token.Kind) bool {
	return p.cur().Kind == k
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for p.at(token.NewLine) {
		p.advance()
	}
}

// skipInline skips Whitespace tokens that are not meaningful right
// now (mid-expression continuation) without consuming NewLine.
func (p *Parser) skipInline() {
	for p.at(token.Whitespace) {
		p.advance()
	}
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	p.skipInline()
	if !p.at(k) {
		return token.Token{}, p.errf(p.cur().Span, "expected %s, found %s", k, p.cur().Kind)
	}
	return p.advance(), nil
}

// peekIndentWidth looks at the next Whitespace token that begins a
// fresh line, without consuming anything, and returns its width. Returns
// 0 if the next non-newline content is at column 0 (no leading
// whitespace token was emitted for it), and -1 if only EOF remains.
func (p *Parser) peekIndentWidth() int {
	i := p.pos
	for i < len(p.toks) && p.toks[i].Kind == token.NewLine {
		i++
	}
	if i < len(p.toks) && p.toks[i].Kind == token.Whitespace {
		return p.toks[i].Literal.(int)
	}
	if i < len(p.toks) && p.toks[i].Kind == token.EOF {
		return -1
	}
	return 0
}

func (p *Parser) curIndent() int {
	return p.indentStack[len(p.indentStack)-1]
}
