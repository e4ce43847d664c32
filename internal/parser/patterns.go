package parser

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/token"
)

// parsePattern parses a single binding pattern: wildcards, identifiers,
// literal patterns, and bracketed tuple/list patterns with at most one
// rest element restricted to the terminal position (spec §4.2
// "Patterns", ast.IsRestAdmissible).
func (p *Parser) parsePattern() (ast.Index, error) {
	p.skipInline()
	t := p.cur()
	switch t.Kind {
	case token.Wildcard:
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KPatWildcard}, t.Span), nil
	case token.DotDot, token.Ellipsis:
		p.advance()
		name := int32(-1)
		if p.at(token.Ident) {
			nt := p.advance()
			ci, _ := p.a.Constants.AddString(nt.Literal.(string))
			name = int32(ci)
		}
		return p.a.Add(ast.Node{Kind: ast.KPatRest, Extra: []int32{name}}, t.Span), nil
	case token.Ident:
		p.advance()
		ci, err := p.a.Constants.AddString(t.Literal.(string))
		if err != nil {
			return ast.NoIndex, p.errf(t.Span, "%s", err)
		}
		return p.a.Add(ast.Node{Kind: ast.KPatIdent, Extra: []int32{int32(ci)}}, t.Span), nil
	case token.LParen:
		return p.parsePatternSeq(token.LParen, token.RParen, ast.KPatTuple)
	case token.LBracket:
		return p.parsePatternSeq(token.LBracket, token.RBracket, ast.KPatList)
	case token.Int, token.Float, token.Str, token.StrRaw, token.KwTrue, token.KwFalse, token.KwNull, token.Minus:
		lit, err := p.parseUnary()
		if err != nil {
			return ast.NoIndex, err
		}
		// Literal patterns may themselves be ranges: `0..10`.
		p.skipInline()
		if p.at(token.DotDot) || p.at(token.DotDotEq) {
			opTok := p.advance()
			inclusive := opTok.Kind == token.DotDotEq
			p.skipInline()
			end, err := p.parseUnary()
			if err != nil {
				return ast.NoIndex, err
			}
			return p.a.Add(ast.Node{Kind: ast.KPatRange, Lhs: lit, Rhs: end, Flag: inclusive}, t.Span), nil
		}
		return p.a.Add(ast.Node{Kind: ast.KPatConst, Lhs: lit}, t.Span), nil
	}
	return ast.NoIndex, p.errf(t.Span, "unexpected token %s in pattern", t.Kind)
}

func (p *Parser) parsePatternSeq(open, close token.Kind, kind ast.Kind) (ast.Index, error) {
	openTok, err := p.expect(open)
	if err != nil {
		return ast.NoIndex, err
	}
	var elems []int32
	hasRest := false
	p.skipNewlines()
	for !p.at(close) {
		sub, err := p.parsePattern()
		if err != nil {
			return ast.NoIndex, err
		}
		if p.a.At(sub).Kind == ast.KPatRest {
			hasRest = true
		}
		elems = append(elems, int32(sub))
		p.skipInline()
		p.skipNewlines()
		if p.at(token.Comma) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	if _, err := p.expect(close); err != nil {
		return ast.NoIndex, err
	}
	for i, e := range elems {
		if p.a.At(ast.Index(e)).Kind == ast.KPatRest && !ast.IsRestAdmissible(i, len(elems)) {
			return ast.NoIndex, p.errf(openTok.Span, "rest pattern must be the last element")
		}
	}
	return p.a.Add(ast.Node{Kind: kind, Extra: elems, Flag: hasRest}, openTok.Span), nil
}
