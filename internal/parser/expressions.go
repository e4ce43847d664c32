package parser

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/token"
)

// parseExpr parses a full expression at the lowest precedence (or/and).
func (p *Parser) parseExpr() (ast.Index, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Index, error) {
	lhs, err := p.parseAnd()
	if err != nil {
		return ast.NoIndex, err
	}
	for {
		p.skipInline()
		if !p.at(token.KwOr) && !p.at(token.OrOr) {
			return lhs, nil
		}
		op := p.advance()
		rhs, err := p.parseAnd()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.bin(ast.OpOr, lhs, rhs, op.Span)
	}
}

func (p *Parser) parseAnd() (ast.Index, error) {
	lhs, err := p.parseEquality()
	if err != nil {
		return ast.NoIndex, err
	}
	for {
		p.skipInline()
		if !p.at(token.KwAnd) && !p.at(token.AndAnd) {
			return lhs, nil
		}
		op := p.advance()
		rhs, err := p.parseEquality()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.bin(ast.OpAnd, lhs, rhs, op.Span)
	}
}

func (p *Parser) parseEquality() (ast.Index, error) {
	lhs, err := p.parseComparison()
	if err != nil {
		return ast.NoIndex, err
	}
	for {
		p.skipInline()
		var opKind ast.Op
		switch p.cur().Kind {
		case token.Eq:
			opKind = ast.OpEq
		case token.NotEq:
			opKind = ast.OpNotEq
		default:
			return lhs, nil
		}
		tok := p.advance()
		rhs, err := p.parseComparison()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.bin(opKind, lhs, rhs, tok.Span)
	}
}

func (p *Parser) parseComparison() (ast.Index, error) {
	lhs, err := p.parseRange()
	if err != nil {
		return ast.NoIndex, err
	}
	for {
		p.skipInline()
		var opKind ast.Op
		switch p.cur().Kind {
		case token.Less:
			opKind = ast.OpLess
		case token.LessEq:
			opKind = ast.OpLessEq
		case token.Greater:
			opKind = ast.OpGreater
		case token.GreaterEq:
			opKind = ast.OpGreaterEq
		default:
			return lhs, nil
		}
		tok := p.advance()
		rhs, err := p.parseRange()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.bin(opKind, lhs, rhs, tok.Span)
	}
}

func (p *Parser) parseRange() (ast.Index, error) {
	// Unbounded-start range: `..end` / `..=end`.
	p.skipInline()
	if p.at(token.DotDot) || p.at(token.DotDotEq) {
		tok := p.advance()
		inclusive := tok.Kind == token.DotDotEq
		p.skipInline()
		if p.atRangeEnd() {
			return p.rangeNode(ast.NoIndex, ast.NoIndex, inclusive, tok.Span), nil
		}
		end, err := p.parseAdditive()
		if err != nil {
			return ast.NoIndex, err
		}
		return p.rangeNode(ast.NoIndex, end, inclusive, tok.Span), nil
	}

	lhs, err := p.parseAdditive()
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	if !p.at(token.DotDot) && !p.at(token.DotDotEq) {
		return lhs, nil
	}
	tok := p.advance()
	inclusive := tok.Kind == token.DotDotEq
	p.skipInline()
	if p.atRangeEnd() {
		return p.rangeNode(lhs, ast.NoIndex, inclusive, tok.Span), nil
	}
	rhs, err := p.parseAdditive()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.rangeNode(lhs, rhs, inclusive, tok.Span), nil
}

// atRangeEnd reports whether the cursor is at a token that cannot start
// an expression, meaning an open-ended range ("a..") was written (spec
// §4.8.4 "unbounded ranges").
func (p *Parser) atRangeEnd() bool {
	switch p.cur().Kind {
	case token.NewLine, token.EOF, token.RParen, token.RBracket, token.RBrace,
		token.Comma, token.KwThen, token.Colon:
		return true
	}
	return false
}

func (p *Parser) rangeNode(start, end ast.Index, inclusive bool, sp token.Span) ast.Index {
	n := ast.Node{Kind: ast.KRangeLit, Lhs: start, Rhs: end, Flag: inclusive}
	return p.a.Add(n, sp)
}

func (p *Parser) parseAdditive() (ast.Index, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return ast.NoIndex, err
	}
	for {
		p.skipInline()
		var opKind ast.Op
		switch p.cur().Kind {
		case token.Plus:
			opKind = ast.OpAdd
		case token.Minus:
			opKind = ast.OpSub
		default:
			return lhs, nil
		}
		tok := p.advance()
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.bin(opKind, lhs, rhs, tok.Span)
	}
}

func (p *Parser) parseMultiplicative() (ast.Index, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return ast.NoIndex, err
	}
	for {
		p.skipInline()
		var opKind ast.Op
		switch p.cur().Kind {
		case token.Star:
			opKind = ast.OpMul
		case token.Slash:
			opKind = ast.OpDiv
		case token.Percent:
			opKind = ast.OpMod
		default:
			return lhs, nil
		}
		tok := p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return ast.NoIndex, err
		}
		lhs = p.bin(opKind, lhs, rhs, tok.Span)
	}
}

func (p *Parser) parseUnary() (ast.Index, error) {
	p.skipInline()
	switch p.cur().Kind {
	case token.Minus:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.NoIndex, err
		}
		n := ast.Node{Kind: ast.KUnaryOp, Lhs: operand, Extra: []int32{int32(ast.OpNeg)}}
		return p.a.Add(n, tok.Span), nil
	case token.Not, token.KwNot:
		tok := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return ast.NoIndex, err
		}
		n := ast.Node{Kind: ast.KUnaryOp, Lhs: operand, Extra: []int32{int32(ast.OpNot)}}
		return p.a.Add(n, tok.Span), nil
	}
	return p.parsePostfixFromPrimary()
}

func (p *Parser) bin(op ast.Op, lhs, rhs ast.Index, sp token.Span) ast.Index {
	n := ast.Node{Kind: ast.KBinaryOp, Lhs: lhs, Rhs: rhs, Extra: []int32{int32(op)}}
	return p.a.Add(n, sp)
}

// --- primary / postfix / no-paren call ------------------------------------

func (p *Parser) parsePostfixFromPrimary() (ast.Index, error) {
	p.skipInline()
	prevEnd := p.cur().Span.End
	node, err := p.parsePrimary()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.parsePostfixChainAndMaybeCall(node, prevEnd, true)
}

// parsePostfixChainAndMaybeCall applies `.field`, `[index]`, and
// adjacent-`(args)` postfix operators, then — for identifier/field
// primaries only, when allowNoParenCall is set — checks whether the
// next token starts a space-separated argument list (Koto-style
// juxtaposition call, spec §4.2 functions / §8 `print 1 + 1`).
func (p *Parser) parsePostfixChainAndMaybeCall(node ast.Index, prevEnd int, allowNoParenCall bool) (ast.Index, error) {
	for {
		t := p.cur()
		adjacent := t.Span.Start == prevEnd
		switch {
		case t.Kind == token.Dot:
			p.advance()
			nameTok, err := p.expect(token.Ident)
			if err != nil {
				return ast.NoIndex, err
			}
			ci, _ := p.a.Constants.AddString(nameTok.Literal.(string))
			n := ast.Node{Kind: ast.KAccess, Lhs: node, Extra: []int32{int32(ci)}}
			node = p.a.Add(n, t.Span)
			prevEnd = nameTok.Span.End
			// a.b(args) — parens must still be adjacent to `b`.
			if p.at(token.LParen) && p.cur().Span.Start == prevEnd {
				var err error
				node, prevEnd, err = p.parseCallArgs(node, t.Span)
				if err != nil {
					return ast.NoIndex, err
				}
			}
			continue
		case t.Kind == token.LBracket && adjacent:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
			closeTok, err := p.expect(token.RBracket)
			if err != nil {
				return ast.NoIndex, err
			}
			n := ast.Node{Kind: ast.KIndex, Lhs: node, Rhs: idx}
			node = p.a.Add(n, t.Span)
			prevEnd = closeTok.Span.End
			continue
		case t.Kind == token.LParen && adjacent:
			var err error
			node, prevEnd, err = p.parseCallArgs(node, t.Span)
			if err != nil {
				return ast.NoIndex, err
			}
			continue
		}
		break
	}

	if allowNoParenCall && p.canStartNoParenCallArgs() {
		if k := p.a.At(node).Kind; k == ast.KIdent || k == ast.KAccess {
			return p.parseNoParenCall(node)
		}
	}
	return node, nil
}

func (p *Parser) parseCallArgs(callee ast.Index, sp token.Span) (ast.Index, int, error) {
	p.advance() // consume '('
	var args []int32
	p.skipNewlines()
	for !p.at(token.RParen) {
		p.skipInline()
		p.skipNewlines()
		arg, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, 0, err
		}
		args = append(args, int32(arg))
		p.skipInline()
		p.skipNewlines()
		if p.at(token.Comma) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	closeTok, err := p.expect(token.RParen)
	if err != nil {
		return ast.NoIndex, 0, err
	}
	n := ast.Node{Kind: ast.KCall, Lhs: callee, Extra: args}
	return p.a.Add(n, sp), closeTok.Span.End, nil
}

// canStartNoParenCallArgs decides whether the tokens following a bare
// callable primary begin a juxtaposition argument list rather than
// continuing the surrounding expression (e.g. as an infix operator).
func (p *Parser) canStartNoParenCallArgs() bool {
	switch p.cur().Kind {
	case token.NewLine, token.EOF, token.RParen, token.RBracket, token.RBrace,
		token.Comma, token.Colon, token.KwThen, token.KwElse, token.KwCatch,
		token.KwFinally, token.Dot, token.Assign, token.PlusAssign, token.MinusAssign,
		token.StarAssign, token.SlashAssign,
		token.Plus, token.Minus, token.Star, token.Slash, token.Percent,
		token.Eq, token.NotEq, token.Less, token.LessEq, token.Greater, token.GreaterEq,
		token.KwAnd, token.KwOr, token.AndAnd, token.OrOr, token.DotDot, token.DotDotEq,
		token.Arrow, token.FatArrow, token.KwIn, token.KwAs, token.At:
		return false
	}
	return true
}

func (p *Parser) parseNoParenCall(callee ast.Index) (ast.Index, error) {
	sp := p.a.Span(callee)
	var args []int32
	first, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	args = append(args, int32(first))
	for {
		p.skipInline()
		if !p.at(token.Comma) {
			break
		}
		p.advance()
		p.skipInline()
		arg, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		args = append(args, int32(arg))
	}
	n := ast.Node{Kind: ast.KCall, Lhs: callee, Extra: args}
	return p.a.Add(n, sp), nil
}

func (p *Parser) parsePrimary() (ast.Index, error) {
	t := p.cur()
	switch t.Kind {
	case token.KwNull:
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KNull}, t.Span), nil
	case token.KwTrue:
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KBool, Flag: true}, t.Span), nil
	case token.KwFalse:
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KBool, Flag: false}, t.Span), nil
	case token.Int:
		p.advance()
		ci, err := p.a.Constants.AddInt(t.Literal.(int64))
		if err != nil {
			return ast.NoIndex, p.errf(t.Span, "%s", err)
		}
		return p.a.Add(ast.Node{Kind: ast.KNumberInt, Extra: []int32{int32(ci)}}, t.Span), nil
	case token.Float:
		p.advance()
		ci, err := p.a.Constants.AddFloat(t.Literal.(float64))
		if err != nil {
			return ast.NoIndex, p.errf(t.Span, "%s", err)
		}
		return p.a.Add(ast.Node{Kind: ast.KNumberFloat, Extra: []int32{int32(ci)}}, t.Span), nil
	case token.Str, token.StrRaw, token.StrMultiline:
		p.advance()
		ci, err := p.a.Constants.AddString(t.Literal.(string))
		if err != nil {
			return ast.NoIndex, p.errf(t.Span, "%s", err)
		}
		return p.a.Add(ast.Node{Kind: ast.KStringLit, Extra: []int32{int32(ci)}}, t.Span), nil
	case token.StrInterpLit:
		return p.parseInterpString()
	case token.Wildcard:
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KWildcard}, t.Span), nil
	case token.Ident:
		p.advance()
		ci, err := p.a.Constants.AddString(t.Literal.(string))
		if err != nil {
			return ast.NoIndex, p.errf(t.Span, "%s", err)
		}
		return p.a.Add(ast.Node{Kind: ast.KIdent, Extra: []int32{int32(ci)}}, t.Span), nil
	case token.LParen:
		return p.parseParenOrTuple()
	case token.LBracket:
		return p.parseListLit()
	case token.LBrace:
		return p.parseMapLit()
	case token.Pipe:
		return p.parseFuncLit()
	case token.KwIf:
		return p.parseIfExpr()
	case token.KwMatch:
		return p.parseMatchExpr()
	case token.DotDot, token.DotDotEq:
		return p.parseRange()
	}
	return ast.NoIndex, p.errf(t.Span, "unexpected token %s", t.Kind)
}

func (p *Parser) parseInterpString() (ast.Index, error) {
	startSp := p.cur().Span
	var parts []int32
	for p.at(token.StrInterpLit) {
		t := p.advance()
		ci, _ := p.a.Constants.AddString(t.Literal.(string))
		lit := p.a.Add(ast.Node{Kind: ast.KStringLit, Extra: []int32{int32(ci)}}, t.Span)
		parts = append(parts, int32(lit)<<1) // low bit 0 = literal segment
		if p.at(token.StrInterpExpr) {
			p.advance()
			expr, err := p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
			if _, err := p.expect(token.RBrace); err != nil {
				return ast.NoIndex, err
			}
			parts = append(parts, int32(expr)<<1|1) // low bit 1 = expr segment
		}
	}
	return p.a.Add(ast.Node{Kind: ast.KInterpString, Extra: parts}, startSp), nil
}

func (p *Parser) parseParenOrTuple() (ast.Index, error) {
	open := p.advance() // (
	p.skipNewlines()
	if p.at(token.RParen) {
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KTupleLit}, open.Span), nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	p.skipNewlines()
	if p.at(token.RParen) {
		p.advance()
		return first, nil // plain parenthesized expression
	}
	elems := []int32{int32(first)}
	for p.at(token.Comma) {
		p.advance()
		p.skipNewlines()
		if p.at(token.RParen) {
			break
		}
		e, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		elems = append(elems, int32(e))
		p.skipInline()
		p.skipNewlines()
	}
	if _, err := p.expect(token.RParen); err != nil {
		return ast.NoIndex, err
	}
	return p.a.Add(ast.Node{Kind: ast.KTupleLit, Extra: elems}, open.Span), nil
}

func (p *Parser) parseListLit() (ast.Index, error) {
	open := p.advance() // [
	var elems []int32
	p.skipNewlines()
	for !p.at(token.RBracket) {
		e, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		elems = append(elems, int32(e))
		p.skipInline()
		p.skipNewlines()
		if p.at(token.Comma) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return ast.NoIndex, err
	}
	return p.a.Add(ast.Node{Kind: ast.KListLit, Extra: elems}, open.Span), nil
}

func (p *Parser) parseMapLit() (ast.Index, error) {
	open := p.advance() // {
	var pairs []int32
	p.skipNewlines()
	for !p.at(token.RBrace) {
		var key ast.Index
		var err error
		if p.at(token.At) {
			metaTok := p.advance()
			opTok := p.advance()
			name := metaName(opTok)
			ci, _ := p.a.Constants.AddString("@" + name)
			key = p.a.Add(ast.Node{Kind: ast.KStringLit, Extra: []int32{int32(ci)}}, metaTok.Span)
		} else if p.at(token.Ident) {
			t := p.advance()
			ci, _ := p.a.Constants.AddString(t.Literal.(string))
			key = p.a.Add(ast.Node{Kind: ast.KStringLit, Extra: []int32{int32(ci)}}, t.Span)
		} else {
			key, err = p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
		}
		if _, err := p.expect(token.Colon); err != nil {
			return ast.NoIndex, err
		}
		p.skipInline()
		val, err := p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
		pairs = append(pairs, int32(key), int32(val))
		p.skipInline()
		p.skipNewlines()
		if p.at(token.Comma) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return ast.NoIndex, err
	}
	return p.a.Add(ast.Node{Kind: ast.KMapLit, Extra: pairs}, open.Span), nil
}

// metaName maps an operator token found after '@' inside a map literal
// to its meta-key name (spec §3.2).
func metaName(t token.Token) string {
	switch t.Kind {
	case token.Plus:
		return "+"
	case token.Minus:
		return "-"
	case token.Star:
		return "*"
	case token.Slash:
		return "/"
	case token.Percent:
		return "%"
	case token.Less:
		return "<"
	case token.LessEq:
		return "<="
	case token.Greater:
		return ">"
	case token.GreaterEq:
		return ">="
	case token.Eq:
		return "=="
	case token.NotEq:
		return "!="
	case token.LBracket:
		return "[]"
	case token.OrOr:
		return "||"
	case token.Not:
		return "not"
	default:
		if s, ok := t.Literal.(string); ok {
			return s
		}
		return t.Lexeme
	}
}

func (p *Parser) parseFuncLit() (ast.Index, error) {
	open := p.advance() // first '|'
	var params []ast.Index
	var defaults []ast.Index
	variadic := false
	p.skipInline()
	for !p.at(token.Pipe) {
		pat, err := p.parsePattern()
		if err != nil {
			return ast.NoIndex, err
		}
		if p.a.At(pat).Kind == ast.KPatRest {
			variadic = true
		}
		params = append(params, pat)
		p.skipInline()
		if p.at(token.Assign) {
			p.advance()
			p.skipInline()
			def, err := p.parseExpr()
			if err != nil {
				return ast.NoIndex, err
			}
			defaults = append(defaults, def)
		} else {
			defaults = append(defaults, ast.NoIndex)
		}
		p.skipInline()
		if p.at(token.Comma) {
			p.advance()
			p.skipInline()
			continue
		}
		break
	}
	if _, err := p.expect(token.Pipe); err != nil {
		return ast.NoIndex, err
	}
	body, isGen, err := p.parseFuncBody()
	if err != nil {
		return ast.NoIndex, err
	}
	extra := make([]int32, 0, 2+len(params)*2)
	if variadic {
		extra = append(extra, 1)
	} else {
		extra = append(extra, 0)
	}
	if isGen {
		extra = append(extra, 1)
	} else {
		extra = append(extra, 0)
	}
	for i := range params {
		extra = append(extra, int32(params[i]), int32(defaults[i]))
	}
	return p.a.Add(ast.Node{Kind: ast.KFuncLit, Lhs: body, Extra: extra}, open.Span), nil
}

func (p *Parser) parseFuncBody() (ast.Index, bool, error) {
	stmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, false, err
	}
	gen := containsYield(p.a, stmts)
	extra := make([]int32, len(stmts))
	for i, s := range stmts {
		extra[i] = int32(s)
	}
	blk := p.a.Add(ast.Node{Kind: ast.KBlock, Extra: extra}, p.a.Span(stmts[0]))
	return blk, gen, nil
}

// containsYield reports whether any statement in a function body yields,
// which marks that function a generator (spec §4.4 "generator-flag
// detection", §4.8.6 sub-VMs). It does not descend into nested KFuncLit
// bodies: a yield inside a nested closure belongs to that closure.
func containsYield(a *ast.Ast, stmts []ast.Index) bool {
	for _, s := range stmts {
		if nodeContainsYield(a, s) {
			return true
		}
	}
	return false
}

func nodeContainsYield(a *ast.Ast, idx ast.Index) bool {
	if idx == ast.NoIndex {
		return false
	}
	n := a.At(idx)
	switch n.Kind {
	case ast.KYield:
		return true
	case ast.KFuncLit:
		return false
	case ast.KInterpString:
		for _, e := range n.Extra {
			if nodeContainsYield(a, ast.Index(e>>1)) {
				return true
			}
		}
		return false
	case ast.KMapLit:
		for _, e := range n.Extra {
			if nodeContainsYield(a, ast.Index(e)) {
				return true
			}
		}
		return false
	case ast.KUnaryOp, ast.KBinaryOp, ast.KAccess:
		return nodeContainsYield(a, n.Lhs) || nodeContainsYield(a, n.Rhs)
	}
	if nodeContainsYield(a, n.Lhs) || nodeContainsYield(a, n.Rhs) {
		return true
	}
	switch n.Kind {
	case ast.KListLit, ast.KTupleLit, ast.KCall, ast.KMatch:
		for _, e := range n.Extra {
			if nodeContainsYield(a, ast.Index(e)) {
				return true
			}
		}
	case ast.KBlock:
		for _, e := range n.Extra {
			if nodeContainsYield(a, ast.Index(e)) {
				return true
			}
		}
	}
	return false
}
