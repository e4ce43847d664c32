package parser

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/token"
)

func toExtra(idxs []ast.Index) []int32 {
	extra := make([]int32, len(idxs))
	for i, x := range idxs {
		extra[i] = int32(x)
	}
	return extra
}

func (p *Parser) blockOf(stmts []ast.Index) ast.Index {
	if len(stmts) == 0 {
		return p.a.Add(ast.Node{Kind: ast.KBlock}, p.cur().Span)
	}
	return p.a.Add(ast.Node{Kind: ast.KBlock, Extra: toExtra(stmts)}, p.a.Span(stmts[0]))
}

// parseProgram parses every top-level statement until EOF.
func (p *Parser) parseProgram() (ast.Index, error) {
	sp := p.cur().Span
	stmts, err := p.parseStatementsAtWidth(0)
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	if !p.at(token.EOF) {
		return ast.NoIndex, p.errf(p.cur().Span, "unexpected token %s", p.cur().Kind)
	}
	return p.a.Add(ast.Node{Kind: ast.KBlock, Extra: toExtra(stmts)}, sp), nil
}

// parseStatementsAtWidth consumes consecutive lines whose leading
// indentation is exactly width, stopping at the first line indented
// less (end of block) and erroring on a line indented more (spec §4.2
// "a line at the same or lesser indent closes the block").
func (p *Parser) parseStatementsAtWidth(width int) ([]ast.Index, error) {
	var stmts []ast.Index
	for {
		p.skipNewlines()
		if p.at(token.EOF) {
			break
		}
		w := 0
		if p.at(token.Whitespace) {
			w = p.cur().Literal.(int)
		}
		if w < width {
			break
		}
		if w > width {
			return nil, p.indentationErr(p.cur().Span, "unexpected indent")
		}
		if w > 0 {
			p.advance()
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		p.skipInline()
		if p.at(token.NewLine) {
			p.advance()
		} else if !p.at(token.EOF) && w < width {
			break
		}
	}
	return stmts, nil
}

// parseSuite parses the body following a header: either a single
// statement introduced by `then` or written plainly on the same line,
// or a newline into a deeper-indented block (spec §4.2, §8 examples
// "while true then ()" and "for i in 1..3\n  i").
func (p *Parser) parseSuite() ([]ast.Index, error) {
	p.skipInline()
	if p.at(token.KwThen) {
		p.advance()
		p.skipInline()
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return []ast.Index{stmt}, nil
	}
	if p.at(token.NewLine) {
		p.advance()
		width := p.peekIndentWidth()
		if width < 0 {
			return nil, p.indentationErr(p.cur().Span, "expected an indented block")
		}
		if width <= p.curIndent() {
			return nil, p.indentationErr(p.cur().Span, "expected an indented block")
		}
		p.indentStack = append(p.indentStack, width)
		stmts, err := p.parseStatementsAtWidth(width)
		p.indentStack = p.indentStack[:len(p.indentStack)-1]
		if err != nil {
			return nil, err
		}
		if len(stmts) == 0 {
			return nil, p.indentationErr(p.cur().Span, "expected an indented block")
		}
		return stmts, nil
	}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return []ast.Index{stmt}, nil
}

// tryConsumeKeywordAtSameIndent looks past newlines for kw appearing at
// exactly the current block's indentation (e.g. a matching `else`); on
// a match it consumes through kw and returns true, otherwise it leaves
// the cursor untouched.
func (p *Parser) tryConsumeKeywordAtSameIndent(kw token.Kind) bool {
	i := p.pos
	for i < len(p.toks) && p.toks[i].Kind == token.NewLine {
		i++
	}
	width := 0
	j := i
	if j < len(p.toks) && p.toks[j].Kind == token.Whitespace {
		width = p.toks[j].Literal.(int)
		j++
	}
	if width != p.curIndent() {
		return false
	}
	if j >= len(p.toks) || p.toks[j].Kind != kw {
		return false
	}
	p.pos = j + 1
	return true
}

func (p *Parser) peekAfterCurrent() token.Token {
	i := p.pos + 1
	for i < len(p.toks) && p.toks[i].Kind == token.Whitespace {
		i++
	}
	if i >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[i]
}

func (p *Parser) parseStatement() (ast.Index, error) {
	p.skipInline()
	t := p.cur()

	if t.Kind == token.Ident && t.Lexeme == "test" {
		if nt := p.peekAfterCurrent(); nt.Kind == token.Str || nt.Kind == token.StrRaw {
			return p.parseTestDecl()
		}
	}

	switch t.Kind {
	case token.KwIf:
		return p.parseIfExpr()
	case token.KwMatch:
		return p.parseMatchExpr()
	case token.KwFor:
		return p.parseFor()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwLoop:
		return p.parseLoop()
	case token.KwBreak:
		return p.parseBreak()
	case token.KwContinue:
		p.advance()
		return p.a.Add(ast.Node{Kind: ast.KContinue}, t.Span), nil
	case token.KwReturn:
		return p.parseReturn()
	case token.KwThrow:
		return p.parseThrow()
	case token.KwYield:
		return p.parseYield()
	case token.KwTry:
		return p.parseTry()
	case token.KwImport:
		return p.parseImport()
	case token.KwFrom:
		return p.parseFromImport()
	case token.KwExport:
		return p.parseExport()
	case token.KwDebug:
		return p.parseDebug()
	}
	return p.parseExprOrAssignStatement()
}

// parseExprOrAssignStatement parses `pattern = expr`, a compound
// assignment `target += expr`, or falls back to a bare expression
// statement. A leading tuple/list pattern `(a, b) = pair` is detected
// by trying the pattern grammar first and requiring a following `=`.
func (p *Parser) parseExprOrAssignStatement() (ast.Index, error) {
	start := p.pos
	if p.at(token.LParen) || p.at(token.LBracket) {
		if pat, err := p.parsePattern(); err == nil {
			p.skipInline()
			if p.at(token.Assign) {
				eq := p.advance()
				p.skipInline()
				rhs, err := p.parseExpr()
				if err != nil {
					return ast.NoIndex, err
				}
				return p.a.Add(ast.Node{Kind: ast.KLet, Lhs: pat, Rhs: rhs}, eq.Span), nil
			}
		}
		p.pos = start
	}

	lhs, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	var assignOp int32 = -1
	switch p.cur().Kind {
	case token.Assign:
		assignOp = 0
	case token.PlusAssign:
		assignOp = int32(ast.OpAdd) + 1
	case token.MinusAssign:
		assignOp = int32(ast.OpSub) + 1
	case token.StarAssign:
		assignOp = int32(ast.OpMul) + 1
	case token.SlashAssign:
		assignOp = int32(ast.OpDiv) + 1
	}
	if assignOp < 0 {
		return lhs, nil
	}
	opTok := p.advance()
	p.skipInline()
	rhs, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	if assignOp == 0 && p.a.At(lhs).Kind == ast.KIdent {
		pat := p.a.Add(ast.Node{Kind: ast.KPatIdent, Extra: p.a.At(lhs).Extra}, p.a.Span(lhs))
		return p.a.Add(ast.Node{Kind: ast.KLet, Lhs: pat, Rhs: rhs}, opTok.Span), nil
	}
	return p.a.Add(ast.Node{Kind: ast.KAssign, Lhs: lhs, Rhs: rhs, Extra: []int32{assignOp}}, opTok.Span), nil
}

func (p *Parser) parseIfExpr() (ast.Index, error) {
	t := p.advance() // if
	p.skipInline()
	cond, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	thenStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	thenBlk := p.blockOf(thenStmts)

	elseBranch := ast.NoIndex
	if p.tryConsumeKeywordAtSameIndent(token.KwElse) {
		p.skipInline()
		if p.at(token.KwIf) {
			elseBranch, err = p.parseIfExpr()
			if err != nil {
				return ast.NoIndex, err
			}
		} else {
			elseStmts, err := p.parseSuite()
			if err != nil {
				return ast.NoIndex, err
			}
			elseBranch = p.blockOf(elseStmts)
		}
	}
	n := ast.Node{Kind: ast.KIf, Lhs: cond, Rhs: thenBlk, Extra: []int32{int32(elseBranch)}}
	return p.a.Add(n, t.Span), nil
}

func (p *Parser) parseMatchExpr() (ast.Index, error) {
	t := p.advance() // match
	p.skipInline()
	subject, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	if _, err := p.expect(token.NewLine); err != nil {
		return ast.NoIndex, p.errf(p.cur().Span, "expected indented match arms")
	}
	width := p.peekIndentWidth()
	if width < 0 || width <= p.curIndent() {
		return ast.NoIndex, p.indentationErr(p.cur().Span, "expected indented match arms")
	}
	p.indentStack = append(p.indentStack, width)
	defer func() { p.indentStack = p.indentStack[:len(p.indentStack)-1] }()

	var arms []int32
	for {
		p.skipNewlines()
		if p.at(token.EOF) {
			break
		}
		w := 0
		if p.at(token.Whitespace) {
			w = p.cur().Literal.(int)
		}
		if w < width {
			break
		}
		if w > width {
			return ast.NoIndex, p.indentationErr(p.cur().Span, "unexpected indent in match arm")
		}
		if w > 0 {
			p.advance()
		}
		arm, err := p.parseMatchArm()
		if err != nil {
			return ast.NoIndex, err
		}
		arms = append(arms, int32(arm))
	}
	if len(arms) == 0 {
		return ast.NoIndex, p.indentationErr(t.Span, "match requires at least one arm")
	}
	return p.a.Add(ast.Node{Kind: ast.KMatch, Lhs: subject, Extra: arms}, t.Span), nil
}

func (p *Parser) parseMatchArm() (ast.Index, error) {
	sp := p.cur().Span
	var pat ast.Index
	var err error
	if p.at(token.KwElse) {
		p.advance()
		pat = p.a.Add(ast.Node{Kind: ast.KPatWildcard}, sp)
	} else {
		pat, err = p.parsePattern()
		if err != nil {
			return ast.NoIndex, err
		}
	}
	guard := ast.NoIndex
	p.skipInline()
	if p.at(token.KwIf) {
		p.advance()
		p.skipInline()
		guard, err = p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
	}
	p.skipInline()
	if _, err := p.expect(token.KwThen); err != nil {
		return ast.NoIndex, err
	}
	bodyStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	body := p.blockOf(bodyStmts)
	n := ast.Node{Kind: ast.KMatchArm, Lhs: pat, Rhs: body, Extra: []int32{int32(guard)}}
	return p.a.Add(n, sp), nil
}

func (p *Parser) parseFor() (ast.Index, error) {
	t := p.advance() // for
	p.skipInline()
	pat, err := p.parsePattern()
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	if _, err := p.expect(token.KwIn); err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	iterable, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	bodyStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	body := p.blockOf(bodyStmts)
	n := ast.Node{Kind: ast.KFor, Lhs: pat, Rhs: iterable, Extra: []int32{int32(body)}}
	return p.a.Add(n, t.Span), nil
}

func (p *Parser) parseWhile() (ast.Index, error) {
	t := p.advance() // while
	p.skipInline()
	cond, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	bodyStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	body := p.blockOf(bodyStmts)
	return p.a.Add(ast.Node{Kind: ast.KWhile, Lhs: cond, Rhs: body}, t.Span), nil
}

func (p *Parser) parseLoop() (ast.Index, error) {
	t := p.advance() // loop
	bodyStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	body := p.blockOf(bodyStmts)
	return p.a.Add(ast.Node{Kind: ast.KLoop, Lhs: body}, t.Span), nil
}

func (p *Parser) parseBreak() (ast.Index, error) {
	t := p.advance() // break
	p.skipInline()
	val := ast.NoIndex
	if p.canStartNoParenCallArgs() {
		var err error
		val, err = p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
	}
	return p.a.Add(ast.Node{Kind: ast.KBreak, Lhs: val}, t.Span), nil
}

func (p *Parser) parseReturn() (ast.Index, error) {
	t := p.advance() // return
	p.skipInline()
	val := ast.NoIndex
	if p.canStartNoParenCallArgs() {
		var err error
		val, err = p.parseExpr()
		if err != nil {
			return ast.NoIndex, err
		}
	}
	return p.a.Add(ast.Node{Kind: ast.KReturn, Lhs: val}, t.Span), nil
}

func (p *Parser) parseThrow() (ast.Index, error) {
	t := p.advance() // throw
	p.skipInline()
	val, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.a.Add(ast.Node{Kind: ast.KThrow, Lhs: val}, t.Span), nil
}

func (p *Parser) parseYield() (ast.Index, error) {
	t := p.advance() // yield
	p.skipInline()
	val, err := p.parseExpr()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.a.Add(ast.Node{Kind: ast.KYield, Lhs: val}, t.Span), nil
}

func (p *Parser) parseDebug() (ast.Index, error) {
	t := p.advance() // debug
	ci, _ := p.a.Constants.AddString("debug")
	callee := p.a.Add(ast.Node{Kind: ast.KIdent, Extra: []int32{int32(ci)}}, t.Span)
	p.skipInline()
	if p.canStartNoParenCallArgs() {
		return p.parseNoParenCall(callee)
	}
	return callee, nil
}

// parseTry parses `try` / `catch pattern` / `finally`, each an
// indented or `then`-inline suite (spec §4.8.7 catch-point unwinding).
func (p *Parser) parseTry() (ast.Index, error) {
	t := p.advance() // try
	bodyStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	body := p.blockOf(bodyStmts)

	catchPat := ast.NoIndex
	catchBody := ast.NoIndex
	if p.tryConsumeKeywordAtSameIndent(token.KwCatch) {
		p.skipInline()
		catchPat, err = p.parsePattern()
		if err != nil {
			return ast.NoIndex, err
		}
		catchStmts, err := p.parseSuite()
		if err != nil {
			return ast.NoIndex, err
		}
		catchBody = p.blockOf(catchStmts)
	}

	finallyBody := ast.NoIndex
	if p.tryConsumeKeywordAtSameIndent(token.KwFinally) {
		finallyStmts, err := p.parseSuite()
		if err != nil {
			return ast.NoIndex, err
		}
		finallyBody = p.blockOf(finallyStmts)
	}

	n := ast.Node{Kind: ast.KTry, Lhs: body, Extra: []int32{int32(catchPat), int32(catchBody), int32(finallyBody)}}
	return p.a.Add(n, t.Span), nil
}

// parseDottedPath reads a `.`-joined identifier path (spec §4.6 module
// resolution), returning its segments' constant indices.
func (p *Parser) parseDottedPath() ([]int32, error) {
	var segs []int32
	for {
		t, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		ci, _ := p.a.Constants.AddString(t.Literal.(string))
		segs = append(segs, int32(ci))
		p.skipInline()
		if p.at(token.Dot) {
			p.advance()
			continue
		}
		break
	}
	return segs, nil
}

// parseImport parses `import a.b.c` or `import a.b.c as name`.
func (p *Parser) parseImport() (ast.Index, error) {
	t := p.advance() // import
	p.skipInline()
	path, err := p.parseDottedPath()
	if err != nil {
		return ast.NoIndex, err
	}
	alias := int32(-1)
	p.skipInline()
	if p.at(token.KwAs) {
		p.advance()
		p.skipInline()
		at, err := p.expect(token.Ident)
		if err != nil {
			return ast.NoIndex, err
		}
		ci, _ := p.a.Constants.AddString(at.Literal.(string))
		alias = int32(ci)
	}
	pathCi, _ := p.a.Constants.AddString(joinPath(p.a, path))
	n := ast.Node{Kind: ast.KImport, Flag: false, Extra: append([]int32{int32(pathCi), alias}, path...)}
	return p.a.Add(n, t.Span), nil
}

// parseFromImport parses `from a.b import c, d as e`.
func (p *Parser) parseFromImport() (ast.Index, error) {
	t := p.advance() // from
	p.skipInline()
	path, err := p.parseDottedPath()
	if err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	if _, err := p.expect(token.KwImport); err != nil {
		return ast.NoIndex, err
	}
	p.skipInline()
	pathCi, _ := p.a.Constants.AddString(joinPath(p.a, path))
	extra := []int32{int32(pathCi), -1}
	for {
		p.skipInline()
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return ast.NoIndex, err
		}
		nameCi, _ := p.a.Constants.AddString(nameTok.Literal.(string))
		bindAs := int32(nameCi)
		p.skipInline()
		if p.at(token.KwAs) {
			p.advance()
			p.skipInline()
			at, err := p.expect(token.Ident)
			if err != nil {
				return ast.NoIndex, err
			}
			aci, _ := p.a.Constants.AddString(at.Literal.(string))
			bindAs = int32(aci)
		}
		extra = append(extra, int32(nameCi), bindAs)
		p.skipInline()
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return p.a.Add(ast.Node{Kind: ast.KImport, Flag: true, Extra: extra}, t.Span), nil
}

func joinPath(a *ast.Ast, segs []int32) string {
	s := ""
	for i, ci := range segs {
		if i > 0 {
			s += "."
		}
		s += a.Constants.Get(ast.ConstIndex(ci)).Str
	}
	return s
}

func (p *Parser) parseExport() (ast.Index, error) {
	t := p.advance() // export
	p.skipInline()
	inner, err := p.parseStatement()
	if err != nil {
		return ast.NoIndex, err
	}
	return p.a.Add(ast.Node{Kind: ast.KExport, Lhs: inner}, t.Span), nil
}

func (p *Parser) parseTestDecl() (ast.Index, error) {
	t := p.advance() // "test" ident
	p.skipInline()
	nameTok := p.advance() // string literal
	name, _ := nameTok.Literal.(string)
	ci, _ := p.a.Constants.AddString(name)
	bodyStmts, err := p.parseSuite()
	if err != nil {
		return ast.NoIndex, err
	}
	body := p.blockOf(bodyStmts)
	return p.a.Add(ast.Node{Kind: ast.KTestDecl, Lhs: body, Extra: []int32{int32(ci)}}, t.Span), nil
}
