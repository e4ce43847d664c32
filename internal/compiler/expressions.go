package compiler

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/token"
)

// compileExpr allocates a fresh register and compiles idx's value into
// it.
func (fc *funcCompiler) compileExpr(a *ast.Ast, idx ast.Index) (byte, error) {
	return fc.allocCompile(a, idx)
}

// compileExprInto compiles idx's value directly into dst, which the
// caller already owns (either a local's register or a temp it just
// allocated). Any scratch registers compileExprInto needs internally
// are popped back before it returns.
func (fc *funcCompiler) compileExprInto(a *ast.Ast, idx ast.Index, dst byte) error {
	n := a.At(idx)
	span := a.Span(idx)

	switch n.Kind {
	case ast.KNull:
		fc.em.Emit1(bytecode.OpLoadNull, dst, span)
		return nil

	case ast.KBool:
		if n.Flag {
			fc.em.Emit1(bytecode.OpLoadTrue, dst, span)
		} else {
			fc.em.Emit1(bytecode.OpLoadFalse, dst, span)
		}
		return nil

	case ast.KNumberInt:
		ci := ast.ConstIndex(n.Extra[0])
		c := a.Constants.Get(ci)
		if !c.IsString && !c.IsFloat && c.Int >= -(1<<31) && c.Int < (1<<31) {
			fc.em.EmitImm32(bytecode.OpLoadInt, dst, int32(c.Int), span)
			return nil
		}
		fc.em.EmitConst(bytecode.OpLoadConst, dst, ci, span)
		return nil

	case ast.KNumberFloat, ast.KStringLit:
		fc.em.EmitConst(bytecode.OpLoadConst, dst, ast.ConstIndex(n.Extra[0]), span)
		return nil

	case ast.KInterpString:
		return fc.compileInterpString(a, n, dst, span)

	case ast.KWildcard:
		fc.em.Emit1(bytecode.OpLoadNull, dst, span)
		return nil

	case ast.KIdent:
		name := a.Constants.Get(ast.ConstIndex(n.Extra[0])).Str
		kind, reg := fc.resolveVariable(name)
		switch kind {
		case refLocal:
			if reg != dst {
				fc.em.Emit2(bytecode.OpMove, dst, reg, span)
			}
		case refCapture:
			fc.em.EmitGetCapture(dst, reg, span)
		default:
			fc.em.EmitConst(bytecode.OpGetGlobal, dst, ast.ConstIndex(n.Extra[0]), span)
		}
		return nil

	case ast.KListLit, ast.KTupleLit:
		return fc.compileSeqLit(a, n, dst, span)

	case ast.KMapLit:
		return fc.compileMapLit(a, n, dst, span)

	case ast.KRangeLit:
		save := fc.nextReg
		startReg := noReg
		endReg := noReg
		if n.Lhs != ast.NoIndex {
			r, err := fc.allocCompile(a, n.Lhs)
			if err != nil {
				return err
			}
			startReg = r
		}
		if n.Rhs != ast.NoIndex {
			r, err := fc.allocCompile(a, n.Rhs)
			if err != nil {
				return err
			}
			endReg = r
		}
		incl := byte(0)
		if n.Flag {
			incl = 1
		}
		fc.em.EmitMakeRange(dst, startReg, endReg, incl, span)
		fc.nextReg = save
		return nil

	case ast.KUnaryOp:
		save := fc.nextReg
		src, err := fc.allocCompile(a, n.Lhs)
		if err != nil {
			return err
		}
		op := bytecode.OpNeg
		if ast.Op(n.Extra[0]) == ast.OpNot {
			op = bytecode.OpNot
		}
		fc.em.Emit2(op, dst, src, span)
		fc.nextReg = save
		return nil

	case ast.KBinaryOp:
		return fc.compileBinaryOp(a, n, dst, span)

	case ast.KIndex:
		save := fc.nextReg
		objReg, err := fc.allocCompile(a, n.Lhs)
		if err != nil {
			return err
		}
		keyReg, err := fc.allocCompile(a, n.Rhs)
		if err != nil {
			return err
		}
		fc.em.Emit3(bytecode.OpIndex, dst, objReg, keyReg, span)
		fc.nextReg = save
		return nil

	case ast.KAccess:
		save := fc.nextReg
		objReg, err := fc.allocCompile(a, n.Lhs)
		if err != nil {
			return err
		}
		fc.em.EmitFieldGet(dst, objReg, ast.ConstIndex(n.Extra[0]), span)
		fc.nextReg = save
		return nil

	case ast.KCall:
		return fc.compileCall(a, n, dst, span)

	case ast.KFuncLit:
		return fc.compileFuncLit(a, n, dst, span, "")

	case ast.KIf:
		return fc.compileIf(a, n, dst, span)

	case ast.KMatch:
		return fc.compileMatch(a, n, dst, span)

	case ast.KBlock:
		return fc.compileBlockInto(a, idx, dst)

	default:
		// Statement-only node reached in expression position (e.g. a
		// block's final statement is a `let`): run it for effect and
		// yield null.
		if err := fc.compileStmt(a, idx); err != nil {
			return err
		}
		fc.em.Emit1(bytecode.OpLoadNull, dst, span)
		return nil
	}
}

func (fc *funcCompiler) compileBinaryOp(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	op := ast.Op(n.Extra[0])

	if op == ast.OpAnd || op == ast.OpOr {
		save := fc.nextReg
		lhsReg, err := fc.allocCompile(a, n.Lhs)
		if err != nil {
			return err
		}
		if lhsReg != dst {
			fc.em.Emit2(bytecode.OpMove, dst, lhsReg, span)
		}
		var shortField int
		if op == ast.OpAnd {
			shortField = fc.em.EmitJump(bytecode.OpJumpIfFalse, dst, true, span)
		} else {
			shortField = fc.em.EmitJump(bytecode.OpJumpIfTrue, dst, true, span)
		}
		fc.nextReg = save
		if err := fc.compileExprInto(a, n.Rhs, dst); err != nil {
			return err
		}
		fc.em.PatchJump(shortField)
		return nil
	}

	save := fc.nextReg
	lhsReg, err := fc.allocCompile(a, n.Lhs)
	if err != nil {
		return err
	}
	rhsReg, err := fc.allocCompile(a, n.Rhs)
	if err != nil {
		return err
	}
	vmOp, ok := binOpToOpcode[op]
	if !ok {
		return fc.errf(span, "unsupported binary operator")
	}
	fc.em.Emit3(vmOp, dst, lhsReg, rhsReg, span)
	fc.nextReg = save
	return nil
}

var binOpToOpcode = map[ast.Op]bytecode.Op{
	ast.OpAdd:       bytecode.OpAdd,
	ast.OpSub:       bytecode.OpSub,
	ast.OpMul:       bytecode.OpMul,
	ast.OpDiv:       bytecode.OpDiv,
	ast.OpMod:       bytecode.OpMod,
	ast.OpEq:        bytecode.OpEq,
	ast.OpNotEq:     bytecode.OpNotEq,
	ast.OpLess:      bytecode.OpLess,
	ast.OpLessEq:    bytecode.OpLessEq,
	ast.OpGreater:   bytecode.OpGreater,
	ast.OpGreaterEq: bytecode.OpGreaterEq,
}

func (fc *funcCompiler) compileSeqLit(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	save := fc.nextReg
	var first byte
	for i, e := range n.Extra {
		r, err := fc.allocCompile(a, ast.Index(e))
		if err != nil {
			return err
		}
		if i == 0 {
			first = r
		}
	}
	op := bytecode.OpMakeList
	if n.Kind == ast.KTupleLit {
		op = bytecode.OpMakeTuple
	}
	fc.em.EmitCountReg(op, dst, byte(len(n.Extra)), first, span)
	fc.nextReg = save
	return nil
}

func (fc *funcCompiler) compileMapLit(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	save := fc.nextReg
	var first byte
	pairCount := len(n.Extra) / 2
	for i := 0; i < pairCount; i++ {
		kIdx := ast.Index(n.Extra[2*i])
		vIdx := ast.Index(n.Extra[2*i+1])
		kReg, err := fc.allocCompile(a, kIdx)
		if err != nil {
			return err
		}
		if i == 0 {
			first = kReg
		}
		if _, err := fc.allocCompile(a, vIdx); err != nil {
			return err
		}
	}
	fc.em.EmitCountReg(bytecode.OpMakeMap, dst, byte(pairCount), first, span)
	fc.nextReg = save
	return nil
}

func (fc *funcCompiler) compileCall(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	save := fc.nextReg
	calleeReg, err := fc.allocCompile(a, n.Lhs)
	if err != nil {
		return err
	}
	var firstArg byte
	for i, e := range n.Extra {
		r, err := fc.allocCompile(a, ast.Index(e))
		if err != nil {
			return err
		}
		if i == 0 {
			firstArg = r
		}
	}
	fc.em.EmitCall(dst, calleeReg, byte(len(n.Extra)), firstArg, span)
	fc.nextReg = save
	return nil
}

// compileInterpString lowers alternating literal/expr segments into
// repeated string concatenation, routing every non-literal segment
// through the "__to_string" prelude native so arbitrary values (not
// just strings) can be interpolated (spec §4.2 string interpolation).
func (fc *funcCompiler) compileInterpString(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	save := fc.nextReg
	haveAny := false
	for _, e := range n.Extra {
		idx := int(e) >> 1
		isExpr := int(e)&1 == 1
		var segReg byte
		var err error
		if isExpr {
			segReg, err = fc.compileInterpSegment(a, ast.Index(idx), span)
		} else {
			segReg, err = fc.allocCompile(a, ast.Index(idx))
		}
		if err != nil {
			return err
		}
		if !haveAny {
			if segReg != dst {
				fc.em.Emit2(bytecode.OpMove, dst, segReg, span)
			}
			haveAny = true
		} else {
			fc.em.Emit3(bytecode.OpAdd, dst, dst, segReg, span)
		}
		fc.nextReg = save
	}
	if !haveAny {
		emptyIdx, err := a.Constants.AddString("")
		if err != nil {
			return fc.errf(span, "%s", err)
		}
		fc.em.EmitConst(bytecode.OpLoadConst, dst, emptyIdx, span)
	}
	return nil
}

func (fc *funcCompiler) compileInterpSegment(a *ast.Ast, exprIdx ast.Index, span token.Span) (byte, error) {
	valReg, err := fc.allocCompile(a, exprIdx)
	if err != nil {
		return 0, err
	}
	fnReg, err := fc.alloc()
	if err != nil {
		return 0, err
	}
	toStringIdx, err := a.Constants.AddString("__to_string")
	if err != nil {
		return 0, fc.errf(span, "%s", err)
	}
	fc.em.EmitConst(bytecode.OpGetGlobal, fnReg, toStringIdx, span)
	argReg, err := fc.alloc()
	if err != nil {
		return 0, err
	}
	fc.em.Emit2(bytecode.OpMove, argReg, valReg, span)
	resReg, err := fc.alloc()
	if err != nil {
		return 0, err
	}
	fc.em.EmitCall(resReg, fnReg, 1, argReg, span)
	return resReg, nil
}

func (fc *funcCompiler) compileIf(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	save := fc.nextReg
	condReg, err := fc.allocCompile(a, n.Lhs)
	if err != nil {
		return err
	}
	elseField := fc.em.EmitJump(bytecode.OpJumpIfFalse, condReg, true, span)
	fc.nextReg = save

	if err := fc.compileExprInto(a, n.Rhs, dst); err != nil {
		return err
	}
	endField := fc.em.EmitJump(bytecode.OpJump, 0, false, span)
	fc.em.PatchJump(elseField)

	elseBranch := ast.Index(n.Extra[0])
	if elseBranch != ast.NoIndex {
		if err := fc.compileExprInto(a, elseBranch, dst); err != nil {
			return err
		}
	} else {
		fc.em.Emit1(bytecode.OpLoadNull, dst, span)
	}
	fc.em.PatchJump(endField)
	return nil
}

// compileBlockInto compiles a KBlock such that its value is its final
// statement's value if that statement is expression-kind, else Null
// (spec §9 "block value" decision, needed because `if`/`match` are
// grammar primaries and must be usable as expressions).
func (fc *funcCompiler) compileBlockInto(a *ast.Ast, blockIdx ast.Index, dst byte) error {
	n := a.At(blockIdx)
	stmts := n.Extra
	if len(stmts) == 0 {
		fc.em.Emit1(bytecode.OpLoadNull, dst, a.Span(blockIdx))
		return nil
	}
	for _, e := range stmts[:len(stmts)-1] {
		if err := fc.compileStmt(a, ast.Index(e)); err != nil {
			return err
		}
	}
	last := ast.Index(stmts[len(stmts)-1])
	return fc.compileStmtAsValue(a, last, dst)
}

// compileStmtAsValue compiles a statement for its value when it is the
// final statement of a block used in expression position.
func (fc *funcCompiler) compileStmtAsValue(a *ast.Ast, idx ast.Index, dst byte) error {
	switch a.At(idx).Kind {
	case ast.KFor, ast.KWhile, ast.KLoop, ast.KBreak, ast.KContinue,
		ast.KReturn, ast.KThrow, ast.KTry, ast.KImport, ast.KExport,
		ast.KTestDecl, ast.KYield, ast.KLet, ast.KAssign:
		if err := fc.compileStmt(a, idx); err != nil {
			return err
		}
		fc.em.Emit1(bytecode.OpLoadNull, dst, a.Span(idx))
		return nil
	default:
		return fc.compileExprInto(a, idx, dst)
	}
}
