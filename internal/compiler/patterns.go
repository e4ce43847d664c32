package compiler

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/token"
)

// compileIrrefutableBind destructures valueReg against pattern, binding
// every name it introduces. Used for let-bindings, function parameters,
// for-loop patterns, catch clauses, and (as a pragmatic simplification,
// see DESIGN.md) tuple/list sub-patterns nested inside match arms: a
// shape mismatch here raises a runtime error rather than falling
// through to the next match arm, since no length-introspection opcode
// exists independent of a core-lib call.
//
// global selects whether a bound KPatIdent becomes a local register
// binding or a named global (top-level `let` destructuring).
func (fc *funcCompiler) compileIrrefutableBind(a *ast.Ast, pattern ast.Index, valueReg byte, global bool) error {
	n := a.At(pattern)
	span := a.Span(pattern)

	switch n.Kind {
	case ast.KPatWildcard:
		return nil

	case ast.KPatIdent:
		nameIdx := ast.ConstIndex(n.Extra[0])
		return fc.bindName(a, nameIdx, valueReg, global, span)

	case ast.KPatRest:
		if n.Extra[0] == -1 {
			return nil
		}
		return fc.bindName(a, ast.ConstIndex(n.Extra[0]), valueReg, global, span)

	case ast.KPatTuple, ast.KPatList:
		return fc.compileSeqBind(a, n, valueReg, global, span)

	case ast.KPatConst, ast.KPatRange:
		return fc.errf(span, "literal patterns are only valid in match arms")

	default:
		return fc.errf(span, "invalid binding pattern")
	}
}

func (fc *funcCompiler) bindName(a *ast.Ast, nameIdx ast.ConstIndex, valueReg byte, global bool, span token.Span) error {
	name := a.Constants.Get(nameIdx).Str
	if global {
		fc.compiler.globalNames[name] = true
		fc.em.EmitSetGlobal(nameIdx, valueReg, span)
		return nil
	}
	fc.declareLocal(name, valueReg)
	return nil
}

// compileSeqBind destructures a tuple/list pattern. A rest element is
// only ever the last (ast.IsRestAdmissible), so it always collects
// every remaining element via the "__bind_rest" prelude helper rather
// than needing a dedicated slice opcode.
func (fc *funcCompiler) compileSeqBind(a *ast.Ast, n *ast.Node, valueReg byte, global bool, span token.Span) error {
	elems := n.Extra
	restIdx := -1
	if n.Flag {
		for i, e := range elems {
			if a.At(ast.Index(e)).Kind == ast.KPatRest {
				restIdx = i
				break
			}
		}
	}

	fixedCount := len(elems)
	if restIdx != -1 {
		fixedCount = restIdx
	}
	for i := 0; i < fixedCount; i++ {
		idxReg, err := fc.indexConst(a, valueReg, i, span)
		if err != nil {
			return err
		}
		if err := fc.compileIrrefutableBind(a, ast.Index(elems[i]), idxReg, global); err != nil {
			return err
		}
	}

	if restIdx == -1 {
		return nil
	}

	restPattern := ast.Index(elems[restIdx])
	restNode := a.At(restPattern)

	resReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	save := fc.nextReg
	fnReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fnIdx, err := a.Constants.AddString("__bind_rest")
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fc.em.EmitConst(bytecode.OpGetGlobal, fnReg, fnIdx, span)
	argBase, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fc.em.Emit2(bytecode.OpMove, argBase, valueReg, span)
	startReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fc.em.EmitImm32(bytecode.OpLoadInt, startReg, int32(restIdx), span)
	fc.em.EmitCall(resReg, fnReg, 2, argBase, span)
	fc.nextReg = save

	if restNode.Extra[0] == -1 {
		fc.nextReg = int(resReg)
		return nil
	}
	return fc.bindName(a, ast.ConstIndex(restNode.Extra[0]), resReg, global, span)
}

// indexConst reads valueReg[i] into a freshly allocated, permanently
// kept register.
func (fc *funcCompiler) indexConst(a *ast.Ast, valueReg byte, i int, span token.Span) (byte, error) {
	idxReg, err := fc.alloc()
	if err != nil {
		return 0, fc.errf(span, "%s", err)
	}
	tmp, err := fc.alloc()
	if err != nil {
		return 0, fc.errf(span, "%s", err)
	}
	fc.em.EmitImm32(bytecode.OpLoadInt, tmp, int32(i), span)
	fc.em.Emit3(bytecode.OpIndex, idxReg, valueReg, tmp, span)
	fc.nextReg--
	return idxReg, nil
}

func (fc *funcCompiler) compileMatch(a *ast.Ast, n *ast.Node, dst byte, span token.Span) error {
	save := fc.nextReg
	subjReg, err := fc.allocCompile(a, n.Lhs)
	if err != nil {
		return err
	}

	var endJumps []int
	for _, armRaw := range n.Extra {
		arm := a.At(ast.Index(armRaw))
		mark := fc.beginScope()
		fc.scopeNesting++

		failFields, err := fc.compileMatchPattern(a, arm.Lhs, subjReg)
		if err != nil {
			return err
		}

		guard := ast.Index(arm.Extra[0])
		if guard != ast.NoIndex {
			gsave := fc.nextReg
			guardReg, err := fc.allocCompile(a, guard)
			if err != nil {
				return err
			}
			gf := fc.em.EmitJump(bytecode.OpJumpIfFalse, guardReg, true, span)
			fc.nextReg = gsave
			failFields = append(failFields, gf)
		}

		if err := fc.compileExprInto(a, arm.Rhs, dst); err != nil {
			return err
		}
		fc.scopeNesting--
		fc.endScope(mark)

		endJumps = append(endJumps, fc.em.EmitJump(bytecode.OpJump, 0, false, span))
		for _, f := range failFields {
			fc.em.PatchJump(f)
		}
	}

	errIdx, err := a.Constants.AddString("no arm matched the value")
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	errReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fc.em.EmitConst(bytecode.OpLoadConst, errReg, errIdx, span)
	fc.em.Emit1(bytecode.OpThrow, errReg, span)

	for _, j := range endJumps {
		fc.em.PatchJump(j)
	}
	fc.nextReg = save
	return nil
}

// compileMatchPattern compiles a refutable match-arm pattern, returning
// the jump-field offsets to patch to the next arm's test on failure.
// Wildcard/ident/rest are always-match (no fields); const/range perform
// a runtime comparison; tuple/list delegate to the irrefutable binder
// (see its doc comment).
func (fc *funcCompiler) compileMatchPattern(a *ast.Ast, pattern ast.Index, valueReg byte) ([]int, error) {
	n := a.At(pattern)
	span := a.Span(pattern)

	switch n.Kind {
	case ast.KPatWildcard:
		return nil, nil

	case ast.KPatIdent:
		if err := fc.bindName(a, ast.ConstIndex(n.Extra[0]), valueReg, false, span); err != nil {
			return nil, err
		}
		return nil, nil

	case ast.KPatRest:
		if n.Extra[0] != -1 {
			if err := fc.bindName(a, ast.ConstIndex(n.Extra[0]), valueReg, false, span); err != nil {
				return nil, err
			}
		}
		return nil, nil

	case ast.KPatConst:
		save := fc.nextReg
		litReg, err := fc.allocCompile(a, n.Lhs)
		if err != nil {
			return nil, err
		}
		eqReg, err := fc.alloc()
		if err != nil {
			return nil, fc.errf(span, "%s", err)
		}
		fc.em.Emit3(bytecode.OpEq, eqReg, valueReg, litReg, span)
		field := fc.em.EmitJump(bytecode.OpJumpIfFalse, eqReg, true, span)
		fc.nextReg = save
		return []int{field}, nil

	case ast.KPatRange:
		var fields []int
		if n.Lhs != ast.NoIndex {
			save := fc.nextReg
			startReg, err := fc.allocCompile(a, n.Lhs)
			if err != nil {
				return nil, err
			}
			geReg, err := fc.alloc()
			if err != nil {
				return nil, fc.errf(span, "%s", err)
			}
			fc.em.Emit3(bytecode.OpGreaterEq, geReg, valueReg, startReg, span)
			fields = append(fields, fc.em.EmitJump(bytecode.OpJumpIfFalse, geReg, true, span))
			fc.nextReg = save
		}
		if n.Rhs != ast.NoIndex {
			save := fc.nextReg
			endReg, err := fc.allocCompile(a, n.Rhs)
			if err != nil {
				return nil, err
			}
			op := bytecode.OpLess
			if n.Flag {
				op = bytecode.OpLessEq
			}
			cmpReg, err := fc.alloc()
			if err != nil {
				return nil, fc.errf(span, "%s", err)
			}
			fc.em.Emit3(op, cmpReg, valueReg, endReg, span)
			fields = append(fields, fc.em.EmitJump(bytecode.OpJumpIfFalse, cmpReg, true, span))
			fc.nextReg = save
		}
		return fields, nil

	case ast.KPatTuple, ast.KPatList:
		if err := fc.compileIrrefutableBind(a, pattern, valueReg, false); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, fc.errf(span, "unsupported pattern in match arm")
	}
}
