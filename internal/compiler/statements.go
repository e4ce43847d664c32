package compiler

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/token"
)

// compileStmt compiles a statement for effect, discarding any value it
// produces.
func (fc *funcCompiler) compileStmt(a *ast.Ast, idx ast.Index) error {
	n := a.At(idx)
	span := a.Span(idx)

	switch n.Kind {
	case ast.KLet:
		return fc.compileLet(a, n, span)
	case ast.KAssign:
		return fc.compileAssign(a, n, span)
	case ast.KFor:
		return fc.compileFor(a, n, span)
	case ast.KWhile:
		return fc.compileWhile(a, n, span)
	case ast.KLoop:
		return fc.compileLoop(a, n, span)
	case ast.KBreak:
		return fc.compileBreak(a, n, span)
	case ast.KContinue:
		return fc.compileContinue(span)
	case ast.KReturn:
		return fc.compileReturn(a, n, span)
	case ast.KThrow:
		save := fc.nextReg
		r, err := fc.allocCompile(a, n.Lhs)
		if err != nil {
			return err
		}
		fc.em.Emit1(bytecode.OpThrow, r, span)
		fc.nextReg = save
		return nil
	case ast.KTry:
		return fc.compileTry(a, n, span)
	case ast.KImport:
		return fc.compileImport(a, n, span)
	case ast.KExport:
		return fc.compileStmt(a, n.Lhs)
	case ast.KTestDecl:
		// Tests compile and register like any other top-level value; the
		// runner (pkg/lumen's Lumen.runTests, when Settings.RunTests is
		// set) walks globals named via the synthesized "__test__<name>"
		// convention.
		return fc.compileTestDecl(a, n, span)
	case ast.KYield:
		save := fc.nextReg
		var r byte
		var err error
		if n.Lhs != ast.NoIndex {
			r, err = fc.allocCompile(a, n.Lhs)
		} else {
			r, err = fc.alloc()
			if err == nil {
				fc.em.Emit1(bytecode.OpLoadNull, r, span)
			}
		}
		if err != nil {
			return err
		}
		fc.em.Emit1(bytecode.OpYield, r, span)
		fc.nextReg = save
		return nil
	default:
		// Any expression-kind node used as a bare statement: compile and
		// discard its value.
		save := fc.nextReg
		if _, err := fc.allocCompile(a, idx); err != nil {
			return err
		}
		fc.nextReg = save
		return nil
	}
}

func (fc *funcCompiler) compileLet(a *ast.Ast, n *ast.Node, span token.Span) error {
	pat := n.Lhs
	rhs := n.Rhs
	topLevel := fc.isScript && fc.parent == nil && len(fc.loops) == 0 && fc.atTopDepth()

	if a.At(pat).Kind == ast.KPatIdent {
		nameIdx := ast.ConstIndex(a.At(pat).Extra[0])
		if topLevel {
			save := fc.nextReg
			r, err := fc.allocCompile(a, rhs)
			if err != nil {
				return err
			}
			fc.compiler.globalNames[a.Constants.Get(nameIdx).Str] = true
			fc.em.EmitSetGlobal(nameIdx, r, span)
			fc.nextReg = save
			return nil
		}
		reg, err := fc.alloc()
		if err != nil {
			return fc.errf(span, "%s", err)
		}
		name := a.Constants.Get(nameIdx).Str
		if err := fc.compileExprInto(a, rhs, reg); err != nil {
			return err
		}
		if a.At(rhs).Kind == ast.KFuncLit {
			// Name the closure for nicer display()/stack traces.
			fc.nameLastFunction(name)
		}
		fc.declareLocal(name, reg)
		return nil
	}

	save := fc.nextReg
	valReg, err := fc.allocCompile(a, rhs)
	if err != nil {
		return err
	}
	if err := fc.compileIrrefutableBind(a, pat, valReg, topLevel); err != nil {
		return err
	}
	if topLevel {
		fc.nextReg = save
	}
	return nil
}

// atTopDepth reports whether fc currently has no open lexical scope
// (beginScope/endScope pair) above the function's top level — top-level
// `let`s at script scope become globals. An `if` block opens no scope of
// its own, so a `let` inside an `if` at the top of a script also becomes
// a global.
func (fc *funcCompiler) atTopDepth() bool {
	return len(fc.locals) == 0 && fc.scopeNesting == 0
}

func (fc *funcCompiler) compileAssign(a *ast.Ast, n *ast.Node, span token.Span) error {
	target := a.At(n.Lhs)
	op := ast.Op(n.Extra[0])

	switch target.Kind {
	case ast.KIdent:
		name := a.Constants.Get(ast.ConstIndex(target.Extra[0])).Str
		kind, reg := fc.resolveVariable(name)
		switch kind {
		case refLocal:
			return fc.storeCompound(a, n, reg, op, span, func(v byte) {
				if v != reg {
					fc.em.Emit2(bytecode.OpMove, reg, v, span)
				}
			})
		case refCapture:
			// Captures are value snapshots, not live cells: reassigning a
			// captured outer name only rebinds it for this closure's own
			// continuation, material only if it also has a local alias.
			return fc.errf(span, "cannot assign to a captured variable")
		default:
			nameIdx := ast.ConstIndex(target.Extra[0])
			return fc.storeCompound(a, n, 0, op, span, func(v byte) {
				fc.compiler.globalNames[name] = true
				fc.em.EmitSetGlobal(nameIdx, v, span)
			})
		}

	case ast.KIndex:
		save := fc.nextReg
		objReg, err := fc.allocCompile(a, target.Lhs)
		if err != nil {
			return err
		}
		keyReg, err := fc.allocCompile(a, target.Rhs)
		if err != nil {
			return err
		}
		var curReg byte
		if op != 0 {
			curReg, err = fc.alloc()
			if err != nil {
				return fc.errf(span, "%s", err)
			}
			fc.em.Emit3(bytecode.OpIndex, curReg, objReg, keyReg, span)
		}
		valReg, err := fc.compileAssignRHS(a, n, op, curReg, span)
		if err != nil {
			return err
		}
		fc.em.Emit3(bytecode.OpSetIndex, objReg, keyReg, valReg, span)
		fc.nextReg = save
		return nil

	case ast.KAccess:
		save := fc.nextReg
		objReg, err := fc.allocCompile(a, target.Lhs)
		if err != nil {
			return err
		}
		nameIdx := ast.ConstIndex(target.Extra[0])
		var curReg byte
		if op != 0 {
			curReg, err = fc.alloc()
			if err != nil {
				return fc.errf(span, "%s", err)
			}
			fc.em.EmitFieldGet(curReg, objReg, nameIdx, span)
		}
		valReg, err := fc.compileAssignRHS(a, n, op, curReg, span)
		if err != nil {
			return err
		}
		fc.em.EmitFieldSet(objReg, nameIdx, valReg, span)
		fc.nextReg = save
		return nil

	default:
		return fc.errf(span, "invalid assignment target")
	}
}

// storeCompound computes the assignment's RHS (applying the compound
// operator against curReg's prior value when op != 0) and invokes store
// with the resulting register.
func (fc *funcCompiler) storeCompound(a *ast.Ast, n *ast.Node, curReg byte, op ast.Op, span token.Span, store func(v byte)) error {
	save := fc.nextReg
	v, err := fc.compileAssignRHS(a, n, op, curReg, span)
	if err != nil {
		return err
	}
	store(v)
	fc.nextReg = save
	return nil
}

// compileAssignRHS evaluates n.Rhs, combining it with curReg via op when
// op != 0 (compound assignment), returning the register holding the
// final value to store.
func (fc *funcCompiler) compileAssignRHS(a *ast.Ast, n *ast.Node, op ast.Op, curReg byte, span token.Span) (byte, error) {
	rhsReg, err := fc.allocCompile(a, n.Rhs)
	if err != nil {
		return 0, err
	}
	if op == 0 {
		return rhsReg, nil
	}
	vmOp, ok := binOpToOpcode[op]
	if !ok {
		return 0, fc.errf(span, "unsupported compound-assignment operator")
	}
	dst, err := fc.alloc()
	if err != nil {
		return 0, fc.errf(span, "%s", err)
	}
	fc.em.Emit3(vmOp, dst, curReg, rhsReg, span)
	return dst, nil
}

func (fc *funcCompiler) compileFor(a *ast.Ast, n *ast.Node, span token.Span) error {
	outerSave := fc.nextReg
	iterReg, err := fc.allocCompile(a, n.Rhs)
	if err != nil {
		return err
	}
	fc.em.Emit2(bytecode.OpMakeIterator, iterReg, iterReg, span)

	loopStart := fc.em.Here()
	mark := fc.beginScope()
	fc.scopeNesting++
	valueReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	doneField := fc.em.EmitIterNext(valueReg, iterReg, span)
	if err := fc.compileIrrefutableBind(a, n.Lhs, valueReg, false); err != nil {
		return err
	}

	fc.loops = append(fc.loops, loopCtx{continueTarget: loopStart})
	body := ast.Index(n.Extra[0])
	if err := fc.compileBlockStmts(a, body); err != nil {
		return err
	}
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.em.EmitJumpTo(bytecode.OpJump, loopStart, span)
	fc.em.PatchJump(doneField)
	for _, j := range lc.breakJumps {
		fc.em.PatchJump(j)
	}
	fc.scopeNesting--
	fc.endScope(mark)
	fc.nextReg = outerSave
	return nil
}

func (fc *funcCompiler) compileWhile(a *ast.Ast, n *ast.Node, span token.Span) error {
	outerSave := fc.nextReg
	loopStart := fc.em.Here()
	condReg, err := fc.allocCompile(a, n.Lhs)
	if err != nil {
		return err
	}
	exitField := fc.em.EmitJump(bytecode.OpJumpIfFalse, condReg, true, span)
	fc.nextReg = outerSave

	mark := fc.beginScope()
	fc.scopeNesting++
	fc.loops = append(fc.loops, loopCtx{continueTarget: loopStart})
	if err := fc.compileBlockStmts(a, n.Rhs); err != nil {
		return err
	}
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.em.EmitJumpTo(bytecode.OpJump, loopStart, span)
	fc.em.PatchJump(exitField)
	for _, j := range lc.breakJumps {
		fc.em.PatchJump(j)
	}
	fc.scopeNesting--
	fc.endScope(mark)
	fc.nextReg = outerSave
	return nil
}

func (fc *funcCompiler) compileLoop(a *ast.Ast, n *ast.Node, span token.Span) error {
	outerSave := fc.nextReg
	loopStart := fc.em.Here()

	mark := fc.beginScope()
	fc.scopeNesting++
	fc.loops = append(fc.loops, loopCtx{continueTarget: loopStart})
	if err := fc.compileBlockStmts(a, n.Lhs); err != nil {
		return err
	}
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.em.EmitJumpTo(bytecode.OpJump, loopStart, span)
	for _, j := range lc.breakJumps {
		fc.em.PatchJump(j)
	}
	fc.scopeNesting--
	fc.endScope(mark)
	fc.nextReg = outerSave
	return nil
}

func (fc *funcCompiler) compileBreak(a *ast.Ast, n *ast.Node, span token.Span) error {
	if len(fc.loops) == 0 {
		return fc.errf(span, "break outside of a loop")
	}
	if n.Lhs != ast.NoIndex {
		save := fc.nextReg
		if _, err := fc.allocCompile(a, n.Lhs); err != nil {
			return err
		}
		fc.nextReg = save
	}
	field := fc.em.EmitJump(bytecode.OpJump, 0, false, span)
	top := len(fc.loops) - 1
	fc.loops[top].breakJumps = append(fc.loops[top].breakJumps, field)
	return nil
}

func (fc *funcCompiler) compileContinue(span token.Span) error {
	if len(fc.loops) == 0 {
		return fc.errf(span, "continue outside of a loop")
	}
	fc.em.EmitJumpTo(bytecode.OpJump, fc.loops[len(fc.loops)-1].continueTarget, span)
	return nil
}

func (fc *funcCompiler) compileReturn(a *ast.Ast, n *ast.Node, span token.Span) error {
	if n.Lhs == ast.NoIndex {
		fc.em.Emit1(bytecode.OpReturn, noReg, span)
		return nil
	}
	save := fc.nextReg
	r, err := fc.allocCompile(a, n.Lhs)
	if err != nil {
		return err
	}
	fc.em.Emit1(bytecode.OpReturn, r, span)
	fc.nextReg = save
	return nil
}

func (fc *funcCompiler) compileTry(a *ast.Ast, n *ast.Node, span token.Span) error {
	bodyBlock := n.Lhs
	catchPat := ast.Index(n.Extra[0])
	catchBody := ast.Index(n.Extra[1])
	finallyBody := ast.Index(n.Extra[2])

	if catchBody == ast.NoIndex && finallyBody == ast.NoIndex {
		return fc.compileBlockStmts(a, bodyBlock)
	}

	outerSave := fc.nextReg
	catchReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	tryField := fc.em.EmitTryBegin(catchReg, span)
	if err := fc.compileBlockStmts(a, bodyBlock); err != nil {
		return err
	}
	fc.em.Emit0(bytecode.OpTryEnd, span)
	if finallyBody != ast.NoIndex {
		if err := fc.compileBlockStmts(a, finallyBody); err != nil {
			return err
		}
	}
	endField := fc.em.EmitJump(bytecode.OpJump, 0, false, span)

	fc.em.PatchJump(tryField)
	if catchBody != ast.NoIndex {
		mark := fc.beginScope()
		fc.scopeNesting++
		if catchPat != ast.NoIndex {
			if err := fc.compileIrrefutableBind(a, catchPat, catchReg, false); err != nil {
				return err
			}
		}
		if err := fc.compileBlockStmts(a, catchBody); err != nil {
			return err
		}
		fc.scopeNesting--
		fc.endScope(mark)
		if finallyBody != ast.NoIndex {
			if err := fc.compileBlockStmts(a, finallyBody); err != nil {
				return err
			}
		}
	} else {
		if finallyBody != ast.NoIndex {
			if err := fc.compileBlockStmts(a, finallyBody); err != nil {
				return err
			}
		}
		fc.em.Emit1(bytecode.OpThrow, catchReg, span)
	}
	fc.em.PatchJump(endField)
	fc.nextReg = outerSave
	return nil
}

// compileImport lowers both import forms to OpImport + OpGetField/
// OpSetGlobal: the imported module's exports map is fetched once, then
// each bound name is pulled out of it (spec §4.6 loader integration).
func (fc *funcCompiler) compileImport(a *ast.Ast, n *ast.Node, span token.Span) error {
	pathIdx := ast.ConstIndex(n.Extra[0])

	save := fc.nextReg
	modReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fc.em.EmitConst(bytecode.OpImport, modReg, pathIdx, span)

	bindOne := func(fieldIdx, bindIdx ast.ConstIndex) error {
		var reg byte
		if fieldIdx == -1 {
			reg = modReg
		} else {
			reg, err = fc.alloc()
			if err != nil {
				return fc.errf(span, "%s", err)
			}
			fc.em.EmitFieldGet(reg, modReg, fieldIdx, span)
		}
		name := a.Constants.Get(bindIdx).Str
		if fc.atTopDepth() {
			fc.compiler.globalNames[name] = true
			fc.em.EmitSetGlobal(bindIdx, reg, span)
		} else {
			fc.declareLocal(name, reg)
		}
		return nil
	}

	if !n.Flag {
		aliasIdx := n.Extra[1]
		path := n.Extra[2:]
		var bindIdx ast.ConstIndex
		if aliasIdx != -1 {
			bindIdx = ast.ConstIndex(aliasIdx)
		} else if len(path) > 0 {
			bindIdx = ast.ConstIndex(path[len(path)-1])
		} else {
			bindIdx = pathIdx
		}
		if err := bindOne(-1, bindIdx); err != nil {
			return err
		}
	} else {
		rest := n.Extra[2:]
		for i := 0; i+1 < len(rest); i += 2 {
			nameIdx := ast.ConstIndex(rest[i])
			asIdx := ast.ConstIndex(rest[i+1])
			bindIdx := nameIdx
			if int32(asIdx) != -1 {
				bindIdx = asIdx
			}
			if err := bindOne(nameIdx, bindIdx); err != nil {
				return err
			}
		}
	}

	if fc.atTopDepth() {
		fc.nextReg = save
	}
	return nil
}

// compileTestDecl compiles a `test "name"` block's body into a
// zero-argument closure bound to a synthesized global, letting a test
// runner enumerate and call every "__test__*" global without any
// separate registry bookkeeping in the chunk format.
func (fc *funcCompiler) compileTestDecl(a *ast.Ast, n *ast.Node, span token.Span) error {
	nameIdx := ast.ConstIndex(n.Extra[0])
	testName := a.Constants.Get(nameIdx).Str

	globalNameIdx, err := a.Constants.AddString("__test__" + testName)
	if err != nil {
		return fc.errf(span, "%s", err)
	}

	child := &funcCompiler{
		compiler:     fc.compiler,
		parent:       fc,
		em:           &bytecode.Emitter{},
		captureIndex: map[string]int{},
	}
	if err := child.compileBlockStmts(a, n.Lhs); err != nil {
		return err
	}
	child.em.Emit1(bytecode.OpReturn, noReg, span)

	proto := &bytecode.FuncProto{
		Name:          testName,
		NumRegisters:  child.maxReg,
		NumCaptures:   len(child.captures),
		DefaultsChunk: nil,
		BodyStart:     0,
		Code:          child.em.Code,
		Debug:         child.em.Debug,
		SourcePath:    fc.compiler.sourcePath,
		Constants:     a.Constants,
	}
	protoIdx := fc.compiler.addProto(proto)

	save := fc.nextReg
	first, count, err := fc.materializeCaptures(child, span)
	if err != nil {
		return err
	}
	fnReg, err := fc.alloc()
	if err != nil {
		return fc.errf(span, "%s", err)
	}
	fc.em.EmitMakeFunction(fnReg, protoIdx, count, first, span)
	fc.compiler.globalNames[a.Constants.Get(globalNameIdx).Str] = true
	fc.em.EmitSetGlobal(globalNameIdx, fnReg, span)
	fc.nextReg = save
	return nil
}
