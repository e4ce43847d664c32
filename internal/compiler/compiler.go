// Package compiler lowers an internal/ast.Ast into an internal/bytecode
// Chunk: a per-frame register allocator with no spilling (spec §4.4), a
// left-to-right closure capture analysis that snapshots values at
// OpMakeFunction time rather than threading live upvalue cells (the
// compiler's own simplification over the teacher's cell-based upvalues,
// viable because nothing in this language lets a closure observe an
// outer rebind after creation), and pattern compilation shared between
// let-bindings, function parameters, for-loops, catch clauses and match
// arms.
package compiler

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/token"
)

// Compiler holds state shared across every function scope compiled from
// one Ast: the constant/proto pool and the set of global names declared
// by top-level `let`s (spec §4.6 "globals are name-addressed, not
// slot-addressed").
type Compiler struct {
	a           *ast.Ast
	protos      []*bytecode.FuncProto
	globalNames map[string]bool
	sourcePath  string
}

// localVar is one name bound to a register for the lifetime of its
// enclosing scope.
type localVar struct {
	name string
	reg  byte
}

// captureSrc records where, in the immediately enclosing function's
// frame, a capture's value is read from when this function's closure is
// created: either a plain register (fromCapture=false) or one of the
// enclosing function's own capture slots (fromCapture=true, idx is that
// capture's index).
type captureSrc struct {
	name        string
	fromCapture bool
	idx         byte
}

// loopCtx tracks a loop's continue target and the break jumps awaiting
// a patch to the loop's exit.
type loopCtx struct {
	continueTarget int
	breakJumps     []int
}

// refKind tags what resolveVariable found a name bound to.
type refKind int

const (
	refLocal refKind = iota
	refCapture
	refGlobal
)

// noReg marks an absent optional register operand (e.g. an unbounded
// range endpoint), matching the 0xFF sentinel spec §4.5 documents for
// OpMakeRange.
const noReg byte = 0xFF

// funcCompiler compiles one function body (or the top-level script) into
// its own Emitter and register file. Nested function literals get their
// own funcCompiler chained via parent.
type funcCompiler struct {
	compiler *Compiler
	parent   *funcCompiler
	em       *bytecode.Emitter

	locals   []localVar
	nextReg  int
	maxReg   int
	captures []captureSrc

	captureIndex map[string]int
	loops        []loopCtx
	scopeNesting int // count of open beginScope/endScope pairs, for top-level global-vs-local `let` routing

	isScript bool // true only for the top-level program's implicit function
}

func (fc *funcCompiler) errf(span token.Span, format string, args ...interface{}) error {
	return &lumenerr.CompileError{Message: fmt.Sprintf(format, args...), Span: span}
}

// alloc reserves the next free register, enforcing the 255 live-register
// ceiling (spec §4.4).
func (fc *funcCompiler) alloc() (byte, error) {
	if fc.nextReg >= 255 {
		return 0, fmt.Errorf("function exceeds the 255 live-register ceiling")
	}
	r := byte(fc.nextReg)
	fc.nextReg++
	if fc.nextReg > fc.maxReg {
		fc.maxReg = fc.nextReg
	}
	return r, nil
}

// allocCompile reserves a fresh register and compiles idx's value into
// it, returning the register.
func (fc *funcCompiler) allocCompile(a *ast.Ast, idx ast.Index) (byte, error) {
	r, err := fc.alloc()
	if err != nil {
		return 0, fc.errf(a.Span(idx), "%s", err)
	}
	if err := fc.compileExprInto(a, idx, r); err != nil {
		return 0, err
	}
	return r, nil
}

// beginScope returns a mark that endScope uses to unwind both the
// locals list and the register watermark introduced since.
func (fc *funcCompiler) beginScope() int {
	return len(fc.locals)
}

func (fc *funcCompiler) endScope(mark int) {
	if mark < len(fc.locals) {
		fc.nextReg = int(fc.locals[mark].reg)
	}
	fc.locals = fc.locals[:mark]
}

func (fc *funcCompiler) declareLocal(name string, reg byte) {
	fc.locals = append(fc.locals, localVar{name: name, reg: reg})
}

func (fc *funcCompiler) findLocal(name string) (byte, bool) {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if fc.locals[i].name == name {
			return fc.locals[i].reg, true
		}
	}
	return 0, false
}

// resolveVariable finds name as a local, a (possibly newly recorded)
// capture threaded through the enclosing function chain, or falls
// through to a global (spec §4.4 closure capture analysis).
func (fc *funcCompiler) resolveVariable(name string) (refKind, byte) {
	if r, ok := fc.findLocal(name); ok {
		return refLocal, r
	}
	if idx, ok := fc.captureIndex[name]; ok {
		return refCapture, byte(idx)
	}
	if fc.parent != nil {
		pk, pr := fc.parent.resolveVariable(name)
		if pk == refLocal || pk == refCapture {
			idx := len(fc.captures)
			fc.captures = append(fc.captures, captureSrc{name: name, fromCapture: pk == refCapture, idx: pr})
			fc.captureIndex[name] = idx
			return refCapture, byte(idx)
		}
	}
	return refGlobal, 0
}

// compileBlockStmts compiles every statement of a KBlock for effect,
// discarding each statement's value (used for loop/try/catch/finally
// bodies, which are never themselves expressions).
func (fc *funcCompiler) compileBlockStmts(a *ast.Ast, blockIdx ast.Index) error {
	n := a.At(blockIdx)
	for _, e := range n.Extra {
		if err := fc.compileStmt(a, ast.Index(e)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) addProto(p *bytecode.FuncProto) int {
	idx := len(c.protos)
	c.protos = append(c.protos, p)
	return idx
}

// Compile lowers a parsed program into a bytecode Chunk. a.Root must be
// the KBlock produced by parser.parseProgram.
func Compile(a *ast.Ast, sourcePath string) (*bytecode.Chunk, error) {
	c := &Compiler{a: a, globalNames: map[string]bool{}, sourcePath: sourcePath}
	top := &funcCompiler{
		compiler:     c,
		em:           &bytecode.Emitter{},
		captureIndex: map[string]int{},
		isScript:     true,
	}
	// The script's result is its final statement's value, the same rule
	// a block in expression position follows.
	resReg, err := top.alloc()
	if err != nil {
		return nil, top.errf(a.Span(a.Root), "%s", err)
	}
	if err := top.compileBlockInto(a, a.Root, resReg); err != nil {
		return nil, err
	}
	top.em.Emit1(bytecode.OpReturn, resReg, a.Span(a.Root))

	// Every proto shares the one finalized table so OpMakeFunction can
	// resolve a sibling/nested proto index at runtime; done last since
	// c.protos keeps growing (and reallocating) while nested functions
	// compile.
	for _, p := range c.protos {
		p.Protos = c.protos
	}

	return &bytecode.Chunk{
		Code:         top.em.Code,
		Constants:    a.Constants,
		Protos:       c.protos,
		SourcePath:   sourcePath,
		Debug:        top.em.Debug,
		NumGlobals:   len(c.globalNames),
		NumRegisters: top.maxReg,
	}, nil
}
