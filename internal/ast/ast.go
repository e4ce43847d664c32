// Package ast implements the arena-backed AST described in spec §3.3:
// nodes addressed by small integer indices rather than pointers, with a
// parallel span table and a constant pool shared with the compiler's
// bytecode chunks.
package ast

import "github.com/lumen-lang/lumen/internal/token"

// Index addresses a single node in an Ast's arena. NoIndex (-1) never
// addresses a real node; the zero value addresses the first node added.
type Index int32

// NoIndex is the sentinel "no node" index.
const NoIndex Index = -1

// Kind tags the variant of a Node.
type Kind uint8

const (
	KInvalid Kind = iota
	KNull
	KBool
	KNumberInt
	KNumberFloat
	KStringLit
	KInterpString // Extra: alternating literal/expr segments, each Index<<1 | 1 for expr, 0 for a KStringLit
	KIdent
	KWildcard
	KListLit
	KTupleLit
	KMapLit   // Children: pairs of (keyExpr, valExpr) indices in Extra
	KRangeLit // Lhs=start(or NoIndex), Rhs=end(or NoIndex), Flag=inclusive
	KUnaryOp  // Op in Extra[0], Lhs=operand
	KBinaryOp // Op in Extra[0], Lhs, Rhs
	KAssign   // Lhs=target, Rhs=value, Op in Extra[0] (0=plain, else compound op)
	KLet      // Pattern=Lhs, TypeAnn unused, Rhs=value (an exported let is wrapped in KExport)
	KIf       // Lhs=cond, Rhs=thenBranch, Extra[0]=elseBranch(or NoIndex)
	KMatch    // Lhs=subject, Extra=list of MatchArm indices
	KMatchArm // Lhs=pattern, Rhs=body, Extra[0]=guard(or NoIndex)
	KFor      // Lhs=pattern, Rhs=iterable, Extra[0]=body
	KWhile    // Lhs=cond, Rhs=body
	KLoop     // Lhs=body
	KBreak    // Lhs=value(or NoIndex)
	KContinue
	KReturn // Lhs=value(or NoIndex)
	KThrow  // Lhs=value
	KTry    // Lhs=body, Extra[0]=catchPattern(or NoIndex), Extra[1]=catchBody(or NoIndex), Extra[2]=finallyBody(or NoIndex)
	KBlock  // Extra = list of statement indices
	KFuncLit
	// Lhs=body, Extra = [variadicFlag, generatorFlag, then per param: paramPatternIdx, paramDefaultIdx(or NoIndex)]
	KCall    // Lhs=callee, Extra = arg indices
	KIndex   // Lhs=obj, Rhs=key
	KAccess  // Lhs=obj, Extra[0]=nameConstIndex
	// KImport: Extra[0]=pathConstIndex. Flag=false (plain `import a.b[ as c]`):
	// Extra[1]=aliasConstIndex(or -1), Extra[2:]=dotted path segment const indices.
	// Flag=true (`from a.b import c[ as d], ...`): Extra[1]=-1 (unused),
	// Extra[2:] holds (nameConstIndex, bindAsConstIndex) pairs.
	KImport
	KExport  // Lhs=inner statement
	KTestDecl
	// test block: Extra[0]=nameConstIndex, Lhs=body
	KYield // Lhs=value(or NoIndex); presence inside a KFuncLit body marks it a generator
)

// Node is one arena entry. Its meaning depends on Kind; see the Kind
// constants above for the field layout each variant uses.
type Node struct {
	Kind  Kind
	Span  Index // index into Ast.spans via the node's own index (see Ast.Span)
	Lhs   Index
	Rhs   Index
	Flag  bool
	Extra []int32 // small-int payload: operator tags, constant indices, child-index lists
}

// Op identifies a unary or binary operator node's meaning.
type Op int32

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg
	OpNot
	OpEq
	OpNotEq
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpAnd
	OpOr
	OpMetaCustom // resolved purely through meta-map dispatch, no built-in fallback
)

// Ast is the arena: a flat slice of nodes, a parallel span table
// indexed by the node's own Index, and a shared constant pool.
type Ast struct {
	Nodes     []Node
	Spans     []token.Span
	Constants *ConstantPool
	Root      Index
}

// New creates an empty Ast backed by a fresh constant pool.
func New() *Ast {
	return &Ast{Constants: NewConstantPool(), Root: NoIndex}
}

// Add appends a node and its span, returning the node's new Index.
func (a *Ast) Add(n Node, span token.Span) Index {
	idx := Index(len(a.Nodes))
	a.Nodes = append(a.Nodes, n)
	a.Spans = append(a.Spans, span)
	return idx
}

// At returns the node at idx. Calling with NoIndex panics; callers must
// check against NoIndex first, mirroring the "indices not pointers"
// discipline from spec §3.3/§9.
func (a *Ast) At(idx Index) *Node {
	return &a.Nodes[idx]
}

// Span returns the source span recorded for idx.
func (a *Ast) Span(idx Index) token.Span {
	if idx == NoIndex {
		return token.Span{}
	}
	return a.Spans[idx]
}
