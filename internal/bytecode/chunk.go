package bytecode

import (
	"encoding/binary"
	"sort"

	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/token"
)

// FuncProto is one compiled function template: its own code, register
// count, and parameter/capture shape. A closure at runtime pairs a
// FuncProto with a concrete captures slice (spec §4.4 "captures list
// materialized at MakeFunction time").
type FuncProto struct {
	Name          string
	NumParams     int
	Variadic      bool
	Generator     bool
	NumRegisters  int
	NumCaptures   int
	DefaultsChunk []int32 // per non-variadic param: Code offset of its default-value prologue block, or -1
	BodyStart     int32   // Code offset where the main body begins, after the default-argument prologue
	Code          []byte
	Debug         DebugTable
	SourcePath    string

	// Constants is the constant pool every OpLoadConst/OpGetField/OpGetGlobal
	// in Code indexes into. Every FuncProto compiled from the same Ast shares
	// the one pool (spec §4.5); it is threaded onto the proto itself, rather
	// than left implicit on the owning Chunk, because a closure can outlive
	// the call that compiled it and gets invoked with no Chunk in hand.
	Constants *ast.ConstantPool

	// Protos is the owning Chunk's full proto table, threaded on for the
	// same reason as Constants: OpMakeFunction's proto24 operand indexes
	// into it, and a running closure has no other way back to the Chunk
	// it came from. Set once, after the whole module finishes compiling.
	Protos []*FuncProto
}

// Chunk is the top-level compiled unit: the module's own top-level code
// plus every function prototype it or its nested scopes defined (spec
// §4.5).
type Chunk struct {
	Code         []byte
	Constants    *ast.ConstantPool
	Protos       []*FuncProto
	SourcePath   string
	Debug        DebugTable
	NumGlobals   int
	NumRegisters int
}

// DebugEntry maps a code offset to the source span active from that
// offset onward.
type DebugEntry struct {
	Offset int
	Span   token.Span
}

// DebugTable is a sorted-by-Offset slice of entries, compressed so
// consecutive instructions sharing a span contribute one entry (spec
// §4.5, §8 property 4).
type DebugTable struct {
	entries []DebugEntry
}

// Record appends an entry for offset, skipping it if span is identical
// to the previous entry's (consecutive-equal-span compression).
func (t *DebugTable) Record(offset int, span token.Span) {
	if n := len(t.entries); n > 0 && t.entries[n-1].Span == span {
		return
	}
	t.entries = append(t.entries, DebugEntry{Offset: offset, Span: span})
}

// Span returns the span recorded for the last entry with Offset <= ip,
// via binary search (spec §8 property 4 "debug-info monotonicity").
func (t *DebugTable) Span(ip int) token.Span {
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Offset > ip
	})
	if i == 0 {
		return token.Span{}
	}
	return t.entries[i-1].Span
}

// --- instruction encoding ---------------------------------------------

// Emitter accumulates a function's instruction stream and debug table
// while the compiler walks one function scope.
type Emitter struct {
	Code  []byte
	Debug DebugTable
}

func (e *Emitter) mark(span token.Span) {
	e.Debug.Record(len(e.Code), span)
}

func (e *Emitter) byte(b byte) { e.Code = append(e.Code, b) }

func (e *Emitter) u24(v int32) {
	e.Code = append(e.Code, byte(v), byte(v>>8), byte(v>>16))
}

func (e *Emitter) u32(v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	e.Code = append(e.Code, buf[:]...)
}

// Emit0 writes a zero-operand instruction.
func (e *Emitter) Emit0(op Op, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	return pos
}

// Emit1 writes a one-register instruction.
func (e *Emitter) Emit1(op Op, a byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	e.byte(a)
	return pos
}

// Emit2 writes a two-register instruction.
func (e *Emitter) Emit2(op Op, a, b byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	e.byte(a)
	e.byte(b)
	return pos
}

// Emit3 writes a three-register instruction (the common binary-op
// shape: dst, lhs, rhs).
func (e *Emitter) Emit3(op Op, a, b, c byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	e.byte(a)
	e.byte(b)
	e.byte(c)
	return pos
}

// EmitConst writes dst + a 24-bit constant-pool index.
func (e *Emitter) EmitConst(op Op, dst byte, idx ast.ConstIndex, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	e.byte(dst)
	e.u24(int32(idx))
	return pos
}

// EmitImm32 writes dst + a 32-bit immediate (OpLoadInt).
func (e *Emitter) EmitImm32(op Op, dst byte, imm int32, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	e.byte(dst)
	e.u32(imm)
	return pos
}

// EmitJump writes a placeholder jump and returns the offset of its
// 4-byte field for later backpatching via PatchJump.
func (e *Emitter) EmitJump(op Op, cond byte, hasCond bool, span token.Span) int {
	e.mark(span)
	e.byte(byte(op))
	if hasCond {
		e.byte(cond)
	}
	fieldAt := len(e.Code)
	e.u32(0)
	return fieldAt
}

// PatchJump backpatches the 4-byte field at fieldAt so the jump lands
// at the current end of the code stream, with the offset measured from
// the byte immediately after the field (spec §4.5 "relative to the
// byte after the offset field").
func (e *Emitter) PatchJump(fieldAt int) {
	target := len(e.Code)
	rel := int32(target - (fieldAt + 4))
	binary.LittleEndian.PutUint32(e.Code[fieldAt:fieldAt+4], uint32(rel))
}

// Here returns the current write position, useful as a backward-jump
// target for loop constructs.
func (e *Emitter) Here() int { return len(e.Code) }

// EmitJumpTo writes a jump whose target is already known (a backward
// edge, e.g. a `while` condition re-check).
func (e *Emitter) EmitJumpTo(op Op, target int, span token.Span) {
	e.mark(span)
	e.byte(byte(op))
	fieldAt := len(e.Code)
	e.u32(0)
	rel := int32(target - (fieldAt + 4))
	binary.LittleEndian.PutUint32(e.Code[fieldAt:fieldAt+4], uint32(rel))
}

// EmitCountReg writes dst + an 8-bit count + a first-register byte, the
// shared shape of OpMakeList/OpMakeTuple/OpMakeMap (count contiguous
// registers starting at firstReg).
func (e *Emitter) EmitCountReg(op Op, dst, count, firstReg byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(op))
	e.byte(dst)
	e.byte(count)
	e.byte(firstReg)
	return pos
}

// EmitMakeRange writes OpMakeRange's dst/startReg/endReg/inclusive
// operands; startReg/endReg are 0xFF when that bound is absent.
func (e *Emitter) EmitMakeRange(dst, startReg, endReg, inclusive byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(OpMakeRange))
	e.byte(dst)
	e.byte(startReg)
	e.byte(endReg)
	e.byte(inclusive)
	return pos
}

// EmitFieldGet writes OpGetField's dst, obj, 24-bit field-name constant
// index.
func (e *Emitter) EmitFieldGet(dst, obj byte, nameIdx ast.ConstIndex, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(OpGetField))
	e.byte(dst)
	e.byte(obj)
	e.u24(int32(nameIdx))
	return pos
}

// EmitFieldSet writes OpSetField's obj, 24-bit field-name constant
// index, val.
func (e *Emitter) EmitFieldSet(obj byte, nameIdx ast.ConstIndex, val byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(OpSetField))
	e.byte(obj)
	e.u24(int32(nameIdx))
	e.byte(val)
	return pos
}

// EmitSetGlobal writes OpSetGlobal's 24-bit name-constant index followed
// by the source register (the one operand shape where the register
// follows rather than leads the constant index).
func (e *Emitter) EmitSetGlobal(nameIdx ast.ConstIndex, src byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(OpSetGlobal))
	e.u24(int32(nameIdx))
	e.byte(src)
	return pos
}

// EmitMakeFunction writes OpMakeFunction's dst, 24-bit proto index,
// capture count and first capture register.
func (e *Emitter) EmitMakeFunction(dst byte, protoIdx int, count, firstReg byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(OpMakeFunction))
	e.byte(dst)
	e.u24(int32(protoIdx))
	e.byte(count)
	e.byte(firstReg)
	return pos
}

// EmitCall writes OpCall's dst, callee register, arg count and first
// arg register.
func (e *Emitter) EmitCall(dst, callee, argCount, firstArg byte, span token.Span) int {
	e.mark(span)
	pos := len(e.Code)
	e.byte(byte(OpCall))
	e.byte(dst)
	e.byte(callee)
	e.byte(argCount)
	e.byte(firstArg)
	return pos
}

// EmitIterNext writes OpIterNext's dst, iter register and a placeholder
// done-jump field, returning the field's offset for PatchJump.
func (e *Emitter) EmitIterNext(dst, iter byte, span token.Span) int {
	e.mark(span)
	e.byte(byte(OpIterNext))
	e.byte(dst)
	e.byte(iter)
	fieldAt := len(e.Code)
	e.u32(0)
	return fieldAt
}

// EmitTryBegin writes OpTryBegin's placeholder catch-jump field followed
// by the catch-bind register (0xFF for no binding), returning the
// field's offset for PatchJump.
func (e *Emitter) EmitTryBegin(catchReg byte, span token.Span) int {
	e.mark(span)
	e.byte(byte(OpTryBegin))
	fieldAt := len(e.Code)
	e.u32(0)
	e.byte(catchReg)
	return fieldAt
}

// EmitGetCapture writes OpGetCapture's dst and capture-slot index.
func (e *Emitter) EmitGetCapture(dst, captureIdx byte, span token.Span) int {
	return e.Emit2(OpGetCapture, dst, captureIdx, span)
}

// ReadU24 decodes a little-endian 24-bit unsigned value at offset i.
func ReadU24(code []byte, i int) int32 {
	return int32(code[i]) | int32(code[i+1])<<8 | int32(code[i+2])<<16
}

// ReadI32 decodes a little-endian signed 32-bit value at offset i.
func ReadI32(code []byte, i int) int32 {
	return int32(binary.LittleEndian.Uint32(code[i : i+4]))
}
