// Package bytecode defines the register-machine instruction set the
// compiler emits and the VM executes (spec §4.5, §3.4).
package bytecode

// Op is one instruction opcode. Operand layout is documented per
// constant below; every instruction starts with its Op byte.
type Op byte

const (
	OpLoadNull Op = iota // dst
	OpLoadTrue           // dst
	OpLoadFalse          // dst
	OpLoadInt            // dst, imm32 (small-int fast path, avoids a constant slot)
	OpLoadConst          // dst, const24 (string/int/float from the chunk's constant pool)

	OpMove       // dst, src
	OpGetCapture // dst, captureIndex8 (reads the running closure's Captures slice)
	OpAdd        // dst, lhs, rhs
	OpSub    // dst, lhs, rhs
	OpMul    // dst, lhs, rhs
	OpDiv    // dst, lhs, rhs
	OpMod    // dst, lhs, rhs
	OpNeg    // dst, src
	OpNot    // dst, src
	OpEq     // dst, lhs, rhs
	OpNotEq  // dst, lhs, rhs
	OpLess   // dst, lhs, rhs
	OpLessEq // dst, lhs, rhs
	OpGreater
	OpGreaterEq

	OpJump        // jumpOffset32 (unconditional, relative to next instruction)
	OpJumpIfFalse // cond, jumpOffset32
	OpJumpIfTrue  // cond, jumpOffset32

	OpMakeList  // dst, count8, firstReg (count contiguous registers starting at firstReg)
	OpMakeTuple // dst, count8, firstReg
	OpMakeMap   // dst, count8, firstReg (count*2 contiguous registers: key,val,key,val...)
	OpMakeRange // dst, startReg(or 0xFF for unbounded), endReg(or 0xFF), inclusive8

	OpIndex    // dst, obj, key
	OpSetIndex // obj, key, val
	OpGetField // dst, obj, nameConst24
	OpSetField // obj, nameConst24, val

	OpMakeFunction // dst, proto24 (index into Chunk.Protos), capturesCount8, firstCaptureReg
	OpCall         // dst, callee, argCount8, firstArgReg
	OpReturn       // src (or 0xFF for null)

	OpMakeIterator // dst, src (calls @iterator at call-time per spec §9 decision 3)
	OpIterNext     // dst, iter, doneJumpOffset32 (jumps past the loop body when exhausted)

	OpYield // src (suspends the running generator sub-VM)

	OpTryBegin // catchJumpOffset32, catchReg(or 0xFF for no-bind)
	OpTryEnd   //
	OpThrow    // src

	OpGetGlobal // dst, nameConst24
	OpSetGlobal // nameConst24, src
	OpImport    // dst, pathConst24

	OpGetMeta // dst, obj, metaKey8 (used by the VM's own built-in-fallback path)
	OpHalt    //
)

var names = [...]string{
	"LoadNull", "LoadTrue", "LoadFalse", "LoadInt", "LoadConst",
	"Move", "GetCapture", "Add", "Sub", "Mul", "Div", "Mod", "Neg", "Not",
	"Eq", "NotEq", "Less", "LessEq", "Greater", "GreaterEq",
	"Jump", "JumpIfFalse", "JumpIfTrue",
	"MakeList", "MakeTuple", "MakeMap", "MakeRange",
	"Index", "SetIndex", "GetField", "SetField",
	"MakeFunction", "Call", "Return",
	"MakeIterator", "IterNext", "Yield",
	"TryBegin", "TryEnd", "Throw",
	"GetGlobal", "SetGlobal", "Import",
	"GetMeta", "Halt",
}

func (op Op) String() string {
	if int(op) < len(names) {
		return names[op]
	}
	return "Op(?)"
}

// MetaKey enumerates the meta-map operator-overload slots (spec §3.2,
// §9 "Meta-map over inheritance" — a tagged enum, not strings).
type MetaKey uint8

const (
	MetaAdd MetaKey = iota
	MetaSub
	MetaMul
	MetaDiv
	MetaMod
	MetaEq
	MetaNotEq
	MetaLess
	MetaLessEq
	MetaGreater
	MetaGreaterEq
	MetaNeg
	MetaNot
	MetaIndex
	MetaSetIndex
	MetaIterator
	MetaDisplay
	MetaSerialize
	MetaCall
	MetaCustom // Name carries the user-defined "@name" string
)

var metaNames = map[MetaKey]string{
	MetaAdd: "+", MetaSub: "-", MetaMul: "*", MetaDiv: "/", MetaMod: "%",
	MetaEq: "==", MetaNotEq: "!=", MetaLess: "<", MetaLessEq: "<=",
	MetaGreater: ">", MetaGreaterEq: ">=", MetaNeg: "neg", MetaNot: "not",
	MetaIndex: "[]", MetaSetIndex: "[]=", MetaIterator: "iterator",
	MetaDisplay: "display", MetaSerialize: "serialize", MetaCall: "call",
}

func (k MetaKey) String() string {
	if s, ok := metaNames[k]; ok {
		return s
	}
	return "custom"
}

// LookupMetaKey maps a map-literal "@name" key string (spec §4.2
// [SUPPLEMENT] operator-overload sugar) to its MetaKey, or MetaCustom
// if it isn't one of the built-in operator slots.
func LookupMetaKey(name string) MetaKey {
	for k, s := range metaNames {
		if s == name {
			return k
		}
	}
	return MetaCustom
}
