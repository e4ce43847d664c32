package vm

import (
	"github.com/lumen-lang/lumen/internal/ast"
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/value"
)

// noOperand marks an absent optional register/slot operand, matching
// the compiler's own 0xFF sentinel (spec §4.5).
const noOperand byte = 0xFF

func constValue(c ast.Const) value.Value {
	switch {
	case c.IsString:
		return value.Str(c.Str)
	case c.IsFloat:
		return value.Float(c.Float)
	default:
		return value.Int(c.Int)
	}
}

func binOp(op bytecode.Op, eng value.Engine, lhs, rhs value.Value) (value.Value, error) {
	switch op {
	case bytecode.OpAdd:
		return value.Add(eng, lhs, rhs)
	case bytecode.OpSub:
		return value.Sub(eng, lhs, rhs)
	case bytecode.OpMul:
		return value.Mul(eng, lhs, rhs)
	case bytecode.OpDiv:
		return value.Div(eng, lhs, rhs)
	default: // bytecode.OpMod
		return value.Mod(eng, lhs, rhs)
	}
}

func cmpOp(op bytecode.Op, eng value.Engine, lhs, rhs value.Value) (bool, error) {
	switch op {
	case bytecode.OpEq:
		return value.Equals(eng, lhs, rhs)
	case bytecode.OpNotEq:
		return value.NotEquals(eng, lhs, rhs)
	case bytecode.OpLess:
		return value.Less(eng, lhs, rhs)
	case bytecode.OpLessEq:
		return value.LessEq(eng, lhs, rhs)
	case bytecode.OpGreater:
		return value.Greater(eng, lhs, rhs)
	default: // bytecode.OpGreaterEq
		return value.GreaterEq(eng, lhs, rhs)
	}
}
