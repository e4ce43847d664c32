package value

import (
	"errors"
	"fmt"

	"github.com/lumen-lang/lumen/internal/bytecode"
)

// ErrDivisionByZero is returned by Div for Int/Int division by a zero
// divisor (spec §5 open-question decision 1: float division by zero
// instead follows IEEE 754 and never errors).
var ErrDivisionByZero = errors.New("division by zero")

func isNumeric(v Value) bool { return v.Tag == TagInt || v.Tag == TagFloat }

func numAsFloat(v Value) float64 {
	if v.Tag == TagInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}

func unsupportedBinary(op string, lhs, rhs Value) error {
	return fmt.Errorf("unsupported operand types for %s: %s and %s", op, lhs.TypeName(), rhs.TypeName())
}

func unsupportedUnary(op string, v Value) error {
	return fmt.Errorf("unsupported operand type for %s: %s", op, v.TypeName())
}

// dispatchBinary checks lhs's meta-map first, then rhs's, returning
// handled=true the moment either declares key (spec §5 decision 2:
// "left operand's meta-map checked first and is authoritative").
func dispatchBinary(eng Engine, key bytecode.MetaKey, lhs, rhs Value) (Value, bool, error) {
	if mm := MetaOf(lhs); mm != nil {
		if fn, ok := mm.Get(key); ok {
			v, err := eng.CallValue(fn, []Value{lhs, rhs})
			return v, true, err
		}
	}
	if mm := MetaOf(rhs); mm != nil {
		if fn, ok := mm.Get(key); ok {
			v, err := eng.CallValue(fn, []Value{lhs, rhs})
			return v, true, err
		}
	}
	return Null, false, nil
}

func Add(eng Engine, lhs, rhs Value) (Value, error) {
	if v, handled, err := dispatchBinary(eng, bytecode.MetaAdd, lhs, rhs); handled {
		return v, err
	}
	switch {
	case lhs.Tag == TagInt && rhs.Tag == TagInt:
		return Int(lhs.AsInt() + rhs.AsInt()), nil
	case isNumeric(lhs) && isNumeric(rhs):
		return Float(numAsFloat(lhs) + numAsFloat(rhs)), nil
	case lhs.Tag == TagString && rhs.Tag == TagString:
		return Str(lhs.Str + rhs.Str), nil
	case lhs.Tag == TagList && rhs.Tag == TagList:
		lg := lhs.List().Borrow()
		rg := rhs.List().Borrow()
		out := append(append([]Value{}, lg.Value().Elems...), rg.Value().Elems...)
		lg.Release()
		rg.Release()
		return ListOf(out), nil
	case lhs.Tag == TagTuple && rhs.Tag == TagTuple:
		out := append(append([]Value{}, lhs.Tuple()...), rhs.Tuple()...)
		return TupleOf(out), nil
	}
	return Null, unsupportedBinary("+", lhs, rhs)
}

func Sub(eng Engine, lhs, rhs Value) (Value, error) {
	if v, handled, err := dispatchBinary(eng, bytecode.MetaSub, lhs, rhs); handled {
		return v, err
	}
	if lhs.Tag == TagInt && rhs.Tag == TagInt {
		return Int(lhs.AsInt() - rhs.AsInt()), nil
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		return Float(numAsFloat(lhs) - numAsFloat(rhs)), nil
	}
	return Null, unsupportedBinary("-", lhs, rhs)
}

func Mul(eng Engine, lhs, rhs Value) (Value, error) {
	if v, handled, err := dispatchBinary(eng, bytecode.MetaMul, lhs, rhs); handled {
		return v, err
	}
	switch {
	case lhs.Tag == TagInt && rhs.Tag == TagInt:
		return Int(lhs.AsInt() * rhs.AsInt()), nil
	case isNumeric(lhs) && isNumeric(rhs):
		return Float(numAsFloat(lhs) * numAsFloat(rhs)), nil
	case lhs.Tag == TagString && rhs.Tag == TagInt:
		return repeatString(lhs.Str, rhs.AsInt()), nil
	}
	return Null, unsupportedBinary("*", lhs, rhs)
}

func repeatString(s string, n int64) Value {
	if n <= 0 {
		return Str("")
	}
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return Str(string(out))
}

// Div implements the pinned Int/Int rule (spec §5 decision 1): the
// result stays Int only when the divisor is nonzero and divides the
// dividend exactly, otherwise it promotes to Float.
func Div(eng Engine, lhs, rhs Value) (Value, error) {
	if v, handled, err := dispatchBinary(eng, bytecode.MetaDiv, lhs, rhs); handled {
		return v, err
	}
	if !isNumeric(lhs) || !isNumeric(rhs) {
		return Null, unsupportedBinary("/", lhs, rhs)
	}
	if lhs.Tag == TagInt && rhs.Tag == TagInt {
		a, b := lhs.AsInt(), rhs.AsInt()
		if b == 0 {
			return Null, ErrDivisionByZero
		}
		if a%b == 0 {
			return Int(a / b), nil
		}
		return Float(float64(a) / float64(b)), nil
	}
	return Float(numAsFloat(lhs) / numAsFloat(rhs)), nil
}

func Mod(eng Engine, lhs, rhs Value) (Value, error) {
	if v, handled, err := dispatchBinary(eng, bytecode.MetaMod, lhs, rhs); handled {
		return v, err
	}
	if lhs.Tag == TagInt && rhs.Tag == TagInt {
		b := rhs.AsInt()
		if b == 0 {
			return Null, ErrDivisionByZero
		}
		return Int(lhs.AsInt() % b), nil
	}
	if isNumeric(lhs) && isNumeric(rhs) {
		a, b := numAsFloat(lhs), numAsFloat(rhs)
		return Float(a - b*float64(int64(a/b))), nil
	}
	return Null, unsupportedBinary("%", lhs, rhs)
}

func Neg(eng Engine, v Value) (Value, error) {
	if mm := MetaOf(v); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaNeg); ok {
			return eng.CallValue(fn, []Value{v})
		}
	}
	switch v.Tag {
	case TagInt:
		return Int(-v.AsInt()), nil
	case TagFloat:
		return Float(-v.AsFloat()), nil
	}
	return Null, unsupportedUnary("-", v)
}

func Not(eng Engine, v Value) (Value, error) {
	if mm := MetaOf(v); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaNot); ok {
			return eng.CallValue(fn, []Value{v})
		}
	}
	return Bool(!v.Truthy()), nil
}
