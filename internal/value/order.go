package value

import (
	"strings"

	"github.com/lumen-lang/lumen/internal/bytecode"
)

func compareBuiltin(lhs, rhs Value) (int, error) {
	switch {
	case isNumeric(lhs) && isNumeric(rhs):
		a, b := numAsFloat(lhs), numAsFloat(rhs)
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		default:
			return 0, nil
		}
	case lhs.Tag == TagString && rhs.Tag == TagString:
		return strings.Compare(lhs.Str, rhs.Str), nil
	}
	return 0, unsupportedBinary("comparison", lhs, rhs)
}

func orderOp(eng Engine, key bytecode.MetaKey, lhs, rhs Value, want func(int) bool) (bool, error) {
	if v, handled, err := dispatchBinary(eng, key, lhs, rhs); handled {
		if err != nil {
			return false, err
		}
		return v.Truthy(), nil
	}
	c, err := compareBuiltin(lhs, rhs)
	if err != nil {
		return false, err
	}
	return want(c), nil
}

func Less(eng Engine, lhs, rhs Value) (bool, error) {
	return orderOp(eng, bytecode.MetaLess, lhs, rhs, func(c int) bool { return c < 0 })
}

func LessEq(eng Engine, lhs, rhs Value) (bool, error) {
	return orderOp(eng, bytecode.MetaLessEq, lhs, rhs, func(c int) bool { return c <= 0 })
}

func Greater(eng Engine, lhs, rhs Value) (bool, error) {
	return orderOp(eng, bytecode.MetaGreater, lhs, rhs, func(c int) bool { return c > 0 })
}

func GreaterEq(eng Engine, lhs, rhs Value) (bool, error) {
	return orderOp(eng, bytecode.MetaGreaterEq, lhs, rhs, func(c int) bool { return c >= 0 })
}
