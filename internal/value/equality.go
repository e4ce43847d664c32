package value

import "github.com/lumen-lang/lumen/internal/bytecode"

// Equals implements `==` including the pinned left-then-right meta
// dispatch (spec §5 decision 2): lhs's @== is authoritative when
// present, rhs is consulted only if lhs declares none.
func Equals(eng Engine, lhs, rhs Value) (bool, error) {
	if mm := MetaOf(lhs); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaEq); ok {
			v, err := eng.CallValue(fn, []Value{lhs, rhs})
			if err != nil {
				return false, err
			}
			return v.Truthy(), nil
		}
	}
	if mm := MetaOf(rhs); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaEq); ok {
			v, err := eng.CallValue(fn, []Value{lhs, rhs})
			if err != nil {
				return false, err
			}
			return v.Truthy(), nil
		}
	}
	return defaultEquals(eng, lhs, rhs)
}

func NotEquals(eng Engine, lhs, rhs Value) (bool, error) {
	if mm := MetaOf(lhs); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaNotEq); ok {
			v, err := eng.CallValue(fn, []Value{lhs, rhs})
			if err != nil {
				return false, err
			}
			return v.Truthy(), nil
		}
	}
	if mm := MetaOf(rhs); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaNotEq); ok {
			v, err := eng.CallValue(fn, []Value{lhs, rhs})
			if err != nil {
				return false, err
			}
			return v.Truthy(), nil
		}
	}
	eq, err := defaultEquals(eng, lhs, rhs)
	return !eq, err
}

func defaultEquals(eng Engine, lhs, rhs Value) (bool, error) {
	if lhs.Tag != rhs.Tag {
		if isNumeric(lhs) && isNumeric(rhs) {
			return numAsFloat(lhs) == numAsFloat(rhs), nil
		}
		return false, nil
	}
	switch lhs.Tag {
	case TagNull:
		return true, nil
	case TagBool, TagInt:
		return lhs.Num == rhs.Num, nil
	case TagFloat:
		return lhs.AsFloat() == rhs.AsFloat(), nil
	case TagString:
		return lhs.Str == rhs.Str, nil
	case TagRange:
		a, b := lhs.Range(), rhs.Range()
		return *a == *b, nil
	case TagTuple:
		return equalSlices(eng, lhs.Tuple(), rhs.Tuple())
	case TagList:
		ag := lhs.List().Borrow()
		bg := rhs.List().Borrow()
		ae, be := append([]Value{}, ag.Value().Elems...), append([]Value{}, bg.Value().Elems...)
		ag.Release()
		bg.Release()
		return equalSlices(eng, ae, be)
	case TagMap:
		ag := lhs.Map().Borrow()
		bg := rhs.Map().Borrow()
		am, bm := ag.Value(), bg.Value()
		defer ag.Release()
		defer bg.Release()
		if am.Len() != bm.Len() {
			return false, nil
		}
		for i := 0; i < am.Len(); i++ {
			k, v := am.At(i)
			bv, ok := bm.Get(k)
			if !ok {
				return false, nil
			}
			eq, err := Equals(eng, v, bv)
			if err != nil || !eq {
				return eq, err
			}
		}
		return true, nil
	default:
		return lhs.Obj == rhs.Obj, nil
	}
}

func equalSlices(eng Engine, a, b []Value) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := Equals(eng, a[i], b[i])
		if err != nil || !eq {
			return eq, err
		}
	}
	return true, nil
}
