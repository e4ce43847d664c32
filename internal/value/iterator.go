package value

import "github.com/lumen-lang/lumen/internal/bytecode"

// rangeIterator walks a bounded RangeData by one step at a time. An
// unbounded range (missing HasEnd) must be capped by the caller (e.g.
// `.take(n)`) before iterating — pulling it directly is a Non-goal (spec
// §9 "Unbounded ranges").
type rangeIterator struct {
	cur, end int64
}

func NewRangeIterator(r *RangeData) Iterator {
	start := int64(0)
	if r.HasStart {
		start = r.Start
	}
	end := r.End
	if r.Inclusive {
		end++
	}
	return &rangeIterator{cur: start, end: end}
}

func (it *rangeIterator) Next(eng Engine) (Value, bool, error) {
	if it.cur >= it.end {
		return Null, false, nil
	}
	v := Int(it.cur)
	it.cur++
	return v, true, nil
}

type sliceIterator struct {
	elems []Value
	i     int
}

func NewSliceIterator(elems []Value) Iterator {
	return &sliceIterator{elems: elems}
}

func (it *sliceIterator) Next(eng Engine) (Value, bool, error) {
	if it.i >= len(it.elems) {
		return Null, false, nil
	}
	v := it.elems[it.i]
	it.i++
	return v, true, nil
}

// mapIterator yields (key, value) tuples in insertion order.
type mapIterator struct {
	keys []Value
	vals []Value
	i    int
}

func NewMapIterator(m *MapData) Iterator {
	n := m.Len()
	keys := make([]Value, n)
	vals := make([]Value, n)
	for i := 0; i < n; i++ {
		keys[i], vals[i] = m.At(i)
	}
	return &mapIterator{keys: keys, vals: vals}
}

func (it *mapIterator) Next(eng Engine) (Value, bool, error) {
	if it.i >= len(it.keys) {
		return Null, false, nil
	}
	pair := TupleOf([]Value{it.keys[it.i], it.vals[it.i]})
	it.i++
	return pair, true, nil
}

// MakeIterator realizes a value as an Iterator per spec §4.8.4,
// honoring the call-time @iterator check (spec §5 decision 3): if v's
// meta-map declares @iterator, it is invoked immediately and its
// result must itself be an iterator value, or MakeIterator fails right
// here rather than at the first IterNext.
func MakeIterator(eng Engine, v Value) (Iterator, error) {
	if mm := MetaOf(v); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaIterator); ok {
			return resolveCustomIterator(eng, fn, v)
		}
	}
	switch v.Tag {
	case TagRange:
		return NewRangeIterator(v.Range()), nil
	case TagList:
		g := v.List().Borrow()
		elems := append([]Value{}, g.Value().Elems...)
		g.Release()
		return NewSliceIterator(elems), nil
	case TagTuple:
		return NewSliceIterator(v.Tuple()), nil
	case TagMap:
		g := v.Map().Borrow()
		it := NewMapIterator(g.Value())
		g.Release()
		return it, nil
	case TagString:
		return newStringIterator(v.Str), nil
	case TagIterator:
		return v.Obj.(Iterator), nil
	}
	return nil, unsupportedUnary("iterate", v)
}

func resolveCustomIterator(eng Engine, fn, v Value) (Iterator, error) {
	result, err := eng.CallValue(fn, []Value{v})
	if err != nil {
		return nil, err
	}
	if result.Tag != TagIterator {
		return nil, unsupportedUnary("@iterator result (must itself be an iterator)", result)
	}
	return result.Obj.(Iterator), nil
}

type stringIterator struct {
	runes []rune
	i     int
}

func newStringIterator(s string) Iterator {
	return &stringIterator{runes: []rune(s)}
}

func (it *stringIterator) Next(eng Engine) (Value, bool, error) {
	if it.i >= len(it.runes) {
		return Null, false, nil
	}
	v := Str(string(it.runes[it.i]))
	it.i++
	return v, true, nil
}
