package vm

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/value"
)

// normIndex resolves i against length, wrapping a negative index from
// the end (Koto's convention, carried over since nothing in spec §4.7
// forbids it and `list[-1]` is the idiom scripts reach for first).
func normIndex(i, length int64) (int64, bool) {
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, false
	}
	return i, true
}

// indexGet implements OpIndex: a `@[]` meta-map override takes
// priority over every built-in container's own indexing rule (spec
// §4.9).
func (vm *VM) indexGet(obj, key value.Value) (value.Value, error) {
	if mm := value.MetaOf(obj); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaIndex); ok {
			return vm.CallValue(fn, []value.Value{obj, key})
		}
	}
	switch obj.Tag {
	case value.TagList:
		g := obj.List().Borrow()
		v, err := indexSeq(g.Value().Elems, key, "List")
		g.Release()
		return v, err
	case value.TagTuple:
		return indexSeq(obj.Tuple(), key, "Tuple")
	case value.TagString:
		return indexString(obj.Str, key)
	case value.TagMap:
		g := obj.Map().Borrow()
		v, ok := g.Value().Get(key)
		g.Release()
		if !ok {
			return value.Null, fmt.Errorf("key not found in Map")
		}
		return v, nil
	}
	return value.Null, fmt.Errorf("value of type %s is not indexable", obj.TypeName())
}

func indexSeq(elems []value.Value, key value.Value, typeName string) (value.Value, error) {
	n := int64(len(elems))
	if key.Tag == value.TagRange {
		start, end := key.Range().Bounded(n)
		if start < 0 || end > n || start > end {
			return value.Null, fmt.Errorf("range index out of bounds for %s of length %d", typeName, n)
		}
		sub := append([]value.Value{}, elems[start:end]...)
		if typeName == "Tuple" {
			return value.TupleOf(sub), nil
		}
		return value.ListOf(sub), nil
	}
	if key.Tag != value.TagInt {
		return value.Null, fmt.Errorf("%s index must be an Int or Range, got %s", typeName, key.TypeName())
	}
	i, ok := normIndex(key.AsInt(), n)
	if !ok {
		return value.Null, fmt.Errorf("index out of bounds for %s of length %d", typeName, n)
	}
	return elems[i], nil
}

func indexString(s string, key value.Value) (value.Value, error) {
	runes := []rune(s)
	n := int64(len(runes))
	if key.Tag == value.TagRange {
		start, end := key.Range().Bounded(n)
		if start < 0 || end > n || start > end {
			return value.Null, fmt.Errorf("range index out of bounds for String of length %d", n)
		}
		return value.Str(string(runes[start:end])), nil
	}
	if key.Tag != value.TagInt {
		return value.Null, fmt.Errorf("String index must be an Int or Range, got %s", key.TypeName())
	}
	i, ok := normIndex(key.AsInt(), n)
	if !ok {
		return value.Null, fmt.Errorf("index out of bounds for String of length %d", n)
	}
	return value.Str(string(runes[i])), nil
}

// indexSet implements OpSetIndex, honoring a `@[]=` meta-map override
// the same way indexGet honors `@[]`.
func (vm *VM) indexSet(obj, key, val value.Value) error {
	if mm := value.MetaOf(obj); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaSetIndex); ok {
			_, err := vm.CallValue(fn, []value.Value{obj, key, val})
			return err
		}
	}
	switch obj.Tag {
	case value.TagList:
		g := obj.List().BorrowMut()
		elems := g.Value().Elems
		n := int64(len(elems))
		if key.Tag != value.TagInt {
			g.Release()
			return fmt.Errorf("List index must be an Int, got %s", key.TypeName())
		}
		i, ok := normIndex(key.AsInt(), n)
		if !ok {
			g.Release()
			return fmt.Errorf("index out of bounds for List of length %d", n)
		}
		elems[i] = val
		g.Release()
		return nil
	case value.TagMap:
		g := obj.Map().BorrowMut()
		g.Value().Set(key, val)
		g.Release()
		return nil
	}
	return fmt.Errorf("value of type %s does not support index assignment", obj.TypeName())
}

// fieldGet implements OpGetField. Only Map (plain entries, never the
// "@"-routed meta ones) and Object (its custom meta entries) expose
// dotted field access; every other type is a fixed value with no
// fields of its own.
func (vm *VM) fieldGet(obj value.Value, name string) (value.Value, error) {
	switch obj.Tag {
	case value.TagMap:
		g := obj.Map().Borrow()
		v, ok := g.Value().Get(value.Str(name))
		g.Release()
		if !ok {
			return value.Null, fmt.Errorf("Map has no field %q", name)
		}
		return v, nil
	case value.TagObject:
		if o, ok := obj.Obj.(value.Object); ok {
			if v, ok := o.Meta().GetCustom(name); ok {
				return v, nil
			}
		}
		return value.Null, fmt.Errorf("%s has no field %q", obj.TypeName(), name)
	}
	return value.Null, fmt.Errorf("value of type %s has no fields", obj.TypeName())
}

func (vm *VM) fieldSet(obj value.Value, name string, val value.Value) error {
	if obj.Tag == value.TagMap {
		g := obj.Map().BorrowMut()
		g.Value().Set(value.Str(name), val)
		g.Release()
		return nil
	}
	return fmt.Errorf("value of type %s does not support field assignment", obj.TypeName())
}
