package corelib

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/value"
)

// ToYAML realizes the "serde-based serialization adapter" glue spec
// §4.9 leaves to an external object's own @serialize override: if v
// (or its meta-map) defines one, its result is used verbatim;
// otherwise v is walked into a plain Go tree and handed to yaml.v3,
// giving every Map/List/Tuple/scalar a default YAML rendering with no
// core-library module of its own required.
func ToYAML(eng value.Engine, v value.Value) (string, error) {
	if mm := value.MetaOf(v); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaSerialize); ok {
			r, err := eng.CallValue(fn, []value.Value{v})
			if err != nil {
				return "", err
			}
			if r.Tag != value.TagString {
				return "", fmt.Errorf("@serialize must return a String, got %s", r.TypeName())
			}
			return r.Str, nil
		}
	}
	native, err := toPlain(v)
	if err != nil {
		return "", err
	}
	out, err := yaml.Marshal(native)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func toPlain(v value.Value) (interface{}, error) {
	switch v.Tag {
	case value.TagNull:
		return nil, nil
	case value.TagBool:
		return v.AsBool(), nil
	case value.TagInt:
		return v.AsInt(), nil
	case value.TagFloat:
		return v.AsFloat(), nil
	case value.TagString:
		return v.Str, nil
	case value.TagList:
		g := v.List().Borrow()
		elems := append([]value.Value{}, g.Value().Elems...)
		g.Release()
		return toPlainSlice(elems)
	case value.TagTuple:
		return toPlainSlice(v.Tuple())
	case value.TagMap:
		g := v.Map().Borrow()
		m := g.Value()
		n := m.Len()
		out := make(map[string]interface{}, n)
		for i := 0; i < n; i++ {
			k, val := m.At(i)
			ks, err := value.Display(dummyEngine{}, k)
			if err != nil {
				g.Release()
				return nil, err
			}
			pv, err := toPlain(val)
			if err != nil {
				g.Release()
				return nil, err
			}
			out[ks] = pv
		}
		g.Release()
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %s is not serializable", v.TypeName())
	}
}

func toPlainSlice(elems []value.Value) (interface{}, error) {
	out := make([]interface{}, len(elems))
	for i, e := range elems {
		pv, err := toPlain(e)
		if err != nil {
			return nil, err
		}
		out[i] = pv
	}
	return out, nil
}

// dummyEngine backs Display calls made while serializing a Map's keys,
// which (being restricted to the hashable scalar types, spec §4.7) can
// never actually invoke a meta-map's @display override and so never
// need a real Engine.CallValue.
type dummyEngine struct{}

func (dummyEngine) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	return value.Null, fmt.Errorf("cannot call into a function while formatting a Map key")
}
