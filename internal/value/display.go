package value

import (
	"strconv"
	"strings"

	"github.com/lumen-lang/lumen/internal/bytecode"
)

// Display renders v the way `print` does: bare strings, no quoting.
// Lists and Maps track already-visited container addresses so a
// self-referential container (`l.push(l)`) renders as "[...<id>...]"
// (or "{...<id>...}" for a Map), labelled with its ObjectID, instead of
// recursing forever (spec §8 property 9).
func Display(eng Engine, v Value) (string, error) {
	return displayValue(eng, v, map[uintptr]bool{}, false)
}

func displayValue(eng Engine, v Value, visited map[uintptr]bool, nested bool) (string, error) {
	if mm := MetaOf(v); mm != nil {
		if fn, ok := mm.Get(bytecode.MetaDisplay); ok {
			r, err := eng.CallValue(fn, []Value{v})
			if err != nil {
				return "", err
			}
			return r.Str, nil
		}
	}
	switch v.Tag {
	case TagNull:
		return "null", nil
	case TagBool:
		if v.AsBool() {
			return "true", nil
		}
		return "false", nil
	case TagInt:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case TagFloat:
		return formatFloat(v.AsFloat()), nil
	case TagString:
		if nested {
			return strconv.Quote(v.Str), nil
		}
		return v.Str, nil
	case TagRange:
		return displayRange(v.Range()), nil
	case TagTuple:
		parts := make([]string, 0, len(v.Tuple()))
		for _, e := range v.Tuple() {
			s, err := displayValue(eng, e, visited, true)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)", nil
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	case TagList:
		return displayList(eng, v, visited)
	case TagMap:
		return displayMap(eng, v, visited)
	case TagFunction:
		f := v.Obj.(*Function)
		name := f.Proto.Name
		if name == "" {
			name = "anonymous"
		}
		return "||function:" + name + "||", nil
	case TagNativeFn:
		return "||native:" + v.Obj.(*NativeFn).Name + "||", nil
	case TagIterator:
		return "||iterator||", nil
	case TagObject:
		return v.Obj.(Object).TypeName(), nil
	}
	return "?", nil
}

func displayList(eng Engine, v Value, visited map[uintptr]bool) (string, error) {
	addr := v.List().Addr()
	if visited[addr] {
		id, _ := ObjectID(v)
		return "[...<" + id + ">...]", nil
	}
	g := v.List().Borrow()
	elems := append([]Value{}, g.Value().Elems...)
	g.Release()

	visited[addr] = true
	defer delete(visited, addr)

	parts := make([]string, len(elems))
	for i, e := range elems {
		s, err := displayValue(eng, e, visited, true)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

func displayMap(eng Engine, v Value, visited map[uintptr]bool) (string, error) {
	addr := v.Map().Addr()
	if visited[addr] {
		id, _ := ObjectID(v)
		return "{...<" + id + ">...}", nil
	}
	g := v.Map().Borrow()
	m := g.Value()
	n := m.Len()
	keys := make([]Value, n)
	vals := make([]Value, n)
	for i := 0; i < n; i++ {
		keys[i], vals[i] = m.At(i)
	}
	g.Release()

	visited[addr] = true
	defer delete(visited, addr)

	parts := make([]string, n)
	for i := range keys {
		ks, err := displayValue(eng, keys[i], visited, true)
		if err != nil {
			return "", err
		}
		vs, err := displayValue(eng, vals[i], visited, true)
		if err != nil {
			return "", err
		}
		parts[i] = ks + ": " + vs
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func displayRange(r *RangeData) string {
	var b strings.Builder
	if r.HasStart {
		b.WriteString(strconv.FormatInt(r.Start, 10))
	}
	if r.Inclusive {
		b.WriteString("..=")
	} else {
		b.WriteString("..")
	}
	if r.HasEnd {
		b.WriteString(strconv.FormatInt(r.End, 10))
	}
	return b.String()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}
