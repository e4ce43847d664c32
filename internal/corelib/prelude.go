package corelib

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/hostio"
	"github.com/lumen-lang/lumen/internal/value"
)

// NewPrelude builds the name table every Lumen VM seeds its globals
// from (spec §4.11). Everything here is either a direct compiler
// dependency ("__to_string", "__bind_rest" — the compiler emits
// OpGetGlobal calls to these two names by their literal spelling, see
// internal/compiler/expressions.go and patterns.go), a minimal
// capability no script can get at any other way (print/assert/type/
// __object_id), or the three standard streams wrapped as first-class
// FileHandle objects (spec §6.1). Container methods (list.reversed(),
// etc.) are a separate external module's job, not this package's
// (spec §4.11).
func NewPrelude(stdout, stderr, stdin hostio.Handle) map[string]value.Value {
	p := map[string]value.Value{
		"__to_string": value.MakeNativeFn("__to_string", toStringNative),
		"__bind_rest": value.MakeNativeFn("__bind_rest", bindRestNative),
		"__object_id": value.MakeNativeFn("__object_id", objectIDNative),
		"print":       value.MakeNativeFn("print", printNative(stdout)),
		"assert":      value.MakeNativeFn("assert", assertNative),
		"type":        value.MakeNativeFn("type", typeNative),
		"stdout":      NewFileHandleValue(stdout),
		"stderr":      NewFileHandleValue(stderr),
		"stdin":       NewFileHandleValue(stdin),
	}
	return p
}

func toStringNative(eng value.Engine, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, fmt.Errorf("__to_string takes exactly one argument")
	}
	s, err := value.Display(eng, args[0])
	if err != nil {
		return value.Null, err
	}
	return value.Str(s), nil
}

// bindRestNative implements `...rest` pattern binding (spec §4.2
// [SUPPLEMENT] destructuring, internal/compiler/patterns.go's
// compileSeqBind): slices container from startIndex to its end,
// returning a value of container's own kind so a rest-bound name keeps
// behaving like the sequence it came from.
func bindRestNative(eng value.Engine, args []value.Value) (value.Value, error) {
	if len(args) != 2 {
		return value.Null, fmt.Errorf("__bind_rest takes exactly two arguments")
	}
	container, startArg := args[0], args[1]
	if startArg.Tag != value.TagInt {
		return value.Null, fmt.Errorf("__bind_rest start index must be an Int")
	}
	start := startArg.AsInt()

	switch container.Tag {
	case value.TagList:
		g := container.List().Borrow()
		elems := g.Value().Elems
		rest := sliceFrom(elems, start)
		g.Release()
		return value.ListOf(rest), nil
	case value.TagTuple:
		return value.TupleOf(sliceFrom(container.Tuple(), start)), nil
	default:
		return value.Null, fmt.Errorf("value of type %s cannot be rest-bound", container.TypeName())
	}
}

func sliceFrom(elems []value.Value, start int64) []value.Value {
	if start < 0 {
		start = 0
	}
	if start >= int64(len(elems)) {
		return []value.Value{}
	}
	return append([]value.Value{}, elems[start:]...)
}

func objectIDNative(eng value.Engine, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, fmt.Errorf("__object_id takes exactly one argument")
	}
	id, ok := value.ObjectID(args[0])
	if !ok {
		return value.Null, fmt.Errorf("value of type %s has no identity", args[0].TypeName())
	}
	return value.Str(id), nil
}

// printNative closes directly over a hostio.Handle rather than a VM,
// keeping this package free of any dependency on internal/vm (spec
// §4.11's "mechanism", not "reimplementation" framing).
func printNative(out hostio.Handle) func(value.Engine, []value.Value) (value.Value, error) {
	return func(eng value.Engine, args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			s, err := value.Display(eng, a)
			if err != nil {
				return value.Null, err
			}
			parts[i] = s
		}
		line := ""
		for i, s := range parts {
			if i > 0 {
				line += " "
			}
			line += s
		}
		if _, err := out.WriteLine(line); err != nil {
			return value.Null, err
		}
		return value.Null, nil
	}
}

func assertNative(eng value.Engine, args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.Null, fmt.Errorf("assert requires at least one argument")
	}
	if args[0].Truthy() {
		return value.Null, nil
	}
	msg := "assertion failed"
	if len(args) > 1 {
		s, err := value.Display(eng, args[1])
		if err == nil {
			msg = s
		}
	}
	return value.Null, fmt.Errorf("%s", msg)
}

func typeNative(eng value.Engine, args []value.Value) (value.Value, error) {
	if len(args) != 1 {
		return value.Null, fmt.Errorf("type takes exactly one argument")
	}
	return value.Str(args[0].TypeName()), nil
}
