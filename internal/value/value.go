// Package value implements the tagged value model described in spec
// §3.1, §3.2 and §4.7: a small fixed-size Value struct covering every
// scalar and an interface{} slot for heap-allocated variants, plus the
// meta-map operator-overload protocol.
package value

import (
	"math"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/memory"
)

// Tag identifies the variant a Value holds.
type Tag uint8

const (
	TagNull Tag = iota
	TagBool
	TagInt
	TagFloat
	TagString
	TagRange
	TagTuple
	TagList
	TagMap
	TagFunction
	TagNativeFn
	TagIterator
	TagObject
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagBool:
		return "Bool"
	case TagInt:
		return "Int"
	case TagFloat:
		return "Float"
	case TagString:
		return "String"
	case TagRange:
		return "Range"
	case TagTuple:
		return "Tuple"
	case TagList:
		return "List"
	case TagMap:
		return "Map"
	case TagFunction:
		return "Function"
	case TagNativeFn:
		return "NativeFunction"
	case TagIterator:
		return "Iterator"
	case TagObject:
		return "Object"
	}
	return "?"
}

// Value is the tagged union every register and stack slot holds. Num
// carries Bool (0/1), Int (raw int64 bits) and Float (IEEE-754 bits);
// Str carries TagString directly since Go strings are themselves
// immutable and reference-counted by the runtime; Obj carries every
// heap variant (spec §4.8 "tagged union value model").
type Value struct {
	Tag Tag
	Num uint64
	Str string
	Obj interface{}
}

var Null = Value{Tag: TagNull}

func Bool(b bool) Value {
	if b {
		return Value{Tag: TagBool, Num: 1}
	}
	return Value{Tag: TagBool, Num: 0}
}

func Int(i int64) Value { return Value{Tag: TagInt, Num: uint64(i)} }

func Float(f float64) Value { return Value{Tag: TagFloat, Num: math.Float64bits(f)} }

func Str(s string) Value { return Value{Tag: TagString, Str: s} }

func (v Value) AsBool() bool     { return v.Num != 0 }
func (v Value) AsInt() int64     { return int64(v.Num) }
func (v Value) AsFloat() float64 { return math.Float64frombits(v.Num) }

func (v Value) IsNull() bool { return v.Tag == TagNull }

// Truthy implements the language's definition of "falsy": only null and
// boolean false are falsy, mirroring the teacher's truthiness rule
// (spec §4.8 control flow).
func (v Value) Truthy() bool {
	switch v.Tag {
	case TagNull:
		return false
	case TagBool:
		return v.AsBool()
	default:
		return true
	}
}

// TypeName returns the display name used by runtime-error messages and
// the `type` introspection surface the core library binds externally.
func (v Value) TypeName() string {
	if v.Tag == TagObject {
		if o, ok := v.Obj.(Object); ok {
			return o.TypeName()
		}
	}
	return v.Tag.String()
}

// Function is a compiled closure: a prototype plus its captured
// variables, materialized at OpMakeFunction time (spec §4.4).
type Function struct {
	Proto    *bytecode.FuncProto
	Captures []Value
}

func MakeFunction(proto *bytecode.FuncProto, captures []Value) Value {
	return Value{Tag: TagFunction, Obj: &Function{Proto: proto, Captures: captures}}
}

// Engine is the minimal calling surface a NativeFn or Iterator needs
// back from the VM, kept as an interface here so this package never
// imports internal/vm (spec §4.9 "mechanism by which modules attach").
type Engine interface {
	CallValue(callee Value, args []Value) (Value, error)
}

// NativeFn wraps a Go function exposed to scripts (the prelude's
// __object_id, and anything a host embeds via pkg/lumen).
type NativeFn struct {
	Name string
	Fn   func(eng Engine, args []Value) (Value, error)
}

func MakeNativeFn(name string, fn func(eng Engine, args []Value) (Value, error)) Value {
	return Value{Tag: TagNativeFn, Obj: &NativeFn{Name: name, Fn: fn}}
}

// Iterator is satisfied by every pullable sequence: ranges, lists,
// tuples, maps, and generator sub-VMs (spec §4.8.4-4.8.5).
type Iterator interface {
	Next(eng Engine) (Value, bool, error)
}

func MakeIteratorValue(it Iterator) Value {
	return Value{Tag: TagIterator, Obj: it}
}

// Object is the extension point for host-defined external values
// (spec §4.9); it carries its own meta-map for operator overloading
// and display/serialize customization.
type Object interface {
	TypeName() string
	Meta() *MetaMap
}

func MakeObject(o Object) Value { return Value{Tag: TagObject, Obj: o} }

// ListOf wraps a fresh *List in a runtime-checked interior-mutable
// cell (internal/memory.PtrMut), matching the ref-counted,
// interior-mutable container model spec §2 assigns to List/Map.
func ListOf(elems []Value) Value {
	l := &List{Elems: elems}
	return Value{Tag: TagList, Obj: memory.NewPtrMut(l)}
}

func (v Value) List() memory.PtrMut[*List] { return v.Obj.(memory.PtrMut[*List]) }

func TupleOf(elems []Value) Value {
	return Value{Tag: TagTuple, Obj: memory.NewPtr(elems)}
}

func (v Value) Tuple() []Value { return v.Obj.(memory.Ptr[[]Value]).Get() }

func MapOf() Value {
	m := NewMapData()
	return Value{Tag: TagMap, Obj: memory.NewPtrMut(m)}
}

func (v Value) Map() memory.PtrMut[*MapData] { return v.Obj.(memory.PtrMut[*MapData]) }
