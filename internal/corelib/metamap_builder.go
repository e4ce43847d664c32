// Package corelib is the mechanism by which external modules attach
// behavior to the runtime, not a reimplementation of one (spec §4.11):
// a fluent MetaMapBuilder for assembling a value.MetaMap, a Prelude
// name table for the handful of natives the compiler itself emits
// direct calls to, and the @serialize default fallback. io/string/
// list/map/number/os/iterator/test/tuple/range modules stay external,
// built on top of what this package exposes.
package corelib

import (
	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/value"
)

// MetaMapBuilder assembles a *value.MetaMap one operator/protocol slot
// at a time. Grounded in original_source/core/runtime/src/
// meta_map_builder.rs's MetaMapBuilder<T>::new(type_name).function(key,
// f).build() chain — simplified here because value.Object carries its
// own typed Go receiver directly (no ExternalData/External indirection
// to unwrap inside every closure the way the Rust original needs to).
type MetaMapBuilder struct {
	mm *value.MetaMap
}

// NewMetaMapBuilder starts a builder over a fresh, empty meta-map.
func NewMetaMapBuilder() *MetaMapBuilder {
	return &MetaMapBuilder{mm: value.NewMetaMap()}
}

// Function installs fn under one of the fixed operator-overload slots
// (spec §3.2), wrapped as a NativeFn so it can also be called directly
// by script code that looks it up by name.
func (b *MetaMapBuilder) Function(key bytecode.MetaKey, name string, fn func(eng value.Engine, args []value.Value) (value.Value, error)) *MetaMapBuilder {
	nf := value.MakeNativeFn(name, fn)
	b.mm.Set(key.String(), nf)
	return b
}

// Custom installs a "@name" entry outside the fixed operator slots —
// an object's own methods and fields, looked up via GetCustom.
func (b *MetaMapBuilder) Custom(name string, fn func(eng value.Engine, args []value.Value) (value.Value, error)) *MetaMapBuilder {
	b.mm.Set(name, value.MakeNativeFn(name, fn))
	return b
}

// Build finishes the meta-map.
func (b *MetaMapBuilder) Build() *value.MetaMap {
	return b.mm
}
