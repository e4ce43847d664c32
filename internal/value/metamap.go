package value

import "github.com/lumen-lang/lumen/internal/bytecode"

// MetaMap holds a Map or Object's operator-overload and protocol
// entries, keyed by the bytecode.MetaKey enum rather than raw strings
// (spec §9 "Meta-map over inheritance"). Entries written through the
// parser's "@name" map-literal sugar land here when the VM builds the
// map (OpMakeMap), never in the Map's ordinary entries.
type MetaMap struct {
	entries map[bytecode.MetaKey]Value
	custom  map[string]Value
}

func NewMetaMap() *MetaMap {
	return &MetaMap{entries: make(map[bytecode.MetaKey]Value), custom: make(map[string]Value)}
}

// Set installs the value under name, routing to the builtin bucket
// when name matches one of the fixed operator slots and to the custom
// bucket otherwise (grounded in
// original_source/core/runtime/src/meta_map_builder.rs's key set).
func (m *MetaMap) Set(name string, v Value) {
	k := bytecode.LookupMetaKey(name)
	if k == bytecode.MetaCustom {
		m.custom[name] = v
		return
	}
	m.entries[k] = v
}

// Get looks up a builtin operator slot.
func (m *MetaMap) Get(k bytecode.MetaKey) (Value, bool) {
	v, ok := m.entries[k]
	return v, ok
}

// GetCustom looks up a "@name" entry that isn't one of the fixed
// operator slots.
func (m *MetaMap) GetCustom(name string) (Value, bool) {
	v, ok := m.custom[name]
	return v, ok
}

func (m *MetaMap) Len() int { return len(m.entries) + len(m.custom) }

// MetaOf returns v's attached meta-map, or nil if v's type cannot carry
// one. Only Map and Object values are overridable (spec §4.9); every
// other type's operators are fixed built-ins.
func MetaOf(v Value) *MetaMap {
	switch v.Tag {
	case TagMap:
		g := v.Map().Borrow()
		defer g.Release()
		return g.Value().Meta
	case TagObject:
		if o, ok := v.Obj.(Object); ok {
			return o.Meta()
		}
	}
	return nil
}
