package value

// List is a growable, order-preserving sequence (spec §3.1).
type List struct {
	Elems []Value
}

// Key is the hashable projection of a Value, usable as a Go map key.
// Only Null, Bool, Int, Float and String are hashable (spec §4.7
// "Hashable-key restriction") — Lists, Maps, Tuples and Functions
// cannot be used as map keys.
type Key struct {
	tag Tag
	num uint64
	str string
}

// NewKey converts v to a Key, reporting false if v's type isn't
// hashable.
func NewKey(v Value) (Key, bool) {
	switch v.Tag {
	case TagNull, TagBool, TagInt, TagFloat, TagString:
		return Key{tag: v.Tag, num: v.Num, str: v.Str}, true
	}
	return Key{}, false
}

// Value reconstructs the original Value from a Key.
func (k Key) Value() Value {
	return Value{Tag: k.tag, Num: k.num, Str: k.str}
}

// MapData is the backing store for Map values: an order-preserving
// association plus an attached MetaMap for operator overloading (spec
// §4.7, §9 "Meta-map over inheritance").
type MapData struct {
	keys  []Key
	vals  []Value
	index map[Key]int
	Meta  *MetaMap
}

func NewMapData() *MapData {
	return &MapData{index: make(map[Key]int), Meta: NewMetaMap()}
}

// Get returns the value for key and whether it was present.
func (m *MapData) Get(key Value) (Value, bool) {
	k, ok := NewKey(key)
	if !ok {
		return Null, false
	}
	i, ok := m.index[k]
	if !ok {
		return Null, false
	}
	return m.vals[i], true
}

// Set inserts or overwrites key's value, preserving first-insertion
// order for new keys.
func (m *MapData) Set(key, val Value) bool {
	k, ok := NewKey(key)
	if !ok {
		return false
	}
	if i, exists := m.index[k]; exists {
		m.vals[i] = val
		return true
	}
	m.index[k] = len(m.keys)
	m.keys = append(m.keys, k)
	m.vals = append(m.vals, val)
	return true
}

// Delete removes key, reporting whether it was present. Removing a
// non-terminal entry shifts later entries down to preserve order and
// keep m.index consistent.
func (m *MapData) Delete(key Value) bool {
	k, ok := NewKey(key)
	if !ok {
		return false
	}
	i, exists := m.index[k]
	if !exists {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.index, k)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
	return true
}

// Len reports the number of entries.
func (m *MapData) Len() int { return len(m.keys) }

// At returns the i'th (key, value) pair in insertion order.
func (m *MapData) At(i int) (Value, Value) {
	return m.keys[i].Value(), m.vals[i]
}

// RangeData backs Range values. Start/End are meaningless unless the
// matching HasStart/HasEnd flag is set (spec §4.8.4 "unbounded
// ranges").
type RangeData struct {
	Start, End       int64
	HasStart, HasEnd bool
	Inclusive        bool
}

func MakeRange(start int64, hasStart bool, end int64, hasEnd, inclusive bool) Value {
	return Value{Tag: TagRange, Obj: &RangeData{
		Start: start, HasStart: hasStart, End: end, HasEnd: hasEnd, Inclusive: inclusive,
	}}
}

func (v Value) Range() *RangeData { return v.Obj.(*RangeData) }

// Bounded reports the effective exclusive end of the range given a
// container length, resolving an unbounded or inclusive end (spec
// §4.8.4).
func (r *RangeData) Bounded(containerLen int64) (start, end int64) {
	start = 0
	if r.HasStart {
		start = r.Start
	}
	end = containerLen
	if r.HasEnd {
		end = r.End
		if r.Inclusive {
			end++
		}
	}
	return start, end
}
