package ast

import "fmt"

// ConstIndex is a 24-bit constant-pool index (spec §4.3). Overflow past
// 1<<24 constants is a hard compile error.
type ConstIndex int32

const maxConstIndex = 1<<24 - 1

// Const is one deduplicated literal: a string or a number.
type Const struct {
	IsString bool
	Str      string
	IsFloat  bool
	Int      int64
	Float    float64
}

// ConstantPool deduplicates string and numeric literals shared between
// the AST and the bytecode chunk produced from it (spec §4.3).
type ConstantPool struct {
	values []Const
	byStr  map[string]ConstIndex
	byInt  map[int64]ConstIndex
	byFlt  map[float64]ConstIndex
}

// NewConstantPool creates an empty pool.
func NewConstantPool() *ConstantPool {
	return &ConstantPool{
		byStr: make(map[string]ConstIndex),
		byInt: make(map[int64]ConstIndex),
		byFlt: make(map[float64]ConstIndex),
	}
}

// ErrConstantPoolFull is returned when a constant beyond the 1<<24
// (16,777,216) a 24-bit index can address would be needed; this is
// treated as a CompileError by the caller.
var ErrConstantPoolFull = fmt.Errorf("constant pool exceeded 24-bit index capacity")

// AddString inserts (or finds) a string constant, returning its index.
func (p *ConstantPool) AddString(s string) (ConstIndex, error) {
	if idx, ok := p.byStr[s]; ok {
		return idx, nil
	}
	if len(p.values) > maxConstIndex {
		return 0, ErrConstantPoolFull
	}
	idx := ConstIndex(len(p.values))
	p.values = append(p.values, Const{IsString: true, Str: s})
	p.byStr[s] = idx
	return idx, nil
}

// AddInt inserts (or finds) an integer constant.
func (p *ConstantPool) AddInt(v int64) (ConstIndex, error) {
	if idx, ok := p.byInt[v]; ok {
		return idx, nil
	}
	if len(p.values) > maxConstIndex {
		return 0, ErrConstantPoolFull
	}
	idx := ConstIndex(len(p.values))
	p.values = append(p.values, Const{Int: v})
	p.byInt[v] = idx
	return idx, nil
}

// AddFloat inserts (or finds) a float constant.
func (p *ConstantPool) AddFloat(v float64) (ConstIndex, error) {
	if idx, ok := p.byFlt[v]; ok {
		return idx, nil
	}
	if len(p.values) > maxConstIndex {
		return 0, ErrConstantPoolFull
	}
	idx := ConstIndex(len(p.values))
	p.values = append(p.values, Const{IsFloat: true, Float: v})
	p.byFlt[v] = idx
	return idx, nil
}

// Get returns the constant at idx.
func (p *ConstantPool) Get(idx ConstIndex) Const {
	return p.values[idx]
}

// Len reports the number of distinct constants interned so far.
func (p *ConstantPool) Len() int {
	return len(p.values)
}
