package memory

import (
	"fmt"
	"unsafe"
)

func uintptrOf[T any](p *T) uintptr {
	return uintptr(unsafe.Pointer(p))
}

// borrowState tracks the current borrow of a PtrMut cell. Only one
// mutable borrow, or any number of shared borrows, may be outstanding
// at a time; this is checked at runtime rather than at compile time
// because the VM is not Rust's borrow checker.
type borrowState int

const (
	borrowNone borrowState = iota
	borrowShared
	borrowMut
)

type cell[T any] struct {
	value   T
	state   borrowState
	sharedN int
}

// PtrMut is a ref-counted handle to an interior-mutable value of type T
// (the backing storage for List, Map and Iterator payloads, per spec
// §3.1). Two clones of a PtrMut share the same cell; mutating through
// one is visible through the other.
type PtrMut[T any] struct {
	cell *cell[T]
}

// NewPtrMut allocates a fresh shared mutable cell.
func NewPtrMut[T any](v T) PtrMut[T] {
	return PtrMut[T]{cell: &cell[T]{value: v}}
}

// Same reports whether two PtrMuts address the same allocation.
func (p PtrMut[T]) Same(other PtrMut[T]) bool {
	return p.cell == other.cell
}

// Addr exposes a stable identity token for display-cycle tracking.
func (p PtrMut[T]) Addr() uintptr {
	return uintptrOf(p.cell)
}

// BorrowGuard releases a borrow when dropped. Callers must call Release
// exactly once.
type BorrowGuard[T any] struct {
	cell   *cell[T]
	shared bool
}

// Release ends the borrow represented by this guard.
func (g BorrowGuard[T]) Release() {
	if g.cell == nil {
		return
	}
	if g.shared {
		g.cell.sharedN--
		if g.cell.sharedN == 0 {
			g.cell.state = borrowNone
		}
		return
	}
	g.cell.state = borrowNone
}

// Value returns the current value through a shared borrow guard.
func (g BorrowGuard[T]) Value() T {
	return g.cell.value
}

// Set writes through a mutable borrow guard.
func (g BorrowGuard[T]) Set(v T) {
	g.cell.value = v
}

// ErrBorrowConflict is returned by TryBorrow/TryBorrowMut when the cell
// is already borrowed in a conflicting mode. The VM surfaces this as a
// RuntimeError ("container is already borrowed").
type ErrBorrowConflict struct {
	Wanted string
}

func (e *ErrBorrowConflict) Error() string {
	return fmt.Sprintf("container is already borrowed (wanted %s access)", e.Wanted)
}

// Borrow takes a shared (read-only) borrow, panicking on conflict. Used
// at call sites that have already proven no concurrent mutable borrow
// can exist (single-threaded VM, no reentrant mutation in the same
// expression).
func (p PtrMut[T]) Borrow() BorrowGuard[T] {
	g, err := p.TryBorrow()
	if err != nil {
		panic(err)
	}
	return g
}

// TryBorrow takes a shared borrow, returning an error instead of
// panicking if the cell is mutably borrowed.
func (p PtrMut[T]) TryBorrow() (BorrowGuard[T], error) {
	if p.cell.state == borrowMut {
		return BorrowGuard[T]{}, &ErrBorrowConflict{Wanted: "shared"}
	}
	p.cell.state = borrowShared
	p.cell.sharedN++
	return BorrowGuard[T]{cell: p.cell, shared: true}, nil
}

// BorrowMut takes an exclusive borrow, panicking on conflict.
func (p PtrMut[T]) BorrowMut() BorrowGuard[T] {
	g, err := p.TryBorrowMut()
	if err != nil {
		panic(err)
	}
	return g
}

// TryBorrowMut takes an exclusive borrow, returning an error instead of
// panicking if the cell is already borrowed in either mode.
func (p PtrMut[T]) TryBorrowMut() (BorrowGuard[T], error) {
	if p.cell.state != borrowNone {
		return BorrowGuard[T]{}, &ErrBorrowConflict{Wanted: "mutable"}
	}
	p.cell.state = borrowMut
	return BorrowGuard[T]{cell: p.cell, shared: false}, nil
}

// MakeCopy returns a new PtrMut with a deep-enough copy of the current
// value, produced by the supplied cloning function. Used by List/Map
// "deep copy" operations and by iterator forking (§4.8.4).
func (p PtrMut[T]) MakeCopy(clone func(T) T) PtrMut[T] {
	g := p.Borrow()
	defer g.Release()
	return NewPtrMut(clone(g.Value()))
}
