package vm

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/token"
	"github.com/lumen-lang/lumen/internal/value"
)

// pushClosureFrame pushes a new activation record for fn bound to
// args, resolving default arguments via the compiler's
// DefaultsChunk/BodyStart contiguous-fallthrough scheme (DESIGN.md
// "default-argument values via DefaultsChunk, not a captures list" —
// this supersedes spec §4.8.3's literal "fills defaulted arguments
// from the captures list" wording) and packing trailing variadic
// arguments into a tuple (spec §4.8.3 "packs ... into a tuple").
func (vm *VM) pushClosureFrame(fn *value.Function, args []value.Value, dstReg byte, barrier bool) error {
	if len(vm.frames) >= maxFrameDepth {
		return &lumenerr.RuntimeError{Message: "call stack overflow"}
	}
	proto := fn.Proto
	base := len(vm.regs)
	vm.regs = append(vm.regs, make([]value.Value, proto.NumRegisters)...)

	entry, err := bindArgs(vm.regs[base:base+proto.NumRegisters], proto, args)
	if err != nil {
		vm.regs = vm.regs[:base]
		return err
	}

	f := &frame{
		proto:    proto,
		captures: fn.Captures,
		ip:       entry,
		base:     base,
		dstReg:   dstReg,
		barrier:  barrier,
	}
	vm.frames = append(vm.frames, f)
	vm.frame = f
	return nil
}

// doCall implements OpCall. A plain Lumen function's frame is pushed
// onto the same vm.frames the running loop is already iterating —
// unlike callSync, this never recurses into run() itself, so an
// OpYield further down the call chain can still suspend by returning
// straight out of the one active run() invocation.
func (vm *VM) doCall(callee value.Value, args []value.Value, dst byte, span token.Span) error {
	switch callee.Tag {
	case value.TagNativeFn:
		v, err := callee.Obj.(*value.NativeFn).Fn(vm, args)
		if err != nil {
			return err
		}
		vm.setReg(dst, v)
		return nil
	case value.TagFunction:
		fn := callee.Obj.(*value.Function)
		if fn.Proto.Generator {
			vm.setReg(dst, value.MakeIteratorValue(newGeneratorIterator(vm, callee, args)))
			return nil
		}
		return vm.pushClosureFrame(fn, args, dst, false)
	default:
		return &lumenerr.RuntimeError{Message: fmt.Sprintf("value of type %s is not callable", callee.TypeName()), Span: span}
	}
}

// bindArgs fills regs[0:proto.NumParams] from args and returns the
// bytecode offset execution should resume at.
func bindArgs(regs []value.Value, proto *bytecode.FuncProto, args []value.Value) (int32, error) {
	numParams := proto.NumParams
	argc := len(args)

	if proto.Variadic {
		fixed := numParams - 1
		n := fixed
		if argc < fixed {
			n = argc
		}
		for i := 0; i < n; i++ {
			regs[i] = args[i]
		}
		var rest []value.Value
		if argc > fixed {
			rest = append([]value.Value{}, args[fixed:]...)
		}
		regs[fixed] = value.TupleOf(rest)
		return resolveEntry(proto, n, fixed)
	}

	n := argc
	if n > numParams {
		n = numParams
	}
	for i := 0; i < n; i++ {
		regs[i] = args[i]
	}
	return resolveEntry(proto, n, numParams)
}

// resolveEntry decides where execution starts given argc live leading
// arguments: straight to the body if every param up to effective is
// covered, otherwise the first missing param's default prologue (they
// fall through contiguously to BodyStart), or an arity error if that
// param has no default.
func resolveEntry(proto *bytecode.FuncProto, argc, effective int) (int32, error) {
	if argc >= effective {
		return proto.BodyStart, nil
	}
	if argc < len(proto.DefaultsChunk) {
		if off := proto.DefaultsChunk[argc]; off >= 0 {
			return off, nil
		}
	}
	return 0, &lumenerr.RuntimeError{Message: "wrong number of arguments"}
}

func (vm *VM) raiseThrow(span token.Span, v value.Value) error {
	msg, dispErr := value.Display(vm, v)
	if dispErr != nil {
		msg = v.TypeName()
	}
	return &lumenerr.RuntimeError{Message: msg, Span: span, Thrown: v}
}

// errValue recovers the Lumen value a catch clause should bind from an
// unwinding error: the original thrown value for explicit `throw x`,
// otherwise its message as a string (built-in operator/type failures
// have no Lumen-level value of their own).
func errValue(err error) value.Value {
	if re, ok := err.(*lumenerr.RuntimeError); ok {
		if re.Thrown != nil {
			if v, ok := re.Thrown.(value.Value); ok {
				return v
			}
		}
		return value.Str(re.Message)
	}
	return value.Str(err.Error())
}

// unwind pops frames looking for a pending catch point, starting at
// the current frame's own catch stack and continuing into callers,
// but never past a barrier frame (spec §4.8.6, §4.8.3 "crossing an
// execution-barrier frame is forbidden"). Returns true if a catch
// point absorbed the error and execution should resume there.
func (vm *VM) unwind(err error) bool {
	thrown := errValue(err)
	for len(vm.frames) > 0 {
		f := vm.frame
		if n := len(f.catch); n > 0 {
			c := f.catch[n-1]
			f.catch = f.catch[:n-1]
			if c.reg != noCatchReg {
				vm.setReg(c.reg, thrown)
			}
			f.ip = c.target
			return true
		}
		wasBarrier := f.barrier
		vm.popFrame()
		if wasBarrier {
			return false
		}
	}
	return false
}
