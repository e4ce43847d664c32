// Package vm executes compiled chunks: a register machine with an
// explicit frame stack, generator sub-VMs, meta-dispatch delegated to
// internal/value, and TryBegin/Throw catch-stack unwinding (spec §4.8,
// §5). The dispatch loop never recurses into itself for an ordinary
// bytecode Call — frames are pushed onto the same flat stack and the
// loop simply keeps going — which is what lets a generator's Yield
// suspend by just returning from run() with every frame intact for
// the next resume, without goroutines (spec §4.8.5 "sub-VM").
package vm

import (
	"fmt"
	"time"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/loader"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/token"
	"github.com/lumen-lang/lumen/internal/value"
)

const (
	noCatchReg = 0xFF

	initialRegisters = 1024
	maxFrameDepth     = 4096
)

// catchEntry is one pending TryBegin scope within a frame's catch
// stack (spec §4.8.6).
type catchEntry struct {
	target int32
	reg    byte
}

// frame is one activation record: a register window into vm.regs plus
// the bookkeeping Call/Return/TryBegin need (spec §3.5). barrier marks
// a frame pushed as a synchronous re-entry point (the root script, a
// generator's first frame, or a nested value.Engine.CallValue call) —
// unwinding a Throw never crosses it (spec §4.8.3 "execution-barrier
// frame").
type frame struct {
	proto    *bytecode.FuncProto
	captures []value.Value
	ip       int32
	base     int
	dstReg   byte
	barrier  bool
	catch    []catchEntry
}

// VM executes one compiled program. A generator call spawns a child VM
// sharing this one's globals, prelude and loader but owning its own
// register file and frame stack (spec §5 "Spawning a shared VM").
type VM struct {
	regs   []value.Value
	frames []*frame
	frame  *frame

	globals map[string]value.Value
	prelude map[string]value.Value
	loader  *loader.Loader

	// exportTrack mirrors the nesting of runModule calls: OpSetGlobal
	// records into the top entry so the module's exports map can be
	// built from exactly the names it bound at its own top level,
	// without a dedicated "export" opcode.
	exportTrack []map[string]bool

	deadline    time.Time
	hasDeadline bool
}

// New creates a VM with the given prelude (the initial name table new
// modules see, spec §4.8.1) and loader. globals starts as a copy of
// prelude; the caller is still free to mutate it before Run.
func New(prelude map[string]value.Value, ld *loader.Loader) *VM {
	globals := make(map[string]value.Value, len(prelude))
	for k, v := range prelude {
		globals[k] = v
	}
	return &VM{
		regs:    make([]value.Value, 0, initialRegisters),
		globals: globals,
		prelude: prelude,
		loader:  ld,
	}
}

// SetExecutionLimit configures the optional wall-clock execution
// budget (spec §4.8.8); zero disables it.
func (vm *VM) SetExecutionLimit(d time.Duration) {
	if d <= 0 {
		vm.hasDeadline = false
		return
	}
	vm.deadline = time.Now().Add(d)
	vm.hasDeadline = true
}

// Globals exposes the live global table, e.g. for a test runner
// enumerating "__test__" names or a REPL's export_top_level_ids mode.
func (vm *VM) Globals() map[string]value.Value { return vm.globals }

func (vm *VM) childVM() *VM {
	return &VM{
		regs:        make([]value.Value, 0, 64),
		globals:     vm.globals,
		prelude:     vm.prelude,
		loader:      vm.loader,
		deadline:    vm.deadline,
		hasDeadline: vm.hasDeadline,
	}
}

// Run executes chunk as the program's top level, returning the value
// of its final statement (Null when that statement is not an
// expression).
func (vm *VM) Run(chunk *bytecode.Chunk) (value.Value, error) {
	proto := rootProto(chunk)
	return vm.callSync(value.MakeFunction(proto, nil), nil)
}

// rootProto wraps a Chunk's own top-level code in a zero-arg FuncProto
// so it can be pushed as an ordinary frame.
func rootProto(chunk *bytecode.Chunk) *bytecode.FuncProto {
	return &bytecode.FuncProto{
		Name:         chunk.SourcePath,
		NumRegisters: chunk.NumRegisters,
		Code:         chunk.Code,
		Debug:        chunk.Debug,
		SourcePath:   chunk.SourcePath,
		Constants:    chunk.Constants,
		Protos:       chunk.Protos,
		BodyStart:    0,
	}
}

// CallValue implements value.Engine, the re-entry point meta-dispatch
// and native functions use to call back into Lumen code. Every such
// call pushes a barrier frame: an uncaught error inside it surfaces
// here rather than leaking into whatever try/catch happens to be
// further out on the caller's own call stack (spec §4.8.3).
func (vm *VM) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	return vm.callSync(callee, args)
}

func (vm *VM) callSync(callee value.Value, args []value.Value) (value.Value, error) {
	switch callee.Tag {
	case value.TagNativeFn:
		return callee.Obj.(*value.NativeFn).Fn(vm, args)
	case value.TagFunction:
		fn := callee.Obj.(*value.Function)
		if fn.Proto.Generator {
			return value.MakeIteratorValue(newGeneratorIterator(vm, callee, args)), nil
		}
		stopAt := len(vm.frames)
		if err := vm.pushClosureFrame(fn, args, 0, true); err != nil {
			return value.Null, err
		}
		v, _, err := vm.run(stopAt)
		return v, err
	default:
		return value.Null, vm.runtimeErrf(token.Span{}, "value of type %s is not callable", callee.TypeName())
	}
}

// runModule executes chunk as an imported module's top level in its
// own global namespace (seeded from prelude) and returns a Map of
// whatever names it bound at top level (spec §4.6, §2 "runs it in a
// sub-frame that exports a map").
func (vm *VM) runModule(chunk *bytecode.Chunk) (value.Value, error) {
	saved := vm.globals
	fresh := make(map[string]value.Value, len(vm.prelude))
	for k, v := range vm.prelude {
		fresh[k] = v
	}
	vm.globals = fresh
	track := make(map[string]bool)
	vm.exportTrack = append(vm.exportTrack, track)

	_, err := vm.callSync(value.MakeFunction(rootProto(chunk), nil), nil)

	vm.exportTrack = vm.exportTrack[:len(vm.exportTrack)-1]
	vm.globals = saved
	if err != nil {
		return value.Null, err
	}

	exports := value.MapOf()
	guard := exports.Map().BorrowMut()
	for name := range track {
		guard.Value().Set(value.Str(name), fresh[name])
	}
	guard.Release()
	return exports, nil
}

func (vm *VM) popFrame() {
	n := len(vm.frames) - 1
	vm.regs = vm.regs[:vm.frames[n].base]
	vm.frames = vm.frames[:n]
	if n > 0 {
		vm.frame = vm.frames[n-1]
	} else {
		vm.frame = nil
	}
}

func (vm *VM) reg(i byte) value.Value { return vm.regs[vm.frame.base+int(i)] }

func (vm *VM) setReg(i byte, v value.Value) { vm.regs[vm.frame.base+int(i)] = v }

func (vm *VM) runtimeErrf(span token.Span, format string, args ...interface{}) error {
	return &lumenerr.RuntimeError{Message: fmt.Sprintf(format, args...), Span: span}
}

// wrapErr normalizes a plain Go error (from internal/value's arithmetic
// and comparison helpers, or an arity mismatch this package raises
// directly) into a *lumenerr.RuntimeError carrying the current
// instruction's span, leaving already-typed lumenerr errors untouched
// so Timeout/HostIO keep their own kind through unwinding.
func (vm *VM) wrapErr(span token.Span, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *lumenerr.RuntimeError, *lumenerr.TimeoutError, *lumenerr.HostIOError:
		return err
	}
	return &lumenerr.RuntimeError{Message: err.Error(), Span: span}
}
