// Package lumen is the embedding surface wrapping internal/vm and
// internal/loader behind the operations spec §6.1 names: Compile, Run,
// CompileAndRun, CallFunction, Prelude, Exports, ValueToString.
// Grounded in the teacher's own top-level Evaluator type
// (internal/evaluator/evaluator.go's New/Eval/Clone), reduced to the
// fixed, settings-driven construction contract an embeddable core
// needs instead of the teacher's much larger tree-walking surface.
package lumen

import (
	"fmt"
	"strings"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/corelib"
	"github.com/lumen-lang/lumen/internal/hostio"
	"github.com/lumen-lang/lumen/internal/loader"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/value"
	"github.com/lumen-lang/lumen/internal/vm"
)

// testGlobalPrefix matches internal/compiler/statements.go's
// "__test__<name>" synthesized global naming convention.
const testGlobalPrefix = "__test__"

// CompileError wraps whatever the loader's lex/parse/compile stages
// returned, preserving the indentation-error predicate a REPL needs to
// decide whether to keep reading more input (spec §6.1, §6.3).
type CompileError struct {
	Err error
}

func (e *CompileError) Error() string { return e.Err.Error() }
func (e *CompileError) Unwrap() error { return e.Err }

// IsIndentationError reports whether the underlying failure was a
// distinguished "needs more input" parse error rather than a real
// syntax error.
func (e *CompileError) IsIndentationError() bool {
	pe, ok := e.Err.(*lumenerr.ParseError)
	return ok && pe.IsIndentationError()
}

// Lumen is one runtime instance: a VM, its loader, and the settings
// both were constructed from.
type Lumen struct {
	settings Settings
	prelude  map[string]value.Value
	vm       *vm.VM
	loader   *loader.Loader
	chunk    *bytecode.Chunk
}

// New constructs a Lumen with DefaultSettings.
func New() *Lumen {
	return NewWithSettings(DefaultSettings())
}

// NewWithSettings constructs a Lumen from an explicit Settings value,
// filling any unset file handle with the matching process stream.
func NewWithSettings(settings Settings) *Lumen {
	if settings.Stdout == nil {
		settings.Stdout = hostio.Stdout
	}
	if settings.Stderr == nil {
		settings.Stderr = hostio.Stderr
	}
	if settings.Stdin == nil {
		settings.Stdin = hostio.Stdin
	}

	ld := loader.New(settings.SearchPaths)
	ld.ModuleImportedCallback = settings.ModuleImportedCallback

	prelude := corelib.NewPrelude(settings.Stdout, settings.Stderr, settings.Stdin)
	argElems := make([]value.Value, len(settings.Args))
	for i, a := range settings.Args {
		argElems[i] = value.Str(a)
	}
	prelude["args"] = value.TupleOf(argElems)

	v := vm.New(prelude, ld)
	if settings.ExecutionLimit > 0 {
		v.SetExecutionLimit(settings.ExecutionLimit)
	}

	return &Lumen{settings: settings, prelude: prelude, vm: v, loader: ld}
}

// Compile lexes, parses and compiles source, recording the result as
// the instance's "last-compiled chunk" for a later bare Run() (spec
// §6.1 "compile" / "run()").
func (l *Lumen) Compile(source, scriptPath string) (*bytecode.Chunk, error) {
	chunk, err := l.loader.Compile(source, scriptPath)
	if err != nil {
		return nil, &CompileError{Err: err}
	}
	l.chunk = chunk
	return chunk, nil
}

// Run executes the last chunk returned by Compile.
func (l *Lumen) Run() (value.Value, error) {
	if l.chunk == nil {
		return value.Null, fmt.Errorf("lumen: no chunk compiled")
	}
	return l.RunChunk(l.chunk)
}

// RunChunk executes chunk explicitly, independent of whatever Compile
// last produced (spec §6.1 "run(chunk)").
func (l *Lumen) RunChunk(chunk *bytecode.Chunk) (value.Value, error) {
	result, err := l.vm.Run(chunk)
	if err != nil {
		return value.Null, err
	}
	if l.settings.RunTests {
		if err := l.runTests(); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (l *Lumen) runTests() error {
	for name, fn := range l.vm.Globals() {
		if !strings.HasPrefix(name, testGlobalPrefix) {
			continue
		}
		if _, err := l.vm.CallValue(fn, nil); err != nil {
			return fmt.Errorf("test %q failed: %w", strings.TrimPrefix(name, testGlobalPrefix), err)
		}
	}
	return nil
}

// CompileAndRun combines Compile and Run in one call (spec §6.1
// "compile_and_run").
func (l *Lumen) CompileAndRun(source, scriptPath string) (value.Value, error) {
	chunk, err := l.Compile(source, scriptPath)
	if err != nil {
		return value.Null, err
	}
	return l.RunChunk(chunk)
}

// CallFunction calls a previously obtained callable value with args
// (spec §6.1 "call_function").
func (l *Lumen) CallFunction(fn value.Value, args []value.Value) (value.Value, error) {
	return l.vm.CallValue(fn, args)
}

// Prelude returns the name table installed at construction time,
// untouched by anything a script does at runtime.
func (l *Lumen) Prelude() map[string]value.Value {
	out := make(map[string]value.Value, len(l.prelude))
	for k, v := range l.prelude {
		out[k] = v
	}
	return out
}

// Exports returns the script's own top-level bindings: every global
// that isn't part of the prelude's fixed name table. ExportTopLevelIds
// does not change the result: it is whatever the script assigned at
// global scope, since `export` compiles to the same global binding as
// a plain top-level `let` (spec §8
// property 10's sub-frame export map covers the `import` side of this;
// Exports covers the top-level script run directly).
func (l *Lumen) Exports() map[string]value.Value {
	out := make(map[string]value.Value)
	for k, v := range l.vm.Globals() {
		if _, isPrelude := l.prelude[k]; isPrelude {
			continue
		}
		if strings.HasPrefix(k, testGlobalPrefix) {
			continue
		}
		out[k] = v
	}
	return out
}

// ValueToString formats v via the runtime's own display machinery
// (spec §6.1 "value_to_string").
func (l *Lumen) ValueToString(v value.Value) (string, error) {
	return value.Display(l.vm, v)
}

// ValueToYAML formats v as a YAML document, honoring any @serialize
// meta-map override v carries (spec §4.9, §3 domain wiring via
// gopkg.in/yaml.v3).
func (l *Lumen) ValueToYAML(v value.Value) (string, error) {
	return corelib.ToYAML(l.vm, v)
}
