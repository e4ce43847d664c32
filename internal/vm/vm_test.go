package vm_test

import (
	"strings"
	"testing"
	"time"

	"github.com/lumen-lang/lumen/internal/compiler"
	"github.com/lumen-lang/lumen/internal/corelib"
	"github.com/lumen-lang/lumen/internal/hostio"
	"github.com/lumen-lang/lumen/internal/loader"
	"github.com/lumen-lang/lumen/internal/lumenerr"
	"github.com/lumen-lang/lumen/internal/parser"
	"github.com/lumen-lang/lumen/internal/vm"
)

// runCaptured compiles and runs src through the full pipeline, routing
// print/stdout through an in-memory buffer so a test can assert on
// exactly what the script wrote (spec §6.1's capability set exercised
// end to end, no real file descriptor touched).
func runCaptured(t *testing.T, src string) (string, error) {
	t.Helper()
	a, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(a, "")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out := hostio.NewBufferHandle("stdout")
	prelude := corelib.NewPrelude(out, out, out)
	v := vm.New(prelude, loader.New(nil))
	_, err = v.Run(chunk)
	return out.String(), err
}

func TestPrintAddition(t *testing.T) {
	out, err := runCaptured(t, "print 1 + 1\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "2\n" {
		t.Fatalf("got %q, want %q", out, "2\n")
	}
}

func TestAssignmentAndMultiplication(t *testing.T) {
	out, err := runCaptured(t, "x = 3\nprint x * x\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "9\n" {
		t.Fatalf("got %q, want %q", out, "9\n")
	}
}

func TestAssertFailureRaisesRuntimeError(t *testing.T) {
	_, err := runCaptured(t, "assert 1 == 2\n")
	if err == nil {
		t.Fatal("expected assert 1 == 2 to fail")
	}
	if _, ok := err.(*lumenerr.RuntimeError); !ok {
		t.Fatalf("expected *lumenerr.RuntimeError, got %T: %v", err, err)
	}
}

// TestUnboundedRangeIsNotIterable exercises spec §8's end-to-end
// scenario: pulling from an unbounded range is a runtime error, not a
// silent no-op.
func TestUnboundedRangeIsNotIterable(t *testing.T) {
	_, err := runCaptured(t, "for i in 0.. then print i\n")
	if err == nil {
		t.Fatal("expected an unbounded range iteration to fail")
	}
	if !strings.Contains(err.Error(), "unbounded range") {
		t.Fatalf("expected an unbounded-range error, got: %v", err)
	}
}

// TestExecutionBudgetTimesOut exercises spec §8 property 11: a runaway
// loop halts with a Timeout error once its wall-clock budget expires.
func TestExecutionBudgetTimesOut(t *testing.T) {
	a, err := parser.Parse("while true then ()\n")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	chunk, err := compiler.Compile(a, "")
	if err != nil {
		t.Fatalf("compile error: %v", err)
	}
	out := hostio.NewBufferHandle("stdout")
	v := vm.New(corelib.NewPrelude(out, out, out), loader.New(nil))
	v.SetExecutionLimit(time.Millisecond)
	_, err = v.Run(chunk)
	if err == nil {
		t.Fatal("expected execution to time out")
	}
	if _, ok := err.(*lumenerr.TimeoutError); !ok {
		t.Fatalf("expected *lumenerr.TimeoutError, got %T: %v", err, err)
	}
}

// TestMetaDispatchPrefersLeftOperand exercises spec §8 property 8: when
// both operands declare an @+ override, the left operand's wins.
func TestMetaDispatchPrefersLeftOperand(t *testing.T) {
	src := `
a = {@+: |self, other| "left"}
b = {@+: |self, other| "right"}
print a + b
`
	out, err := runCaptured(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "left\n" {
		t.Fatalf("got %q, want %q", out, "left\n")
	}
}

// TestCycleSafeDisplayTerminates exercises spec §8 property 9: a
// self-referential container renders with a "..." marker and returns
// instead of recursing forever. The cycle is built via index
// assignment into an already-sized list, since list mutation methods
// like push/append live in an external module outside this core's
// scope.
func TestCycleSafeDisplayTerminates(t *testing.T) {
	src := "xs = [1, 2, null]\nxs[2] = xs\nprint xs\n"
	out, err := runCaptured(t, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "...") {
		t.Fatalf("expected cycle marker \"...\" in output, got %q", out)
	}
}
