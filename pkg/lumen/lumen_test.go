package lumen_test

import (
	"strings"
	"testing"

	"github.com/lumen-lang/lumen/internal/hostio"
	"github.com/lumen-lang/lumen/pkg/lumen"
)

func newCapturing() (*lumen.Lumen, *hostio.BufferHandle) {
	out := hostio.NewBufferHandle("stdout")
	l := lumen.NewWithSettings(lumen.Settings{Stdout: out, Stderr: out, Stdin: out})
	return l, out
}

func TestCompileAndRunPrintsToConfiguredStdout(t *testing.T) {
	l, out := newCapturing()
	if _, err := l.CompileAndRun("print 1 + 1\n", "script"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "2\n" {
		t.Fatalf("got %q, want %q", out.String(), "2\n")
	}
}

// TestIndentationErrorDistinguishesIncompleteInput exercises spec §8
// property 12: a for-loop header with no body is a distinguished
// "needs more input" error a REPL can use to keep reading, while the
// same program completed with a body compiles cleanly.
func TestIndentationErrorDistinguishesIncompleteInput(t *testing.T) {
	l, _ := newCapturing()
	_, err := l.Compile("for i in 1..3\n", "repl")
	if err == nil {
		t.Fatal("expected an incomplete for-loop header to fail to compile")
	}
	ce, ok := err.(*lumen.CompileError)
	if !ok {
		t.Fatalf("expected *lumen.CompileError, got %T", err)
	}
	if !ce.IsIndentationError() {
		t.Fatalf("expected an indentation error, got: %v", err)
	}

	l2, _ := newCapturing()
	if _, err := l2.Compile("for i in 1..3\n  i\n", "repl"); err != nil {
		t.Fatalf("expected the completed loop to compile, got: %v", err)
	}
}

func TestRunTestsPropagatesTestFailure(t *testing.T) {
	out := hostio.NewBufferHandle("stdout")
	l := lumen.NewWithSettings(lumen.Settings{Stdout: out, Stderr: out, Stdin: out, RunTests: true})

	src := "test \"always fails\" then\n  assert false\n"
	_, err := l.CompileAndRun(src, "script")
	if err == nil {
		t.Fatal("expected a failing test to surface as an error")
	}
	if !strings.Contains(err.Error(), "always fails") {
		t.Fatalf("expected the test's own name in the error, got: %v", err)
	}
}

func TestRunTestsPassesWhenAssertionsHold(t *testing.T) {
	out := hostio.NewBufferHandle("stdout")
	l := lumen.NewWithSettings(lumen.Settings{Stdout: out, Stderr: out, Stdin: out, RunTests: true})

	src := "test \"trivially true\" then\n  assert true\n"
	if _, err := l.CompileAndRun(src, "script"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExportsExcludesPreludeAndTestNames(t *testing.T) {
	l, _ := newCapturing()
	src := "answer = 42\ntest \"noop\" then\n  assert true\n"
	if _, err := l.CompileAndRun(src, "script"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	exports := l.Exports()
	if _, ok := exports["answer"]; !ok {
		t.Fatal("expected \"answer\" to appear in Exports()")
	}
	if _, ok := exports["print"]; ok {
		t.Fatal("expected prelude names to be excluded from Exports()")
	}
	for name := range exports {
		if strings.HasPrefix(name, "__test__") {
			t.Fatalf("expected test globals to be excluded from Exports(), found %q", name)
		}
	}
}

func TestValueToYAMLRoundTripsThroughCorelib(t *testing.T) {
	l, _ := newCapturing()
	result, err := l.CompileAndRun("{name: \"lumen\"}\n", "script")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := l.ValueToYAML(result)
	if err != nil {
		t.Fatalf("ValueToYAML: %v", err)
	}
	if !strings.Contains(out, "name: lumen") {
		t.Fatalf("expected YAML output to contain the map's field, got:\n%s", out)
	}
}
