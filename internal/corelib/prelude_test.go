package corelib_test

import (
	"strings"
	"testing"

	"github.com/lumen-lang/lumen/internal/compiler"
	"github.com/lumen-lang/lumen/internal/corelib"
	"github.com/lumen-lang/lumen/internal/hostio"
	"github.com/lumen-lang/lumen/internal/loader"
	"github.com/lumen-lang/lumen/internal/parser"
	"github.com/lumen-lang/lumen/internal/vm"
)

func run(t *testing.T, src string) (string, error) {
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
	v := vm.New(corelib.NewPrelude(out, out, out), loader.New(nil))
	_, err = v.Run(chunk)
	return out.String(), err
}

func TestPreludeToStringUsesDisplayFormatting(t *testing.T) {
	out, err := run(t, `print __to_string 42`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "42\n" {
		t.Fatalf("got %q, want %q", out, "42\n")
	}
}

func TestPreludeTypeReportsTypeName(t *testing.T) {
	out, err := run(t, `print type "hi"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "String\n" {
		t.Fatalf("got %q, want %q", out, "String\n")
	}
}

func TestPreludeAssertFailureMessageIsCustom(t *testing.T) {
	_, err := run(t, `assert false, "boom"`)
	if err == nil {
		t.Fatal("expected assert false to fail")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected custom message in error, got: %v", err)
	}
}

func TestStdoutFileHandleDisplaysWithItsID(t *testing.T) {
	out, err := run(t, `print stdout`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "<file stdout>\n" {
		t.Fatalf("got %q, want %q", out, "<file stdout>\n")
	}
}

func TestStdoutFileHandleWriteLineAppendsToStream(t *testing.T) {
	out, err := run(t, `stdout.write_line "direct"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "direct\n" {
		t.Fatalf("got %q, want %q", out, "direct\n")
	}
}

func TestStdinFileHandleIsNotTerminal(t *testing.T) {
	out, err := run(t, `print stdin.is_terminal()`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "false\n" {
		t.Fatalf("got %q, want %q", out, "false\n")
	}
}
