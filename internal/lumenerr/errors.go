// Package lumenerr defines the typed error kinds from spec §7: lex,
// parse (with a distinguished indentation subcategory), compile,
// runtime, timeout, and host-I/O errors. Every kind carries a message
// and, where available, a source span, matching the teacher's habit of
// hand-rolled typed errors (no github.com/pkg/errors wrapping is used
// anywhere in the retrieved teacher sources — DESIGN.md notes why
// fmt.Errorf/errors.As suffice here).
package lumenerr

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/token"
)

// LexError reports a bad character or unterminated literal (spec §4.1
// "Failure mode").
type LexError struct {
	Message string
	Span    token.Span
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at %d:%d: %s", e.Span.Line, e.Span.Col, e.Message)
}

// ParseError reports a grammar violation. IndentationError is a
// distinguished subcategory so hosts (the REPL) can tell "needs more
// input" apart from a real syntax error (spec §4.2, §6.3).
type ParseError struct {
	Message     string
	Span        token.Span
	Indentation bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Span.Line, e.Span.Col, e.Message)
}

// IsIndentationError reports whether this error is the distinguished
// "expected deeper indentation" case (spec §6.1 CompileArgs contract).
func (e *ParseError) IsIndentationError() bool { return e.Indentation }

// CompileError reports a semantic failure in lowering AST to bytecode
// (spec §4.4 "Failure modes").
type CompileError struct {
	Message string
	Span    token.Span
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Span.Line, e.Span.Col, e.Message)
}

// Frame is one entry of a RuntimeError's unwound call trace.
type Frame struct {
	FuncName string
	Span     token.Span
}

// RuntimeError reports a failure raised during VM execution (spec §7
// "RuntimeError" list of causes) or an explicit script `throw`.
type RuntimeError struct {
	Message string
	Span    token.Span
	Trace   []Frame
	Thrown  interface{} // the raw thrown value, for explicit `throw x` (nil otherwise)
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d:%d: %s", e.Span.Line, e.Span.Col, e.Message)
}

// TimeoutError reports that the optional wall-clock execution budget
// was exceeded (spec §4.8.8, §8 property 11).
type TimeoutError struct {
	Span token.Span
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("execution timed out at %d:%d", e.Span.Line, e.Span.Col)
}

// HostIOError wraps an error surfaced from a host file handle (spec §7
// "Host I/O"), uniformly across stdout/stderr/stdin/custom handles.
type HostIOError struct {
	Op  string
	Err error
}

func (e *HostIOError) Error() string {
	return fmt.Sprintf("host I/O error during %s: %s", e.Op, e.Err)
}

func (e *HostIOError) Unwrap() error { return e.Err }
