// Package hostio implements the file-handle capability set scripts and
// the embedding host share (spec §6.1): line/whole-stream I/O, flush,
// terminal detection and seeking, uniform across real OS files and
// in-memory buffers. Grounded on the teacher's own `e.Out io.Writer`
// capability plus its shared `getStdinReader()` bufio.Reader
// (internal/evaluator/builtins_io.go) and its `isatty.IsTerminal`/
// `IsCygwinTerminal` terminal check (internal/evaluator/
// builtins_term.go) — reduced here to the fixed capability set the
// language core needs rather than the teacher's much larger readline/
// raw-mode/ANSI surface, which belongs to an interactive CLI rather
// than an embeddable core.
package hostio

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
)

// Handle is the capability set one script-visible file handle exposes.
type Handle interface {
	ID() string
	Write(s string) (int, error)
	WriteLine(s string) (int, error)
	Flush() error
	ReadLine() (string, bool, error)
	ReadToString() (string, error)
	IsTerminal() bool
	Seek(offset int64, whence int) (int64, error)
}

// osHandle wraps an *os.File. Writes are buffered the way the
// teacher's evaluator buffers its own Out writer; reads share one
// bufio.Reader per handle so repeated ReadLine calls don't drop bytes
// already pulled into its internal buffer.
type osHandle struct {
	id   string
	file *os.File
	w    *bufio.Writer

	rOnce sync.Once
	r     *bufio.Reader
}

// NewOSHandle wraps an existing *os.File (or any *os.File-compatible
// open handle) as a Handle.
func NewOSHandle(id string, f *os.File) Handle {
	return &osHandle{id: id, file: f, w: bufio.NewWriter(f)}
}

func (h *osHandle) ID() string { return h.id }

func (h *osHandle) reader() *bufio.Reader {
	h.rOnce.Do(func() { h.r = bufio.NewReader(h.file) })
	return h.r
}

func (h *osHandle) Write(s string) (int, error) { return h.w.WriteString(s) }

func (h *osHandle) WriteLine(s string) (int, error) {
	n, err := h.w.WriteString(s)
	if err != nil {
		return n, err
	}
	m, err := h.w.WriteString("\n")
	return n + m, err
}

func (h *osHandle) Flush() error { return h.w.Flush() }

func (h *osHandle) ReadLine() (string, bool, error) {
	line, err := h.reader().ReadString('\n')
	if err != nil {
		if err == io.EOF {
			if line == "" {
				return "", false, nil
			}
			return trimNewline(line), true, nil
		}
		return "", false, err
	}
	return trimNewline(line), true, nil
}

func (h *osHandle) ReadToString() (string, error) {
	data, err := io.ReadAll(h.reader())
	return string(data), err
}

// IsTerminal checks both conventions go-isatty exposes, matching the
// teacher's own `isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)`
// pairing (Windows' mintty/cygwin ptys report as pipes to the first
// check alone).
func (h *osHandle) IsTerminal() bool {
	fd := h.file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (h *osHandle) Seek(offset int64, whence int) (int64, error) {
	if err := h.w.Flush(); err != nil {
		return 0, err
	}
	return h.file.Seek(offset, whence)
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		s = s[:n-1]
		if n := len(s); n > 0 && s[n-1] == '\r' {
			s = s[:n-1]
		}
	}
	return s
}

// Stdout, Stderr and Stdin are the process's default handles, the ones
// a Settings left with a nil Stdout/Stderr/Stdin falls back to.
var (
	Stdout = NewOSHandle("stdout", os.Stdout)
	Stderr = NewOSHandle("stderr", os.Stderr)
	Stdin  = NewOSHandle("stdin", os.Stdin)
)
