package hostio_test

import (
	"testing"

	"github.com/lumen-lang/lumen/internal/hostio"
)

func TestBufferHandleWriteLineAndString(t *testing.T) {
	h := hostio.NewBufferHandle("stdout")
	if _, err := h.WriteLine("hello"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if _, err := h.Write("partial"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := h.String(), "hello\npartial"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBufferHandleReadLineConsumesSequentially(t *testing.T) {
	h := hostio.NewBufferHandle("stdin")
	h.Write("first\nsecond\nthird")

	line, ok, err := h.ReadLine()
	if err != nil || !ok || line != "first" {
		t.Fatalf("got (%q, %v, %v), want (\"first\", true, nil)", line, ok, err)
	}
	line, ok, err = h.ReadLine()
	if err != nil || !ok || line != "second" {
		t.Fatalf("got (%q, %v, %v), want (\"second\", true, nil)", line, ok, err)
	}
	line, ok, err = h.ReadLine()
	if err != nil || !ok || line != "third" {
		t.Fatalf("got (%q, %v, %v), want (\"third\", true, nil)", line, ok, err)
	}
	_, ok, err = h.ReadLine()
	if err != nil || ok {
		t.Fatalf("expected exhausted buffer to report ok=false, got (%v, %v)", ok, err)
	}
}

func TestBufferHandleReadToStringConsumesRemainder(t *testing.T) {
	h := hostio.NewBufferHandle("stdin")
	h.Write("one\ntwo\n")

	line, ok, err := h.ReadLine()
	if err != nil || !ok || line != "one" {
		t.Fatalf("got (%q, %v, %v)", line, ok, err)
	}
	rest, err := h.ReadToString()
	if err != nil {
		t.Fatalf("ReadToString: %v", err)
	}
	if rest != "two\n" {
		t.Fatalf("got %q, want %q", rest, "two\n")
	}
	rest, err = h.ReadToString()
	if err != nil || rest != "" {
		t.Fatalf("expected empty remainder on second call, got (%q, %v)", rest, err)
	}
}

func TestBufferHandleSeek(t *testing.T) {
	h := hostio.NewBufferHandle("stdin")
	h.Write("0123456789")

	if pos, err := h.Seek(3, 0); err != nil || pos != 3 {
		t.Fatalf("Seek(3, start): got (%d, %v)", pos, err)
	}
	rest, _ := h.ReadToString()
	if rest != "3456789" {
		t.Fatalf("got %q, want %q", rest, "3456789")
	}

	if pos, err := h.Seek(-4, 2); err != nil || pos != 6 {
		t.Fatalf("Seek(-4, end): got (%d, %v)", pos, err)
	}
	rest, _ = h.ReadToString()
	if rest != "6789" {
		t.Fatalf("got %q, want %q", rest, "6789")
	}
}

func TestBufferHandleIsNotTerminal(t *testing.T) {
	h := hostio.NewBufferHandle("stdout")
	if h.IsTerminal() {
		t.Fatal("a BufferHandle must never report itself as a terminal")
	}
}
