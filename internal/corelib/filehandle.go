package corelib

import (
	"fmt"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/hostio"
	"github.com/lumen-lang/lumen/internal/value"
)

// FileHandle is the script-visible Object wrapping one hostio.Handle
// (spec §6.1's stdout/stdin/stderr capability set, §4.9 "external
// objects"). Its methods are installed through MetaMapBuilder's custom
// bucket rather than the fixed operator slots, the same way the Rust
// original's meta_map_builder.rs attaches a type's own methods
// alongside its operator overloads.
type FileHandle struct {
	handle hostio.Handle
	meta   *value.MetaMap
}

// NewFileHandleValue wraps h as a first-class Lumen value exposing
// write/write_line/flush/read_line/read_to_string/is_terminal/seek.
func NewFileHandleValue(h hostio.Handle) value.Value {
	fh := &FileHandle{handle: h}
	fh.meta = NewMetaMapBuilder().
		Function(bytecode.MetaDisplay, "FileHandle.display", fh.display).
		Custom("write", fh.write).
		Custom("write_line", fh.writeLine).
		Custom("flush", fh.flush).
		Custom("read_line", fh.readLine).
		Custom("read_to_string", fh.readToString).
		Custom("is_terminal", fh.isTerminal).
		Custom("seek", fh.seek).
		Build()
	return value.MakeObject(fh)
}

func (fh *FileHandle) TypeName() string   { return "FileHandle" }
func (fh *FileHandle) Meta() *value.MetaMap { return fh.meta }

func (fh *FileHandle) display(eng value.Engine, args []value.Value) (value.Value, error) {
	return value.Str("<file " + fh.handle.ID() + ">"), nil
}

func (fh *FileHandle) write(eng value.Engine, args []value.Value) (value.Value, error) {
	s, err := stringArg(args, "write")
	if err != nil {
		return value.Null, err
	}
	_, err = fh.handle.Write(s)
	return value.Null, err
}

func (fh *FileHandle) writeLine(eng value.Engine, args []value.Value) (value.Value, error) {
	s, err := stringArg(args, "write_line")
	if err != nil {
		return value.Null, err
	}
	_, err = fh.handle.WriteLine(s)
	return value.Null, err
}

func (fh *FileHandle) flush(eng value.Engine, args []value.Value) (value.Value, error) {
	return value.Null, fh.handle.Flush()
}

func (fh *FileHandle) readLine(eng value.Engine, args []value.Value) (value.Value, error) {
	line, ok, err := fh.handle.ReadLine()
	if err != nil {
		return value.Null, err
	}
	if !ok {
		return value.Null, nil
	}
	return value.Str(line), nil
}

func (fh *FileHandle) readToString(eng value.Engine, args []value.Value) (value.Value, error) {
	s, err := fh.handle.ReadToString()
	if err != nil {
		return value.Null, err
	}
	return value.Str(s), nil
}

func (fh *FileHandle) isTerminal(eng value.Engine, args []value.Value) (value.Value, error) {
	return value.Bool(fh.handle.IsTerminal()), nil
}

func (fh *FileHandle) seek(eng value.Engine, args []value.Value) (value.Value, error) {
	if len(args) != 2 || args[0].Tag != value.TagInt || args[1].Tag != value.TagInt {
		return value.Null, fmt.Errorf("seek expects (offset, whence) Ints")
	}
	pos, err := fh.handle.Seek(args[0].AsInt(), int(args[1].AsInt()))
	if err != nil {
		return value.Null, err
	}
	return value.Int(pos), nil
}

func stringArg(args []value.Value, name string) (string, error) {
	if len(args) != 1 || args[0].Tag != value.TagString {
		return "", fmt.Errorf("%s expects a single String argument", name)
	}
	return args[0].Str, nil
}
