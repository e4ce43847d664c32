package corelib_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/corelib"
	"github.com/lumen-lang/lumen/internal/value"
)

// callingEngine is enough of value.Engine to invoke a NativeFn directly,
// the only callable shape ToYAML's @serialize override path needs to
// drive in these tests.
type callingEngine struct{}

func (callingEngine) CallValue(callee value.Value, args []value.Value) (value.Value, error) {
	nf, ok := callee.Obj.(*value.NativeFn)
	if !ok {
		return value.Null, fmt.Errorf("not callable")
	}
	return nf.Fn(callingEngine{}, args)
}

type taggedThing struct {
	meta *value.MetaMap
}

func (t *taggedThing) TypeName() string     { return "Tagged" }
func (t *taggedThing) Meta() *value.MetaMap { return t.meta }

func TestToYAMLDefaultFallbackSerializesMapAndList(t *testing.T) {
	m := value.MapOf()
	g := m.Map().BorrowMut()
	g.Value().Set(value.Str("name"), value.Str("lumen"))
	g.Value().Set(value.Str("nums"), value.ListOf([]value.Value{value.Int(1), value.Int(2)}))
	g.Release()

	out, err := corelib.ToYAML(callingEngine{}, m)
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	if !strings.Contains(out, "name: lumen") {
		t.Fatalf("expected name field in YAML output, got:\n%s", out)
	}
	if !strings.Contains(out, "- 1") || !strings.Contains(out, "- 2") {
		t.Fatalf("expected list elements in YAML output, got:\n%s", out)
	}
}

func TestToYAMLHonorsSerializeOverride(t *testing.T) {
	thing := &taggedThing{meta: corelib.NewMetaMapBuilder().
		Function(bytecode.MetaSerialize, "Tagged.serialize", func(eng value.Engine, args []value.Value) (value.Value, error) {
			return value.Str("tagged-as-yaml\n"), nil
		}).
		Build()}

	out, err := corelib.ToYAML(callingEngine{}, value.MakeObject(thing))
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	if out != "tagged-as-yaml\n" {
		t.Fatalf("got %q, want %q", out, "tagged-as-yaml\n")
	}
}

func TestToYAMLRejectsUnserializableValue(t *testing.T) {
	fn := value.MakeNativeFn("f", func(eng value.Engine, args []value.Value) (value.Value, error) {
		return value.Null, nil
	})
	if _, err := corelib.ToYAML(callingEngine{}, fn); err == nil {
		t.Fatal("expected a bare function value to be rejected")
	}
}
