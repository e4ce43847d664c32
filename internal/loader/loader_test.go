package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen-lang/lumen/internal/loader"
)

func writeModule(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name+loader.SourceFileExt)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// TestModuleImportedCallbackFiresOncePerResolvedPath exercises spec §8
// property 10: importing the same resolved module twice only invokes
// ModuleImportedCallback once, and the second resolution returns the
// cached chunk.
func TestModuleImportedCallbackFiresOncePerResolvedPath(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "greet", "greeting = \"hi\"\n")
	importerPath := filepath.Join(dir, "main.lumen")

	var seen []string
	ld := loader.New(nil)
	ld.ModuleImportedCallback = func(resolvedPath string) {
		seen = append(seen, resolvedPath)
	}

	chunk1, resolved1, err := ld.CompileModule("greet", importerPath)
	if err != nil {
		t.Fatalf("first CompileModule: %v", err)
	}
	chunk2, resolved2, err := ld.CompileModule("greet", importerPath)
	if err != nil {
		t.Fatalf("second CompileModule: %v", err)
	}

	if resolved1 != resolved2 {
		t.Fatalf("resolved paths differ: %q vs %q", resolved1, resolved2)
	}
	if chunk1 != chunk2 {
		t.Fatal("expected the cached chunk to be returned on re-import, got a distinct chunk")
	}
	if len(seen) != 1 {
		t.Fatalf("expected ModuleImportedCallback exactly once, got %d calls: %v", len(seen), seen)
	}
	if seen[0] != resolved1 {
		t.Fatalf("callback saw %q, want %q", seen[0], resolved1)
	}
}

// TestDistinctModulesEachFireCallbackOnce ensures the cache key is the
// resolved path, not just the dotted import string: two different
// modules produce two distinct callback invocations.
func TestDistinctModulesEachFireCallbackOnce(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "a", "x = 1\n")
	writeModule(t, dir, "b", "x = 2\n")
	importerPath := filepath.Join(dir, "main.lumen")

	var seen []string
	ld := loader.New(nil)
	ld.ModuleImportedCallback = func(resolvedPath string) {
		seen = append(seen, resolvedPath)
	}

	if _, _, err := ld.CompileModule("a", importerPath); err != nil {
		t.Fatalf("import a: %v", err)
	}
	if _, _, err := ld.CompileModule("b", importerPath); err != nil {
		t.Fatalf("import b: %v", err)
	}
	if _, _, err := ld.CompileModule("a", importerPath); err != nil {
		t.Fatalf("re-import a: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 distinct-module callbacks, got %d: %v", len(seen), seen)
	}
}
