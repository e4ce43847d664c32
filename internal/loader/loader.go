// Package loader compiles source to bytecode and resolves `import`
// between modules (spec §4.6), caching compiled chunks by canonical
// resolved path and guarding against import cycles the way the
// teacher's modules.Loader guards against circular package loads
// (its Processing map[string]bool "currently being loaded" marker).
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumen-lang/lumen/internal/bytecode"
	"github.com/lumen-lang/lumen/internal/compiler"
	"github.com/lumen-lang/lumen/internal/parser"
)

// SourceFileExt is the canonical extension Lumen source files carry.
// Grounded in the teacher's config.SourceFileExt / SourceFileExtensions
// pair, reduced to a single extension since this language has no
// multi-extension package-detection need.
const SourceFileExt = ".lumen"

// Loader compiles source strings and resolves dotted-path imports
// against the filesystem, memoizing every chunk it produces.
type Loader struct {
	// SearchPaths is the process-level fallback list consulted once the
	// importer-directory and its parents have all been exhausted
	// (spec §4.6 step 3).
	SearchPaths []string

	// ModuleImportedCallback, if set, is invoked exactly once per
	// distinct resolved path the first time it is successfully loaded
	// (spec §8 property 10 "import cache").
	ModuleImportedCallback func(resolvedPath string)

	cache      map[string]*bytecode.Chunk
	inProgress map[string]bool
}

// New returns a Loader with the given process-level search paths.
func New(searchPaths []string) *Loader {
	return &Loader{
		SearchPaths: searchPaths,
		cache:       make(map[string]*bytecode.Chunk),
		inProgress:  make(map[string]bool),
	}
}

// Compile lexes, parses and compiles source in one step. scriptPath, if
// non-empty, is recorded on the resulting Chunk and used as the base
// directory for any imports the script performs; pass "" for source
// with no associated file (e.g. REPL input, embedded strings).
func (l *Loader) Compile(source string, scriptPath string) (*bytecode.Chunk, error) {
	a, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(a, scriptPath)
}

// CompileModule resolves a dotted import path relative to importerPath
// (the file performing the import) and compiles it, returning the
// chunk and its canonical resolved path. Re-resolving an
// already-cached path returns the cached chunk without recompiling or
// re-invoking ModuleImportedCallback.
func (l *Loader) CompileModule(dottedPath string, importerPath string) (*bytecode.Chunk, string, error) {
	resolved, err := l.resolve(dottedPath, importerPath)
	if err != nil {
		return nil, "", err
	}

	if chunk, ok := l.cache[resolved]; ok {
		return chunk, resolved, nil
	}
	if l.inProgress[resolved] {
		return nil, "", fmt.Errorf("circular import detected: %s", resolved)
	}

	l.inProgress[resolved] = true
	defer delete(l.inProgress, resolved)

	src, err := os.ReadFile(resolved)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read module %q: %w", resolved, err)
	}

	chunk, err := l.Compile(string(src), resolved)
	if err != nil {
		return nil, "", err
	}

	l.cache[resolved] = chunk
	if l.ModuleImportedCallback != nil {
		l.ModuleImportedCallback(resolved)
	}
	return chunk, resolved, nil
}

// resolve implements spec §4.6's resolution policy: a dotted path's
// final segment is the module name, any leading segments are
// directory components under wherever the name is searched for. The
// name is tried first as "<dir>/<name>.lumen", then as
// "<dir>/<name>/main.lumen", at the importer's directory, then each of
// its ancestors in turn, and finally under each configured search
// path.
func (l *Loader) resolve(dottedPath string, importerPath string) (string, error) {
	segments := strings.Split(dottedPath, ".")
	name := segments[len(segments)-1]
	dirParts := segments[:len(segments)-1]

	tryBase := func(base string) (string, bool) {
		dir := filepath.Join(append([]string{base}, dirParts...)...)
		candidate := filepath.Join(dir, name+SourceFileExt)
		if fileExists(candidate) {
			return candidate, true
		}
		candidate = filepath.Join(dir, name, "main"+SourceFileExt)
		if fileExists(candidate) {
			return candidate, true
		}
		return "", false
	}

	if importerPath != "" {
		dir := filepath.Dir(importerPath)
		for {
			if candidate, ok := tryBase(dir); ok {
				return canonical(candidate)
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	for _, sp := range l.SearchPaths {
		if candidate, ok := tryBase(sp); ok {
			return canonical(candidate)
		}
	}

	return "", fmt.Errorf("module not found: %s", dottedPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return abs, nil
	}
	return resolved, nil
}
