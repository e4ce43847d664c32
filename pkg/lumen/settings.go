package lumen

import (
	"time"

	"github.com/lumen-lang/lumen/internal/hostio"
)

// Settings enumerates every construction-time option an embedding host
// can set (spec §6.1 "Koto::with_settings"), nothing more: scripts
// never see this struct, only its effects.
type Settings struct {
	// RunTests runs every exported `test "..."` block immediately after
	// top-level execution finishes, failing Run/CompileAndRun on the
	// first failure (spec §6.1 "run_tests").
	RunTests bool

	// ExportTopLevelIds is stored but not read: Exports() reports every
	// top-level binding whether or not it is set, and there is no mode
	// that limits it to names bound by an explicit `export`.
	ExportTopLevelIds bool

	Stdout hostio.Handle
	Stderr hostio.Handle
	Stdin  hostio.Handle

	// ExecutionLimit bounds wall-clock execution time (spec §4.8.8);
	// zero means unbounded.
	ExecutionLimit time.Duration

	// ModuleImportedCallback is invoked once per distinct resolved
	// import path, the first time it is loaded (spec §8 property 10).
	ModuleImportedCallback func(resolvedPath string)

	// SearchPaths is consulted once an import's own directory and its
	// parents are exhausted (spec §4.6 step 3).
	SearchPaths []string

	// Args becomes the `args` global scripts read process arguments
	// from (spec §6.1 "args", exposed as a Tuple of Strings).
	Args []string
}

// DefaultSettings wires the three standard file handles to the real
// process streams and leaves every other option at its zero value.
func DefaultSettings() Settings {
	return Settings{
		Stdout: hostio.Stdout,
		Stderr: hostio.Stderr,
		Stdin:  hostio.Stdin,
	}
}
