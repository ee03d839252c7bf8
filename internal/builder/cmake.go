package builder

import (
	"context"

	"cppmedic/internal/execer"
)

// BuildTool is the two-phase external build tool. Nothing is assumed
// about it beyond exit status and combined output per phase.
type BuildTool interface {
	Configure(ctx context.Context, dir string) execer.Result
	Build(ctx context.Context, dir string) execer.Result
}

// CMakeTool invokes the cmake binary for both phases. Neither phase
// carries a deadline of its own; large builds run as long as the caller's
// context allows.
type CMakeTool struct {
	runner    execer.Runner
	configure []string
	build     []string
}

// NewCMakeTool builds a CMakeTool. Empty argv slices select the stock
// `cmake -B build` / `cmake --build build` invocations.
func NewCMakeTool(runner execer.Runner, configureArgv, buildArgv []string) *CMakeTool {
	if len(configureArgv) == 0 {
		configureArgv = []string{"cmake", "-B", "build"}
	}
	if len(buildArgv) == 0 {
		buildArgv = []string{"cmake", "--build", "build"}
	}
	return &CMakeTool{runner: runner, configure: configureArgv, build: buildArgv}
}

func (t *CMakeTool) Configure(ctx context.Context, dir string) execer.Result {
	return t.runner.Run(ctx, dir, t.configure, 0)
}

func (t *CMakeTool) Build(ctx context.Context, dir string) execer.Result {
	return t.runner.Run(ctx, dir, t.build, 0)
}
