// Package execer runs external commands sequentially and captures their
// outcome. Callers always get a Result back; process start failures and
// timeouts are folded into it instead of surfacing as errors.
package execer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"cppmedic/internal/platform"
)

// Result is the outcome of a single command invocation.
type Result struct {
	ExitCode int
	Output   string // combined stdout+stderr
	Err      error  // start failure or timeout, nil for a normal exit
}

// Success reports a clean zero exit.
func (r Result) Success() bool { return r.Err == nil && r.ExitCode == 0 }

// TimedOut reports whether the command was killed by its deadline.
func (r Result) TimedOut() bool { return errors.Is(r.Err, context.DeadlineExceeded) }

// Runner executes commands in a working directory with an optional
// per-command timeout (zero means no deadline beyond the caller's context).
type Runner interface {
	Run(ctx context.Context, dir string, argv []string, timeout time.Duration) Result
	Shell(ctx context.Context, dir string, command string, timeout time.Duration) Result
}

type execRunner struct {
	plat platform.Platform
}

// New returns a Runner backed by os/exec.
func New(plat platform.Platform) Runner {
	return &execRunner{plat: plat}
}

func (r *execRunner) Run(ctx context.Context, dir string, argv []string, timeout time.Duration) Result {
	if len(argv) == 0 {
		return Result{ExitCode: -1, Err: fmt.Errorf("empty command")}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()

	res := Result{Output: string(out)}
	if err == nil {
		return res
	}
	res.ExitCode = -1
	if ctx.Err() != nil {
		res.Err = ctx.Err()
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.Err = err
		}
	}
	// Keep start failures classifiable: a missing binary produces no
	// output, so the error text stands in for it.
	if res.Output == "" && res.Err != nil {
		res.Output = res.Err.Error()
	}
	return res
}

// Shell runs a platform shell command line: cmd /C on Windows, sh -c
// elsewhere. Remediation commands from the pattern database go through
// here because they are written as shell strings.
func (r *execRunner) Shell(ctx context.Context, dir string, command string, timeout time.Duration) Result {
	if r.plat == platform.Windows {
		return r.Run(ctx, dir, []string{"cmd", "/C", command}, timeout)
	}
	return r.Run(ctx, dir, []string{"sh", "-c", command}, timeout)
}
