// Package builder drives a project to a built state: it runs the external
// build tool's configure and compile phases, classifies failures against
// the pattern database, applies automated fixes, and retries within a
// fixed attempt budget.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"cppmedic/internal/patterns"
	"cppmedic/internal/platform"
)

// DefaultMaxAttempts is the retry budget for the whole configure+compile
// cycle.
const DefaultMaxAttempts = 3

// excerptLimit caps failure output surfaced to the caller.
const excerptLimit = 300

// Phase names the two steps of a build attempt.
type Phase string

const (
	PhaseConfigure Phase = "configure"
	PhaseCompile   Phase = "compile"
)

// Recoverer applies the fixes of a matched pattern inside the project
// directory and reports whether one of them succeeded.
type Recoverer interface {
	Fix(ctx context.Context, dir string, p *patterns.Pattern) bool
}

// Options tune a Controller beyond its required collaborators.
type Options struct {
	MaxAttempts int      // <=0 selects DefaultMaxAttempts
	Observer    Observer // nil selects NoopObserver
	Logger      *slog.Logger
}

// Controller is the build recovery state machine. It holds no state
// across Run calls; every run starts fresh.
type Controller struct {
	tool        BuildTool
	fixer       Recoverer
	table       *patterns.Table
	plat        platform.Platform
	maxAttempts int
	obs         Observer
	log         *slog.Logger
}

// New constructs a Controller around a build tool, a remediation
// executor, and an immutable pattern table.
func New(tool BuildTool, fixer Recoverer, table *patterns.Table, plat platform.Platform, opts Options) *Controller {
	c := &Controller{
		tool:        tool,
		fixer:       fixer,
		table:       table,
		plat:        plat,
		maxAttempts: opts.MaxAttempts,
		obs:         opts.Observer,
		log:         opts.Logger,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = DefaultMaxAttempts
	}
	if c.obs == nil {
		c.obs = NoopObserver{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Run drives projectDir to a built state or reports definitive failure.
// The returned message is either a success string or a truncated excerpt
// of the failing phase's output.
func (c *Controller) Run(ctx context.Context, projectDir string) (bool, string) {
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.obs.OnAttemptStart(attempt, c.maxAttempts)
		c.log.Info("Build attempt", "attempt", attempt, "max", c.maxAttempts)

		res := c.tool.Configure(ctx, projectDir)
		if !res.Success() {
			c.obs.OnPhaseFailure(PhaseConfigure, attempt, res.Output)
			c.log.Error("Configure failed", "attempt", attempt, "exit_code", res.ExitCode)
			if c.recover(ctx, projectDir, res.Output) {
				continue
			}
			return c.finish(false, "CMake configure failed: "+excerpt(res.Output), attempt)
		}

		res = c.tool.Build(ctx, projectDir)
		if !res.Success() {
			c.obs.OnPhaseFailure(PhaseCompile, attempt, res.Output)
			c.log.Error("Build failed", "attempt", attempt, "exit_code", res.ExitCode)
			if c.recover(ctx, projectDir, res.Output) {
				continue
			}
			return c.finish(false, "Build failed: "+excerpt(res.Output), attempt)
		}

		c.log.Info("Build successful", "attempt", attempt)
		return c.finish(true, "Build completed successfully", attempt)
	}

	return c.finish(false, fmt.Sprintf("Build failed after %d attempts", c.maxAttempts), c.maxAttempts)
}

// recover classifies captured output against the pattern table and, on a
// match, hands the pattern to the remediation executor. Fixes run inside
// the project directory. A fixed failure is not re-verified; the caller
// simply retries the attempt.
func (c *Controller) recover(ctx context.Context, projectDir, output string) bool {
	p := c.table.Match(output, c.plat)
	if p == nil {
		return false
	}
	if c.fixer.Fix(ctx, projectDir, p) {
		c.obs.OnFixApplied(p)
		return true
	}
	return false
}

func (c *Controller) finish(ok bool, message string, attempts int) (bool, string) {
	c.obs.OnRunComplete(ok, message, attempts)
	return ok, message
}

// excerpt truncates without splitting a rune; compiler output may carry
// multibyte quotes or localized text.
func excerpt(s string) string {
	if len(s) <= excerptLimit {
		return s
	}
	cut := excerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
