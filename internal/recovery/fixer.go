// Package recovery executes the automated fixes attached to a matched
// error pattern. A fix is judged solely by the exit status of its
// command; the original failure is not re-verified afterwards.
package recovery

import (
	"context"
	"log/slog"
	"time"

	"cppmedic/internal/execer"
	"cppmedic/internal/patterns"
	"cppmedic/internal/platform"
)

// DefaultTimeout bounds each remediation command.
const DefaultTimeout = 30 * time.Second

// Fixer runs remediation actions through a command runner.
type Fixer struct {
	runner  execer.Runner
	plat    platform.Platform
	timeout time.Duration
	log     *slog.Logger
}

// NewFixer creates a Fixer. A timeout of zero falls back to DefaultTimeout.
func NewFixer(runner execer.Runner, plat platform.Platform, timeout time.Duration) *Fixer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fixer{runner: runner, plat: plat, timeout: timeout, log: slog.Default()}
}

// Fix attempts the pattern's auto-fix actions in order, then each
// fallback action independently. Commands run inside dir, the project
// directory being built, so relative paths in remediation commands touch
// the project tree and not the caller's working directory. It reports
// true as soon as any command exits zero. Timeouts and start failures
// only fail that one action.
func (f *Fixer) Fix(ctx context.Context, dir string, p *patterns.Pattern) bool {
	if p == nil {
		return false
	}
	if p.UserMessage != "" {
		f.log.Warn(p.UserMessage)
	}
	if f.runActions(ctx, dir, p.AutoFix) {
		return true
	}
	for _, fallback := range p.Fallback {
		if f.runActions(ctx, dir, []patterns.Action{fallback}) {
			return true
		}
	}
	return false
}

// runActions executes actions in order and stops at the first success.
func (f *Fixer) runActions(ctx context.Context, dir string, actions []patterns.Action) bool {
	for _, action := range actions {
		command := action.CommandFor(f.plat)
		if command == "" {
			// Informational step: show it, never counts as applied.
			if action.Message != "" {
				f.log.Info(action.Message)
			} else if action.Method != "" {
				f.log.Info(action.Method)
			}
			continue
		}

		f.log.Info("Executing fix", "method", action.Method)
		res := f.runner.Shell(ctx, dir, command, f.timeout)
		switch {
		case res.Success():
			f.log.Info("Fix applied", "method", action.Method)
			return true
		case res.TimedOut():
			f.log.Warn("Fix timed out", "method", action.Method)
		case res.Err != nil:
			f.log.Warn("Fix could not run", "method", action.Method, "error", res.Err)
		default:
			f.log.Warn("Fix unsuccessful", "method", action.Method, "exit_code", res.ExitCode)
		}
	}
	return false
}
