package builder

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppmedic/internal/execer"
	"cppmedic/internal/patterns"
	"cppmedic/internal/platform"
)

// fakeTool replays scripted phase results, one per invocation. Results
// past the end of a script repeat the last entry.
type fakeTool struct {
	configure    []execer.Result
	build        []execer.Result
	configureRun int
	buildRun     int
}

func next(script []execer.Result, n *int) execer.Result {
	i := *n
	*n++
	if i >= len(script) {
		if len(script) == 0 {
			return execer.Result{}
		}
		return script[len(script)-1]
	}
	return script[i]
}

func (f *fakeTool) Configure(ctx context.Context, dir string) execer.Result {
	return next(f.configure, &f.configureRun)
}

func (f *fakeTool) Build(ctx context.Context, dir string) execer.Result {
	return next(f.build, &f.buildRun)
}

// fakeFixer reports a scripted verdict and counts invocations.
type fakeFixer struct {
	fixed bool
	calls int
	dirs  []string
	seen  []*patterns.Pattern
}

func (f *fakeFixer) Fix(ctx context.Context, dir string, p *patterns.Pattern) bool {
	f.calls++
	f.dirs = append(f.dirs, dir)
	f.seen = append(f.seen, p)
	return f.fixed
}

func table(t *testing.T, yaml string) *patterns.Table {
	t.Helper()
	tb, err := patterns.Parse([]byte(yaml))
	require.NoError(t, err)
	return tb
}

func ok() execer.Result { return execer.Result{ExitCode: 0} }
func fail(out string) execer.Result {
	return execer.Result{ExitCode: 1, Output: out}
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	tool := &fakeTool{configure: []execer.Result{ok()}, build: []execer.Result{ok()}}
	fixer := &fakeFixer{}
	c := New(tool, fixer, &patterns.Table{}, platform.Linux, Options{})

	success, msg := c.Run(context.Background(), "proj")
	assert.True(t, success)
	assert.Equal(t, "Build completed successfully", msg)
	assert.Equal(t, 1, tool.configureRun)
	assert.Equal(t, 1, tool.buildRun)
	assert.Zero(t, fixer.calls)
}

func TestUnmatchedConfigureFailureSurfacesImmediately(t *testing.T) {
	tool := &fakeTool{configure: []execer.Result{fail("mysterious explosion")}}
	fixer := &fakeFixer{fixed: true}
	c := New(tool, fixer, &patterns.Table{}, platform.Linux, Options{})

	success, msg := c.Run(context.Background(), "proj")
	assert.False(t, success)
	assert.Equal(t, "CMake configure failed: mysterious explosion", msg)
	// No wasted retries on an unmatched failure, and with an empty table
	// the remediation executor is never consulted.
	assert.Equal(t, 1, tool.configureRun)
	assert.Zero(t, tool.buildRun)
	assert.Zero(t, fixer.calls)
}

func TestMatchedFixRetriesAndSucceeds(t *testing.T) {
	// Attempt 1: configure fails with a known signature, the fix lands,
	// attempt 2 configures and builds cleanly.
	tb := table(t, `
patterns:
  - regex: "CMake not found"
    user_message: "install cmake"
    auto_fix:
      - method: install
        command: "install-cmake"
`)
	tool := &fakeTool{
		configure: []execer.Result{fail("Error: CMake not found"), ok()},
		build:     []execer.Result{ok()},
	}
	fixer := &fakeFixer{fixed: true}
	c := New(tool, fixer, tb, platform.Linux, Options{})

	success, msg := c.Run(context.Background(), "proj")
	assert.True(t, success)
	assert.Equal(t, "Build completed successfully", msg)
	assert.Equal(t, 2, tool.configureRun)
	assert.Equal(t, 1, tool.buildRun)
	require.Equal(t, 1, fixer.calls)
	assert.Equal(t, "install cmake", fixer.seen[0].UserMessage)
	// The remediation executor works inside the directory being built.
	assert.Equal(t, []string{"proj"}, fixer.dirs)
}

func TestMatchedButUnfixedFailureSurfacesImmediately(t *testing.T) {
	tb := table(t, `
patterns:
  - regex: "CMake not found"
    auto_fix:
      - method: install
        command: "install-cmake"
`)
	tool := &fakeTool{configure: []execer.Result{fail("CMake not found")}}
	fixer := &fakeFixer{fixed: false}
	c := New(tool, fixer, tb, platform.Linux, Options{})

	success, msg := c.Run(context.Background(), "proj")
	assert.False(t, success)
	assert.True(t, strings.HasPrefix(msg, "CMake configure failed: "))
	assert.Equal(t, 1, tool.configureRun)
	assert.Equal(t, 1, fixer.calls)
}

func TestCompileFailureExhaustsBudget(t *testing.T) {
	// The fix keeps "succeeding" but the same compile failure recurs, so
	// the loop runs the full budget and then gives up.
	tb := table(t, `
patterns:
  - regex: "undefined reference"
    auto_fix:
      - method: relink
        command: "relink"
`)
	tool := &fakeTool{
		configure: []execer.Result{ok()},
		build:     []execer.Result{fail("undefined reference to `foo'")},
	}
	fixer := &fakeFixer{fixed: true}
	c := New(tool, fixer, tb, platform.Linux, Options{})

	success, msg := c.Run(context.Background(), "proj")
	assert.False(t, success)
	assert.Equal(t, "Build failed after 3 attempts", msg)
	// Never more than MaxAttempts configure+compile cycles.
	assert.Equal(t, 3, tool.configureRun)
	assert.Equal(t, 3, tool.buildRun)
	assert.Equal(t, 3, fixer.calls)
}

func TestCompileFailureUnmatchedSurfacesTruncated(t *testing.T) {
	long := strings.Repeat("e", 500)
	tool := &fakeTool{configure: []execer.Result{ok()}, build: []execer.Result{fail(long)}}
	c := New(tool, &fakeFixer{}, &patterns.Table{}, platform.Linux, Options{})

	success, msg := c.Run(context.Background(), "proj")
	assert.False(t, success)
	assert.Equal(t, "Build failed: "+strings.Repeat("e", 300), msg)
}

func TestTruncationKeepsRuneBoundary(t *testing.T) {
	// A multibyte quote straddling the cut must be dropped whole, not
	// split into invalid bytes.
	long := strings.Repeat("e", 299) + "“missing header”"
	tool := &fakeTool{configure: []execer.Result{ok()}, build: []execer.Result{fail(long)}}
	c := New(tool, &fakeFixer{}, &patterns.Table{}, platform.Linux, Options{})

	_, msg := c.Run(context.Background(), "proj")
	out := strings.TrimPrefix(msg, "Build failed: ")
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, strings.Repeat("e", 299), out)
}

func TestPlatformRestrictedPatternIgnored(t *testing.T) {
	tb := table(t, `
patterns:
  - regex: "MAX_PATH"
    platform: ["Windows"]
    auto_fix:
      - method: longpaths
        command: "enable-long-paths"
`)
	tool := &fakeTool{configure: []execer.Result{fail("hit MAX_PATH limit")}}
	fixer := &fakeFixer{fixed: true}
	c := New(tool, fixer, tb, platform.Linux, Options{})

	success, _ := c.Run(context.Background(), "proj")
	assert.False(t, success)
	assert.Zero(t, fixer.calls)
	assert.Equal(t, 1, tool.configureRun)
}

func TestMaxAttemptsOption(t *testing.T) {
	tb := table(t, `
patterns:
  - regex: "flaky"
    auto_fix:
      - method: poke
        command: "poke"
`)
	tool := &fakeTool{configure: []execer.Result{fail("flaky thing")}}
	c := New(tool, &fakeFixer{fixed: true}, tb, platform.Linux, Options{MaxAttempts: 5})

	success, msg := c.Run(context.Background(), "proj")
	assert.False(t, success)
	assert.Equal(t, "Build failed after 5 attempts", msg)
	assert.Equal(t, 5, tool.configureRun)
}

func TestObserverCallbacks(t *testing.T) {
	tb := table(t, `
patterns:
  - regex: "flaky"
    auto_fix:
      - method: poke
        command: "poke"
`)
	tool := &fakeTool{
		configure: []execer.Result{fail("flaky configure"), ok()},
		build:     []execer.Result{ok()},
	}
	obs := &recordingObserver{}
	c := New(tool, &fakeFixer{fixed: true}, tb, platform.Linux, Options{Observer: obs})

	success, _ := c.Run(context.Background(), "proj")
	assert.True(t, success)
	assert.Equal(t, []int{1, 2}, obs.attempts)
	assert.Equal(t, []Phase{PhaseConfigure}, obs.failures)
	assert.Equal(t, 1, obs.fixes)
	assert.Equal(t, 2, obs.finalAttempts)
	assert.True(t, obs.finalOK)
}

type recordingObserver struct {
	attempts      []int
	failures      []Phase
	fixes         int
	finalOK       bool
	finalAttempts int
}

func (r *recordingObserver) OnAttemptStart(attempt, max int) { r.attempts = append(r.attempts, attempt) }
func (r *recordingObserver) OnPhaseFailure(phase Phase, attempt int, out string) {
	r.failures = append(r.failures, phase)
}
func (r *recordingObserver) OnFixApplied(p *patterns.Pattern) { r.fixes++ }
func (r *recordingObserver) OnRunComplete(ok bool, message string, attempts int) {
	r.finalOK = ok
	r.finalAttempts = attempts
}
