// Package projcheck validates an existing C++ project: directory layout,
// CMake availability, a throwaway configure+build cycle, and test
// execution. Strict mode additionally enforces formatting and ignore
// hygiene.
package projcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"cppmedic/internal/execer"
)

// Status of a single project check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is one check outcome.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// OK reports whether no check failed. In strict mode warnings count as
// failures too.
func OK(results []Result, strict bool) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return false
		}
		if strict && r.Status == StatusWarn {
			return false
		}
	}
	return true
}

const (
	probeTimeout = 5 * time.Second
	detailLimit  = 200
)

// validateBuildDir is the throwaway configure/build tree used by the
// validator, separate from the project's own build directory.
const validateBuildDir = "build/validate"

// Validator checks one project directory.
type Validator struct {
	dir    string
	strict bool
	runner execer.Runner
	log    *slog.Logger
}

// NewValidator creates a project validator for dir.
func NewValidator(dir string, strict bool, runner execer.Runner) *Validator {
	return &Validator{dir: dir, strict: strict, runner: runner, log: slog.Default()}
}

// Validate runs all checks in order. A failed structure or configure
// check short-circuits the dependent build and test checks.
func (v *Validator) Validate(ctx context.Context) []Result {
	var results []Result

	structure := v.checkStructure()
	results = append(results, structure...)
	if hasFailure(structure) {
		return results
	}

	results = append(results, v.checkCMakeVersion(ctx))

	configured := v.checkConfigure(ctx)
	results = append(results, configured)
	if configured.Status == StatusFail {
		return results
	}

	built := v.checkBuild(ctx)
	results = append(results, built)
	if built.Status == StatusFail {
		return results
	}

	results = append(results, v.checkTests(ctx))

	if v.strict {
		results = append(results, v.checkCodeFormat(ctx))
		results = append(results, v.checkCompilerWarnings(ctx))
		results = append(results, v.checkGitignore())
	}
	return results
}

func hasFailure(results []Result) bool {
	for _, r := range results {
		if r.Status == StatusFail {
			return true
		}
	}
	return false
}

func (v *Validator) checkStructure() []Result {
	var results []Result
	if _, err := os.Stat(filepath.Join(v.dir, "CMakeLists.txt")); err != nil {
		results = append(results, Result{Name: "CMakeLists.txt", Status: StatusFail, Detail: "CMakeLists.txt not found"})
		return results
	}
	results = append(results, Result{Name: "CMakeLists.txt", Status: StatusPass})

	if _, err := os.Stat(filepath.Join(v.dir, "src")); err != nil {
		// Header-only libraries legitimately have no src/.
		results = append(results, Result{Name: "src directory", Status: StatusWarn, Detail: "src/ not found (fine for header-only libraries)"})
	} else {
		results = append(results, Result{Name: "src directory", Status: StatusPass})
	}
	return results
}

func (v *Validator) checkCMakeVersion(ctx context.Context) Result {
	res := v.runner.Run(ctx, v.dir, []string{"cmake", "--version"}, probeTimeout)
	if !res.Success() {
		return Result{Name: "CMake version", Status: StatusFail, Detail: "CMake not found in PATH"}
	}
	fields := strings.Fields(strings.SplitN(res.Output, "\n", 2)[0])
	if len(fields) == 0 {
		return Result{Name: "CMake version", Status: StatusFail, Detail: "CMake version could not be determined"}
	}
	version := fields[len(fields)-1]
	var major, minor int
	if n, _ := fmt.Sscanf(version, "%d.%d", &major, &minor); n < 2 {
		return Result{Name: "CMake version", Status: StatusFail, Detail: "CMake version could not be determined"}
	}
	if major < 3 || (major == 3 && minor < 15) {
		return Result{Name: "CMake version", Status: StatusFail, Detail: "CMake 3.15+ required, found " + version}
	}
	return Result{Name: "CMake version", Status: StatusPass, Detail: version}
}

func (v *Validator) checkConfigure(ctx context.Context) Result {
	if err := os.MkdirAll(filepath.Join(v.dir, validateBuildDir), 0o755); err != nil {
		return Result{Name: "Configure", Status: StatusFail, Detail: err.Error()}
	}
	res := v.runner.Run(ctx, v.dir, []string{"cmake", "-B", validateBuildDir, "-DCMAKE_BUILD_TYPE=Debug"}, 0)
	if !res.Success() {
		return Result{Name: "Configure", Status: StatusFail, Detail: "configure failed: " + excerpt(res.Output)}
	}
	return Result{Name: "Configure", Status: StatusPass}
}

func (v *Validator) checkBuild(ctx context.Context) Result {
	res := v.runner.Run(ctx, v.dir, []string{"cmake", "--build", validateBuildDir, "--config", "Debug"}, 0)
	if !res.Success() {
		return Result{Name: "Build", Status: StatusFail, Detail: "build failed: " + excerpt(res.Output)}
	}
	return Result{Name: "Build", Status: StatusPass}
}

func (v *Validator) checkTests(ctx context.Context) Result {
	if _, err := os.Stat(filepath.Join(v.dir, "tests")); err != nil {
		return Result{Name: "Tests", Status: StatusSkip, Detail: "no tests/ directory"}
	}
	res := v.runner.Run(ctx, v.dir, []string{"ctest", "--test-dir", validateBuildDir, "--output-on-failure"}, 0)
	if !res.Success() {
		return Result{Name: "Tests", Status: StatusFail, Detail: "ctest failed: " + excerpt(res.Output)}
	}
	return Result{Name: "Tests", Status: StatusPass}
}

// checkCodeFormat runs clang-format in dry-run mode over the project's
// sources. Projects without a .clang-format opted out of the check.
func (v *Validator) checkCodeFormat(ctx context.Context) Result {
	if _, err := os.Stat(filepath.Join(v.dir, ".clang-format")); err != nil {
		return Result{Name: "Code format", Status: StatusSkip, Detail: "no .clang-format"}
	}
	files := v.sourceFiles()
	if len(files) == 0 {
		return Result{Name: "Code format", Status: StatusSkip, Detail: "no source files to check"}
	}
	argv := append([]string{"clang-format", "--dry-run", "--Werror"}, files...)
	res := v.runner.Run(ctx, v.dir, argv, 0)
	if !res.Success() {
		return Result{Name: "Code format", Status: StatusFail, Detail: "format check failed: " + excerpt(res.Output)}
	}
	return Result{Name: "Code format", Status: StatusPass}
}

// sourceFiles lists src/ translation units and include/ headers as paths
// relative to the project directory.
func (v *Validator) sourceFiles() []string {
	var files []string
	collect := func(root string, match func(string) bool) {
		_ = filepath.WalkDir(filepath.Join(v.dir, root), func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if match(d.Name()) {
				if rel, relErr := filepath.Rel(v.dir, path); relErr == nil {
					files = append(files, rel)
				}
			}
			return nil
		})
	}
	collect("src", func(name string) bool { return filepath.Ext(name) == ".cpp" })
	collect("include", func(name string) bool { return strings.HasPrefix(filepath.Ext(name), ".h") })
	return files
}

// checkCompilerWarnings rebuilds the validation tree and counts warning
// diagnostics in the output.
func (v *Validator) checkCompilerWarnings(ctx context.Context) Result {
	if _, err := os.Stat(filepath.Join(v.dir, validateBuildDir, "CMakeCache.txt")); err != nil {
		return Result{Name: "Compiler warnings", Status: StatusSkip, Detail: "build not configured"}
	}
	res := v.runner.Run(ctx, v.dir, []string{"cmake", "--build", validateBuildDir, "--config", "Debug"}, 0)
	if n := strings.Count(res.Output, "warning:"); n > 0 {
		return Result{Name: "Compiler warnings", Status: StatusFail, Detail: fmt.Sprintf("found %d compiler warnings", n)}
	}
	return Result{Name: "Compiler warnings", Status: StatusPass}
}

func (v *Validator) checkGitignore() Result {
	data, err := os.ReadFile(filepath.Join(v.dir, ".gitignore"))
	if err != nil {
		return Result{Name: "gitignore", Status: StatusWarn, Detail: ".gitignore not found"}
	}
	if !strings.Contains(string(data), "build") {
		return Result{Name: "gitignore", Status: StatusWarn, Detail: ".gitignore does not exclude build/"}
	}
	return Result{Name: "gitignore", Status: StatusPass}
}

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= detailLimit {
		return s
	}
	cut := detailLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
