// Package envcheck runs pre-flight checks over the C++ development
// environment: CMake presence and version, compiler availability, vcpkg
// configuration, disk space, and Windows long-path support.
package envcheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cppmedic/internal/execer"
	"cppmedic/internal/platform"
)

// Severity ranks a check. Only failed critical checks make a report fail
// overall; warnings are surfaced but non-blocking.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Check is a single validation result.
type Check struct {
	Name     string
	Passed   bool
	Severity Severity
	Detail   string
}

// Report collects all check results of one validation pass.
type Report struct {
	Checks []Check
}

// OK reports whether no critical check failed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.Passed && c.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// Failures returns failed critical checks.
func (r *Report) Failures() []Check { return r.failed(SeverityCritical) }

// Warnings returns failed warning-level checks.
func (r *Report) Warnings() []Check { return r.failed(SeverityWarning) }

func (r *Report) failed(sev Severity) []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed && c.Severity == sev {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) add(name string, passed bool, sev Severity, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: passed, Severity: sev, Detail: detail})
}

const (
	versionProbeTimeout  = 5 * time.Second
	compilerProbeTimeout = 2 * time.Second
	minDiskSpace         = 10 << 30 // 10 GiB recommended for toolchains and build trees
	maxVcpkgPathLen      = 200
)

var cmakeVersionRE = regexp.MustCompile(`cmake version (\d+)\.(\d+)\.(\d+)`)

// Validator runs the environment checks. The probe hooks exist for
// tests; production code uses the os defaults.
type Validator struct {
	runner  execer.Runner
	plat    platform.Platform
	autoFix bool
	log     *slog.Logger

	getenv   func(string) string
	stat     func(string) (os.FileInfo, error)
	diskFree func(string) (uint64, error)
}

// NewValidator creates a Validator. With autoFix set, fixable warnings
// (currently Windows long paths) are remediated in place.
func NewValidator(runner execer.Runner, plat platform.Platform, autoFix bool) *Validator {
	return &Validator{
		runner:   runner,
		plat:     plat,
		autoFix:  autoFix,
		log:      slog.Default(),
		getenv:   os.Getenv,
		stat:     os.Stat,
		diskFree: diskFree,
	}
}

// Validate runs every applicable check and returns the report.
func (v *Validator) Validate(ctx context.Context) *Report {
	r := &Report{}
	v.checkCMake(ctx, r)
	v.checkCompiler(ctx, r)
	v.checkVcpkg(r)
	v.checkDiskSpace(r)
	if v.plat == platform.Windows {
		v.checkLongPaths(ctx, r)
	}
	return r
}

func (v *Validator) checkCMake(ctx context.Context, r *Report) {
	res := v.runner.Run(ctx, "", []string{"cmake", "--version"}, versionProbeTimeout)
	if !res.Success() {
		r.add("CMake", false, SeverityCritical, "CMake not found in PATH. Install from https://cmake.org/download/")
		return
	}
	m := cmakeVersionRE.FindStringSubmatch(res.Output)
	if m == nil {
		r.add("CMake", false, SeverityCritical, "CMake version could not be determined")
		return
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	version := fmt.Sprintf("%s.%s.%s", m[1], m[2], m[3])
	if major < 3 || (major == 3 && minor < 15) {
		r.add("CMake", false, SeverityCritical, fmt.Sprintf("CMake %s found, but 3.15+ required", version))
		return
	}
	r.add("CMake", true, SeverityInfo, "CMake "+version)
}

func (v *Validator) checkCompiler(ctx context.Context, r *Report) {
	if cxx := v.getenv("CXX"); cxx != "" {
		r.add("C++ compiler", true, SeverityInfo, "CXX set: "+cxx)
		return
	}
	candidates := []string{"g++", "clang++"}
	if v.plat == platform.Windows {
		candidates = []string{"cl", "g++", "clang++"}
	}
	for _, compiler := range candidates {
		res := v.runner.Run(ctx, "", []string{compiler, "--version"}, compilerProbeTimeout)
		if res.Success() {
			r.add("C++ compiler", true, SeverityInfo, "detected "+compiler)
			return
		}
	}
	r.add("C++ compiler", false, SeverityWarning, "No C++ compiler detected. Set the CXX environment variable.")
}

func (v *Validator) checkVcpkg(r *Report) {
	root := v.getenv("VCPKG_ROOT")
	if root == "" {
		r.add("vcpkg", true, SeverityInfo, "VCPKG_ROOT not set (vcpkg not configured)")
		return
	}
	if _, err := v.stat(root); err != nil {
		r.add("vcpkg", false, SeverityWarning, "VCPKG_ROOT points to non-existent path: "+root)
		return
	}
	if v.plat == platform.Windows && len(root) > maxVcpkgPathLen {
		r.add("vcpkg", false, SeverityWarning,
			fmt.Sprintf("VCPKG_ROOT path is %d characters; long paths can hit MAX_PATH", len(root)))
		return
	}
	r.add("vcpkg", true, SeverityInfo, "VCPKG_ROOT: "+root)
}

func (v *Validator) checkDiskSpace(r *Report) {
	wd, err := os.Getwd()
	if err != nil {
		return
	}
	free, err := v.diskFree(wd)
	if err != nil {
		// Never fail validation over an unreadable filesystem statistic.
		v.log.Debug("Disk space probe failed", "error", err)
		return
	}
	freeGB := free >> 30
	if free < minDiskSpace {
		r.add("Disk space", false, SeverityWarning, fmt.Sprintf("%d GiB available (recommend 10+)", freeGB))
		return
	}
	r.add("Disk space", true, SeverityInfo, fmt.Sprintf("%d GiB available", freeGB))
}

func (v *Validator) checkLongPaths(ctx context.Context, r *Report) {
	res := v.runner.Run(ctx, "", []string{
		"powershell", "-Command",
		`Get-ItemProperty -Path "HKLM:\SYSTEM\CurrentControlSet\Control\FileSystem" -Name "LongPathsEnabled"`,
	}, versionProbeTimeout)
	if res.Err != nil {
		// Cannot determine the setting; warn in the log only.
		v.log.Debug("Long path probe failed", "error", res.Err)
		return
	}
	if strings.Contains(res.Output, "LongPathsEnabled") && strings.Contains(res.Output, ": 1") {
		r.add("Windows long paths", true, SeverityInfo, "enabled")
		return
	}
	detail := "Windows long paths not enabled (may cause MAX_PATH errors)"
	if v.autoFix {
		fix := v.runner.Shell(ctx, "",
			`powershell -Command "New-ItemProperty -Path HKLM:\SYSTEM\CurrentControlSet\Control\FileSystem -Name LongPathsEnabled -Value 1 -PropertyType DWORD -Force"`,
			10*time.Second)
		if fix.Success() {
			r.add("Windows long paths", true, SeverityInfo, "enabled now (reboot required)")
			return
		}
		detail += "; auto-fix failed (requires admin)"
	}
	r.add("Windows long paths", false, SeverityWarning, detail)
}
