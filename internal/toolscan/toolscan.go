// Package toolscan probes the machine for installed C++ toolchain
// components: compilers, build tools, package managers, and code quality
// tools. Each probe runs the tool's version flag and parses the result.
package toolscan

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"cppmedic/internal/execer"
	"cppmedic/internal/platform"
)

const probeTimeout = 5 * time.Second

// Tool describes one detected toolchain component.
type Tool struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Path    string `json:"path,omitempty"`
}

// Inventory groups detected tools by category.
type Inventory struct {
	Platform        string `json:"platform"`
	Compilers       []Tool `json:"compilers"`
	BuildTools      []Tool `json:"build_tools"`
	PackageManagers []Tool `json:"package_managers"`
	QualityTools    []Tool `json:"quality_tools"`
}

// HasCompiler reports whether at least one compiler was found.
func (i *Inventory) HasCompiler() bool { return len(i.Compilers) > 0 }

// HasBuildTool reports whether at least one build tool was found.
func (i *Inventory) HasBuildTool() bool { return len(i.BuildTools) > 0 }

var (
	plainVersionRE = regexp.MustCompile(`(\d+\.\d+\.\d+)`)
	clangVersionRE = regexp.MustCompile(`version (\d+\.\d+(?:\.\d+)?)`)
	cmakeVersionRE = regexp.MustCompile(`cmake version (\d+\.\d+\.\d+)`)
	makeVersionRE  = regexp.MustCompile(`Make (\d+\.\d+)`)
	conanVersionRE = regexp.MustCompile(`Conan version (\d+\.\d+\.\d+)`)
)

// Scanner probes for installed tools.
type Scanner struct {
	runner execer.Runner
	plat   platform.Platform
	log    *slog.Logger

	getenv   func(string) string
	lookPath func(string) (string, error)
}

// NewScanner creates a Scanner for the given platform.
func NewScanner(runner execer.Runner, plat platform.Platform) *Scanner {
	return &Scanner{
		runner:   runner,
		plat:     plat,
		log:      slog.Default(),
		getenv:   os.Getenv,
		lookPath: exec.LookPath,
	}
}

// Scan probes every known tool and returns the inventory.
func (s *Scanner) Scan(ctx context.Context) *Inventory {
	inv := &Inventory{Platform: s.plat.Name()}
	s.scanCompilers(ctx, inv)
	s.scanBuildTools(ctx, inv)
	s.scanPackageManagers(ctx, inv)
	s.scanQualityTools(ctx, inv)
	return inv
}

func (s *Scanner) scanCompilers(ctx context.Context, inv *Inventory) {
	if t := s.probe(ctx, "GCC", "g++", plainVersionRE); t != nil {
		inv.Compilers = append(inv.Compilers, *t)
	}
	if res := s.runner.Run(ctx, "", []string{"clang++", "--version"}, probeTimeout); res.Success() {
		name := "Clang"
		if strings.Contains(res.Output, "Apple") {
			name = "Apple Clang"
		}
		if m := clangVersionRE.FindStringSubmatch(res.Output); m != nil {
			inv.Compilers = append(inv.Compilers, Tool{Name: name, Version: m[1], Path: s.path("clang++")})
		}
	}
	if s.plat == platform.Windows {
		// cl prints its banner to stderr and exits non-zero without input
		// files, so presence of the banner is enough.
		res := s.runner.Run(ctx, "", []string{"cl"}, probeTimeout)
		if res.Success() || strings.Contains(res.Output, "Version") {
			version := "unknown"
			if m := plainVersionRE.FindStringSubmatch(res.Output); m != nil {
				version = m[1]
			}
			inv.Compilers = append(inv.Compilers, Tool{Name: "MSVC", Version: version, Path: "cl.exe"})
		}
	}
}

func (s *Scanner) scanBuildTools(ctx context.Context, inv *Inventory) {
	if res := s.runner.Run(ctx, "", []string{"cmake", "--version"}, probeTimeout); res.Success() {
		if m := cmakeVersionRE.FindStringSubmatch(res.Output); m != nil {
			inv.BuildTools = append(inv.BuildTools, Tool{Name: "CMake", Version: m[1], Path: s.path("cmake")})
		}
	}
	if res := s.runner.Run(ctx, "", []string{"ninja", "--version"}, probeTimeout); res.Success() {
		inv.BuildTools = append(inv.BuildTools, Tool{Name: "Ninja", Version: strings.TrimSpace(res.Output), Path: s.path("ninja")})
	}
	if res := s.runner.Run(ctx, "", []string{"make", "--version"}, probeTimeout); res.Success() {
		version := "unknown"
		if m := makeVersionRE.FindStringSubmatch(res.Output); m != nil {
			version = m[1]
		}
		inv.BuildTools = append(inv.BuildTools, Tool{Name: "Make", Version: version, Path: s.path("make")})
	}
}

func (s *Scanner) scanPackageManagers(ctx context.Context, inv *Inventory) {
	if res := s.runner.Run(ctx, "", []string{"conan", "--version"}, probeTimeout); res.Success() {
		if m := conanVersionRE.FindStringSubmatch(res.Output); m != nil {
			inv.PackageManagers = append(inv.PackageManagers, Tool{Name: "Conan", Version: m[1], Path: s.path("conan")})
		}
	}
	if root := s.getenv("VCPKG_ROOT"); root != "" {
		inv.PackageManagers = append(inv.PackageManagers, Tool{Name: "vcpkg", Version: "VCPKG_ROOT set", Path: root})
	}
}

func (s *Scanner) scanQualityTools(ctx context.Context, inv *Inventory) {
	for _, binary := range []string{"clang-format", "clang-tidy"} {
		if t := s.probe(ctx, binary, binary, clangVersionRE); t != nil {
			inv.QualityTools = append(inv.QualityTools, *t)
		}
	}
}

// probe runs `binary --version` and extracts the version with re.
func (s *Scanner) probe(ctx context.Context, name, binary string, re *regexp.Regexp) *Tool {
	res := s.runner.Run(ctx, "", []string{binary, "--version"}, probeTimeout)
	if !res.Success() {
		return nil
	}
	m := re.FindStringSubmatch(res.Output)
	if m == nil {
		return nil
	}
	return &Tool{Name: name, Version: m[1], Path: s.path(binary)}
}

func (s *Scanner) path(binary string) string {
	p, err := s.lookPath(binary)
	if err != nil {
		return ""
	}
	return p
}
