// Package patterns holds the error-pattern database: an ordered table of
// known build failure signatures with their automated fixes. The table is
// loaded once and immutable afterwards; matching is a linear scan where
// the first applicable pattern wins.
package patterns

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"cppmedic/internal/platform"
)

// Action is one remediation step of a pattern. An action with no
// resolvable command is informational only: its message is shown and the
// step is skipped.
type Action struct {
	Method         string `yaml:"method"`
	Command        string `yaml:"command,omitempty"`
	CommandWindows string `yaml:"command_windows,omitempty"`
	CommandLinux   string `yaml:"command_linux,omitempty"`
	Message        string `yaml:"message,omitempty"`
}

// CommandFor picks the shell command for a platform, falling back to the
// generic command when no platform-specific one is defined.
func (a Action) CommandFor(p platform.Platform) string {
	switch p {
	case platform.Windows:
		if a.CommandWindows != "" {
			return a.CommandWindows
		}
	default:
		if a.CommandLinux != "" {
			return a.CommandLinux
		}
	}
	return a.Command
}

// Pattern is a single compiled entry of the database.
type Pattern struct {
	re          *regexp.Regexp
	Platforms   []string
	AutoFix     []Action
	Fallback    []Action
	UserMessage string
}

// Matches reports whether the pattern's signature occurs in the captured
// build output. Matching is case-insensitive.
func (p *Pattern) Matches(output string) bool { return p.re.MatchString(output) }

// AppliesTo reports whether the pattern is declared for the given
// platform. An entry listing "all" (or listing nothing) applies anywhere.
func (p *Pattern) AppliesTo(plat platform.Platform) bool {
	if len(p.Platforms) == 0 {
		return true
	}
	name := plat.Name()
	for _, declared := range p.Platforms {
		if declared == "all" || declared == name {
			return true
		}
	}
	return false
}

// Table is the ordered, immutable pattern database.
type Table struct {
	entries []*Pattern
}

// Len returns the number of usable patterns.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Match scans the table in declaration order and returns the first
// pattern that applies to the platform and matches the output, or nil.
func (t *Table) Match(output string, plat platform.Platform) *Pattern {
	if t == nil {
		return nil
	}
	for _, p := range t.entries {
		if !p.AppliesTo(plat) {
			continue
		}
		if p.Matches(output) {
			return p
		}
	}
	return nil
}

// patternSpec is the on-disk record shape.
type patternSpec struct {
	Regex       string   `yaml:"regex"`
	Platform    []string `yaml:"platform"`
	AutoFix     []Action `yaml:"auto_fix"`
	Fallback    []Action `yaml:"fallback"`
	UserMessage string   `yaml:"user_message"`
}

type patternFile struct {
	Patterns []patternSpec `yaml:"patterns"`
}

// Parse builds a table from YAML. Entries whose regex does not compile
// are skipped with a warning; order of the remaining entries is kept.
func Parse(data []byte) (*Table, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern database: %w", err)
	}
	t := &Table{}
	for _, spec := range file.Patterns {
		re, err := regexp.Compile("(?i)" + spec.Regex)
		if err != nil {
			slog.Warn("Skipping pattern with invalid regex", "regex", spec.Regex, "error", err)
			continue
		}
		t.entries = append(t.entries, &Pattern{
			re:          re,
			Platforms:   spec.Platform,
			AutoFix:     spec.AutoFix,
			Fallback:    spec.Fallback,
			UserMessage: spec.UserMessage,
		})
	}
	return t, nil
}

// Load reads a pattern database from a file. Absence or a parse failure
// is not fatal: the controller then runs with an empty table and every
// failure surfaces verbatim.
func Load(path string) *Table {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Pattern database not loaded", "path", path, "error", err)
		return &Table{}
	}
	t, err := Parse(data)
	if err != nil {
		slog.Warn("Pattern database not loaded", "path", path, "error", err)
		return &Table{}
	}
	return t
}
