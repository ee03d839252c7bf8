package patterns

import (
	_ "embed"
	"log/slog"
)

//go:embed default-patterns.yaml
var defaultPatterns []byte

// Default returns the built-in pattern table. Used when no pattern file
// is configured.
func Default() *Table {
	t, err := Parse(defaultPatterns)
	if err != nil {
		// Embedded data; only reachable if the shipped file is broken.
		slog.Warn("Built-in pattern database unusable", "error", err)
		return &Table{}
	}
	return t
}
