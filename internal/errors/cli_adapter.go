package errors

import (
	"fmt"
	"log/slog"
)

// CLIAdapter maps structured errors to exit codes and user-facing text.
type CLIAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIAdapter creates an adapter. A nil logger falls back to the default.
func NewCLIAdapter(verbose bool, logger *slog.Logger) *CLIAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIAdapter{verbose: verbose, logger: logger}
}

// ExitCodeFor determines the process exit code for an error.
func (a *CLIAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	se, ok := err.(*Error)
	if !ok {
		return 1
	}
	switch se.Category {
	case CategoryValidation:
		return 2
	case CategoryConfig:
		return 7
	case CategoryToolchain:
		return 9
	case CategoryBuild, CategoryFileSystem:
		return 11
	case CategoryHistory:
		return 12
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// FormatError renders an error for terminal display.
func (a *CLIAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	se, ok := err.(*Error)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return se.Error()
	}
	switch se.Category {
	case CategoryConfig, CategoryValidation:
		return se.Message
	default:
		return fmt.Sprintf("%s: %s", se.Category, se.Message)
	}
}

// Report logs an error when it warrants a log entry. Internal and fatal
// errors are always logged; the rest only in verbose mode.
func (a *CLIAdapter) Report(err error) {
	if err == nil {
		return
	}
	se, ok := err.(*Error)
	if !ok {
		a.logger.Error("unclassified error", "error", err)
		return
	}
	if !a.verbose && se.Category != CategoryInternal && se.Severity != SeverityFatal {
		return
	}
	level := slog.LevelError
	if se.Severity == SeverityWarning {
		level = slog.LevelWarn
	}
	a.logger.Log(nil, level, se.Message, "category", string(se.Category))
}
