package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/gookit/color"

	"cppmedic/internal/builder"
	"cppmedic/internal/config"
	"cppmedic/internal/envcheck"
	"cppmedic/internal/errors"
	"cppmedic/internal/execer"
	"cppmedic/internal/history"
	"cppmedic/internal/patterns"
	"cppmedic/internal/platform"
	"cppmedic/internal/projcheck"
	"cppmedic/internal/recovery"
	"cppmedic/internal/toolscan"
	"cppmedic/internal/watch"
)

var CLI struct {
	Config   string `short:"c" help:"Configuration file path" default:"cppmedic.yaml"`
	Verbose  bool   `short:"v" help:"Enable verbose logging"`
	Patterns string `short:"p" help:"Pattern database path (overrides configuration)"`

	Build struct {
		Dir   string `arg:"" optional:"" help:"Project directory" default:"."`
		Watch bool   `short:"w" help:"Watch sources and rebuild on change"`
	} `cmd:"" help:"Build the project, recovering from known failures automatically"`

	ValidateEnv struct {
		Fix bool `help:"Attempt automatic remediation of fixable findings"`
	} `cmd:"" name:"validate-env" help:"Check the development environment for required toolchain pieces"`

	DetectTools struct {
		JSON bool `help:"Emit the inventory as JSON"`
	} `cmd:"" name:"detect-tools" help:"List detected compilers, build tools and package managers"`

	ValidateProject struct {
		Dir    string `arg:"" optional:"" help:"Project directory" default:"."`
		Strict bool   `help:"Treat warnings as failures and run style checks"`
	} `cmd:"" name:"validate-project" help:"Verify a project configures, builds and tests cleanly"`

	History struct {
		Limit int `short:"n" help:"Number of runs to show" default:"20"`
	} `cmd:"" help:"Show recent build runs"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("cppmedic"),
		kong.Description("C++ build doctor: builds CMake projects and auto-recovers from known failures"))

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch kctx.Command() {
	case "build", "build <dir>":
		err = runBuild(ctx, CLI.Build.Dir, CLI.Build.Watch)
	case "validate-env":
		err = runValidateEnv(ctx, CLI.ValidateEnv.Fix)
	case "detect-tools":
		err = runDetectTools(ctx, CLI.DetectTools.JSON)
	case "validate-project", "validate-project <dir>":
		err = runValidateProject(ctx, CLI.ValidateProject.Dir, CLI.ValidateProject.Strict)
	case "history":
		err = runHistory(ctx, CLI.History.Limit)
	default:
		err = errors.New(errors.CategoryValidation, errors.SeverityError,
			fmt.Sprintf("unknown command %q", kctx.Command()))
	}

	if err != nil {
		adapter := errors.NewCLIAdapter(CLI.Verbose, nil)
		adapter.Report(err)
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}
}

func runBuild(ctx context.Context, dir string, watchMode bool) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "failed to load configuration")
	}

	plat := platform.Current()
	runner := execer.New(plat)
	table := loadPatternTable(cfg)

	configureArgv, err := cfg.Build.ConfigureArgv()
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "invalid configure_command")
	}
	buildArgv, err := cfg.Build.BuildArgv()
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "invalid build_command")
	}
	tool := builder.NewCMakeTool(runner, configureArgv, buildArgv)
	fixer := recovery.NewFixer(runner, plat, cfg.Build.FixTimeoutDuration())

	var store *history.Store
	if !cfg.History.Disabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("history disabled for this run", "error", err)
		} else {
			defer func() { _ = store.Close() }()
		}
	}

	ctrl := builder.New(tool, fixer, table, plat, builder.Options{
		MaxAttempts: cfg.Build.MaxAttempts,
		Observer:    &runReporter{dir: dir, store: store},
	})

	ok, message := ctrl.Run(ctx, dir)
	printOutcome(ok, message)

	if watchMode {
		w := watch.New(dir, cfg.Watch.DebounceDuration(), func(ctx context.Context) {
			ok, message := ctrl.Run(ctx, dir)
			printOutcome(ok, message)
		})
		if err := w.Run(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryFileSystem, "source watch failed")
		}
		return nil
	}

	if !ok {
		return errors.New(errors.CategoryBuild, errors.SeverityError, message)
	}
	return nil
}

func printOutcome(ok bool, message string) {
	if ok {
		color.Success.Println(message)
	} else {
		color.Danger.Println(message)
	}
}

// runReporter narrates controller progress on the terminal and records
// finished runs in the history ledger when one is open.
type runReporter struct {
	dir     string
	store   *history.Store
	started time.Time
}

func (r *runReporter) OnAttemptStart(attempt, max int) {
	if attempt == 1 {
		r.started = time.Now()
	}
	color.Info.Printf("Build attempt %d/%d\n", attempt, max)
}

func (r *runReporter) OnPhaseFailure(phase builder.Phase, attempt int, out string) {
	color.Warn.Printf("%s failed on attempt %d\n", phase, attempt)
}

func (r *runReporter) OnFixApplied(p *patterns.Pattern) {
	color.Note.Printf("Applied fix: %s\n", p.UserMessage)
}

func (r *runReporter) OnRunComplete(ok bool, message string, attempts int) {
	if r.store == nil {
		return
	}
	err := r.store.Append(context.Background(), history.Record{
		ProjectDir: r.dir,
		StartedAt:  r.started,
		FinishedAt: time.Now(),
		Attempts:   attempts,
		Success:    ok,
		Message:    message,
	})
	if err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

func loadPatternTable(cfg *config.Config) *patterns.Table {
	path := CLI.Patterns
	if path == "" {
		path = cfg.Patterns
	}
	if path != "" {
		return patterns.Load(path)
	}
	return patterns.Default()
}

func runValidateEnv(ctx context.Context, fix bool) error {
	plat := platform.Current()
	runner := execer.New(plat)
	report := envcheck.NewValidator(runner, plat, fix).Validate(ctx)

	for _, c := range report.Checks {
		switch {
		case c.Passed:
			color.Success.Printf("  ok   %s", c.Name)
		case c.Severity == envcheck.SeverityCritical:
			color.Danger.Printf("  FAIL %s", c.Name)
		default:
			color.Warn.Printf("  warn %s", c.Name)
		}
		if c.Detail != "" {
			fmt.Printf("  (%s)", c.Detail)
		}
		fmt.Println()
	}

	if !report.OK() {
		return errors.New(errors.CategoryToolchain, errors.SeverityError,
			fmt.Sprintf("environment validation failed: %d critical issue(s)", len(report.Failures())))
	}
	if n := len(report.Warnings()); n > 0 {
		color.Warn.Printf("Environment usable with %d warning(s)\n", n)
	} else {
		color.Success.Println("Environment ready")
	}
	return nil
}

func runDetectTools(ctx context.Context, asJSON bool) error {
	plat := platform.Current()
	runner := execer.New(plat)
	inv := toolscan.NewScanner(runner, plat).Scan(ctx)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(inv); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode inventory")
		}
		return nil
	}

	fmt.Printf("Platform: %s\n", inv.Platform)
	printToolGroup("Compilers", inv.Compilers)
	printToolGroup("Build tools", inv.BuildTools)
	printToolGroup("Package managers", inv.PackageManagers)
	printToolGroup("Quality tools", inv.QualityTools)

	if !inv.HasCompiler() {
		color.Warn.Println("No C++ compiler detected")
	}
	if !inv.HasBuildTool() {
		color.Warn.Println("No build tool detected")
	}
	return nil
}

func printToolGroup(label string, tools []toolscan.Tool) {
	fmt.Printf("%s:\n", label)
	if len(tools) == 0 {
		fmt.Println("  (none)")
		return
	}
	for _, t := range tools {
		color.Success.Printf("  %-14s", t.Name)
		fmt.Printf(" %s", t.Version)
		if t.Path != "" {
			fmt.Printf("  %s", t.Path)
		}
		fmt.Println()
	}
}

func runValidateProject(ctx context.Context, dir string, strict bool) error {
	runner := execer.New(platform.Current())
	results := projcheck.NewValidator(dir, strict, runner).Validate(ctx)

	for _, r := range results {
		switch r.Status {
		case projcheck.StatusPass:
			color.Success.Printf("  pass %s", r.Name)
		case projcheck.StatusWarn:
			color.Warn.Printf("  warn %s", r.Name)
		case projcheck.StatusSkip:
			color.Note.Printf("  skip %s", r.Name)
		default:
			color.Danger.Printf("  FAIL %s", r.Name)
		}
		if r.Detail != "" {
			fmt.Printf("  (%s)", r.Detail)
		}
		fmt.Println()
	}

	if !projcheck.OK(results, strict) {
		return errors.New(errors.CategoryValidation, errors.SeverityError, "project validation failed")
	}
	color.Success.Println("Project validated")
	return nil
}

func runHistory(ctx context.Context, limit int) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, "failed to load configuration")
	}
	if cfg.History.Disabled {
		fmt.Println("History recording is disabled in the configuration")
		return nil
	}

	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryHistory, "failed to open run history")
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, limit)
	if err != nil {
		return errors.Wrap(err, errors.CategoryHistory, "failed to read run history")
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}

	for _, run := range runs {
		stamp := run.StartedAt.Local().Format("2006-01-02 15:04:05")
		duration := run.FinishedAt.Sub(run.StartedAt).Round(time.Second)
		if run.Success {
			color.Success.Printf("ok   %s", stamp)
		} else {
			color.Danger.Printf("FAIL %s", stamp)
		}
		fmt.Printf("  %-30s attempts=%d  %s  %s\n", run.ProjectDir, run.Attempts, duration, run.Message)
	}
	return nil
}
