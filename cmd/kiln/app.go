package kiln

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yaklabco/kiln/config"
	"github.com/yaklabco/kiln/internal/dryrun"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/internal/parallelism"
	"github.com/yaklabco/kiln/pkg/build"
	"github.com/yaklabco/kiln/pkg/exit"
	"github.com/yaklabco/kiln/pkg/metrics"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/prettylog"
	"github.com/yaklabco/kiln/pkg/step"
	"github.com/yaklabco/kiln/pkg/transform"
	"github.com/yaklabco/kiln/pkg/ui"
)

// Exit codes for failures before any step runs.
const (
	exitConfig = 2
	exitSetup  = 3
)

// app is everything a command needs, wired from the effective configuration.
type app struct {
	cfg          *config.Config
	table        *paths.Table
	steps        *step.Set
	orchestrator *build.Orchestrator
	recorder     *metrics.PrometheusRecorder
}

func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(&config.LoadOptions{Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return nil, exit.Fatalf(exitConfig, "loading configuration: %w", err)
	}
	if err := applyFlags(cfg, flags); err != nil {
		return nil, err
	}

	prettylog.Setup(cmd.ErrOrStderr(), cfg.Debug)
	dryrun.SetRequested(flags.dryRun)

	workers, err := parallelism.Workers()
	if err != nil {
		return nil, exit.Fatalf(exitConfig, "%w", err)
	}

	table, err := paths.New(cfg.SrcDir, cfg.DistDir)
	if err != nil {
		return nil, exit.Fatalf(exitSetup, "building path table: %w", err)
	}

	if !transform.SassAvailable(cfg.Styles.SassBinary) {
		slog.Warn("sass compiler not found; the styles step will fail",
			slog.String(klog.Path, cfg.Styles.SassBinary))
	}

	steps, err := step.NewSet(table, step.Options{
		Browsers:    cfg.Styles.Browsers,
		JPEGQuality: cfg.Images.JPEGQuality,
		MinSuffix:   cfg.Minify.Suffix,
		SassBinary:  cfg.Styles.SassBinary,
		Workers:     workers,
	})
	if err != nil {
		return nil, exit.Fatalf(exitSetup, "creating steps: %w", err)
	}

	recorder := metrics.NewPrometheusRecorder(nil)
	orchestrator, err := build.New(steps, build.WithRecorder(recorder))
	if err != nil {
		return nil, exit.Fatalf(exitSetup, "%w", err)
	}

	a := &app{
		cfg:          cfg,
		table:        table,
		steps:        steps,
		orchestrator: orchestrator,
		recorder:     recorder,
	}
	if cfg.Verbose {
		steps.SetNotifier(consoleNotifier{root: table.DistDir})
	}
	return a, nil
}

// applyFlags lays command-line flags over the loaded configuration and
// validates the result again.
func applyFlags(cfg *config.Config, flags *globalFlags) error {
	if flags.src != "" {
		abs, err := filepath.Abs(flags.src)
		if err != nil {
			return exit.Fatalf(exitConfig, "resolving --src: %w", err)
		}
		cfg.SrcDir = abs
	}
	if flags.dist != "" {
		abs, err := filepath.Abs(flags.dist)
		if err != nil {
			return exit.Fatalf(exitConfig, "resolving --dist: %w", err)
		}
		cfg.DistDir = abs
	}
	cfg.Debug = cfg.Debug || flags.debug
	cfg.Verbose = cfg.Verbose || flags.verbose

	if result := cfg.Validate(); result.HasErrors() {
		return exit.Fatalf(exitConfig, "%s", result.ErrorMessage())
	}
	return nil
}

func (a *app) close() {
	_ = a.steps.Close()
}

func absPaths(files []string) ([]string, error) {
	out := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		out = append(out, abs)
	}
	return out, nil
}

func buildSummary(run *build.Run) string {
	if run == nil {
		return ""
	}
	return build.Summary(run)
}

func stepSummary(report step.Report, err error) string {
	if report.Step == "" {
		return ""
	}
	return ui.RenderSummary(report.Step, []ui.SummaryRow{{
		Step:     report.Step,
		Written:  len(report.Written),
		Duration: report.Duration,
		Err:      err,
	}})
}
