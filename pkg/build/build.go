// Package build runs Clean and then every transform step as one build cycle.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/metrics"
	"github.com/yaklabco/kiln/pkg/step"
	"github.com/yaklabco/kiln/pkg/toposort"
	"github.com/yaklabco/kiln/pkg/ui"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownStep is returned by RunStep for a name no step has.
var ErrUnknownStep = errors.New("unknown step")

// Failure is one failed step of a run.
type Failure struct {
	Step string
	Err  error
}

// Run is the result of one build cycle.
type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration

	// Reports holds one report per step that ran, in graph order.
	Reports  []step.Report
	Failures []Failure
	// Skipped lists steps not run because a step they depend on failed.
	Skipped []string

	// Digest fingerprints the output tree after the run.
	Digest string
}

// Failed reports whether any step failed or was skipped.
func (r *Run) Failed() bool {
	return len(r.Failures) > 0 || len(r.Skipped) > 0
}

// Error reports the failed steps of a build.
type Error struct {
	RunID    string
	Failures []Failure
	Skipped  []string
}

func (e *Error) Error() string {
	names := lo.Map(e.Failures, func(f Failure, _ int) string { return f.Step })
	msg := "build failed: " + strings.Join(names, ", ")
	if len(e.Skipped) > 0 {
		msg += " (skipped: " + strings.Join(e.Skipped, ", ") + ")"
	}
	return msg
}

// Unwrap exposes every step failure to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	return lo.Map(e.Failures, func(f Failure, _ int) error { return f.Err })
}

// ExitStatus is the process exit code for a failed build.
func (e *Error) ExitStatus() int { return 1 }

type node struct {
	runner step.Runner
	deps   []string
}

func (n node) NodeID() string      { return n.runner.Name() }
func (n node) DependsOn() []string { return n.deps }

// Orchestrator owns the build graph: Clean first, then every step with no
// order among them.
type Orchestrator struct {
	set      *step.Set
	recorder metrics.Recorder
	levels   [][]node
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sends step and build observations to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// New builds the orchestrator for set.
func New(set *step.Set, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{set: set, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(o)
	}

	nodes := []node{{runner: set.Clean}}
	for _, st := range set.Steps {
		nodes = append(nodes, node{runner: st, deps: []string{step.CleanName}})
	}

	levels, err := toposort.Levels(nodes, false)
	if err != nil {
		return nil, fmt.Errorf("ordering build steps: %w", err)
	}
	o.levels = levels
	return o, nil
}

// Build runs one full cycle. Steps in a level run concurrently; a step whose
// dependency failed is skipped, every other step runs regardless of failures
// elsewhere. Outputs of steps that succeeded are kept when others fail.
func (o *Orchestrator) Build(ctx context.Context) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	logger := slog.With(slog.String(klog.Run, run.ID))
	logger.Info("build started")

	var (
		mu     sync.Mutex
		failed = map[string]bool{}
	)

	for _, level := range o.levels {
		group := errgroup.Group{}
		reports := make([]*step.Report, len(level))

		for i, n := range level {
			if lo.SomeBy(n.deps, func(dep string) bool { return failed[dep] }) {
				run.Skipped = append(run.Skipped, n.NodeID())
				continue
			}
			group.Go(func() error {
				report, err := o.runStep(ctx, n.runner)
				reports[i] = &report

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					run.Failures = append(run.Failures, Failure{Step: n.NodeID(), Err: err})
				}
				return nil
			})
		}
		_ = group.Wait()

		for _, report := range reports {
			if report != nil {
				run.Reports = append(run.Reports, *report)
			}
		}
		for _, f := range run.Failures {
			failed[f.Step] = true
		}
		for _, name := range run.Skipped {
			failed[name] = true
		}
	}

	digest, err := Digest(o.set.Clean.Dir())
	if err != nil {
		logger.Warn("could not digest output", slog.Any(klog.Error, err))
	}
	run.Digest = digest
	run.Duration = time.Since(run.Started)

	if !run.Failed() {
		o.recorder.ObserveBuild(run.Duration, metrics.ResultSuccess)
		logger.Info("build finished", slog.Duration(klog.Duration, run.Duration), slog.String(klog.Digest, digest))
		return run, nil
	}

	failure := &Error{RunID: run.ID, Failures: run.Failures, Skipped: run.Skipped}
	o.recorder.ObserveBuild(run.Duration, metrics.ResultOf(failure, ctx.Err() != nil))
	logger.Error("build failed", slog.Duration(klog.Duration, run.Duration), slog.Any(klog.Error, failure))
	return run, failure
}

// RunStep runs one step, or Clean, by name. A transform step given files
// processes only those files when it supports partial runs.
func (o *Orchestrator) RunStep(ctx context.Context, name string, files ...string) (step.Report, error) {
	runner, ok := o.set.Lookup(name)
	if !ok {
		return step.Report{}, fmt.Errorf("%w: %q", ErrUnknownStep, name)
	}
	return o.runStep(ctx, runner, files...)
}

func (o *Orchestrator) runStep(ctx context.Context, runner step.Runner, files ...string) (step.Report, error) {
	report, err := runner.Run(ctx, files...)

	o.recorder.ObserveStep(runner.Name(), report.Duration, metrics.ResultOf(err, ctx.Err() != nil))
	o.recorder.AddWritten(runner.Name(), len(report.Written))

	attrs := []any{
		slog.String(klog.Step, runner.Name()),
		slog.Int(klog.Files, report.Files),
		slog.Int(klog.Written, len(report.Written)),
		slog.Duration(klog.Duration, report.Duration),
	}
	if err != nil {
		slog.Error("step failed", append(attrs, slog.Any(klog.Error, err))...)
		return report, err
	}
	slog.Info("step finished", attrs...)
	return report, nil
}

// Summary renders run as a table of steps.
func Summary(run *Run) string {
	errs := lo.SliceToMap(run.Failures, func(f Failure) (string, error) { return f.Step, f.Err })

	rows := lo.Map(run.Reports, func(r step.Report, _ int) ui.SummaryRow {
		return ui.SummaryRow{Step: r.Step, Written: len(r.Written), Duration: r.Duration, Err: errs[r.Step]}
	})
	for _, name := range run.Skipped {
		rows = append(rows, ui.SummaryRow{Step: name, Skipped: true})
	}

	title := fmt.Sprintf("build %s in %s", run.ID[:8], run.Duration.Round(time.Millisecond))
	return ui.RenderSummary(title, rows)
}
