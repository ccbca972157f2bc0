// Package step implements the transform steps: each reads the sources of one
// asset class, runs them through its chain and writes the artifacts under the
// class's output directory. Clean, which empties the output root, lives here
// too.
package step

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/yaklabco/kiln/internal/dryrun"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/transform"
	"golang.org/x/sync/errgroup"
)

// Notifier is told which artifacts a step wrote once the step has finished.
type Notifier interface {
	Notify(class paths.Class, written []string)
}

// Runner is anything the orchestrator and the watcher can run: a transform
// step or Clean.
type Runner interface {
	Name() string
	Run(ctx context.Context, files ...string) (Report, error)
}

// Report summarises one run of a step.
type Report struct {
	Step     string
	Files    int
	Written  []string
	Failed   int
	Duration time.Duration
}

// Step is one asset class's pipeline.
type Step struct {
	spec    paths.Spec
	chain   transform.Chain
	partial bool
	workers int

	mu       sync.RWMutex
	notifier Notifier
}

// Option configures a Step.
type Option func(*Step)

// WithPartial lets a run triggered by specific files process only those
// files. Steps whose outputs depend on other sources (imports, includes) must
// not use it.
func WithPartial() Option {
	return func(s *Step) {
		s.partial = true
	}
}

// WithWorkers bounds how many files are processed concurrently.
func WithWorkers(n int) Option {
	return func(s *Step) {
		s.workers = max(n, 1)
	}
}

// New creates the step for spec's asset class.
func New(spec paths.Spec, chain transform.Chain, opts ...Option) *Step {
	s := &Step{spec: spec, chain: chain, workers: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Step) Name() string { return s.spec.Class.String() }

// Class returns the step's asset class.
func (s *Step) Class() paths.Class { return s.spec.Class }

// Spec returns the step's path spec.
func (s *Step) Spec() paths.Spec { return s.spec }

// Partial reports whether the step can run on a subset of its sources.
func (s *Step) Partial() bool { return s.partial }

// SetNotifier attaches (or, with nil, detaches) the notifier.
func (s *Step) SetNotifier(n Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = n
}

// Run processes the step's sources. Without files it processes every source
// matching the spec. With files, a partial step processes those of them that
// are its sources, and a non-partial step (or a partial one given no source
// of its own) processes everything.
//
// Each file's artifacts are written only if its whole chain succeeded; a
// failing file does not stop the others. The returned error joins one *Error
// per failed file.
func (s *Step) Run(ctx context.Context, files ...string) (Report, error) {
	started := time.Now()
	report := Report{Step: s.Name()}

	sources, err := s.selectSources(files)
	if err != nil {
		report.Duration = time.Since(started)
		return report, &Error{Kind: SourceRead, Step: s.Name(), Path: s.spec.SourceBase, Err: err}
	}
	report.Files = len(sources)

	var (
		mu      sync.Mutex
		errs    []error
		written []string
	)

	group := errgroup.Group{}
	group.SetLimit(s.workers)
	for _, source := range sources {
		group.Go(func() error {
			out, err := s.process(ctx, source)
			mu.Lock()
			defer mu.Unlock()
			written = append(written, out...)
			if err != nil {
				errs = append(errs, err)
				slog.Warn("step failed on file",
					slog.String(klog.Step, s.Name()),
					slog.String(klog.Path, source),
					slog.Any(klog.Error, err))
			}
			return nil
		})
	}
	_ = group.Wait()

	slices.Sort(written)
	report.Written = written
	report.Failed = len(errs)
	report.Duration = time.Since(started)

	if len(written) > 0 {
		s.notify(written)
	}

	return report, errors.Join(errs...)
}

func (s *Step) selectSources(files []string) ([]string, error) {
	if len(files) > 0 && s.partial {
		own := lo.Filter(files, func(path string, _ int) bool {
			return s.spec.Matches(path)
		})
		if len(own) > 0 {
			// Removed or renamed-away sources have nothing left to build.
			return lo.Filter(lo.Uniq(own), func(path string, _ int) bool {
				_, err := os.Stat(path)
				return !errors.Is(err, fs.ErrNotExist)
			}), nil
		}
	}
	return s.spec.Expand()
}

func (s *Step) process(ctx context.Context, source string) ([]string, error) {
	contents, err := os.ReadFile(source)
	if err != nil {
		return nil, &Error{Kind: SourceRead, Step: s.Name(), Path: source, Err: err}
	}

	rel, err := filepath.Rel(s.spec.SourceBase, source)
	if err != nil {
		return nil, &Error{Kind: SourceRead, Step: s.Name(), Path: source, Err: err}
	}

	artifacts, err := s.chain.Run(ctx, transform.File{Source: source, Path: rel, Contents: contents})
	if err != nil {
		return nil, &Error{Kind: Transform, Step: s.Name(), Path: source, Err: err}
	}

	written, err := s.commit(artifacts)
	if err != nil {
		return nil, err
	}

	slog.Debug("processed",
		slog.String(klog.Step, s.Name()),
		slog.String(klog.Path, source),
		slog.Int(klog.Written, len(written)))
	return written, nil
}

func (s *Step) notify(written []string) {
	s.mu.RLock()
	notifier := s.notifier
	s.mu.RUnlock()
	if notifier != nil {
		notifier.Notify(s.spec.Class, written)
	}
}

type staged struct {
	tmp, target string
}

// commit writes every artifact of one source or none of them. All artifacts
// are first written to synced temp files next to their targets and only then
// renamed into place; a failed rename removes the targets already renamed.
func (s *Step) commit(artifacts []transform.File) ([]string, error) {
	targets := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		target, err := s.spec.OutputPath(artifact.Path)
		if err != nil {
			return nil, &Error{Kind: Write, Step: s.Name(), Path: artifact.Path, Err: err}
		}
		targets = append(targets, target)
	}

	if dryrun.IsDryRun() {
		for _, target := range targets {
			dryrun.Report("write", target)
		}
		return targets, nil
	}

	pending := make([]staged, 0, len(artifacts))
	discard := func() {
		for _, p := range pending {
			_ = os.Remove(p.tmp)
		}
	}
	for i, artifact := range artifacts {
		tmp, err := stage(targets[i], artifact.Contents)
		if err != nil {
			discard()
			return nil, &Error{Kind: Write, Step: s.Name(), Path: targets[i], Err: err}
		}
		pending = append(pending, staged{tmp: tmp, target: targets[i]})
	}

	for i, p := range pending {
		if err := os.Rename(p.tmp, p.target); err != nil {
			for _, done := range pending[:i] {
				_ = os.Remove(done.target)
			}
			pending = pending[i:]
			discard()
			return nil, &Error{Kind: Write, Step: s.Name(), Path: p.target, Err: fmt.Errorf("renaming into place: %w", err)}
		}
	}
	return targets, nil
}

// stage writes contents to a synced temp file in path's directory and returns
// its name.
func stage(path string, contents []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}

	if _, err := tmp.Write(contents); err != nil {
		return fail(fmt.Errorf("writing %s: %w", tmpName, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing %s: %w", tmpName, err))
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(fmt.Errorf("chmod %s: %w", tmpName, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("closing %s: %w", tmpName, err)
	}
	return tmpName, nil
}
