// Package watch re-runs steps when their sources change. Every asset class has
// a binding with its own queue and dispatcher, so a change only ever re-runs
// the step of the class whose watch pattern it matches, and bindings proceed
// independently of each other.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/metrics"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/step"
)

const relevantOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Dispatcher runs a step by name.
type Dispatcher interface {
	RunStep(ctx context.Context, name string, files ...string) (step.Report, error)
}

// Scheduler watches the source tree and dispatches changed files to steps.
type Scheduler struct {
	table      *paths.Table
	dispatcher Dispatcher
	debounce   time.Duration
	recorder   metrics.Recorder
	bindings   []*binding
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDebounce waits d after the first change of a burst before dispatching,
// so the whole burst is handled by one run.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		s.debounce = d
	}
}

// WithRecorder counts dispatched runs on r.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Scheduler) {
		s.recorder = r
	}
}

// New creates a scheduler with one binding per asset class of table.
func New(table *paths.Table, dispatcher Dispatcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		table:      table,
		dispatcher: dispatcher,
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, class := range paths.Classes() {
		s.bindings = append(s.bindings, newBinding(class))
	}
	return s
}

// State returns the dispatch state of class's binding.
func (s *Scheduler) State(class paths.Class) State {
	for _, b := range s.bindings {
		if b.class == class {
			return b.State()
		}
	}
	return Idle
}

// Run watches the source root until ctx is done. Step failures are logged and
// never stop the watcher; only failing to set up monitoring is returned, as a
// *step.Error of kind WatchSetup.
func (s *Scheduler) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &step.Error{Kind: step.WatchSetup, Step: "watch", Err: err}
	}
	defer watcher.Close()

	if err := s.addTree(watcher, s.table.SrcDir); err != nil {
		return &step.Error{Kind: step.WatchSetup, Step: "watch", Path: s.table.SrcDir, Err: err}
	}

	var wg sync.WaitGroup
	for _, b := range s.bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(ctx, b)
		}()
	}
	defer wg.Wait()

	slog.Info("watching", slog.String(klog.Dir, s.table.SrcDir))

	events := s.events(ctx, watcher)
	for {
		select {
		case <-ctx.Done():
			return nil
		case path, ok := <-events:
			if !ok {
				return nil
			}
			s.Handle(path)
		}
	}
}

// events normalises fsnotify events into absolute paths on a channel, adding
// newly created directories to the watch set on the way.
func (s *Scheduler) events(ctx context.Context, watcher *fsnotify.Watcher) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&relevantOps == 0 {
					continue
				}
				path := event.Name
				if abs, err := filepath.Abs(path); err == nil {
					path = abs
				}
				changed := []string{path}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(path); err == nil && info.IsDir() {
						// Files can land in a new directory before it is watched.
						changed = s.filesBelow(path)
						if err := s.addTree(watcher, path); err != nil {
							slog.Warn("could not watch new directory",
								slog.Any(klog.Error, &step.Error{Kind: step.WatchSetup, Step: "watch", Path: path, Err: err}))
						}
					}
				}
				for _, p := range changed {
					select {
					case out <- p:
					case <-ctx.Done():
						return
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("watcher error", slog.Any(klog.Error, err))
			}
		}
	}()
	return out
}

// Handle routes a changed path to every binding whose watch pattern it
// matches. Paths inside the output root are ignored.
func (s *Scheduler) Handle(path string) {
	if rel, err := filepath.Rel(s.table.DistDir, path); err == nil && filepath.IsLocal(rel) {
		return
	}

	for _, b := range s.bindings {
		if s.table.WatchMatches(b.class, path) {
			slog.Debug("change queued",
				slog.String(klog.Path, path),
				slog.String(klog.Step, b.class.String()))
			b.enqueue(path)
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, b *binding) {
	name := b.class.String()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}

		if s.debounce > 0 {
			timer := time.NewTimer(s.debounce)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		files := b.take()
		if len(files) == 0 {
			continue
		}

		s.recorder.IncWatchRun(name)
		if _, err := s.dispatcher.RunStep(ctx, name, files...); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("watch run failed",
				slog.String(klog.Step, name),
				slog.Int(klog.Files, len(files)),
				slog.Any(klog.Error, err))
		}
		b.idle()
	}
}

func (s *Scheduler) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if path == s.table.DistDir {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

func (s *Scheduler) filesBelow(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err == nil && !entry.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files
}
