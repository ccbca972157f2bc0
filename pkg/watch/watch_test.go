package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/step"
)

type call struct {
	name  string
	files []string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []call
	gate  chan struct{}
	fail  bool
}

func (f *fakeDispatcher) RunStep(ctx context.Context, name string, files ...string) (step.Report, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, files: files})
	gate, fail := f.gate, f.fail
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return step.Report{}, ctx.Err()
		}
	}
	if fail {
		return step.Report{Step: name}, errors.New("boom")
	}
	return step.Report{Step: name}, nil
}

func (f *fakeDispatcher) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTable(t *testing.T) *paths.Table {
	t.Helper()
	root := t.TempDir()
	table, err := paths.New(filepath.Join(root, "src"), filepath.Join(root, "dist"))
	require.NoError(t, err)
	return table
}

// startDispatchers runs the binding dispatchers without a file watcher.
func startDispatchers(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for _, b := range s.bindings {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dispatch(ctx, b)
		}()
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func TestHandleRoutesToMatchingBindingOnly(t *testing.T) {
	table := newTable(t)
	fake := &fakeDispatcher{}
	s := New(table, fake)
	startDispatchers(t, s)

	changed := filepath.Join(table.SrcDir, "scss", "_variables.scss")
	s.Handle(changed)

	require.Eventually(t, func() bool { return len(fake.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	// Give any wrongly queued binding a chance to show up.
	time.Sleep(50 * time.Millisecond)

	calls := fake.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "styles", calls[0].name)
	assert.Equal(t, []string{changed}, calls[0].files)
}

func TestHandleIgnoresUnmatchedAndOutputPaths(t *testing.T) {
	table := newTable(t)
	fake := &fakeDispatcher{}
	s := New(table, fake)
	startDispatchers(t, s)

	s.Handle(filepath.Join(table.SrcDir, "notes.txt"))
	s.Handle(filepath.Join(table.SrcDir, "scss", "nested", "deep.scss"))
	s.Handle(filepath.Join(table.DistDir, "index.html"))

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, fake.snapshot())
}

func TestChangesDuringDispatchCoalesceIntoOneRerun(t *testing.T) {
	table := newTable(t)
	fake := &fakeDispatcher{gate: make(chan struct{})}
	s := New(table, fake)
	startDispatchers(t, s)

	first := filepath.Join(table.SrcDir, "a.html")
	s.Handle(first)
	require.Eventually(t, func() bool { return s.State(paths.Markup) == Dispatching }, 2*time.Second, 5*time.Millisecond)

	later := []string{
		filepath.Join(table.SrcDir, "b.html"),
		filepath.Join(table.SrcDir, "c.html"),
		filepath.Join(table.SrcDir, "b.html"),
	}
	for _, path := range later {
		s.Handle(path)
	}
	close(fake.gate)

	require.Eventually(t, func() bool { return len(fake.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.State(paths.Markup) == Idle }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	calls := fake.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, []string{first}, calls[0].files)
	assert.Equal(t, later[:2], calls[1].files)
}

func TestDebounceCollapsesBurst(t *testing.T) {
	table := newTable(t)
	fake := &fakeDispatcher{}
	s := New(table, fake, WithDebounce(100*time.Millisecond))
	startDispatchers(t, s)

	for _, name := range []string{"a.png", "b.png", "c.png"} {
		s.Handle(filepath.Join(table.SrcDir, "images", name))
	}

	require.Eventually(t, func() bool { return len(fake.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	calls := fake.snapshot()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].files, 3)
}

func TestFailuresDoNotStopDispatch(t *testing.T) {
	table := newTable(t)
	fake := &fakeDispatcher{fail: true}
	s := New(table, fake)
	startDispatchers(t, s)

	s.Handle(filepath.Join(table.SrcDir, "js", "app.js"))
	require.Eventually(t, func() bool { return len(fake.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return s.State(paths.Scripts) == Idle }, 2*time.Second, 5*time.Millisecond)

	s.Handle(filepath.Join(table.SrcDir, "js", "app.js"))
	require.Eventually(t, func() bool { return len(fake.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestRunMissingSourceRoot(t *testing.T) {
	table := newTable(t)
	s := New(table, &fakeDispatcher{})

	err := s.Run(context.Background())
	require.Error(t, err)
	kind, ok := step.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, step.WatchSetup, kind)
}

func TestRunDispatchesFileSystemChanges(t *testing.T) {
	table := newTable(t)
	require.NoError(t, os.MkdirAll(filepath.Join(table.SrcDir, "fonts"), 0o755))

	fake := &fakeDispatcher{}
	s := New(table, fake)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	font := filepath.Join(table.SrcDir, "fonts", "body.woff2")
	// The watcher may not be registered yet on the first write; keep touching
	// the file until a run is dispatched.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(font, []byte("woff2"), 0o644)
		calls := fake.snapshot()
		return len(calls) > 0
	}, 5*time.Second, 50*time.Millisecond)

	for _, c := range fake.snapshot() {
		assert.Equal(t, "fonts", c.name)
	}

	// A directory created after startup is picked up too.
	icon := filepath.Join(table.SrcDir, "images", "icons", "star.svg")
	require.NoError(t, os.MkdirAll(filepath.Dir(icon), 0o755))
	require.Eventually(t, func() bool {
		_ = os.WriteFile(icon, []byte("<svg/>"), 0o644)
		for _, c := range fake.snapshot() {
			if c.name == "images" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "dispatching", Dispatching.String())
}
