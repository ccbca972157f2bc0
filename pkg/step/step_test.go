package step

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaklabco/kiln/internal/dryrun"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/transform"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls map[paths.Class][]string
}

func (r *recordingNotifier) Notify(class paths.Class, written []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = map[paths.Class][]string{}
	}
	r.calls[class] = append(r.calls[class], written...)
}

func write(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func newTable(t *testing.T) *paths.Table {
	t.Helper()
	root := t.TempDir()
	table, err := paths.New(filepath.Join(root, "src"), filepath.Join(root, "dist"))
	require.NoError(t, err)
	return table
}

func copyChain() transform.Chain {
	return transform.Pipe(transform.Through(transform.Identity()), transform.Dest())
}

func failOn(name string) transform.Transform {
	return transform.Func("fail-on-"+name, func(_ context.Context, file transform.File) ([]transform.File, error) {
		if filepath.Base(file.Path) == name {
			return nil, errors.New("boom")
		}
		return []transform.File{file}, nil
	})
}

func TestRunProcessesEverySource(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "index.html"), "<p>index</p>")
	write(t, filepath.Join(table.SrcDir, "about.html"), "<p>about</p>")
	write(t, filepath.Join(table.SrcDir, "partials", "nav.html"), "<nav/>")

	st := New(table.Spec(paths.Markup), copyChain(), WithWorkers(4))
	report, err := st.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, []string{
		filepath.Join(table.DistDir, "about.html"),
		filepath.Join(table.DistDir, "index.html"),
	}, report.Written)

	got, err := os.ReadFile(filepath.Join(table.DistDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<p>index</p>", string(got))
	assert.NoFileExists(t, filepath.Join(table.DistDir, "partials", "nav.html"))
}

func TestRunKeepsStructureBelowSourceBase(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "images", "icons", "a.svg"), "<svg/>")

	st := New(table.Spec(paths.Images), copyChain())
	_, err := st.Run(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(table.DistDir, "images", "icons", "a.svg"))
}

func TestRunFailureIsPerFile(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "good.html"), "ok")
	write(t, filepath.Join(table.SrcDir, "bad.html"), "nope")

	chain := transform.Pipe(
		transform.Through(transform.Identity()),
		transform.Dest(),
		transform.Through(failOn("bad.html")),
		transform.Through(transform.Rename(".min", "")),
		transform.Dest(),
	)
	st := New(table.Spec(paths.Markup), chain, WithWorkers(2))
	report, err := st.Run(context.Background())
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Transform, kind)

	var stepErr *Error
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, filepath.Join(table.SrcDir, "bad.html"), stepErr.Path)
	assert.Equal(t, "markup", stepErr.Step)

	assert.Equal(t, 1, report.Failed)
	assert.FileExists(t, filepath.Join(table.DistDir, "good.html"))
	assert.FileExists(t, filepath.Join(table.DistDir, "good.min.html"))
	// Nothing of the failed file is written, not even its first artifact.
	assert.NoFileExists(t, filepath.Join(table.DistDir, "bad.html"))
	assert.NoFileExists(t, filepath.Join(table.DistDir, "bad.min.html"))
}

func TestRunPartial(t *testing.T) {
	table := newTable(t)
	a := filepath.Join(table.SrcDir, "a.html")
	b := filepath.Join(table.SrcDir, "b.html")
	write(t, a, "a")
	write(t, b, "b")

	st := New(table.Spec(paths.Markup), copyChain(), WithPartial())
	report, err := st.Run(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(table.DistDir, "a.html")}, report.Written)
	assert.NoFileExists(t, filepath.Join(table.DistDir, "b.html"))
}

func TestRunPartialWithForeignFileRunsEverything(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "a.html"), "a")
	nested := filepath.Join(table.SrcDir, "partials", "nav.html")
	write(t, nested, "nav")

	st := New(table.Spec(paths.Markup), copyChain(), WithPartial())
	report, err := st.Run(context.Background(), nested)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.FileExists(t, filepath.Join(table.DistDir, "a.html"))
}

func TestRunPartialRemovedSourceIsNoop(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "a.html"), "a")

	st := New(table.Spec(paths.Markup), copyChain(), WithPartial())
	report, err := st.Run(context.Background(), filepath.Join(table.SrcDir, "gone.html"))
	require.NoError(t, err)
	assert.Zero(t, report.Files)
	assert.NoFileExists(t, filepath.Join(table.DistDir, "a.html"))
}

func TestRunNonPartialIgnoresFiles(t *testing.T) {
	table := newTable(t)
	a := filepath.Join(table.SrcDir, "a.html")
	write(t, a, "a")
	write(t, filepath.Join(table.SrcDir, "b.html"), "b")

	st := New(table.Spec(paths.Markup), copyChain())
	report, err := st.Run(context.Background(), a)
	require.NoError(t, err)
	assert.Len(t, report.Written, 2)
}

func TestRunMissingSourceBase(t *testing.T) {
	table := newTable(t)
	st := New(table.Spec(paths.Fonts), copyChain())
	report, err := st.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Files)
	assert.NoDirExists(t, filepath.Join(table.DistDir, "fonts"))
}

func TestRunNotifies(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "a.html"), "a")

	notifier := &recordingNotifier{}
	st := New(table.Spec(paths.Markup), copyChain())
	st.SetNotifier(notifier)

	_, err := st.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(table.DistDir, "a.html")}, notifier.calls[paths.Markup])

	st.SetNotifier(nil)
	_, err = st.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.calls[paths.Markup], 1)
}

func TestRunWriteError(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "images", "a.png"), "png")
	// A regular file where the output directory should be.
	write(t, filepath.Join(table.DistDir, "images"), "blocker")

	st := New(table.Spec(paths.Images), copyChain())
	_, err := st.Run(context.Background())
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Write, kind)
}

func TestRunWriteErrorCommitsNoArtifactOfTheFile(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "a.html"), "a")
	write(t, filepath.Join(table.SrcDir, "b.html"), "b")
	// A non-empty directory where a.min.html should go: staging succeeds,
	// renaming into place does not.
	write(t, filepath.Join(table.DistDir, "a.min.html", "keep"), "x")

	chain := transform.Pipe(
		transform.Through(transform.Identity()),
		transform.Dest(),
		transform.Through(transform.Rename(".min", "")),
		transform.Dest(),
	)
	st := New(table.Spec(paths.Markup), chain)
	report, err := st.Run(context.Background())
	require.Error(t, err)

	var stepErr *Error
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, Write, stepErr.Kind)
	assert.Equal(t, filepath.Join(table.DistDir, "a.min.html"), stepErr.Path)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{
		filepath.Join(table.DistDir, "b.html"),
		filepath.Join(table.DistDir, "b.min.html"),
	}, report.Written)
	assert.NoFileExists(t, filepath.Join(table.DistDir, "a.html"))

	entries, err := os.ReadDir(table.DistDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"a.min.html", "b.html", "b.min.html"}, names, "no temp files left behind")
}

func TestRunRejectsArtifactOutsideOutputDir(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "fonts", "a.woff"), "woff")

	escape := transform.Func("escape", func(_ context.Context, file transform.File) ([]transform.File, error) {
		file.Path = filepath.Join("..", file.Path)
		return []transform.File{file}, nil
	})
	st := New(table.Spec(paths.Fonts), transform.Pipe(transform.Through(escape), transform.Dest()))
	report, err := st.Run(context.Background())
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Write, kind)
	assert.Empty(t, report.Written)
	assert.NoFileExists(t, filepath.Join(table.DistDir, "a.woff"))
}

func TestRunOverwritesExistingOutput(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "a.html"), "new")
	write(t, filepath.Join(table.DistDir, "a.html"), "old")

	st := New(table.Spec(paths.Markup), copyChain())
	_, err := st.Run(context.Background())
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(table.DistDir, "a.html"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	entries, err := os.ReadDir(table.DistDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dryrun.SetRequested(true)
	t.Cleanup(func() { dryrun.SetRequested(false) })

	table := newTable(t)
	write(t, filepath.Join(table.SrcDir, "a.html"), "a")

	st := New(table.Spec(paths.Markup), copyChain())
	report, err := st.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Written, 1)
	assert.NoDirExists(t, table.DistDir)
}

func TestClean(t *testing.T) {
	table := newTable(t)
	write(t, filepath.Join(table.DistDir, "css", "style.css"), "x")

	clean := NewClean(table.DistDir)
	_, err := clean.Run(context.Background())
	require.NoError(t, err)
	assert.NoDirExists(t, table.DistDir)

	// Idempotent on a missing output root.
	_, err = clean.Run(context.Background())
	require.NoError(t, err)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Kind: SourceRead, Step: "styles", Path: "/src/scss/style.scss", Err: os.ErrNotExist}
	assert.Equal(t, "styles: source read error: /src/scss/style.scss: file does not exist", err.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "watch setup error", WatchSetup.String())
}
