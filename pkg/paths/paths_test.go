package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
}

func TestPatternGlobstarMatchesZeroDirectories(t *testing.T) {
	p := MustCompilePattern("**/*.{jpg,png}")

	assert.True(t, p.Match("logo.png"))
	assert.True(t, p.Match("icons/logo.png"))
	assert.True(t, p.Match("a/b/c/photo.jpg"))
	assert.False(t, p.Match("notes.txt"))
	assert.False(t, p.Match("icons/logo.gif"))
}

func TestPatternStarStaysInSegment(t *testing.T) {
	p := MustCompilePattern("*.html")

	assert.True(t, p.Match("index.html"))
	assert.False(t, p.Match("partials/header.html"))
	assert.False(t, p.HasSeparator())
}

func TestClassNames(t *testing.T) {
	names := make([]string, 0, len(Classes()))
	for _, c := range Classes() {
		names = append(names, c.String())
		parsed, ok := ParseClass(c.String())
		require.True(t, ok)
		assert.Equal(t, c, parsed)
	}
	assert.Equal(t, []string{"markup", "styles", "scripts", "images", "fonts"}, names)

	_, ok := ParseClass("clean")
	assert.False(t, ok)
}

func TestNewLayout(t *testing.T) {
	table, err := New("/site/src", "/site/dist")
	require.NoError(t, err)

	assert.Equal(t, "/site/dist", table.Spec(Markup).OutputDir)
	assert.Equal(t, "/site/dist/css", table.Spec(Styles).OutputDir)
	assert.Equal(t, "/site/src/scss", table.Spec(Styles).SourceBase)
	assert.Equal(t, "/site/dist/js", table.Spec(Scripts).OutputDir)
	assert.Equal(t, "/site/dist/images", table.Spec(Images).OutputDir)
	assert.Equal(t, "/site/dist/fonts", table.Spec(Fonts).OutputDir)
	assert.Len(t, table.Specs(), len(Classes()))
}

func TestWatchMatches(t *testing.T) {
	table, err := New("/site/src", "/site/dist")
	require.NoError(t, err)

	tests := []struct {
		path string
		want Class
	}{
		{"/site/src/index.html", Markup},
		{"/site/src/partials/nav.html", Markup},
		{"/site/src/scss/_variables.scss", Styles},
		{"/site/src/js/main.js", Scripts},
		{"/site/src/images/icons/logo.svg", Images},
		{"/site/src/fonts/inter.woff2", Fonts},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			for _, c := range Classes() {
				assert.Equal(t, c == tt.want, table.WatchMatches(c, tt.path), "class %s", c)
			}
		})
	}

	for _, c := range Classes() {
		assert.False(t, table.WatchMatches(c, "/elsewhere/index.html"))
	}
}

func TestExpandAndOutputPath(t *testing.T) {
	src := t.TempDir()
	touch(t, filepath.Join(src, "images", "b.png"))
	touch(t, filepath.Join(src, "images", "icons", "a.svg"))
	touch(t, filepath.Join(src, "images", "readme.txt"))
	touch(t, filepath.Join(src, "index.html"))
	touch(t, filepath.Join(src, "partials", "nav.html"))

	table, err := New(src, filepath.Join(t.TempDir(), "dist"))
	require.NoError(t, err)

	images, err := table.Spec(Images).Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(src, "images", "b.png"),
		filepath.Join(src, "images", "icons", "a.svg"),
	}, images)

	out, err := table.Spec(Images).OutputPath(filepath.Join("icons", "a.svg"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(table.DistDir, "images", "icons", "a.svg"), out)

	markup, err := table.Spec(Markup).Expand()
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(src, "index.html")}, markup)

	for _, rel := range []string{filepath.Join("..", "index.html"), images[1], ""} {
		_, err = table.Spec(Images).OutputPath(rel)
		assert.Error(t, err, rel)
	}
}

func TestExpandMissingBase(t *testing.T) {
	table, err := New(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	require.NoError(t, err)

	files, err := table.Spec(Fonts).Expand()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSpecMatches(t *testing.T) {
	table, err := New("/site/src", "/site/dist")
	require.NoError(t, err)

	assert.True(t, table.Spec(Styles).Matches("/site/src/scss/style.scss"))
	assert.False(t, table.Spec(Styles).Matches("/site/src/scss/_partial.scss"))
	assert.True(t, table.Spec(Markup).Matches("/site/src/about.html"))
	assert.False(t, table.Spec(Markup).Matches("/site/src/partials/nav.html"))
}
