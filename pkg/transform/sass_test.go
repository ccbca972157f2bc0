package transform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireSass(t *testing.T) *Sass {
	t.Helper()
	if !SassAvailable("sass") {
		t.Skip("dart sass not on PATH")
	}
	compiler := NewSass("sass")
	t.Cleanup(func() { _ = compiler.Close() })
	return compiler
}

func TestSassResolvesPartials(t *testing.T) {
	compiler := requireSass(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_variables.scss"), []byte("$brand: #123457;\n"), 0o644))
	source := filepath.Join(dir, "style.scss")
	contents := []byte("@import 'variables';\n.button { color: $brand; }\n")

	out, err := compiler.Apply(context.Background(), File{Source: source, Path: "style.scss", Contents: contents})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "style.css", out[0].Path)
	assert.Contains(t, string(out[0].Contents), "color: #123457;")
}

func TestSassSyntaxError(t *testing.T) {
	compiler := requireSass(t)

	source := filepath.Join(t.TempDir(), "style.scss")
	_, err := compiler.Apply(context.Background(), File{Source: source, Path: "style.scss", Contents: []byte(".a { color: ")})
	require.Error(t, err)
}

func TestSassMissingBinary(t *testing.T) {
	compiler := NewSass("definitely-not-a-sass-binary")
	_, err := compiler.Apply(context.Background(), File{Path: "style.scss"})
	require.ErrorIs(t, err, ErrSassNotFound)
	require.NoError(t, compiler.Close())
}
