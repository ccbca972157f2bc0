package fsutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruePath(t *testing.T) {
	tempDir := t.TempDir()
	realDir := filepath.Join(tempDir, "real")
	require.NoError(t, os.Mkdir(realDir, 0o755))

	// On macOS the temp dir itself lives behind the /var -> /private/var symlink.
	resolvedReal, err := filepath.EvalSymlinks(realDir)
	require.NoError(t, err)

	path, err := TruePath(realDir)
	require.NoError(t, err)
	assert.Equal(t, resolvedReal, path)

	link := filepath.Join(tempDir, "link")
	require.NoError(t, os.Symlink(realDir, link))

	path, err = TruePath(link)
	require.NoError(t, err)
	assert.Equal(t, resolvedReal, path)

	path, err = TruePath(filepath.Join(link, "not", "yet"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(resolvedReal, "not", "yet"), path)
}
