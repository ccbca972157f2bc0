// Package fsutils resolves filesystem paths.
package fsutils

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// TruePath returns the absolute, symlink-free form of path. Trailing
// components that do not exist yet are kept as given below their deepest
// existing ancestor, so output roots can be compared before they are created.
func TruePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	var missing []string
	current := abs
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to resolve symlinks: %w", err)
		}

		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		missing = append([]string{filepath.Base(current)}, missing...)
		current = parent
	}
}
