package build

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"
)

// Digest hashes every regular file below dir, by relative path and contents,
// in lexical order. Equal trees have equal digests. A missing dir digests as
// an empty tree.
func Digest(dir string) (string, error) {
	hasher := blake3.New()

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == dir {
				return fs.SkipAll
			}
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(hasher, "%s\x00", filepath.ToSlash(rel))

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := io.Copy(hasher, f)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(hasher, "\x00%d\x00", n)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("digesting %s: %w", dir, err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
