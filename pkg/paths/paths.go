// Package paths holds the static path table: for every asset class, where its
// sources live, which of them are processed, what the watcher reacts to, and
// where the output goes.
package paths

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Source-tree layout.
const (
	StylesDir  = "scss"
	ScriptsDir = "js"
	ImagesDir  = "images"
	FontsDir   = "fonts"

	// StylesOutDir is the styles output subdirectory; the sources live in StylesDir.
	StylesOutDir = "css"

	imageExts = "{jpg,svg,png,gif,webp,ico,webmanifest,xml,json}"
	fontExts  = "{eot,woff,woff2,ttf,svg}"
)

// ErrOverlap is returned when two asset classes would write to the same subtree.
var ErrOverlap = errors.New("output directories overlap")

// Spec maps one asset class to its sources and outputs. It is immutable once
// the Table has been built.
type Spec struct {
	Class Class

	// SourceBase is the directory Source is relative to; output paths preserve
	// the structure below it.
	SourceBase string

	// Source selects the files the class's step processes.
	Source Pattern

	// Watch selects, relative to the source root, the files whose change
	// re-runs the step.
	Watch Pattern

	// OutputDir receives the step's artifacts.
	OutputDir string
}

// Expand returns the absolute paths of every file below SourceBase matching
// Source, sorted. A missing SourceBase yields no files.
func (s Spec) Expand() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.SourceBase, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.SourceBase {
				return fs.SkipAll
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.SourceBase, path)
		if err != nil {
			return err
		}
		if s.Source.Match(rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expanding %s sources in %s: %w", s.Class, s.SourceBase, err)
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether the absolute path is one of the class's sources.
func (s Spec) Matches(path string) bool {
	rel, ok := relBelow(s.SourceBase, path)
	return ok && s.Source.Match(rel)
}

// OutputPath maps an artifact path, relative to SourceBase, into OutputDir.
// Paths that would land outside OutputDir are rejected.
func (s Spec) OutputPath(rel string) (string, error) {
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%s artifact %q escapes %s", s.Class, rel, s.OutputDir)
	}
	return filepath.Join(s.OutputDir, rel), nil
}

// Table is the path table for one source root and one output root.
type Table struct {
	SrcDir  string
	DistDir string

	specs []Spec
}

// New builds the path table for the given roots and checks that no two asset
// classes share an output subtree.
func New(srcDir, distDir string) (*Table, error) {
	srcDir = filepath.Clean(srcDir)
	distDir = filepath.Clean(distDir)

	table := &Table{
		SrcDir:  srcDir,
		DistDir: distDir,
		specs: []Spec{
			Markup: {
				Class:      Markup,
				SourceBase: srcDir,
				Source:     MustCompilePattern("*.html"),
				Watch:      MustCompilePattern("**/*.html"),
				OutputDir:  distDir,
			},
			Styles: {
				Class:      Styles,
				SourceBase: filepath.Join(srcDir, StylesDir),
				Source:     MustCompilePattern("style.scss"),
				Watch:      MustCompilePattern(StylesDir + "/*.scss"),
				OutputDir:  filepath.Join(distDir, StylesOutDir),
			},
			Scripts: {
				Class:      Scripts,
				SourceBase: filepath.Join(srcDir, ScriptsDir),
				Source:     MustCompilePattern("*.js"),
				Watch:      MustCompilePattern(ScriptsDir + "/*.js"),
				OutputDir:  filepath.Join(distDir, ScriptsDir),
			},
			Images: {
				Class:      Images,
				SourceBase: filepath.Join(srcDir, ImagesDir),
				Source:     MustCompilePattern("**/*." + imageExts),
				Watch:      MustCompilePattern(ImagesDir + "/**/*." + imageExts),
				OutputDir:  filepath.Join(distDir, ImagesDir),
			},
			Fonts: {
				Class:      Fonts,
				SourceBase: filepath.Join(srcDir, FontsDir),
				Source:     MustCompilePattern("**/*." + fontExts),
				Watch:      MustCompilePattern(FontsDir + "/**/*." + fontExts),
				OutputDir:  filepath.Join(distDir, FontsDir),
			},
		},
	}

	if err := table.validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Spec returns the spec of one asset class.
func (t *Table) Spec(class Class) Spec {
	return t.specs[class]
}

// Specs returns every spec in class order.
func (t *Table) Specs() []Spec {
	return append([]Spec(nil), t.specs...)
}

// WatchMatches reports whether a change to the absolute path should re-run
// the class's step.
func (t *Table) WatchMatches(class Class, path string) bool {
	rel, ok := relBelow(t.SrcDir, path)
	return ok && t.specs[class].Watch.Match(rel)
}

// validate enforces that concurrent steps never write the same files: every
// output dir lives under DistDir, subtree outputs are pairwise disjoint, and a
// class writing to DistDir itself only produces top-level files.
func (t *Table) validate() error {
	for i, a := range t.specs {
		if a.OutputDir != t.DistDir {
			if _, ok := relBelow(t.DistDir, a.OutputDir); !ok {
				return fmt.Errorf("%s output %s is outside %s: %w", a.Class, a.OutputDir, t.DistDir, ErrOverlap)
			}
		} else if a.Source.HasSeparator() {
			return fmt.Errorf("%s writes to the output root and may create subdirectories: %w", a.Class, ErrOverlap)
		}

		for _, b := range t.specs[i+1:] {
			if a.OutputDir == t.DistDir || b.OutputDir == t.DistDir {
				if a.OutputDir == b.OutputDir {
					return fmt.Errorf("%s and %s both write to %s: %w", a.Class, b.Class, a.OutputDir, ErrOverlap)
				}
				continue
			}
			if a.OutputDir == b.OutputDir || within(a.OutputDir, b.OutputDir) || within(b.OutputDir, a.OutputDir) {
				return fmt.Errorf("%s (%s) and %s (%s): %w", a.Class, a.OutputDir, b.Class, b.OutputDir, ErrOverlap)
			}
		}
	}
	return nil
}

// relBelow returns path relative to base when path is base itself or below it.
func relBelow(base, path string) (string, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func within(child, parent string) bool {
	rel, ok := relBelow(parent, child)
	return ok && rel != "."
}
