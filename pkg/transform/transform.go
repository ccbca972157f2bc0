// Package transform adapts third-party content transformers (style compiler,
// vendor-prefixer, minifiers, comment stripper, image codec, include resolver)
// to one signature and composes them into chains with write points.
package transform

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// File is one artifact flowing through a chain.
type File struct {
	// Source is the absolute path of the source file the artifact came from.
	Source string

	// Path is the artifact's path relative to the step's output directory.
	Path string

	Contents []byte
}

// Transform maps one file to zero or more files. Implementations must not
// modify the input's Contents in place.
type Transform interface {
	Name() string
	Apply(ctx context.Context, file File) ([]File, error)
}

type namedFunc struct {
	name string
	fn   func(ctx context.Context, file File) ([]File, error)
}

func (n namedFunc) Name() string { return n.name }

func (n namedFunc) Apply(ctx context.Context, file File) ([]File, error) {
	return n.fn(ctx, file)
}

// Func wraps a function as a Transform.
func Func(name string, fn func(ctx context.Context, file File) ([]File, error)) Transform {
	return namedFunc{name: name, fn: fn}
}

// Contents wraps a function over file contents as a Transform that keeps the
// path unchanged.
func Contents(name string, fn func(ctx context.Context, file File) ([]byte, error)) Transform {
	return Func(name, func(ctx context.Context, file File) ([]File, error) {
		out, err := fn(ctx, file)
		if err != nil {
			return nil, err
		}
		file.Contents = out
		return []File{file}, nil
	})
}

// Identity passes the file through unchanged.
func Identity() Transform {
	return Func("identity", func(_ context.Context, file File) ([]File, error) {
		return []File{file}, nil
	})
}

// Rename inserts suffix before the extension and replaces the extension with
// ext: Rename(".min", ".css") turns "style.css" into "style.min.css".
func Rename(suffix, ext string) Transform {
	return Func("rename", func(_ context.Context, file File) ([]File, error) {
		dir, base := filepath.Split(file.Path)
		stem := strings.TrimSuffix(base, filepath.Ext(base))
		newExt := ext
		if newExt == "" {
			newExt = filepath.Ext(base)
		}
		file.Path = dir + stem + suffix + newExt
		return []File{file}, nil
	})
}

// Stage is one element of a Chain: either a transform or a write point.
type Stage struct {
	transform Transform
	dest      bool
}

// Through makes a transform stage.
func Through(t Transform) Stage {
	return Stage{transform: t}
}

// Dest marks a write point: every file reaching it becomes an artifact of the
// chain, and processing continues with the same files. Two Dest stages give a
// fan-out artifact pair from one shared prefix.
func Dest() Stage {
	return Stage{dest: true}
}

// Chain is an ordered list of stages.
type Chain []Stage

// Pipe builds a chain.
func Pipe(stages ...Stage) Chain {
	return Chain(stages)
}

// Names lists the chain's stages, "dest" for write points.
func (c Chain) Names() []string {
	names := make([]string, 0, len(c))
	for _, stage := range c {
		if stage.dest {
			names = append(names, "dest")
			continue
		}
		names = append(names, stage.transform.Name())
	}
	return names
}

// Run applies the chain to one file and returns every artifact that reached a
// write point, in order. Nothing is written here: on error no artifact of the
// file is returned, so callers can commit all-or-nothing per file.
func (c Chain) Run(ctx context.Context, file File) ([]File, error) {
	current := []File{file}
	var artifacts []File

	for _, stage := range c {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if stage.dest {
			artifacts = append(artifacts, current...)
			continue
		}

		next := make([]File, 0, len(current))
		for _, f := range current {
			out, err := stage.transform.Apply(ctx, f)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", stage.transform.Name(), err)
			}
			next = append(next, out...)
		}
		current = next
	}

	return artifacts, nil
}
