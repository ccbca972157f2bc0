package paths

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/lo"
)

const globstarSegment = "**/"

// Pattern is a compiled, slash-separated glob. "*" stays within one path
// segment, "**" crosses segments, and a "**/" segment also matches zero
// directories, so "**/*.html" matches "index.html" as well as "a/b/index.html".
type Pattern struct {
	raw   string
	globs []glob.Glob
}

// CompilePattern compiles raw into a Pattern.
func CompilePattern(raw string) (Pattern, error) {
	variants := lo.Uniq(globstarVariants(raw))
	globs := make([]glob.Glob, 0, len(variants))
	for _, variant := range variants {
		g, err := glob.Compile(variant, '/')
		if err != nil {
			return Pattern{}, fmt.Errorf("compiling glob %q: %w", raw, err)
		}
		globs = append(globs, g)
	}
	return Pattern{raw: raw, globs: globs}, nil
}

// MustCompilePattern is CompilePattern for patterns known at compile time.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern as written.
func (p Pattern) String() string {
	return p.raw
}

// Match reports whether the relative path matches the pattern. OS-specific
// separators are normalised before matching.
func (p Pattern) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	return lo.SomeBy(p.globs, func(g glob.Glob) bool {
		return g.Match(rel)
	})
}

// HasSeparator reports whether the pattern can only match paths below the
// directory it is relative to.
func (p Pattern) HasSeparator() bool {
	return strings.Contains(p.raw, "/")
}

// globstarVariants returns raw plus every variant with some "**/" segments
// dropped.
func globstarVariants(raw string) []string {
	idx := strings.Index(raw, globstarSegment)
	if idx == -1 {
		return []string{raw}
	}

	head := raw[:idx]
	tails := globstarVariants(raw[idx+len(globstarSegment):])
	variants := make([]string, 0, 2*len(tails))
	for _, tail := range tails {
		variants = append(variants, head+globstarSegment+tail, head+tail)
	}
	return variants
}
