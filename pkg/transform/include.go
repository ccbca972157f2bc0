package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
)

// ErrIncludeCycle is returned when a file includes itself, directly or not.
var ErrIncludeCycle = errors.New("include cycle")

// includeDirective matches a line consisting of an include marker:
//
//	//= path/to/file.js
//	/*= path/to/file.js */
var includeDirective = regexp.MustCompile(`(?m)^([ \t]*)(?://=[ \t]*(\S+)[ \t]*|/\*=[ \t]*(\S+)[ \t]*\*/[ \t]*)\r?$`) //nolint:gochecknoglobals,lll // compiled once

// Includes expands include markers found in source comments, recursively.
// Paths are relative to the file containing the marker; included content keeps
// the marker's indentation.
func Includes() Transform {
	return Contents("include", func(_ context.Context, file File) ([]byte, error) {
		return expandIncludes(file.Source, file.Contents, []string{filepath.Clean(file.Source)})
	})
}

func expandIncludes(source string, contents []byte, stack []string) ([]byte, error) {
	matches := includeDirective.FindAllSubmatchIndex(contents, -1)
	if len(matches) == 0 {
		return contents, nil
	}

	var out bytes.Buffer
	out.Grow(len(contents))
	last := 0
	for _, m := range matches {
		out.Write(contents[last:m[0]])
		last = m[1]

		indent := contents[m[2]:m[3]]
		target := submatch(contents, m, 2)
		if target == "" {
			target = submatch(contents, m, 3)
		}

		path := filepath.Clean(filepath.Join(filepath.Dir(source), filepath.FromSlash(target)))
		if slices.Contains(stack, path) {
			return nil, fmt.Errorf("%w: %s includes %s", ErrIncludeCycle, source, path)
		}

		included, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: include %q: %w", source, target, err)
		}
		included, err = expandIncludes(path, included, append(stack, path))
		if err != nil {
			return nil, err
		}

		writeIndented(&out, indent, bytes.TrimRight(included, "\r\n"))
	}
	out.Write(contents[last:])

	return out.Bytes(), nil
}

func submatch(contents []byte, m []int, group int) string {
	start, end := m[2*group], m[2*group+1]
	if start < 0 {
		return ""
	}
	return string(contents[start:end])
}

func writeIndented(out *bytes.Buffer, indent, text []byte) {
	for i, line := range bytes.Split(text, []byte("\n")) {
		if i > 0 {
			out.WriteByte('\n')
		}
		if len(line) > 0 {
			out.Write(indent)
		}
		out.Write(line)
	}
}
