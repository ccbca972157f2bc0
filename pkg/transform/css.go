package transform

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/gorilla/css/scanner"
	"github.com/samber/lo"
)

var engineTarget = regexp.MustCompile(`^([a-z]+)(\d+(?:\.\d+)*)$`) //nolint:gochecknoglobals // compiled once

//nolint:gochecknoglobals // lookup table
var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// ParseEngines converts targets such as "chrome58" into esbuild engines.
func ParseEngines(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, target := range targets {
		m := engineTarget.FindStringSubmatch(strings.ToLower(target))
		if m == nil {
			return nil, fmt.Errorf("invalid engine target %q", target)
		}
		name, ok := engineNames[m[1]]
		if !ok {
			return nil, fmt.Errorf("unknown engine %q in target %q", m[1], target)
		}
		engines = append(engines, api.Engine{Name: name, Version: m[2]})
	}
	return engines, nil
}

func esbuildCSS(source string, contents []byte, engines []api.Engine) ([]byte, error) {
	protected, comments := protectComments(string(contents))
	result := api.Transform(protected, api.TransformOptions{
		Loader:        api.LoaderCSS,
		Engines:       engines,
		Sourcefile:    source,
		LegalComments: api.LegalCommentsInline,
		LogLevel:      api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, errors.New(strings.Join(lo.Map(result.Errors, func(msg api.Message, _ int) string {
			if msg.Location == nil {
				return msg.Text
			}
			return fmt.Sprintf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text)
		}), "\n"))
	}
	return restoreComments(result.Code, comments), nil
}

// Prefix adds the vendor prefixes the given engines need.
func Prefix(engines []api.Engine) Transform {
	return Contents("prefix", func(_ context.Context, file File) ([]byte, error) {
		return esbuildCSS(file.Source, file.Contents, engines)
	})
}

// Beautify re-prints CSS with one declaration per line and two-space
// indentation. Comments between rules and between declarations are kept.
func Beautify() Transform {
	return Contents("beautify", func(_ context.Context, file File) ([]byte, error) {
		return esbuildCSS(file.Source, file.Contents, nil)
	})
}

// StripComments removes every CSS comment, including "/*!" ones.
func StripComments() Transform {
	return Contents("strip-comments", func(_ context.Context, file File) ([]byte, error) {
		var out strings.Builder
		out.Grow(len(file.Contents))

		scan := scanner.New(string(file.Contents))
		for {
			token := scan.Next()
			switch token.Type {
			case scanner.TokenEOF:
				return []byte(out.String()), nil
			case scanner.TokenError:
				return nil, fmt.Errorf("line %d column %d: %s", token.Line, token.Column, token.Value)
			case scanner.TokenComment:
				continue
			default:
				out.WriteString(token.Value)
			}
		}
	})
}
