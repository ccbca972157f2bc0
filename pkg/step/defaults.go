package step

import (
	"fmt"
	"log/slog"
	"strings"

	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/transform"
)

// Options tune the standard steps.
type Options struct {
	// Browsers are the vendor-prefixing targets, e.g. "safari11".
	Browsers []string

	JPEGQuality int

	// MinSuffix is inserted before the extension of minified artifacts.
	MinSuffix string

	SassBinary string

	// StyleCompiler turns a stylesheet entry into CSS. Nil starts Dart Sass
	// from SassBinary.
	StyleCompiler transform.Transform

	// Workers bounds per-step file concurrency.
	Workers int
}

// Set is the standard collection of transform steps for one path table.
type Set struct {
	Clean *Clean
	Steps []*Step

	sass *transform.Sass
}

// NewSet builds the standard steps:
//
//	markup:  copy
//	styles:  sass, prefix, beautify -> dest; minify, strip comments, rename -> dest
//	scripts: includes -> dest; minify, rename -> dest
//	images:  jpeg recompression -> dest
//	fonts:   copy
func NewSet(table *paths.Table, opts Options) (*Set, error) {
	engines, err := transform.ParseEngines(opts.Browsers)
	if err != nil {
		return nil, fmt.Errorf("parsing browser targets: %w", err)
	}

	set := &Set{Clean: NewClean(table.DistDir)}
	compiler := opts.StyleCompiler
	if compiler == nil {
		set.sass = transform.NewSass(opts.SassBinary)
		compiler = set.sass
	}
	minifier := transform.NewMinifier()
	workers := WithWorkers(opts.Workers)

	chains := map[paths.Class]transform.Chain{
		paths.Markup: transform.Pipe(
			transform.Through(transform.Identity()),
			transform.Dest(),
		),
		paths.Styles: transform.Pipe(
			transform.Through(compiler),
			transform.Through(transform.Prefix(engines)),
			transform.Through(transform.Beautify()),
			transform.Dest(),
			transform.Through(minifier.CSS()),
			transform.Through(transform.StripComments()),
			transform.Through(transform.Rename(opts.MinSuffix, ".css")),
			transform.Dest(),
		),
		paths.Scripts: transform.Pipe(
			transform.Through(transform.Includes()),
			transform.Dest(),
			transform.Through(minifier.JS()),
			transform.Through(transform.Rename(opts.MinSuffix, ".js")),
			transform.Dest(),
		),
		paths.Images: transform.Pipe(
			transform.Through(transform.JPEG(opts.JPEGQuality)),
			transform.Dest(),
		),
		paths.Fonts: transform.Pipe(
			transform.Through(transform.Identity()),
			transform.Dest(),
		),
	}

	for _, spec := range table.Specs() {
		stepOpts := []Option{workers}
		// Stylesheets pull in partials and scripts pull in includes, so a
		// change to one file can affect any output of those classes.
		if spec.Class != paths.Styles && spec.Class != paths.Scripts {
			stepOpts = append(stepOpts, WithPartial())
		}
		chain := chains[spec.Class]
		slog.Debug("step ready",
			slog.String(klog.Step, spec.Class.String()),
			slog.String(klog.Chain, strings.Join(chain.Names(), " > ")))
		set.Steps = append(set.Steps, New(spec, chain, stepOpts...))
	}
	return set, nil
}

// Step returns the step for class.
func (s *Set) Step(class paths.Class) *Step {
	for _, st := range s.Steps {
		if st.Class() == class {
			return st
		}
	}
	return nil
}

// Lookup finds a runner by name, including Clean.
func (s *Set) Lookup(name string) (Runner, bool) {
	if name == CleanName {
		return s.Clean, true
	}
	class, ok := paths.ParseClass(name)
	if !ok {
		return nil, false
	}
	st := s.Step(class)
	if st == nil {
		return nil, false
	}
	return st, true
}

// SetNotifier attaches n to every step.
func (s *Set) SetNotifier(n Notifier) {
	for _, st := range s.Steps {
		st.SetNotifier(n)
	}
}

// Close stops the style compiler if it was started.
func (s *Set) Close() error {
	if s.sass == nil {
		return nil
	}
	return s.sass.Close()
}
