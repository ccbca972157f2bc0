package transform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/godartsass/v2"
	klog "github.com/yaklabco/kiln/internal/log"
)

const sassTimeout = 30 * time.Second

// ErrSassNotFound is returned when the Dart Sass executable cannot be found.
var ErrSassNotFound = errors.New("dart sass executable not found")

// Sass compiles SCSS to expanded CSS through an embedded Dart Sass process.
// The process is started on first use and reused; it is safe for concurrent
// use.
type Sass struct {
	binary string

	mu         sync.Mutex
	transpiler *godartsass.Transpiler
}

// NewSass returns a compiler that runs binary (looked up on PATH when not
// absolute). Nothing is started until the first Apply.
func NewSass(binary string) *Sass {
	return &Sass{binary: binary}
}

// SassAvailable reports whether binary can be found.
func SassAvailable(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func (s *Sass) Name() string { return "sass" }

func (s *Sass) start() (*godartsass.Transpiler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transpiler != nil {
		return s.transpiler, nil
	}

	path, err := exec.LookPath(s.binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrSassNotFound, s.binary, err)
	}

	transpiler, err := godartsass.Start(godartsass.Options{
		DartSassEmbeddedFilename: path,
		Timeout:                  sassTimeout,
		LogEventHandler: func(event godartsass.LogEvent) {
			slog.Warn("sass: "+event.Message, slog.String(klog.Kind, fmt.Sprint(event.Type)))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting %s: %w", path, err)
	}

	s.transpiler = transpiler
	return transpiler, nil
}

func (s *Sass) Apply(_ context.Context, file File) ([]File, error) {
	transpiler, err := s.start()
	if err != nil {
		return nil, err
	}

	result, err := transpiler.Execute(godartsass.Args{
		Source:       string(file.Contents),
		URL:          (&url.URL{Scheme: "file", Path: filepath.ToSlash(file.Source)}).String(),
		IncludePaths: []string{filepath.Dir(file.Source)},
		OutputStyle:  godartsass.OutputStyleExpanded,
		SourceSyntax: godartsass.SourceSyntaxSCSS,
	})
	if err != nil {
		if errors.Is(err, godartsass.ErrShutdown) {
			// The process died; the next file starts a fresh one.
			s.reset(transpiler)
		}
		return nil, err
	}

	file.Path = strings.TrimSuffix(file.Path, filepath.Ext(file.Path)) + ".css"
	file.Contents = []byte(result.CSS + "\n")
	return []File{file}, nil
}

func (s *Sass) reset(dead *godartsass.Transpiler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transpiler == dead {
		s.transpiler = nil
	}
}

// Close stops the Dart Sass process, if one was started.
func (s *Sass) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transpiler == nil {
		return nil
	}
	err := s.transpiler.Close()
	s.transpiler = nil
	return err
}
