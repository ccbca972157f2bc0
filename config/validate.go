package config

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yaklabco/kiln/internal/fsutils"
)

const maxPort = 65535

// engineTarget matches esbuild engine targets such as "chrome58" or "safari11.1".
var engineTarget = regexp.MustCompile(`^(chrome|edge|firefox|safari|ios|opera|ie)\d+(\.\d+)*$`) //nolint:gochecknoglobals // compiled once

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("config warning: %s: %s", w.Field, w.Message)
}

// ValidationResults holds the results of configuration validation.
type ValidationResults struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are validation errors.
func (r ValidationResults) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (r ValidationResults) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// ErrorMessage returns a combined error message for all validation errors.
func (r ValidationResults) ErrorMessage() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// WriteWarnings writes all warnings to the given writer.
func (r ValidationResults) WriteWarnings(w io.Writer) {
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintln(w, warn.String())
	}
}

func (r *ValidationResults) fail(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResults) warn(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration for errors and warnings.
// Errors are values that would make a build unsafe or impossible; warnings are
// values that work but are probably not what the user meant.
func (c *Config) Validate() ValidationResults {
	var result ValidationResults

	if c.SrcDir == "" {
		result.fail("src_dir", "must not be empty")
	}
	if c.DistDir == "" {
		result.fail("dist_dir", "must not be empty")
	}
	if c.SrcDir != "" && c.DistDir != "" {
		src, dist := truePath(c.SrcDir), truePath(c.DistDir)
		// dist_dir is deleted on every build, so it must not hold the sources.
		if src == dist || isWithin(src, dist) {
			result.fail("dist_dir", "%q contains the source root %q and would be deleted by clean", c.DistDir, c.SrcDir)
		}
		if isWithin(dist, src) {
			result.warn("dist_dir", "%q is inside the source root; watch mode will see its own output", c.DistDir)
		}
	}

	if c.Server.Port < 0 || c.Server.Port > maxPort {
		result.fail("server.port", "%d is out of range", c.Server.Port)
	}

	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		result.fail("images.jpeg_quality", "%d must be between 1 and 100", c.Images.JPEGQuality)
	}

	if c.Minify.Suffix == "" {
		result.fail("minify.suffix", "must not be empty, minified artifacts would overwrite unminified ones")
	}

	if c.Watch.Debounce < 0 {
		result.fail("watch.debounce", "must not be negative")
	}

	for _, b := range c.Styles.Browsers {
		if !engineTarget.MatchString(strings.ToLower(b)) {
			result.fail("styles.browsers", "invalid engine target %q", b)
		}
	}
	if len(c.Styles.Browsers) == 0 {
		result.warn("styles.browsers", "no targets configured, vendor prefixes will not be added")
	}

	return result
}

// truePath compares roots through symlinks; a root that cannot be resolved is
// compared as written.
func truePath(dir string) string {
	if resolved, err := fsutils.TruePath(dir); err == nil {
		return resolved
	}
	return filepath.Clean(dir)
}

// isWithin reports whether child is a strict descendant of parent.
func isWithin(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
