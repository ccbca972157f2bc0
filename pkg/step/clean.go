package step

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/yaklabco/kiln/internal/dryrun"
	klog "github.com/yaklabco/kiln/internal/log"
)

// CleanName is the name Clean runs under.
const CleanName = "clean"

// Clean removes the output root and everything below it. Running it on a
// missing output root is not an error.
type Clean struct {
	dir string
}

// NewClean returns a Clean for the output root dir.
func NewClean(dir string) *Clean {
	return &Clean{dir: dir}
}

func (c *Clean) Name() string { return CleanName }

// Dir returns the output root Clean removes.
func (c *Clean) Dir() string { return c.dir }

// Run removes the output root. Files are ignored.
func (c *Clean) Run(ctx context.Context, _ ...string) (Report, error) {
	started := time.Now()
	report := Report{Step: CleanName}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if dryrun.Guard("remove", c.dir) {
		if err := os.RemoveAll(c.dir); err != nil {
			report.Failed = 1
			report.Duration = time.Since(started)
			return report, &Error{Kind: Write, Step: CleanName, Path: c.dir, Err: err}
		}
	}

	report.Duration = time.Since(started)
	slog.Debug("cleaned", slog.String(klog.Dir, c.dir), slog.Duration(klog.Duration, report.Duration))
	return report, nil
}
