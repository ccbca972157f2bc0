package kiln

import (
	"path/filepath"

	klog "github.com/yaklabco/kiln/internal/log"
	"github.com/yaklabco/kiln/pkg/paths"
	"github.com/yaklabco/kiln/pkg/step"
)

// consoleNotifier prints every written artifact in verbose mode.
type consoleNotifier struct {
	root string
}

func (c consoleNotifier) Notify(class paths.Class, written []string) {
	for _, p := range written {
		if rel, err := filepath.Rel(c.root, p); err == nil {
			p = rel
		}
		klog.SimpleConsoleLogger.Printf("%s: wrote %s", class, p)
	}
}

// notifiers fans one notification out to several notifiers.
type notifiers []step.Notifier

func (n notifiers) Notify(class paths.Class, written []string) {
	for _, notifier := range n {
		notifier.Notify(class, written)
	}
}
