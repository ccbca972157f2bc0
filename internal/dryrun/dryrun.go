// Package dryrun implements the conditional checks for kiln's dryrun mode.
//
// Dry run is requested either through the KILN_DRYRUN environment variable
// (read once, on first use) or by calling SetRequested(true), which the CLI
// does for --dryrun. In dry-run mode steps still read and transform their
// sources, but writes and deletes are reported instead of performed.
package dryrun

import (
	"log/slog"

	"github.com/yaklabco/kiln/internal/env"
	klog "github.com/yaklabco/kiln/internal/log"
)

// RequestedEnv is the environment variable that indicates the user requested dryrun mode.
const RequestedEnv = "KILN_DRYRUN"

// SetRequested sets the dryrun requested state to the specified boolean value.
func SetRequested(value bool) {
	mu.Lock()
	defer mu.Unlock()
	requestedValue = value
}

// IsDryRun reports whether dry-run mode was requested, either explicitly or via
// the environment.
func IsDryRun() bool {
	requestedEnvOnce.Do(func() {
		requestedEnvValue = env.FailsafeParseBoolEnv(RequestedEnv, false)
	})

	mu.Lock()
	defer mu.Unlock()
	return requestedEnvValue || requestedValue
}

// Report logs an action that dry-run mode skipped.
func Report(action, path string) {
	slog.Info("DRYRUN: "+action, slog.String(klog.Path, path))
}

// Guard returns true when the caller should perform the action. In dry-run mode
// it reports the action and returns false.
func Guard(action, path string) bool {
	if !IsDryRun() {
		return true
	}
	Report(action, path)
	return false
}
