//nolint:gochecknoglobals // Once/mutex patterns.
package dryrun

import "sync"

var (
	mu sync.Mutex

	// Set by SetRequested.
	requestedValue bool

	// Once-protected value read from RequestedEnv.
	requestedEnvValue bool
	requestedEnvOnce  sync.Once
)
