// Package parallelism decides how many files a step processes at once.
package parallelism

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// NumProcessorsEnvVar overrides the per-step worker count.
const NumProcessorsEnvVar = "KILN_NUM_PROCESSORS"

func getNumProcessors() int {
	return runtime.NumCPU()
}

// Workers returns the per-step worker count: KILN_NUM_PROCESSORS when set to
// a positive integer, the CPU count otherwise.
func Workers() (int, error) {
	strFromEnv := strings.TrimSpace(os.Getenv(NumProcessorsEnvVar))
	if strFromEnv == "" {
		return getNumProcessors(), nil
	}

	numProcessors, err := strconv.Atoi(strFromEnv)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", NumProcessorsEnvVar, err)
	}
	if numProcessors < 1 {
		return 0, fmt.Errorf("%s must be positive, got %d", NumProcessorsEnvVar, numProcessors)
	}

	return numProcessors, nil
}
