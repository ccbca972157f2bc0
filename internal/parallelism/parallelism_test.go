package parallelism

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkers(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		t.Setenv(NumProcessorsEnvVar, "")
		n, err := Workers()
		require.NoError(t, err)
		assert.Equal(t, runtime.NumCPU(), n)
	})

	t.Run("FromEnv", func(t *testing.T) {
		t.Setenv(NumProcessorsEnvVar, " 3 ")
		n, err := Workers()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("Invalid", func(t *testing.T) {
		t.Setenv(NumProcessorsEnvVar, "many")
		_, err := Workers()
		require.Error(t, err)
	})

	t.Run("NotPositive", func(t *testing.T) {
		t.Setenv(NumProcessorsEnvVar, "0")
		_, err := Workers()
		require.Error(t, err)
	})
}
