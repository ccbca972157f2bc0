package prettylog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetupLevels(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := Setup(&buf, false)
	assert.Equal(t, log.InfoLevel, logger.GetLevel())

	slog.Debug("hidden")
	slog.Info("shown", "step", "styles")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "step=styles")

	logger = Setup(&buf, true)
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
}
