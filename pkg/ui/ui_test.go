package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderSummary(t *testing.T) {
	out := RenderSummary("build", []SummaryRow{
		{Step: "clean", Duration: time.Millisecond},
		{Step: "styles", Written: 2, Duration: 20 * time.Millisecond},
		{Step: "scripts", Err: errors.New("boom\nsecond line")},
		{Step: "images", Skipped: true},
	})

	assert.Contains(t, out, "BUILD")
	assert.Contains(t, out, "styles")
	assert.Contains(t, out, "2 written")
	assert.Contains(t, out, "failed: boom ...")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "skipped")
}
