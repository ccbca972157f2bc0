// Package prettylog installs a charmbracelet/log handler as the process-wide
// slog default.
package prettylog

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Setup creates the handler, makes it the slog default and returns it so the
// caller can adjust the level once flags are parsed.
func Setup(writerForLogger io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}

	logHandler := log.NewWithOptions(
		writerForLogger,
		log.Options{
			Level:           level,
			ReportTimestamp: true,
			ReportCaller:    debug,
			Prefix:          "kiln",
		},
	)
	slog.SetDefault(slog.New(logHandler))

	return logHandler
}
