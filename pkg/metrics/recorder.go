// Package metrics records build, step and reload counters. The dev server
// exposes them on /metrics when a Prometheus recorder is configured.
package metrics

import "time"

// Result labels a step or build outcome.
type Result string

const (
	ResultSuccess  Result = "success"
	ResultFailed   Result = "failed"
	ResultCanceled Result = "canceled"
)

// Recorder receives observations from the orchestrator, the watcher and the
// dev server.
type Recorder interface {
	ObserveStep(step string, d time.Duration, result Result)
	AddWritten(step string, n int)
	ObserveBuild(d time.Duration, result Result)
	IncWatchRun(step string)
	IncReload(kind string)
	SetReloadClients(n int)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStep(string, time.Duration, Result) {}
func (NoopRecorder) AddWritten(string, int)                    {}
func (NoopRecorder) ObserveBuild(time.Duration, Result)        {}
func (NoopRecorder) IncWatchRun(string)                        {}
func (NoopRecorder) IncReload(string)                          {}
func (NoopRecorder) SetReloadClients(int)                      {}

// ResultOf maps an error to a result label.
func ResultOf(err error, canceled bool) Result {
	switch {
	case err == nil:
		return ResultSuccess
	case canceled:
		return ResultCanceled
	default:
		return ResultFailed
	}
}
