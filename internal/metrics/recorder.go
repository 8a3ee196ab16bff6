package metrics

import "time"

// Recorder defines observability hooks for pipeline metrics. Implementations
// may forward to Prometheus or elsewhere. All methods must be safe on the
// NoopRecorder so injection stays optional.
type Recorder interface {
	ObserveCompileDuration(d time.Duration)
	IncCompileOutcome(outcome string) // "success" or a failure kind
	IncSuperseded()
	IncDebounceTrigger()
	ObserveRenderDuration(d time.Duration)
	IncBackupResult(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCompileDuration(time.Duration) {}
func (NoopRecorder) IncCompileOutcome(string)             {}
func (NoopRecorder) IncSuperseded()                       {}
func (NoopRecorder) IncDebounceTrigger()                  {}
func (NoopRecorder) ObserveRenderDuration(time.Duration)  {}
func (NoopRecorder) IncBackupResult(bool)                 {}
