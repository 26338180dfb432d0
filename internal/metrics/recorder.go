// Package metrics records build observations. Components take a Recorder
// and default to NoopRecorder; the serve mode swaps in PrometheusRecorder.
package metrics

import "time"

// Outcome labels a finished build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Build stages.
const (
	StageSidecar  = "sidecar"
	StageScan     = "scan"
	StageAssemble = "assemble"
	StageWrite    = "write"
)

// GraphSize is the shape of the last written artifact.
type GraphSize struct {
	Nodes        int
	Links        int
	Placeholders int
}

// Recorder receives build observations. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome Outcome)
	SetGraphSize(size GraphSize)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(Outcome)                    {}
func (NoopRecorder) SetGraphSize(GraphSize)                     {}
