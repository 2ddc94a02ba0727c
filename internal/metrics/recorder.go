package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultSkipped  ResultLabel = "skipped"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// PublishOutcome is the final verdict of one publish run.
type PublishOutcome string

const (
	OutcomeSuccess     PublishOutcome = "success"
	OutcomeBrokenLinks PublishOutcome = "broken_links"
	OutcomeFailed      PublishOutcome = "failed"
	OutcomeUnchanged   PublishOutcome = "unchanged"
)

// FetchSource says where a materialized snapshot came from.
type FetchSource string

const (
	FetchCache  FetchSource = "cache"
	FetchRemote FetchSource = "remote"
	FetchLocal  FetchSource = "local"
)

// Recorder defines the metrics hooks used by the publish pipeline. All
// implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObservePublishDuration(d time.Duration)
	IncPublishOutcome(outcome PublishOutcome)
	ObserveFetchDuration(repo string, d time.Duration, success bool)
	IncFetch(source FetchSource)
	SetBrokenLinks(n int)
	SetResolveConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)       {}
func (NoopRecorder) IncStageResult(string, ResultLabel)               {}
func (NoopRecorder) ObservePublishDuration(time.Duration)             {}
func (NoopRecorder) IncPublishOutcome(PublishOutcome)                 {}
func (NoopRecorder) ObserveFetchDuration(string, time.Duration, bool) {}
func (NoopRecorder) IncFetch(FetchSource)                             {}
func (NoopRecorder) SetBrokenLinks(int)                               {}
func (NoopRecorder) SetResolveConcurrency(int)                        {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
