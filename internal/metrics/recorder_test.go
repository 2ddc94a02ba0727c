package metrics

import (
	"testing"
	"time"
)

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("render", time.Second)
	r.IncStageResult("render", ResultFatal)
	r.IncPublishOutcome(OutcomeFailed)
	r.SetBrokenLinks(1)

	if _, ok := OrNoop(nil).(NoopRecorder); !ok {
		t.Fatalf("OrNoop(nil) should return NoopRecorder")
	}
	pr := NewPrometheusRecorder(nil)
	if OrNoop(pr) != Recorder(pr) {
		t.Fatalf("OrNoop should keep a non-nil recorder")
	}
}
