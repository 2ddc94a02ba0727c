// Package metrics provides observability hooks for publish runs.
//
// Components receive a Recorder through their constructor. NoopRecorder is the
// default so call sites never need nil checks; the watch command swaps in a
// PrometheusRecorder and serves it on /metrics.
package metrics
