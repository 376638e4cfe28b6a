// Package metrics counts supervisor events.
//
// The supervisor reports through the Recorder interface. NopRecorder is the
// default; Prometheus exports the events as client_golang collectors so a
// host process can serve them from its /metrics endpoint.
package metrics
