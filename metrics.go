package crane

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/crane-service-go/internal/metrics"
)

// MetricsRecorder receives call and process events from a Service.
type MetricsRecorder = metrics.Recorder

// PrometheusMetrics records Service events as Prometheus collectors.
type PrometheusMetrics = metrics.Prometheus

// NewPrometheusMetrics registers the crane collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	return metrics.NewPrometheus(reg)
}
