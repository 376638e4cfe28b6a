package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes reported to CallFinished.
const (
	OutcomeOK         = "ok"
	OutcomeWorkerErr  = "worker_error"
	OutcomeTimeout    = "timeout"
	OutcomeTerminated = "terminated"
	OutcomeWriteErr   = "write_error"
	OutcomeCanceled   = "canceled"
)

// Recorder receives supervisor events worth counting.
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	// CallStarted is invoked when a call is registered as pending.
	CallStarted(method string)

	// CallFinished is invoked exactly once per settled call.
	CallFinished(method, outcome string, d time.Duration)

	// ProtocolError is invoked for each undecodable worker line.
	ProtocolError()

	// WorkerStarted is invoked after a worker process is spawned.
	WorkerStarted()

	// WorkerExited is invoked when a worker process exits. Code is -1 when
	// the process was killed by a signal.
	WorkerExited(code int)
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) CallStarted(string)                         {}
func (NopRecorder) CallFinished(string, string, time.Duration) {}
func (NopRecorder) ProtocolError()                             {}
func (NopRecorder) WorkerStarted()                             {}
func (NopRecorder) WorkerExited(int)                           {}

// Prometheus is a Recorder backed by client_golang collectors in the
// "crane" namespace.
type Prometheus struct {
	callsTotal     *prometheus.CounterVec
	callDuration   *prometheus.HistogramVec
	pendingCalls   prometheus.Gauge
	protocolErrors prometheus.Counter
	workerStarts   prometheus.Counter
	workerExits    *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them with reg. A nil
// reg selects prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Prometheus{
		callsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crane",
				Name:      "calls_total",
				Help:      "Total number of worker calls by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "crane",
				Name:      "call_duration_seconds",
				Help:      "Duration of worker calls in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"method"},
		),
		pendingCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crane",
			Name:      "pending_calls",
			Help:      "Calls awaiting a worker response",
		}),
		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crane",
			Name:      "protocol_errors_total",
			Help:      "Worker output lines that could not be decoded",
		}),
		workerStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crane",
			Name:      "worker_starts_total",
			Help:      "Worker processes spawned",
		}),
		workerExits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crane",
				Name:      "worker_exits_total",
				Help:      "Worker process exits by exit code",
			},
			[]string{"code"},
		),
	}

	for _, c := range []prometheus.Collector{
		p.callsTotal, p.callDuration, p.pendingCalls,
		p.protocolErrors, p.workerStarts, p.workerExits,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// CallStarted implements Recorder.
func (p *Prometheus) CallStarted(string) {
	p.pendingCalls.Inc()
}

// CallFinished implements Recorder.
func (p *Prometheus) CallFinished(method, outcome string, d time.Duration) {
	p.pendingCalls.Dec()
	p.callsTotal.WithLabelValues(method, outcome).Inc()
	p.callDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ProtocolError implements Recorder.
func (p *Prometheus) ProtocolError() {
	p.protocolErrors.Inc()
}

// WorkerStarted implements Recorder.
func (p *Prometheus) WorkerStarted() {
	p.workerStarts.Inc()
}

// WorkerExited implements Recorder.
func (p *Prometheus) WorkerExited(code int) {
	p.workerExits.WithLabelValues(strconv.Itoa(code)).Inc()
}

// Compile-time verification that both recorders implement Recorder.
var (
	_ Recorder = NopRecorder{}
	_ Recorder = (*Prometheus)(nil)
)
