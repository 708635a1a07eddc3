// Package metrics contains the prometheus collectors for the suspend protocol.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "side_eye"
	subsystem = "threads"

	resultLabelName = "result"

	// Result label values.
	SuccessLabel       = "success"
	NotRunningLabel    = "not_running"
	CaptureFailedLabel = "capture_failed"
	SignalFailedLabel  = "signal_failed"
	TimeoutLabel       = "timeout"
	NotSuspendedLabel  = "not_suspended"
	MiscLabel          = "misc"
)

var (
	SuspendTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suspend_total",
			Help:      "count of suspend requests by result",
		}, []string{resultLabelName})

	ResumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resume_total",
			Help:      "count of resume requests by result",
		}, []string{resultLabelName})

	SuspendLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "suspend_latency_seconds",
			Help:      "time from suspend request until the target thread parked",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 12), // 1µs ~ 4s
		})

	ManagedThreads = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "managed",
			Help:      "number of managed threads currently running their task",
		})
)

var registerOnce sync.Once

// Register registers the collectors with r. Only the first call has an
// effect.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SuspendTotal)
		r.MustRegister(ResumeTotal)
		r.MustRegister(SuspendLatency)
		r.MustRegister(ManagedThreads)
	})
}

// ObserveSuspend records the outcome of one suspend request. Latency is only
// recorded for successful requests.
func ObserveSuspend(result string, d time.Duration) {
	SuspendTotal.WithLabelValues(result).Inc()
	if result == SuccessLabel {
		SuspendLatency.Observe(d.Seconds())
	}
}

// ObserveResume records the outcome of one resume request.
func ObserveResume(result string) {
	ResumeTotal.WithLabelValues(result).Inc()
}
