// Package metrics exposes Prometheus collectors for the state machines.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "durga_"

	// Outcomes for sos_sessions_total.
	SessionTriggered = "triggered"
	SessionActivated = "activated"
	SessionDisarmed  = "disarmed"
	SessionAbandoned = "abandoned"

	// Results for pin_attempts_total.
	PINMatch    = "match"
	PINMismatch = "mismatch"

	// Outcomes for decoy_calls_total.
	CallConfigured = "configured"
	CallCancelled  = "cancelled"
	CallAnswered   = "answered"
	CallDeclined   = "declined"
	CallEnded      = "ended"
)

var (
	registerOnce sync.Once

	transitionsTotal    *prometheus.CounterVec
	sosSessionsTotal    *prometheus.CounterVec
	pinAttemptsTotal    *prometheus.CounterVec
	pinCheckLatency     prometheus.Histogram
	decoyCallsTotal     *prometheus.CounterVec
	capabilityFailures  *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	notificationStreams prometheus.Gauge
)

// Init registers collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transitions_total",
				Help: "Executed state machine transitions",
			},
			[]string{"machine", "from", "to"},
		)
		sosSessionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sos_sessions_total",
				Help: "Emergency session lifecycle events by outcome",
			},
			[]string{"outcome"},
		)
		pinAttemptsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pin_attempts_total",
				Help: "Completed PIN comparisons by result",
			},
			[]string{"result"},
		)
		pinCheckLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "pin_check_seconds",
				Help:    "Time spent comparing a PIN against its hash",
				Buckets: prometheus.DefBuckets,
			},
		)
		decoyCallsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "decoy_calls_total",
				Help: "Decoy call lifecycle events by outcome",
			},
			[]string{"outcome"},
		)
		capabilityFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "capability_failures_total",
				Help: "Device capability calls that failed or panicked",
			},
			[]string{"capability"},
		)
		activeSessions = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_sos_sessions",
				Help: "Emergency sessions currently counting down or active",
			},
		)
		notificationStreams = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "notification_streams",
				Help: "Connected notification subscribers",
			},
		)

		prometheus.MustRegister(
			transitionsTotal,
			sosSessionsTotal,
			pinAttemptsTotal,
			pinCheckLatency,
			decoyCallsTotal,
			capabilityFailures,
			activeSessions,
			notificationStreams,
		)
	})
}

// ObserveTransition counts one executed transition.
func ObserveTransition(machine, from, to string) {
	if transitionsTotal != nil {
		transitionsTotal.WithLabelValues(machine, from, to).Inc()
	}
}

// IncSession counts an emergency session lifecycle event.
func IncSession(outcome string) {
	if sosSessionsTotal != nil {
		sosSessionsTotal.WithLabelValues(outcome).Inc()
	}
	if activeSessions == nil {
		return
	}
	switch outcome {
	case SessionTriggered:
		activeSessions.Inc()
	case SessionDisarmed, SessionAbandoned:
		activeSessions.Dec()
	}
}

// ObservePINAttempt counts a completed comparison and its latency.
func ObservePINAttempt(result string, duration time.Duration) {
	if pinAttemptsTotal != nil {
		pinAttemptsTotal.WithLabelValues(result).Inc()
	}
	if pinCheckLatency != nil {
		pinCheckLatency.Observe(duration.Seconds())
	}
}

// IncCall counts a decoy call lifecycle event.
func IncCall(outcome string) {
	if decoyCallsTotal != nil {
		decoyCallsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncCapabilityFailure counts a failed device capability call.
func IncCapabilityFailure(capability string) {
	if capability == "" {
		capability = "unknown"
	}
	if capabilityFailures != nil {
		capabilityFailures.WithLabelValues(capability).Inc()
	}
}

// SetNotificationStreams records the number of connected subscribers.
func SetNotificationStreams(n int) {
	if notificationStreams != nil {
		notificationStreams.Set(float64(n))
	}
}
