package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry served on /metrics
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moveaside_http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "moveaside_http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// AlertCycles counts classification passes by outcome
	// (alerted, quiet, skipped, failed)
	AlertCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moveaside_alert_cycles_total", Help: "Alert cycles by outcome."},
		[]string{"outcome"},
	)
	AlertCycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "moveaside_alert_cycle_duration_seconds", Help: "Alert cycle duration in seconds.", Buckets: prometheus.DefBuckets},
	)
	AlertDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moveaside_alert_decisions_total", Help: "Candidate decisions by result."},
		[]string{"result"},
	)

	DispatchBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moveaside_dispatch_batches_total", Help: "Push batches by status."},
		[]string{"status"},
	)
	DispatchSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moveaside_dispatch_skipped_total", Help: "Candidates not notified by reason."},
		[]string{"reason"},
	)

	LocationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "moveaside_location_events_total", Help: "Location events consumed by role and status."},
		[]string{"role", "status"},
	)
	CoalescedEvents = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "moveaside_coalesced_events_total", Help: "Vehicle events replaced by a newer pending event."},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to Registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(AlertCycles)
		Registry.MustRegister(AlertCycleDuration)
		Registry.MustRegister(AlertDecisions)
		Registry.MustRegister(DispatchBatches)
		Registry.MustRegister(DispatchSkipped)
		Registry.MustRegister(LocationEvents)
		Registry.MustRegister(CoalescedEvents)

		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
