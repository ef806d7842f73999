package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline outcome labels.
const (
	OutcomeAccepted      = "accepted"
	OutcomeInvalid       = "invalid"
	OutcomeSpam          = "spam"
	OutcomeRateLimited   = "rate_limited"
	OutcomeDispatchError = "dispatch_error"
)

// LeadMetrics exposes counters/histograms for the lead pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	dispatchLatency  *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apex",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead submissions by pipeline outcome",
		}, []string{"outcome"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apex",
			Subsystem: "leads",
			Name:      "email_dispatch_seconds",
			Help:      "Latency of notification email dispatch",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.dispatchLatency)
	return m
}

func (m *LeadMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *LeadMetrics) ObserveDispatch(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.dispatchLatency.WithLabelValues(provider, status).Observe(seconds)
}
