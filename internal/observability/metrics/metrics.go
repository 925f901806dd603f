package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	providerTotal   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	admissionsTotal *prometheus.CounterVec
	fetchTotal      *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		providerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homewellness",
			Name:      "provider_requests_total",
			Help:      "Total Mindbody API requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homewellness",
			Name:      "provider_request_seconds",
			Help:      "Latency of Mindbody API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		admissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homewellness",
			Name:      "admissions_total",
			Help:      "Cart admission attempts by outcome",
		}, []string{"outcome"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homewellness",
			Name:      "availability_fetch_total",
			Help:      "Availability fetches by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.providerTotal, m.providerLatency, m.admissionsTotal, m.fetchTotal)
	return m
}

// ObserveProviderRequest records one provider call. status 0 means the
// request never got a response.
func (m *BookingMetrics) ObserveProviderRequest(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.providerTotal.WithLabelValues(endpoint, label).Inc()
	m.providerLatency.WithLabelValues(endpoint).Observe(seconds)
}

func (m *BookingMetrics) ObserveAdmission(outcome string) {
	if m == nil {
		return
	}
	m.admissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveFetch(outcome string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(outcome).Inc()
}
