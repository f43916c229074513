package session

import "github.com/prometheus/client_golang/prometheus"

// Refresh outcomes recorded in jobboard_session_refresh_total.
const (
	resultSuccess    = "success"
	resultRejected   = "rejected"
	resultNetwork    = "network_failure"
	resultInvalid    = "invalid_response"
	resultNoToken    = "no_refresh_token"
	resultSuperseded = "superseded"
)

// Metrics holds the Prometheus collectors for token renewal. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	refreshes *prometheus.CounterVec
	inflight  prometheus.Gauge
}

// NewMetrics creates the renewal collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jobboard",
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Access token renewals by outcome.",
		}, []string{"result"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jobboard",
			Subsystem: "session",
			Name:      "refresh_inflight",
			Help:      "Renewal requests currently in flight (0 or 1).",
		}),
	}
	reg.MustRegister(m.refreshes, m.inflight)
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
}

func (m *Metrics) begin() {
	if m == nil {
		return
	}
	m.inflight.Inc()
}

func (m *Metrics) end() {
	if m == nil {
		return
	}
	m.inflight.Dec()
}
