package queue

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the notification queue counts last observed by Stats.
type Metrics struct {
	Depth    *prometheus.GaugeVec
	Archived *prometheus.GaugeVec
}

// NewMetrics registers the queue gauges on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Tasks waiting in the queue by state",
		}, []string{"queue", "state"}),
		Archived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_archived_size",
			Help:      "Tasks that exhausted their retries",
		}, []string{"queue"}),
	}
	reg.MustRegister(m.Depth, m.Archived)
	return m
}

func (m *Metrics) observe(s Stats) {
	if m == nil {
		return
	}
	m.Depth.WithLabelValues(s.Queue, "pending").Set(float64(s.Pending))
	m.Depth.WithLabelValues(s.Queue, "active").Set(float64(s.Active))
	m.Depth.WithLabelValues(s.Queue, "scheduled").Set(float64(s.Scheduled))
	m.Depth.WithLabelValues(s.Queue, "retry").Set(float64(s.Retry))
	m.Archived.WithLabelValues(s.Queue).Set(float64(s.Archived))
}
