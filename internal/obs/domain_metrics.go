package obs

import "github.com/prometheus/client_golang/prometheus"

// Domain groups the storefront business metrics. A nil *Domain records nothing.
type Domain struct {
	CheckoutTotal         *prometheus.CounterVec
	IntegrityWarnings     *prometheus.CounterVec
	OrderTotalAmount      *prometheus.HistogramVec
	ConfigUpdatesTotal    *prometheus.CounterVec
	NotificationsEnqueued *prometheus.CounterVec
}

// NewDomainMetrics creates and registers the business collectors. Collectors
// already registered on reg are reused.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *Domain {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	d := &Domain{
		CheckoutTotal: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Checkout submissions by payment method and outcome.",
		}, []string{"method", "result"})),
		IntegrityWarnings: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_integrity_warnings_total",
			Help:      "Pricing fallbacks caused by inconsistent configuration.",
		}, []string{"kind"})),
		OrderTotalAmount: registerOrReuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_amount",
			Help:      "Payable order totals in base currency units.",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
		}, []string{"method"})),
		ConfigUpdatesTotal: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_updates_total",
			Help:      "Store configuration changes observed on the event bus.",
		}, []string{"topic"})),
		NotificationsEnqueued: registerOrReuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_notifications_total",
			Help:      "Store order notifications by enqueue outcome.",
		}, []string{"result"})),
	}
	return d
}

// Checkout records one checkout outcome.
func (d *Domain) Checkout(method, result string) {
	if d == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	d.CheckoutTotal.WithLabelValues(method, result).Inc()
}

// IntegrityWarning counts one pricing fallback of the given kind.
func (d *Domain) IntegrityWarning(kind string) {
	if d == nil {
		return
	}
	d.IntegrityWarnings.WithLabelValues(kind).Inc()
}

// OrderTotal observes a placed order's payable total.
func (d *Domain) OrderTotal(method string, amount int64) {
	if d == nil {
		return
	}
	d.OrderTotalAmount.WithLabelValues(method).Observe(float64(amount))
}

// ConfigUpdated counts a configuration change event.
func (d *Domain) ConfigUpdated(topic string) {
	if d == nil {
		return
	}
	d.ConfigUpdatesTotal.WithLabelValues(topic).Inc()
}

// NotificationEnqueued counts an order notification enqueue attempt.
func (d *Domain) NotificationEnqueued(result string) {
	if d == nil {
		return
	}
	d.NotificationsEnqueued.WithLabelValues(result).Inc()
}
