package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	// BreakerState is nil until RegisterMetrics runs; breakers skip recording until then.
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec
	BreakerOpenedTotal *prometheus.CounterVec
	// GuardAttempts counts guarded calls by target and outcome.
	GuardAttempts *prometheus.CounterVec
)

// RegisterMetrics creates the breaker collectors under namespace and
// registers them on reg. Calling it again replaces the collectors.
func RegisterMetrics(namespace string, reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "breaker_state",
		Help:      "Current breaker state: 0=closed,1=open,2=half-open",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_transition_total",
		Help:      "Count of breaker state transitions",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "breaker_open_total",
		Help:      "Number of times a breaker transitioned into open state",
	}, []string{"target"})
	GuardAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_attempts_total",
		Help:      "Guarded call attempts by outcome",
	}, []string{"target", "result"})
	reg.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, GuardAttempts)
}
