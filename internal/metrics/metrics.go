// Package metrics exposes Prometheus counters for the delivery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the counters the notifier maintains. One instance per
// process, registered against the provided registry.
type Metrics struct {
	deliveriesReceived prometheus.Counter
	deliveriesRejected *prometheus.CounterVec
	eventsTotal        *prometheus.CounterVec
	listenerErrors     prometheus.Counter
	renewalsTotal      prometheus.Counter
}

// New creates and registers the metric set. Pass prometheus.DefaultRegisterer
// outside of tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deliveriesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ytpush_deliveries_received_total",
			Help: "Content deliveries received on the webhook endpoint.",
		}),
		deliveriesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytpush_deliveries_rejected_total",
			Help: "Deliveries rejected before dispatch, by reason.",
		}, []string{"reason"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ytpush_events_total",
			Help: "Classified events dispatched to listeners, by kind.",
		}, []string{"kind"}),
		listenerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ytpush_listener_errors_total",
			Help: "Listener invocations that returned an error or panicked.",
		}),
		renewalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ytpush_subscription_renewals_total",
			Help: "Subscription renewal requests sent to the hub.",
		}),
	}

	reg.MustRegister(
		m.deliveriesReceived,
		m.deliveriesRejected,
		m.eventsTotal,
		m.listenerErrors,
		m.renewalsTotal,
	)
	return m
}

func (m *Metrics) DeliveryReceived()              { m.deliveriesReceived.Inc() }
func (m *Metrics) DeliveryRejected(reason string) { m.deliveriesRejected.WithLabelValues(reason).Inc() }
func (m *Metrics) EventDispatched(kind string)    { m.eventsTotal.WithLabelValues(kind).Inc() }
func (m *Metrics) ListenerError()                 { m.listenerErrors.Inc() }
func (m *Metrics) RenewalSent()                   { m.renewalsTotal.Inc() }
