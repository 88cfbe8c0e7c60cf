package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wallet_orders"

// Metrics groups the service's collectors. All methods are no-ops on a nil
// receiver so components can run without instrumentation in tests.
type Metrics struct {
	Orders          *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	Compensations   *prometheus.CounterVec
	WalletOps       *prometheus.CounterVec
	OutboxEvents    *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders by final outcome.",
		}, []string{"outcome"}),
		GatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Fulfillment gateway call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		Compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensation attempts by result.",
		}, []string{"result"}),
		WalletOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wallet_operations_total",
			Help:      "Committed wallet mutations by kind.",
		}, []string{"kind"}),
		OutboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox relay publish results.",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	reg.MustRegister(
		m.Orders, m.GatewayDuration, m.Compensations, m.WalletOps,
		m.OutboxEvents, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

func (m *Metrics) OrderOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Orders.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGateway(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayDuration.WithLabelValues(result).Observe(d.Seconds())
}

func (m *Metrics) Compensation(result string) {
	if m == nil {
		return
	}
	m.Compensations.WithLabelValues(result).Inc()
}

func (m *Metrics) WalletOperation(kind string) {
	if m == nil {
		return
	}
	m.WalletOps.WithLabelValues(kind).Inc()
}

func (m *Metrics) OutboxPublish(result string) {
	if m == nil {
		return
	}
	m.OutboxEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTP(route, method, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
