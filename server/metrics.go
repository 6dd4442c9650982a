package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports this daemon's operational counters in Prometheus format,
// grounded on the teacher's `ai/metrics` exporter but scoped to the handful
// of gauges/counters the composition root actually has numbers for.
type Metrics struct {
	registry *prometheus.Registry

	activeChats     prometheus.Gauge
	notifications   *prometheus.CounterVec
	tariffReminder  *prometheus.CounterVec
	paymentsSettled *prometheus.CounterVec
}

// NewMetrics builds and registers every metric this daemon exposes.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		activeChats: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadwatch",
			Name:      "active_chats",
			Help:      "Number of monitored chats currently subscribed.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadwatch",
			Name:      "notifications_total",
			Help:      "Notifications delivered, partitioned by whether the recipient's tariff was active.",
		}, []string{"kind"}),
		tariffReminder: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadwatch",
			Name:      "tariff_reminders_total",
			Help:      "Tariff reminder notifications sent, partitioned by dedupe stage.",
		}, []string{"stage"}),
		paymentsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadwatch",
			Name:      "payments_settled_total",
			Help:      "Payments settled, partitioned by payload kind.",
		}, []string{"kind"}),
	}

	registry.MustRegister(m.activeChats, m.notifications, m.tariffReminder, m.paymentsSettled)
	return m
}

func (m *Metrics) SetActiveChats(n int) { m.activeChats.Set(float64(n)) }

func (m *Metrics) IncNotification(kind string) { m.notifications.WithLabelValues(kind).Inc() }

func (m *Metrics) IncTariffReminder(stage string) { m.tariffReminder.WithLabelValues(stage).Inc() }

func (m *Metrics) IncPaymentSettled(kind string) {
	m.paymentsSettled.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
