package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded by outbox_deliveries_total.
const (
	DeliveryPublished        = "published"
	DeliveryAlreadyDelivered = "already_delivered"
	DeliveryRetry            = "retry"
	DeliveryDeadLettered     = "dead_lettered"
)

// OutboxMetrics records publisher throughput.
type OutboxMetrics struct {
	deliveries *prometheus.CounterVec
	batchSize  prometheus.Histogram
}

// NewOutboxMetrics registers the outbox publisher metrics on the provided registerer.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_deliveries_total",
		Help: "Outbox rows handled by the publisher, by outcome.",
	}, []string{"event_type", "outcome"})
	batchSize := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_batch_rows",
		Help:    "Rows fetched per non-empty publisher batch.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
	})
	reg.MustRegister(deliveries, batchSize)
	return &OutboxMetrics{deliveries: deliveries, batchSize: batchSize}
}

// IncDelivery counts one handled row.
func (m *OutboxMetrics) IncDelivery(eventType, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveBatch records how many rows a batch fetched.
func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil || m.batchSize == nil {
		return
	}
	m.batchSize.Observe(float64(rows))
}
