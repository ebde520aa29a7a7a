package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncDelivery("assessment_created", DeliveryPublished)
	m.IncDelivery("assessment_created", DeliveryPublished)
	m.IncDelivery("assessment_created", DeliveryDeadLettered)
	m.ObserveBatch(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "outbox_deliveries_total")
	if mf == nil {
		t.Fatal("expected deliveries counter")
	}
	var published, dead float64
	for _, metric := range mf.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", DeliveryPublished):
			published = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", DeliveryDeadLettered):
			dead = metric.GetCounter().GetValue()
		}
	}
	if published != 2 || dead != 1 {
		t.Fatalf("expected published=2 dead=1, got %v and %v", published, dead)
	}
	if findMetricFamily(mfs, "outbox_batch_rows") == nil {
		t.Fatal("expected batch histogram")
	}
}

func TestNilOutboxMetricsIsSafe(t *testing.T) {
	var m *OutboxMetrics
	m.IncDelivery("x", DeliveryRetry)
	m.ObserveBatch(1)
	NewOutboxMetrics(nil).IncDelivery("x", DeliveryRetry)
}
