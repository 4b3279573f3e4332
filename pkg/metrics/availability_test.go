package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestReconcileMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewReconcileMetrics(reg)
	metrics.ObserveDuration(120 * time.Millisecond)
	metrics.Add(OutcomeFlagged, 2)
	metrics.Add(OutcomeResolved, 1)
	metrics.Add(OutcomeSkipped, 0)
	metrics.SetFlagged(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "lendinglib_availability_reconcile_reservations_total", "outcome", "flagged"); err != nil || got != 2 {
		t.Fatalf("expected flagged=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "lendinglib_availability_reconcile_reservations_total", "outcome", "resolved"); err != nil || got != 1 {
		t.Fatalf("expected resolved=1, got %f err=%v", got, err)
	}
	if _, err := fetchCounterValue(mfs, "lendinglib_availability_reconcile_reservations_total", "outcome", "skipped"); err == nil {
		t.Fatal("zero increments should not create a series")
	}

	gauge := findMetricFamily(mfs, "lendinglib_availability_flagged_reservations")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("unexpected flagged gauge %v", gauge)
	}
}

func TestHTTPMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.Observe("/api/v1/conflicts", "GET", 200, 10*time.Millisecond)
	metrics.Observe("", "GET", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "lendinglib_http_requests_total", "route", "/api/v1/conflicts"); err != nil || got != 1 {
		t.Fatalf("expected one conflicts request, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "lendinglib_http_requests_total", "route", "unmatched"); err != nil || got != 1 {
		t.Fatalf("expected one unmatched request, got %f err=%v", got, err)
	}
}
