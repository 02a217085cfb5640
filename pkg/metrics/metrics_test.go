package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if labelValue == "" || matchesLabel(metric, labelValue) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchesLabel(metric *dto.Metric, value string) bool {
	for _, label := range metric.GetLabel() {
		if label.GetValue() == value {
			return true
		}
	}
	return false
}

func TestMarketplaceMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMarketplaceMetrics(reg)

	m.IncPurchase("created")
	m.IncPurchase("created")
	m.IncPurchase("denied")
	m.IncPayout("settled")
	m.IncReveal()

	if got := counterValue(t, reg, "purchases_total", "created"); got != 2 {
		t.Fatalf("expected 2 created purchases, got %v", got)
	}
	if got := counterValue(t, reg, "purchases_total", "denied"); got != 1 {
		t.Fatalf("expected 1 denied purchase, got %v", got)
	}
	if got := counterValue(t, reg, "payouts_total", "settled"); got != 1 {
		t.Fatalf("expected 1 settled payout, got %v", got)
	}
	if got := counterValue(t, reg, "scratch_code_reveals_total", ""); got != 1 {
		t.Fatalf("expected 1 reveal, got %v", got)
	}
}

func TestMarketplaceMetricsNilSafe(t *testing.T) {
	var m *MarketplaceMetrics
	m.IncPurchase("created")
	m.IncPayout("settled")
	m.IncReveal()

	empty := NewMarketplaceMetrics(nil)
	empty.IncPurchase("")
	empty.IncReveal()
}
