package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MarketplaceMetrics counts the money-path operations of the core.
type MarketplaceMetrics struct {
	purchases *prometheus.CounterVec
	payouts   *prometheus.CounterVec
	reveals   prometheus.Counter
}

// NewMarketplaceMetrics registers the marketplace counters on the provided
// registerer. A nil registerer yields a no-op instance for tests.
func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_total",
		Help: "Purchase attempts by outcome.",
	}, []string{"result"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payouts_total",
		Help: "Payout records by action.",
	}, []string{"action"})
	reveals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scratch_code_reveals_total",
		Help: "Successful scratch code reveals.",
	})
	reg.MustRegister(purchases, payouts, reveals)
	return &MarketplaceMetrics{
		purchases: purchases,
		payouts:   payouts,
		reveals:   reveals,
	}
}

// IncPurchase counts one purchase attempt with the given outcome label.
func (m *MarketplaceMetrics) IncPurchase(result string) {
	if m == nil || m.purchases == nil {
		return
	}
	m.purchases.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncPayout counts one payout action (settled, paid, rejected, bulk_paid).
func (m *MarketplaceMetrics) IncPayout(action string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(action)).Inc()
}

// IncReveal counts one successful scratch code reveal.
func (m *MarketplaceMetrics) IncReveal() {
	if m == nil || m.reveals == nil {
		return
	}
	m.reveals.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
