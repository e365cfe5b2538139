package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks order processing outcomes and stock contention.
type OrderMetrics struct {
	created          prometheus.Counter
	completed        prometheus.Counter
	cancelled        prometheus.Counter
	stockConflicts   *prometheus.CounterVec
	restocks         prometheus.Counter
	completeDuration prometheus.Histogram
}

// NewOrderMetrics registers the order processing metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created.",
	})
	completed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Orders that consumed stock and reached completed.",
	})
	cancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders cancelled while pending.",
	})
	stockConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_conflicts_total",
		Help: "Operations rejected because available stock was insufficient.",
	}, []string{"operation"})
	restocks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restocks_total",
		Help: "Successful restock operations.",
	})
	completeDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_complete_duration_seconds",
		Help:    "Duration of order completion transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, completed, cancelled, stockConflicts, restocks, completeDuration)
	return &OrderMetrics{
		created:          created,
		completed:        completed,
		cancelled:        cancelled,
		stockConflicts:   stockConflicts,
		restocks:         restocks,
		completeDuration: completeDuration,
	}
}

// IncCreated increments the created counter.
func (m *OrderMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

// IncCompleted increments the completed counter.
func (m *OrderMetrics) IncCompleted() {
	if m == nil || m.completed == nil {
		return
	}
	m.completed.Inc()
}

// IncCancelled increments the cancelled counter.
func (m *OrderMetrics) IncCancelled() {
	if m == nil || m.cancelled == nil {
		return
	}
	m.cancelled.Inc()
}

// IncStockConflict counts a stock-insufficient rejection for the named operation.
func (m *OrderMetrics) IncStockConflict(operation string) {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncRestock increments the restock counter.
func (m *OrderMetrics) IncRestock() {
	if m == nil || m.restocks == nil {
		return
	}
	m.restocks.Inc()
}

// ObserveCompleteDuration records how long a completion transaction took.
func (m *OrderMetrics) ObserveCompleteDuration(duration time.Duration) {
	if m == nil || m.completeDuration == nil {
		return
	}
	m.completeDuration.Observe(duration.Seconds())
}
