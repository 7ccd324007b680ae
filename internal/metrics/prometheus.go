package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_created_total",
		Help: "Total orders created",
	})

	OrderTotalAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_amount_total",
		Help: "Sum of order totals in minor currency units",
	})

	PaymentsByOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payments_total",
		Help: "Payments by final outcome",
	}, []string{"outcome"})

	CouponsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_coupons_issued_total",
		Help: "Total coupon issues granted",
	})

	RaffleEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_raffle_entries_total",
		Help: "Total raffle entries accepted",
	})

	RaffleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_raffle_transitions_total",
		Help: "Raffle status transitions by target status",
	}, []string{"to"})

	RaffleDrawDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_raffle_draw_duration_seconds",
		Help:    "Time spent executing a raffle draw transaction",
		Buckets: prometheus.DefBuckets,
	})

	SSEClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_sse_clients",
		Help: "Current number of SSE clients connected",
	})

	HostCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_host_cpu_percent",
		Help: "Host CPU utilization percentage",
	})

	HostMemoryPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_host_memory_percent",
		Help: "Host memory utilization percentage",
	})
)

func IncOrderCreated(total int64) {
	OrdersCreated.Inc()
	if total > 0 {
		OrderTotalAmount.Add(float64(total))
	}
}

func IncPayment(outcome string) {
	label := strings.TrimSpace(strings.ToLower(outcome))
	if label == "" {
		label = "unknown"
	}
	PaymentsByOutcome.WithLabelValues(label).Inc()
}

func IncCouponIssued() {
	CouponsIssued.Inc()
}

func IncRaffleEntry() {
	RaffleEntries.Inc()
}

func IncRaffleTransition(to string) {
	label := strings.TrimSpace(to)
	if label == "" {
		label = "unknown"
	}
	RaffleTransitions.WithLabelValues(label).Inc()
}

func ObserveRaffleDrawDuration(duration time.Duration) {
	RaffleDrawDuration.Observe(duration.Seconds())
}

func SetSSEClients(count int) {
	if count < 0 {
		count = 0
	}
	SSEClients.Set(float64(count))
}

func SetHostCPUPercent(percent float64) {
	HostCPUPercent.Set(percent)
}

func SetHostMemoryPercent(percent float64) {
	HostMemoryPercent.Set(percent)
}
