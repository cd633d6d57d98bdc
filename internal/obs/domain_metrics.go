package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartOperationsTotal counts cart mutations by operation and outcome.
	CartOperationsTotal *prometheus.CounterVec
	// CouponApplicationsTotal counts coupon application attempts by discount type and outcome.
	CouponApplicationsTotal *prometheus.CounterVec
	// OrdersCompletedTotal counts completed orders.
	OrdersCompletedTotal prometheus.Counter
	// OrderValue records the final (after coupon) amount of completed orders.
	OrderValue prometheus.Histogram
	// CatalogWritesTotal counts admin product writes by operation and outcome.
	CatalogWritesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Count of cart operations by outcome.",
		}, []string{"operation", "result"})
		CouponApplicationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_applications_total",
			Help:      "Count of coupon application attempts by outcome.",
		}, []string{"type", "result"})
		OrdersCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_completed_total",
			Help:      "Total number of completed orders.",
		})
		OrderValue = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_won",
			Help:      "Distribution of completed order totals in won.",
			Buckets:   []float64{10000, 25000, 50000, 100000, 250000, 500000, 1000000},
		})
		CatalogWritesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_writes_total",
			Help:      "Count of admin catalog writes by outcome.",
		}, []string{"operation", "result"})

		mustRegisterCollector(reg, CartOperationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartOperationsTotal = v
			}
		})
		mustRegisterCollector(reg, CouponApplicationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponApplicationsTotal = v
			}
		})
		mustRegisterCollector(reg, OrdersCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				OrdersCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, OrderValue, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				OrderValue = v
			}
		})
		mustRegisterCollector(reg, CatalogWritesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogWritesTotal = v
			}
		})
	})
}

// ObserveCartOperation increments the cart operation counter when domain metrics are registered.
func ObserveCartOperation(operation, result string) {
	if CartOperationsTotal == nil {
		return
	}
	CartOperationsTotal.WithLabelValues(operation, result).Inc()
}

// ObserveCouponApplication increments the coupon counter when domain metrics are registered.
func ObserveCouponApplication(discountType, result string) {
	if CouponApplicationsTotal == nil {
		return
	}
	CouponApplicationsTotal.WithLabelValues(discountType, result).Inc()
}

// ObserveOrderCompleted records a completed order and its final amount.
func ObserveOrderCompleted(total int64) {
	if OrdersCompletedTotal != nil {
		OrdersCompletedTotal.Inc()
	}
	if OrderValue != nil {
		OrderValue.Observe(float64(total))
	}
}

// ObserveCatalogWrite increments the admin catalog write counter.
func ObserveCatalogWrite(operation, result string) {
	if CatalogWritesTotal == nil {
		return
	}
	CatalogWritesTotal.WithLabelValues(operation, result).Inc()
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
