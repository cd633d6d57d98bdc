package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDomainMetricsObserve(t *testing.T) {
	MustRegisterDomainMetrics("toko_test", prometheus.NewRegistry())

	before := testutil.ToFloat64(CartOperationsTotal.WithLabelValues("add", "ok"))
	ObserveCartOperation("add", "ok")
	require.Equal(t, before+1, testutil.ToFloat64(CartOperationsTotal.WithLabelValues("add", "ok")))

	ObserveCouponApplication("percentage", "ineligible")
	require.Equal(t, float64(1), testutil.ToFloat64(CouponApplicationsTotal.WithLabelValues("percentage", "ineligible")))

	orders := testutil.ToFloat64(OrdersCompletedTotal)
	ObserveOrderCompleted(85000)
	require.Equal(t, orders+1, testutil.ToFloat64(OrdersCompletedTotal))
	require.Equal(t, 1, testutil.CollectAndCount(OrderValue))
}
