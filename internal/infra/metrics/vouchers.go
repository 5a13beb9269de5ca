package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		vouchersIssuedTotal,
		vouchersExpiredTotal,
		voucherEventsTotal,
	)
}

var (
	vouchersIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_issued_total",
			Help: "Total number of vouchers issued from completed checkouts.",
		},
	)

	vouchersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_expired_total",
			Help: "Total number of vouchers processed by the expiry worker.",
		},
	)

	voucherEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voucher_events_total",
			Help: "Voucher lifecycle transitions by event (redeemed/refunded/expired).",
		},
		[]string{"event"},
	)
)

func IncVouchersIssued() {
	vouchersIssuedTotal.Inc()
}

func IncVouchersExpired(count int) {
	vouchersExpiredTotal.Add(float64(count))
}

func IncVoucherEvent(event string) {
	voucherEventsTotal.WithLabelValues(event).Inc()
}
