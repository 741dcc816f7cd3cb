package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(fundsCreatedTotal, donationAmount) }

var fundsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "funds_created_total",
		Help: "Total number of funds created, labeled by kind.",
	},
	[]string{"kind"}, // 'birthday', 'event'
)

var donationAmount = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "donation_amount",
		Help:    "Distribution of recorded donation amounts in minor units.",
		Buckets: prometheus.ExponentialBuckets(100, 5, 8),
	},
)

func IncFundsCreated(kind string) {
	fundsCreatedTotal.WithLabelValues(kind).Inc()
}

func ObserveDonation(amount int64) {
	donationAmount.Observe(float64(amount))
}
