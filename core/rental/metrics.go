package rental

import "github.com/prometheus/client_golang/prometheus"

var (
	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_shoppe_checkouts",
			Help: "Number of committed checkouts by kind",
		},
		[]string{"kind"},
	)

	returns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "video_shoppe_returns",
			Help: "Number of committed returns",
		},
	)

	consistencyErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_shoppe_consistency_errors",
			Help: "Number of transactions whose commit outcome is unknown and need reconciliation",
		},
		[]string{"operation"},
	)

	publishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_shoppe_publish_failures",
			Help: "Number of committed changes that could not be published to the broker",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(checkouts)
	prometheus.MustRegister(returns)
	prometheus.MustRegister(consistencyErrors)
	prometheus.MustRegister(publishFailures)
}
