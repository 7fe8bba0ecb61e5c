package db

import (
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dbLatency = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "video_shoppe_db_latency_seconds",
			Help:       "The latency quantiles for the given rental store request",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"func"},
	)

	dbVolume = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_shoppe_db_volume",
			Help: "Number of times a given rental store request was made",
		},
		[]string{"func"},
	)

	dbErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_shoppe_db_errors",
			Help: "Number of times a given rental store request failed",
		},
		[]string{"func"},
	)

	// A miss is a lookup that found nothing or a guarded update whose condition no longer held, such as taking the
	// last copy of an item another checkout already took.
	dbMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_shoppe_db_misses",
			Help: "Number of times a given rental store request matched no row",
		},
		[]string{"func"},
	)
)

// Metric times one repository call.
type Metric struct {
	funcName string
	start    time.Time
}

func StartMetric(funcName string) *Metric {
	dbVolume.WithLabelValues(funcName).Inc()
	return &Metric{funcName: funcName, start: time.Now()}
}

// Complete records the call's latency. pgx.ErrNoRows counts as a miss rather than an error.
func (m *Metric) Complete(err error) {
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows):
		dbMisses.WithLabelValues(m.funcName).Inc()
	default:
		dbErrors.WithLabelValues(m.funcName).Inc()
	}
	dbLatency.WithLabelValues(m.funcName).Observe(time.Since(m.start).Seconds())
}

func init() {
	prometheus.MustRegister(dbVolume, dbLatency, dbErrors, dbMisses)
}
