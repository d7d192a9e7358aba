package sync

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var histogramCycleDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "baremin",
		Subsystem: "sync",
		Name:      "histogram_cycle_duration_seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	},
	[]string{"status"},
)

var counterPushedRecords = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "baremin",
		Subsystem: "sync",
		Name:      "counter_pushed_records_total",
	},
	[]string{"outcome"},
)

func observeCycle(elapsed time.Duration, status string) {
	histogramCycleDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func observePush(succeeded, failed int) {
	counterPushedRecords.WithLabelValues("succeeded").Add(float64(succeeded))
	counterPushedRecords.WithLabelValues("failed").Add(float64(failed))
}
