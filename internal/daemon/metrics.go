package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noxstat_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noxstat_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noxstat_http_active_requests",
			Help: "Current number of active HTTP requests",
		},
	)

	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noxstat_polls_total",
			Help: "Backend polls by result",
		},
		[]string{"result"}, // ok, error
	)

	changesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noxstat_realtime_changes_total",
			Help: "Realtime changes applied to the dataset",
		},
		[]string{"table", "kind"},
	)

	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noxstat_exports_total",
			Help: "CSV exports by trigger and result",
		},
		[]string{"trigger", "result"}, // http/cron, ok/error
	)

	todayWaterPct = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noxstat_today_water_goal_percent",
			Help: "Today's water intake as a percentage of the daily goal",
		},
	)

	todayCaloriePct = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noxstat_today_calorie_goal_percent",
			Help: "Today's calorie intake as a percentage of the daily goal",
		},
	)
)
