package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_watch_reconnects_total",
			Help: "Total watch re-subscription attempts by resource.",
		},
		[]string{"resource"},
	)
	compactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_watch_compactions_total",
			Help: "Total full resyncs forced by control-plane compaction.",
		},
		[]string{"resource"},
	)
)
