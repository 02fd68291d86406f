package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_stream_connections",
			Help: "Currently open SSE stream connections.",
		},
	)
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_stream_events_total",
			Help: "Total SSE events written to clients by event name.",
		},
		[]string{"event"},
	)
)
