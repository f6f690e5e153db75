package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sockchat_connections",
		Help: "Number of live websocket connections.",
	})
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockchat_events_total",
		Help: "Inbound events processed, by event name.",
	}, []string{"event"})
	eventErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sockchat_event_errors_total",
		Help: "Events that failed and were reported back to the sender, by event name.",
	}, []string{"event"})
)
