// Package metrics exposes the chat core's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

var (
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Live websocket connections held by the registry.",
	})

	MessagesPersisted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_persisted_total",
		Help:      "Messages appended to the store, by kind.",
	}, []string{"kind"})

	// Deliveries counts live pushes. result is delivered, offline or dropped.
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "live_deliveries_total",
		Help:      "Live push attempts to registered connections, by result.",
	}, []string{"result"})

	RejectedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rejected_events_total",
		Help:      "Inbound websocket events rejected without persisting, by reason.",
	}, []string{"reason"})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Attachment uploads, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(ActiveConnections)
	prometheus.MustRegister(MessagesPersisted)
	prometheus.MustRegister(Deliveries)
	prometheus.MustRegister(RejectedEvents)
	prometheus.MustRegister(Uploads)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
