// Package metrics holds the Prometheus collectors shared by the discovery
// loop and the transmitter. Collectors are registered once on the default
// registry and labelled by endpoint.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mcast"

var (
	PacketsReceived *prometheus.CounterVec
	BytesReceived   *prometheus.CounterVec
	// packets that could not be decoded into an intent
	PacketsDropped    *prometheus.CounterVec
	LoopErrors        *prometheus.CounterVec
	PacketsSent       *prometheus.CounterVec
	TransmitErrors    *prometheus.CounterVec
	ActiveDiscoveries prometheus.Gauge
)

var initOnce sync.Once

// Init registers all collectors. It is safe to call from every constructor.
func Init() {
	initOnce.Do(initPrometheusMetrics)
}

func initPrometheusMetrics() {
	PacketsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "packets_received_total",
		Help:      "Datagrams received by discovery loops",
	}, []string{"endpoint"})

	BytesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "bytes_received_total",
		Help:      "Payload bytes received by discovery loops",
	}, []string{"endpoint"})

	PacketsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "packets_dropped_total",
		Help:      "Datagrams dropped because they could not be decoded",
	}, []string{"endpoint"})

	LoopErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "errors_total",
		Help:      "Unexpected failures that stopped a discovery loop",
	}, []string{"endpoint"})

	PacketsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transmitter",
		Name:      "packets_sent_total",
		Help:      "Datagrams handed to the OS by transmitters",
	}, []string{"endpoint"})

	TransmitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "transmitter",
		Name:      "errors_total",
		Help:      "Failed transmit calls",
	}, []string{"endpoint"})

	ActiveDiscoveries = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "discovery",
		Name:      "active",
		Help:      "Discovery loops currently running",
	})
}
