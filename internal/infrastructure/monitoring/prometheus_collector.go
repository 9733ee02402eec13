package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Gauges
	connectionsActive  prometheus.Gauge
	roomsActive        prometheus.Gauge
	participantsActive prometheus.Gauge

	// Counters
	actionsTotal    *prometheus.CounterVec
	broadcastsTotal prometheus.Counter
	roomsTotal      prometheus.Counter

	// Histograms
	sfuCallDuration *prometheus.HistogramVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomcast_connections_active",
			Help: "Number of live signaling connections",
		}),

		roomsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomcast_rooms_active",
			Help: "Number of rooms currently in the directory",
		}),

		participantsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "roomcast_participants_active",
			Help: "Number of participants currently joined across all rooms",
		}),

		actionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "roomcast_signal_actions_total",
			Help: "Total signaling actions processed",
		}, []string{"action", "outcome"}),

		broadcastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roomcast_broadcasts_total",
			Help: "Total room broadcast messages delivered",
		}),

		roomsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "roomcast_rooms_created_total",
			Help: "Total rooms created",
		}),

		sfuCallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roomcast_sfu_call_duration_seconds",
			Help:    "Duration of RPC calls against the SFU",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}, []string{"call", "outcome"}),
	}
}

func (p *PrometheusCollector) RecordConnectionOpened() {
	p.connectionsActive.Inc()
}

func (p *PrometheusCollector) RecordConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RecordRoomCreated() {
	p.roomsActive.Inc()
	p.roomsTotal.Inc()
}

func (p *PrometheusCollector) RecordRoomClosed() {
	p.roomsActive.Dec()
}

func (p *PrometheusCollector) RecordParticipantJoined() {
	p.participantsActive.Inc()
}

func (p *PrometheusCollector) RecordParticipantLeft() {
	p.participantsActive.Dec()
}

func (p *PrometheusCollector) RecordAction(action, outcome string) {
	p.actionsTotal.WithLabelValues(action, outcome).Inc()
}

func (p *PrometheusCollector) RecordBroadcast() {
	p.broadcastsTotal.Inc()
}

func (p *PrometheusCollector) ObserveSfuCall(call string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	p.sfuCallDuration.WithLabelValues(call, outcome).Observe(duration.Seconds())
}
