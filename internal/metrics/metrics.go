// Package metrics holds the Prometheus collectors of the parking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "parking"

// ParkingMetrics groups every collector. A nil *ParkingMetrics records nothing.
type ParkingMetrics struct {
	// HTTP
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// parking flow
	ParkTotal     *prometheus.CounterVec // by result
	UnparkTotal   *prometheus.CounterVec // by result
	PayableAmount prometheus.Histogram
	OccupiedSlots *prometheus.GaugeVec // by complex

	// gate queue
	GateCommandTotal *prometheus.CounterVec // by action, result
}

func New(namespace string) *ParkingMetrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &ParkingMetrics{
		HTTPRequestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ParkTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "park_total",
				Help:      "Park attempts by result.",
			},
			[]string{"result"},
		),
		UnparkTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "unpark_total",
				Help:      "Unpark attempts by result.",
			},
			[]string{"result"},
		),
		PayableAmount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "payable_amount",
				Help:      "Fee charged per unpark.",
				Buckets:   []float64{0, 40, 100, 200, 500, 1000, 5000, 10000},
			},
		),
		OccupiedSlots: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "occupied_slots",
				Help:      "Occupied slots per parking complex.",
			},
			[]string{"complex"},
		),
		GateCommandTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gate_commands_total",
				Help:      "Gate queue commands by action and result.",
			},
			[]string{"action", "result"},
		),
	}
}

// Register adds every collector to registerer.
func (m *ParkingMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestTotal,
		m.HTTPRequestDuration,
		m.ParkTotal,
		m.UnparkTotal,
		m.PayableAmount,
		m.OccupiedSlots,
		m.GateCommandTotal,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}

func (m *ParkingMetrics) RecordHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

func (m *ParkingMetrics) RecordPark(success bool) {
	if m == nil {
		return
	}
	m.ParkTotal.WithLabelValues(result(success)).Inc()
}

func (m *ParkingMetrics) RecordUnpark(success bool, payable float64) {
	if m == nil {
		return
	}
	m.UnparkTotal.WithLabelValues(result(success)).Inc()
	if success {
		m.PayableAmount.Observe(payable)
	}
}

func (m *ParkingMetrics) SetOccupied(complexName string, n int) {
	if m == nil {
		return
	}
	m.OccupiedSlots.WithLabelValues(complexName).Set(float64(n))
}

func (m *ParkingMetrics) RecordGateCommand(action string, success bool) {
	if m == nil {
		return
	}
	m.GateCommandTotal.WithLabelValues(action, result(success)).Inc()
}
