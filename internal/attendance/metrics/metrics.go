// Package metrics exposes Prometheus metrics for the attendance module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TransitionsTotal        *prometheus.CounterVec
	TransitionsRejected     *prometheus.CounterVec
	GeofenceClassifications *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftgate_attendance_transitions_total",
			Help: "Successful attendance transitions by kind",
		}, []string{"kind"}),
		TransitionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftgate_attendance_transitions_rejected_total",
			Help: "Rejected attendance transitions by kind and error code",
		}, []string{"kind", "code"}),
		GeofenceClassifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftgate_geofence_classifications_total",
			Help: "Geofence status observed at clock-in gating",
		}, []string{"status"}),
	}
}

func (m *Metrics) TransitionSucceeded(kind string) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) TransitionRejected(kind, code string) {
	if m == nil {
		return
	}
	m.TransitionsRejected.WithLabelValues(kind, code).Inc()
}

func (m *Metrics) GeofenceObserved(status string) {
	if m == nil {
		return
	}
	m.GeofenceClassifications.WithLabelValues(status).Inc()
}
