// Package metrics holds the Prometheus collectors of the editor service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command and save results.
const (
	ResultOK       = "ok"
	ResultNoop     = "noop"
	ResultRejected = "rejected"
	ResultInvalid  = "invalid"
	ResultFailed   = "failed"
)

type Metrics struct {
	commands           *prometheus.CounterVec
	saves              *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	backendDuration    *prometheus.HistogramVec
	openSessions       prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_commands_total",
			Help: "Editor commands by name and result.",
		}, []string{"command", "result"}),
		saves: f.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_saves_total",
			Help: "Save attempts by result.",
		}, []string{"result"}),
		validationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "editor_validation_failures_total",
			Help: "Saves refused by document validation, by rule.",
		}, []string{"rule"}),
		backendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Latency of listening backend calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		openSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "editor_open_sessions",
			Help: "Editor sessions currently held in memory.",
		}),
	}
}

func (m *Metrics) Command(command, result string) {
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) Save(result string) {
	m.saves.WithLabelValues(result).Inc()
}

func (m *Metrics) ValidationFailure(rule string) {
	m.validationFailures.WithLabelValues(rule).Inc()
}

func (m *Metrics) SessionOpened() { m.openSessions.Inc() }
func (m *Metrics) SessionClosed() { m.openSessions.Dec() }

// ObserveBackend matches backend.Observer. Status 0 means the request never got an answer.
func (m *Metrics) ObserveBackend(operation string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.backendDuration.WithLabelValues(operation, label).Observe(elapsed.Seconds())
}
