package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "medinsight"

// Metrics holds the service collectors. Each instance owns its registry so
// tests and multiple binaries never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	QuestionsTotal   *prometheus.CounterVec
	FailedTurnsTotal *prometheus.CounterVec
	AnswerDuration   prometheus.Histogram
	IndexedDocuments prometheus.Gauge
	ActiveSessions   prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// Questions received, by surface (web, api, tui)
		QuestionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "questions_total",
				Help:      "Total number of questions received",
			},
			[]string{"surface"},
		),

		// Turns answered with an error message, by error kind
		FailedTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_turns_total",
				Help:      "Total number of chat turns that ended in an error message",
			},
			[]string{"kind"},
		),

		// Retrieval plus generation, end to end
		AnswerDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "answer_duration_seconds",
				Help:      "Duration of answering one question in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		IndexedDocuments: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indexed_documents",
				Help:      "Number of documents in the vector index",
			},
		),

		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_sessions",
				Help:      "Number of chat sessions held by the in-memory store",
			},
		),
	}
}

func (m *Metrics) RecordQuestion(surface string) {
	m.QuestionsTotal.WithLabelValues(surface).Inc()
}

func (m *Metrics) RecordFailure(kind string) {
	m.FailedTurnsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveAnswer(d time.Duration) {
	m.AnswerDuration.Observe(d.Seconds())
}

func (m *Metrics) SetIndexedDocuments(n int) {
	m.IndexedDocuments.Set(float64(n))
}

func (m *Metrics) SetActiveSessions(n int) {
	m.ActiveSessions.Set(float64(n))
}

// Handler serves the exposition format for this registry only.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
