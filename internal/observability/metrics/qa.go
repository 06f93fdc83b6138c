package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

const namespace = "hqa"

// QAMetrics counts answered questions per transport and mode.
type QAMetrics struct {
	requestsTotal    *prometheus.CounterVec
	abstentionsTotal *prometheus.CounterVec
	partialTotal     *prometheus.CounterVec
	returnedResults  *prometheus.HistogramVec
	duration         *prometheus.HistogramVec
}

func newQAMetrics(registry prometheus.Registerer) *QAMetrics {
	m := &QAMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "qa",
				Name:      "requests_total",
				Help:      "Total answered questions by transport and mode.",
			},
			[]string{"service", "transport", "mode"},
		),
		abstentionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "qa",
				Name:      "abstentions_total",
				Help:      "Total abstained contexts by mode and reason.",
			},
			[]string{"service", "mode", "reason"},
		),
		partialTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "qa",
				Name:      "partial_total",
				Help:      "Total answers cut short by the query deadline.",
			},
			[]string{"service", "mode"},
		),
		returnedResults: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "qa",
				Name:      "returned_results",
				Help:      "Distribution of contexts returned per answer.",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"service", "mode"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "qa",
				Name:      "duration_seconds",
				Help:      "Question answering duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "mode"},
		),
	}
	registry.MustRegister(m.requestsTotal, m.abstentionsTotal, m.partialTotal, m.returnedResults, m.duration)
	return m
}

// ObserveAnswer records one answered question. The mode label is taken from
// the answer: only hybrid answers report the reranker as used.
func (m *QAMetrics) ObserveAnswer(service, transport string, answer *domain.Answer, duration time.Duration) {
	if m == nil || answer == nil {
		return
	}
	modeLabel := string(domain.ModeSemantic)
	if answer.RerankerUsed {
		modeLabel = string(domain.ModeHybrid)
	}

	m.requestsTotal.WithLabelValues(service, transport, modeLabel).Inc()
	m.returnedResults.WithLabelValues(service, modeLabel).Observe(float64(len(answer.Contexts)))
	m.duration.WithLabelValues(service, modeLabel).Observe(duration.Seconds())
	if answer.Partial {
		m.partialTotal.WithLabelValues(service, modeLabel).Inc()
	}
	for _, c := range answer.Contexts {
		if c.Abstained {
			m.abstentionsTotal.WithLabelValues(service, modeLabel, c.AbstainReason).Inc()
		}
	}
}
