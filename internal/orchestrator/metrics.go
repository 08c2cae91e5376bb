package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks engine activity for the /metrics endpoint.
type Metrics struct {
	JobsStarted      prometheus.Counter
	JobsFinished     *prometheus.CounterVec
	RunningJobs      prometheus.Gauge
	Attempts         *prometheus.CounterVec
	AttemptScores    prometheus.Histogram
	Escalations      prometheus.Counter
	QuestionsAsked   prometheus.Counter
	QuestionTimeouts prometheus.Counter
}

// NewMetrics registers engine metrics with reg. A nil registerer
// yields unregistered metrics, which keeps tests independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "anvil_jobs_started_total",
			Help: "Jobs whose attempt loop has started.",
		}),
		JobsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anvil_jobs_finished_total",
			Help: "Jobs finished, by terminal status.",
		}, []string{"status"}),
		RunningJobs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "anvil_jobs_running",
			Help: "Jobs currently running their attempt loop.",
		}),
		Attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anvil_attempts_total",
			Help: "Generation attempts, by tier.",
		}, []string{"tier"}),
		AttemptScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "anvil_attempt_score",
			Help:    "Validation scores of completed attempts.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		Escalations: factory.NewCounter(prometheus.CounterOpts{
			Name: "anvil_escalations_total",
			Help: "Tier escalations across all jobs.",
		}),
		QuestionsAsked: factory.NewCounter(prometheus.CounterOpts{
			Name: "anvil_questions_asked_total",
			Help: "Clarifying questions published to the human channel.",
		}),
		QuestionTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "anvil_question_timeouts_total",
			Help: "Questions resolved by timeout instead of a human answer.",
		}),
	}
}
