package generation

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names one step of a generation attempt.
type Stage string

// Attempt stages.
const (
	StageGenerate    Stage = "generate"
	StageSafetyCheck Stage = "safety_check"
)

// Observer receives side-effecting notifications from the Runner. It never
// influences control flow.
type Observer interface {
	AttemptStarted(attempt int)
	StageFinished(stage Stage, duration time.Duration, err error)
	Retried(attempt int)
	Finished(attempts int, err error)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) AttemptStarted(int)                        {}
func (NopObserver) StageFinished(Stage, time.Duration, error) {}
func (NopObserver) Retried(int)                               {}
func (NopObserver) Finished(int, error)                       {}

var (
	attemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizgen_generation_attempts_total",
		Help: "Number of quiz generation attempts started",
	})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quizgen_generation_retries_total",
		Help: "Number of quiz generation attempts that were retries",
	})

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quizgen_generation_stage_duration_seconds",
			Help:    "Duration of each generation stage",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"stage", "result"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizgen_generation_runs_total",
			Help: "Finished generation runs by outcome",
		},
		[]string{"outcome"},
	)

	attemptsPerRun = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quizgen_generation_attempts_per_run",
		Help:    "Attempts spent by each finished generation run",
		Buckets: prometheus.LinearBuckets(1, 1, 5),
	})
)

// PrometheusObserver records generation activity as Prometheus metrics.
type PrometheusObserver struct{}

var _ Observer = PrometheusObserver{}

func (PrometheusObserver) AttemptStarted(int) {
	attemptsTotal.Inc()
}

func (PrometheusObserver) StageFinished(stage Stage, duration time.Duration, err error) {
	stageDuration.WithLabelValues(string(stage), ErrorKind(err)).Observe(duration.Seconds())
}

func (PrometheusObserver) Retried(int) {
	retriesTotal.Inc()
}

func (PrometheusObserver) Finished(attempts int, err error) {
	runsTotal.WithLabelValues(ErrorKind(err)).Inc()
	attemptsPerRun.Observe(float64(attempts))
}

// ErrorKind classifies err into a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSafetyCheckFailed):
		return "safety_check"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrMaxGenerationAttempts):
		return "max_attempts"
	default:
		return "generation"
	}
}
