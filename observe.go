package vecquiz

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type scorerMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newScorerMetrics(reg prometheus.Registerer) (*scorerMetrics, error) {
	calls, err := reuse(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vecquiz",
		Subsystem: "scorer",
		Name:      "calls_total",
		Help:      "Scorer calls by operation, metric and result.",
	}, []string{"operation", "metric", "result"}))
	if err != nil {
		return nil, err
	}
	duration, err := reuse(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vecquiz",
		Subsystem: "scorer",
		Name:      "call_duration_seconds",
		Help:      "Scorer call latency.",
		Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
	}, []string{"operation", "metric"}))
	if err != nil {
		return nil, err
	}
	return &scorerMetrics{calls: calls, duration: duration}, nil
}

// reuse registers c, or returns the collector another Scorer already
// registered under the same name.
func reuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, fmt.Errorf("vecquiz: register scorer metrics: %w", err)
	}
	existing, ok := are.ExistingCollector.(C)
	if !ok {
		return c, fmt.Errorf("vecquiz: scorer metric registered as %T", are.ExistingCollector)
	}
	return existing, nil
}

// observer logs and counts scorer calls. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *scorerMetrics
	metric  string
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer, m Metric) (*observer, error) {
	o := &observer{logger: logger, metric: string(m)}
	if reg == nil {
		return o, nil
	}
	var err error
	if o.metrics, err = newScorerMetrics(reg); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *observer) observe(op string, start time.Time, err error, attrs ...any) {
	elapsed := time.Since(start)
	result := resultOf(err)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, o.metric, result).Inc()
		o.metrics.duration.WithLabelValues(op, o.metric).Observe(elapsed.Seconds())
	}
	if o.logger == nil {
		return
	}

	args := append([]any{"op", op, "metric", o.metric, "duration", elapsed}, attrs...)
	if err != nil {
		o.logger.Warn("scorer call failed", append(args, "result", result, "error", err)...)
		return
	}
	o.logger.Debug("scorer call", args...)
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrVectorDimMismatch):
		return "dimension_mismatch"
	case errors.Is(err, ErrInvalidVector):
		return "invalid_vector"
	case errors.Is(err, ErrEmptyCandidates):
		return "empty"
	default:
		return "error"
	}
}
