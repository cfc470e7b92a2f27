package vecquiz

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Scorer.
type Option interface {
	apply(*scorerConfig)
}

type optionFunc func(*scorerConfig)

func (f optionFunc) apply(c *scorerConfig) { f(c) }

type scorerConfig struct {
	metric     Metric
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMetric sets the similarity metric. Default: Cosine.
func WithMetric(m Metric) Option {
	return optionFunc(func(c *scorerConfig) {
		c.metric = m
	})
}

// WithLogger enables structured logging of scorer calls.
// Pass nil to disable (default).
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *scorerConfig) {
		c.logger = l
	})
}

// WithPrometheus registers operation counts and durations on reg.
// Collectors already registered by another Scorer are reused.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *scorerConfig) {
		c.metricsReg = reg
	})
}
