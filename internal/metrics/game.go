package metrics

import "github.com/prometheus/client_golang/prometheus"

// Quiz Prometheus metrics.
var (
	GamesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_total",
			Help:      "Games by lifecycle transition",
		},
		[]string{"status"}, // started / finished / abandoned
	)

	RoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Graded rounds by outcome",
		},
		[]string{"outcome"}, // submitted / expired
	)

	RoundPoints = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_points",
			Help:      "Points awarded per graded round",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
	)

	ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scoring_duration_seconds",
			Help:      "Time to score a candidate set",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
		[]string{"metric"},
	)

	OpenRounds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_rounds",
			Help:      "Rounds with a running countdown in this process",
		},
	)
)
