package vecquiz

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking/metric"
)

// Metric is the similarity measure used to rank candidates.
type Metric = metric.Metric

// Supported metrics.
const (
	// Cosine ranks by angular similarity, higher is closer.
	Cosine = metric.Cosine
	// Euclidean ranks by straight-line distance, lower is closer.
	Euclidean = metric.Euclidean
)

// Candidate is an identifier with its embedding.
type Candidate[ID comparable] = ranking.Candidate[ID]

// Hit is a scored candidate. Position is its index in the input slice.
type Hit[ID comparable] = ranking.Ranked[ID]

// Scorer ranks candidates by similarity to a query. It is stateless apart
// from its options and safe for concurrent use.
type Scorer[ID comparable] struct {
	metric Metric
	obs    *observer
}

// NewScorer creates a Scorer. The default metric is Cosine.
func NewScorer[ID comparable](opts ...Option) (*Scorer[ID], error) {
	cfg := &scorerConfig{metric: Cosine}
	for _, o := range opts {
		o.apply(cfg)
	}
	if !cfg.metric.IsValid() {
		return nil, fmt.Errorf("vecquiz: %w: %q", ErrUnknownMetric, cfg.metric)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg, cfg.metric)
	if err != nil {
		return nil, err
	}
	return &Scorer[ID]{metric: cfg.metric, obs: obs}, nil
}

// Metric returns the configured metric.
func (s *Scorer[ID]) Metric() Metric { return s.metric }

// Score returns one hit per candidate, most similar first. Ties keep input order.
// Under Cosine a zero-magnitude vector scores -Inf.
func (s *Scorer[ID]) Score(ctx context.Context, query []float64, candidates []Candidate[ID]) ([]Hit[ID], error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		s.obs.observe("score", start, err)
		return nil, fmt.Errorf("vecquiz: %w", err)
	}

	hits, err := ranking.Score(s.metric, query, candidates)
	s.obs.observe("score", start, err, "candidates", len(candidates))
	if err != nil {
		return nil, fmt.Errorf("vecquiz: %w", err)
	}
	return hits, nil
}

// TopK returns the ids of the first k hits. k is clamped to [0, len(hits)].
func (s *Scorer[ID]) TopK(hits []Hit[ID], k int) []ID {
	return ranking.TopK(hits, k)
}

// Grade counts how many selected ids are among the first k hits.
// Duplicates in selected count once.
func (s *Scorer[ID]) Grade(selected []ID, hits []Hit[ID], k int) int {
	start := time.Now()
	set := make(map[ID]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}
	correct := ranking.Grade(set, hits, k)
	s.obs.observe("grade", start, nil, "k", k, "correct", correct)
	return correct
}
