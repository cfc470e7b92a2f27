package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking/metric"
	"github.com/kailas-cloud/vecquiz/internal/metrics"
)

// ScoreRequest ranks candidates against a query outside of any game.
type ScoreRequest struct {
	// Metric defaults to the configured one.
	Metric metric.Metric
	// Query is used as is. When empty, QueryText is embedded instead.
	Query     []float64
	QueryText string
	// Candidates default to the catalog when nil. An empty non-nil slice is
	// rejected with domain.ErrEmptyCandidates.
	Candidates []ranking.Candidate[int]
	// K defaults to the configured top K when zero. Negative K is clamped to 0.
	K int
	// Selected is graded against the top K when non-nil.
	Selected []int
}

// ScoreResult is the ranking and optional grade of a ScoreRequest.
type ScoreResult struct {
	Metric  metric.Metric
	K       int
	Ranked  []ranking.Ranked[int]
	TopK    []int
	Correct *int
}

// Score ranks the candidates. It keeps no state.
func (s *Service) Score(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	m := req.Metric
	if m == "" {
		m = s.cfg.Metric
	}
	k := req.K
	if k == 0 {
		k = s.cfg.TopK
	}
	candidates := req.Candidates
	if candidates == nil {
		candidates = s.catalog.Candidates()
	}

	query := req.Query
	if len(query) == 0 && req.QueryText != "" {
		if s.embedder == nil {
			return ScoreResult{}, domain.ErrEmbedderNotConfigured
		}
		res, err := s.embedder.Embed(ctx, req.QueryText)
		if err != nil {
			return ScoreResult{}, fmt.Errorf("embed query: %w", err)
		}
		query = res.Embedding
	}

	start := time.Now()
	ranked, err := ranking.Score(m, query, candidates)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("score: %w", err)
	}
	metrics.ScoringDuration.WithLabelValues(string(m)).Observe(time.Since(start).Seconds())

	out := ScoreResult{Metric: m, K: k, Ranked: ranked, TopK: ranking.TopK(ranked, k)}
	if req.Selected != nil {
		sel := make(map[int]struct{}, len(req.Selected))
		for _, id := range req.Selected {
			sel[id] = struct{}{}
		}
		correct := ranking.Grade(sel, ranked, k)
		out.Correct = &correct
	}
	return out, nil
}
