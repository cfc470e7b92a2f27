// Package vecquiz ranks candidate embeddings against a query vector and grades
// a player's guess of the nearest neighbours.
//
//	scorer, _ := vecquiz.NewScorer[int](vecquiz.WithMetric(vecquiz.Cosine))
//	hits, _ := scorer.Score(ctx, []float64{0.7, 0.3, 0.2}, []vecquiz.Candidate[int]{
//	    {ID: 1, Vector: []float64{0.8, 0.2, 0.1}},
//	    {ID: 2, Vector: []float64{0.2, 0.8, 0.3}},
//	})
//	correct := scorer.Grade([]int{1}, hits, 1)
//
// The quiz service itself lives in cmd/vecquiz; pkg/sdk is its HTTP client.
package vecquiz
