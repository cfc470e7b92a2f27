package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking/metric"
)

// Candidate is one rankable item: an identifier and its embedding.
type Candidate[ID comparable] struct {
	ID     ID
	Vector []float64
}

// Ranked is a scored candidate. Position is the candidate's index in the input.
type Ranked[ID comparable] struct {
	ID       ID
	Score    float64
	Position int
}

// Score ranks every candidate against query using metric m.
// The result has one entry per candidate, sorted by similarity with ties kept in input order.
// Under cosine, a zero-magnitude query or candidate scores -Inf.
func Score[ID comparable](m metric.Metric, query []float64, candidates []Candidate[ID]) ([]Ranked[ID], error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, m)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrEmptyCandidates
	}
	if err := validateVector(query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	ranked := make([]Ranked[ID], len(candidates))
	for i, c := range candidates {
		if len(c.Vector) != len(query) {
			return nil, domain.NewDimMismatch(i, len(query), len(c.Vector))
		}
		if err := validateVector(c.Vector); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}

		var s float64
		switch m {
		case metric.Cosine:
			s = Cosine(query, c.Vector)
		case metric.Euclidean:
			s = Euclidean(query, c.Vector)
		}
		ranked[i] = Ranked[ID]{ID: c.ID, Score: s, Position: i}
	}

	if m.HigherIsBetter() {
		slices.SortStableFunc(ranked, func(a, b Ranked[ID]) int { return cmp.Compare(b.Score, a.Score) })
	} else {
		slices.SortStableFunc(ranked, func(a, b Ranked[ID]) int { return cmp.Compare(a.Score, b.Score) })
	}
	return ranked, nil
}

// TopK returns the ids of the first k ranked entries. k is clamped to [0, len(ranked)].
func TopK[ID comparable](ranked []Ranked[ID], k int) []ID {
	k = clampK(k, len(ranked))
	ids := make([]ID, k)
	for i := range k {
		ids[i] = ranked[i].ID
	}
	return ids
}

// Grade counts how many selected ids are among the top k ranked entries.
func Grade[ID comparable](selected map[ID]struct{}, ranked []Ranked[ID], k int) int {
	k = clampK(k, len(ranked))
	correct := 0
	for _, r := range ranked[:k] {
		if _, ok := selected[r.ID]; ok {
			correct++
		}
	}
	return correct
}

// Cosine returns the cosine similarity of a and b, or -Inf if either has zero magnitude.
// Vectors must have equal length. Each vector is scaled by its largest component
// first, so the result stays in [-1, 1] for any finite input.
func Cosine(a, b []float64) float64 {
	sa, sb := maxAbs(a), maxAbs(b)
	if sa == 0 || sb == 0 {
		return math.Inf(-1)
	}
	var dot, na, nb float64
	for i := range a {
		x, y := a[i]/sa, b[i]/sb
		dot += x * y
		na += x * x
		nb += y * y
	}
	return max(-1, min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
}

// Euclidean returns the straight-line distance between a and b. Vectors must have equal length.
// A distance beyond the float64 range is +Inf.
func Euclidean(a, b []float64) float64 {
	var scale float64
	for i := range a {
		scale = max(scale, math.Abs(a[i]-b[i]))
	}
	if scale == 0 || math.IsInf(scale, 0) {
		return scale
	}
	var sum float64
	for i := range a {
		d := (a[i] - b[i]) / scale
		sum += d * d
	}
	return scale * math.Sqrt(sum)
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		m = max(m, math.Abs(x))
	}
	return m
}

func validateVector(v []float64) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty", domain.ErrInvalidVector)
	}
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%w: component %d is not finite", domain.ErrInvalidVector, i)
		}
	}
	return nil
}

func clampK(k, n int) int {
	if k < 0 {
		return 0
	}
	if k > n {
		return n
	}
	return k
}
