package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
)

// roundQuery is the generated query for a new round.
type roundQuery struct {
	docID  int
	text   string
	vector []float64
}

// randSource is a goroutine-safe wrapper. A nil r uses the global generator.
type randSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *randSource) intN(n int) int {
	if s.r == nil {
		return rand.IntN(n) //nolint:gosec // game randomness
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *randSource) vector(dim int) []float64 {
	v := make([]float64, dim)
	if s.r == nil {
		for i := range v {
			v[i] = rand.Float64() //nolint:gosec // game randomness
		}
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range v {
		v[i] = s.r.Float64()
	}
	return v
}

// nextQuery builds the query for a round according to the configured source.
func (s *Service) nextQuery(ctx context.Context) (roundQuery, error) {
	switch s.cfg.QuerySource {
	case SourceRandom:
		return roundQuery{vector: s.rnd.vector(s.catalog.Dimensions())}, nil
	case SourceDocument:
		doc := s.pickDocument()
		return roundQuery{docID: doc.ID(), text: doc.Content(), vector: slices.Clone(doc.Embedding())}, nil
	case SourceEmbedding:
		if s.embedder == nil {
			return roundQuery{}, domain.ErrEmbedderNotConfigured
		}
		doc := s.pickDocument()
		res, err := s.embedder.Embed(ctx, doc.Content())
		if err != nil {
			return roundQuery{}, fmt.Errorf("embed query: %w", err)
		}
		if err := res.CheckDimensions(s.catalog.Dimensions()); err != nil {
			return roundQuery{}, fmt.Errorf("embed query: %w", err)
		}
		return roundQuery{docID: doc.ID(), text: doc.Content(), vector: res.Embedding}, nil
	default:
		return roundQuery{}, fmt.Errorf("unknown query source %q", s.cfg.QuerySource)
	}
}

func (s *Service) pickDocument() domdoc.Document {
	return s.catalog.At(s.rnd.intN(s.catalog.Len()))
}

// PrepareCatalog re-embeds every catalog document with e, in one batch where the
// provider supports it. Used when queries come from the same provider.
func PrepareCatalog(ctx context.Context, c *domdoc.Catalog, e domain.Embedder) (*domdoc.Catalog, error) {
	res, err := domain.BatchEmbed(ctx, e, c.Contents())
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}
	out, err := c.WithEmbeddings(res.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("rebuild catalog: %w", err)
	}
	return out, nil
}
