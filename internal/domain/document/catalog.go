package document

import (
	"fmt"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
)

// Catalog is the fixed, ordered set of documents a quiz is played over.
// All embeddings share one dimensionality.
type Catalog struct {
	docs  []Document
	index map[int]int
	dim   int
}

// NewCatalog validates docs and builds a Catalog. Order is preserved.
func NewCatalog(docs []Document) (*Catalog, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents", domain.ErrInvalidCatalog)
	}

	c := &Catalog{
		docs:  make([]Document, len(docs)),
		index: make(map[int]int, len(docs)),
		dim:   docs[0].Dimensions(),
	}
	for i, d := range docs {
		if _, dup := c.index[d.ID()]; dup {
			return nil, fmt.Errorf("%w: duplicate document ID %d", domain.ErrInvalidCatalog, d.ID())
		}
		if d.Dimensions() != c.dim {
			return nil, fmt.Errorf("%w: document %d: %w",
				domain.ErrInvalidCatalog, d.ID(), domain.NewDimMismatch(-1, c.dim, d.Dimensions()))
		}
		c.docs[i] = d
		c.index[d.ID()] = i
	}
	return c, nil
}

// Documents returns the catalog documents in order.
func (c *Catalog) Documents() []Document { return c.docs }

// Len returns the number of documents.
func (c *Catalog) Len() int { return len(c.docs) }

// Dimensions returns the shared embedding dimensionality.
func (c *Catalog) Dimensions() int { return c.dim }

// Get returns the document with the given ID.
func (c *Catalog) Get(id int) (Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return Document{}, false
	}
	return c.docs[i], true
}

// Has reports whether the catalog contains id.
func (c *Catalog) Has(id int) bool {
	_, ok := c.index[id]
	return ok
}

// At returns the document at position i.
func (c *Catalog) At(i int) Document { return c.docs[i] }

// Contents returns the document texts in catalog order.
func (c *Catalog) Contents() []string {
	out := make([]string, len(c.docs))
	for i, d := range c.docs {
		out[i] = d.Content()
	}
	return out
}

// Candidates converts the catalog into ranking candidates in catalog order.
func (c *Catalog) Candidates() []ranking.Candidate[int] {
	out := make([]ranking.Candidate[int], len(c.docs))
	for i, d := range c.docs {
		out[i] = ranking.Candidate[int]{ID: d.ID(), Vector: d.Embedding()}
	}
	return out
}

// WithEmbeddings returns a new Catalog with embeddings replaced in order.
func (c *Catalog) WithEmbeddings(embeddings [][]float64) (*Catalog, error) {
	if len(embeddings) != len(c.docs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d documents",
			domain.ErrInvalidCatalog, len(embeddings), len(c.docs))
	}
	docs := make([]Document, len(c.docs))
	for i, d := range c.docs {
		nd, err := New(d.ID(), d.Content(), embeddings[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
		}
		docs[i] = nd
	}
	return NewCatalog(docs)
}
