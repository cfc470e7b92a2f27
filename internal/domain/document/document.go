package document

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// MaxContentSize is the maximum document content size in bytes.
const MaxContentSize = 4096

// Document is a catalog entry (immutable value object).
type Document struct {
	id        int
	content   string
	embedding []float64
}

// New validates and creates a Document.
// ID: positive. Content: non-blank, max 4KB. Embedding: non-empty, finite components.
func New(id int, content string, embedding []float64) (Document, error) {
	if id <= 0 {
		return Document{}, fmt.Errorf("document ID must be positive, got %d", id)
	}
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("document %d: content is required", id)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("document %d: content too large (max %d bytes)", id, MaxContentSize)
	}
	if len(embedding) == 0 {
		return Document{}, fmt.Errorf("document %d: embedding is required", id)
	}
	for i, x := range embedding {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Document{}, fmt.Errorf("document %d: embedding component %d is not finite", id, i)
		}
	}

	return Document{id: id, content: content, embedding: slices.Clone(embedding)}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id int, content string, embedding []float64) Document {
	return Document{id: id, content: content, embedding: embedding}
}

// ID returns the document identifier.
func (d *Document) ID() int { return d.id }

// Content returns the document text content.
func (d *Document) Content() string { return d.content }

// Embedding returns the embedding vector. Callers must not modify it.
func (d *Document) Embedding() []float64 { return d.embedding }

// Dimensions returns the embedding length.
func (d *Document) Dimensions() int { return len(d.embedding) }

// WithEmbedding returns a copy with the given embedding set.
func (d *Document) WithEmbedding(v []float64) Document {
	return Document{id: d.id, content: d.content, embedding: v}
}
