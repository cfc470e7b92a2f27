package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrGameNotFound signals a missing or expired game session.
	ErrGameNotFound = errors.New("game not found")
	// ErrDocumentNotFound signals a document id outside the catalog.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmptyCandidates signals a ranking call without candidates.
	ErrEmptyCandidates = errors.New("empty candidate set")
	// ErrInvalidVector signals an empty vector or a non-finite component.
	ErrInvalidVector = errors.New("invalid vector")
	// ErrUnknownMetric signals an unsupported similarity metric.
	ErrUnknownMetric = errors.New("unknown similarity metric")
	// ErrInvalidCatalog signals a seed catalog that violates its invariants.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrInvalidPlayer signals a missing or malformed player name.
	ErrInvalidPlayer = errors.New("invalid player name")
	// ErrPlayerNotFound signals a player without a recorded high score.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrGameOver signals an action on a finished or abandoned game.
	ErrGameOver = errors.New("game over")
	// ErrRoundInProgress signals a new round requested while one is open.
	ErrRoundInProgress = errors.New("round in progress")
	// ErrNoOpenRound signals a round action without an open round.
	ErrNoOpenRound = errors.New("no open round")
	// ErrRoundExpired signals a selection change after the round deadline.
	ErrRoundExpired = errors.New("round expired")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding token budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbedderNotConfigured signals the embedding query source without a provider.
	ErrEmbedderNotConfigured = errors.New("embedder not configured")
)

// DimMismatchError wraps ErrVectorDimMismatch with the offending sizes.
type DimMismatchError struct {
	Index    int // candidate position, -1 when not tied to a candidate
	Expected int
	Actual   int
}

func (e *DimMismatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: expected %d, got %d", ErrVectorDimMismatch.Error(), e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: candidate %d has %d dimensions, query has %d",
		ErrVectorDimMismatch.Error(), e.Index, e.Actual, e.Expected)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error for the candidate at index.
func NewDimMismatch(index, expected, actual int) error {
	return &DimMismatchError{Index: index, Expected: expected, Actual: actual}
}
