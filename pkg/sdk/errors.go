package sdk

import (
	"fmt"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	api "github.com/kailas-cloud/vecquiz/internal/transport/chi"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrGameNotFound           = domain.ErrGameNotFound
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrInvalidVector          = domain.ErrInvalidVector
	ErrEmptyCandidates        = domain.ErrEmptyCandidates
	ErrUnknownMetric          = domain.ErrUnknownMetric
	ErrInvalidPlayer          = domain.ErrInvalidPlayer
	ErrPlayerNotFound         = domain.ErrPlayerNotFound
	ErrGameOver               = domain.ErrGameOver
	ErrRoundInProgress        = domain.ErrRoundInProgress
	ErrNoOpenRound            = domain.ErrNoOpenRound
	ErrRoundExpired           = domain.ErrRoundExpired
	ErrRateLimited            = domain.ErrRateLimited
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrEmbedderNotConfigured  = domain.ErrEmbedderNotConfigured
)

// APIError is a non-2xx response. It unwraps to the domain sentinel
// matching Code, if any.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	sentinel   error
}

func newAPIError(status int, body api.ErrorResponse) *APIError {
	return &APIError{
		StatusCode: status,
		Code:       string(body.Code),
		Message:    body.Message,
		sentinel:   api.SentinelForCode(body.Code),
	}
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("vecquiz: http %d", e.StatusCode)
	}
	return fmt.Sprintf("vecquiz: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap returns the domain sentinel behind Code.
func (e *APIError) Unwrap() error { return e.sentinel }
