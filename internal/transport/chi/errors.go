package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/logger"
)

// ErrorCode is the stable machine-readable error identifier in API responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeGameNotFound           ErrorCode = "game_not_found"
	CodeDocumentNotFound       ErrorCode = "document_not_found"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeInvalidVector          ErrorCode = "invalid_vector"
	CodeEmptyCandidates        ErrorCode = "empty_candidates"
	CodeUnknownMetric          ErrorCode = "unknown_metric"
	CodeInvalidPlayer          ErrorCode = "invalid_player"
	CodePlayerNotFound         ErrorCode = "player_not_found"
	CodeGameOver               ErrorCode = "game_over"
	CodeRoundInProgress        ErrorCode = "round_in_progress"
	CodeNoOpenRound            ErrorCode = "no_open_round"
	CodeRoundExpired           ErrorCode = "round_expired"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingQuotaExceeded ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeEmbedderNotConfigured  ErrorCode = "embedder_not_configured"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelRoute maps a sentinel to its HTTP status and code. Order matters:
// the first match wins.
type sentinelRoute struct {
	err    error
	status int
	code   ErrorCode
}

var sentinelRoutes = []sentinelRoute{
	{domain.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},
	{domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound},
	{domain.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound},
	{domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeVectorDimMismatch},
	{domain.ErrInvalidVector, http.StatusBadRequest, CodeInvalidVector},
	{domain.ErrEmptyCandidates, http.StatusBadRequest, CodeEmptyCandidates},
	{domain.ErrUnknownMetric, http.StatusBadRequest, CodeUnknownMetric},
	{domain.ErrInvalidPlayer, http.StatusBadRequest, CodeInvalidPlayer},
	{domain.ErrGameOver, http.StatusConflict, CodeGameOver},
	{domain.ErrRoundInProgress, http.StatusConflict, CodeRoundInProgress},
	{domain.ErrNoOpenRound, http.StatusConflict, CodeNoOpenRound},
	{domain.ErrRoundExpired, http.StatusConflict, CodeRoundExpired},
	{domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
	{domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded},
	{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError},
	{domain.ErrEmbedderNotConfigured, http.StatusNotImplemented, CodeEmbedderNotConfigured},
}

// SentinelForCode returns the domain error behind an API error code, or nil.
func SentinelForCode(code ErrorCode) error {
	for _, r := range sentinelRoutes {
		if r.code == code {
			return r.err
		}
	}
	return nil
}

// safeDomainMessage returns the sentinel message without exposing wrapped internals.
// Validation sentinels keep their detail since it names the caller's mistake.
func safeDomainMessage(err error, sentinel error) string {
	switch {
	case errors.Is(sentinel, domain.ErrVectorDimMismatch),
		errors.Is(sentinel, domain.ErrInvalidVector),
		errors.Is(sentinel, domain.ErrInvalidPlayer),
		errors.Is(sentinel, domain.ErrUnknownMetric),
		errors.Is(sentinel, domain.ErrDocumentNotFound):
		return err.Error()
	default:
		return sentinel.Error()
	}
}

func sentinelHandler(route sentinelRoute) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, route.err) {
			return false
		}
		writeError(w, route.status, route.code, safeDomainMessage(err, route.err))
		return true
	}
}

func defaultErrorHandlers() []errorHandler {
	hs := make([]errorHandler, len(sentinelRoutes))
	for i, r := range sentinelRoutes {
		hs[i] = sentinelHandler(r)
	}
	return hs
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
