package openai

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/metrics"
)

// Error kinds reported in embedding_errors_total.
const (
	errKindAPI        = "api_error"
	errKindRateLimit  = "rate_limited"
	errKindCount      = "count_mismatch"
	errKindDimensions = "dimension_mismatch"
)

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // 0 keeps the model's native size and skips the check
	User       string
	Provider   string
	Logger     *zap.Logger
}

// Embedder calls an OpenAI-compatible embeddings API (OpenAI, Nebius, Ollama).
// Every response is checked for one vector per input of the configured size.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	provider   string
	logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		user:       cfg.User,
		provider:   cfg.Provider,
		logger:     log.With(zap.String("provider", cfg.Provider), zap.String("model", cfg.Model)),
	}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.create(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder with one API request.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return e.create(ctx, texts)
}

// HealthCheck lists models, which costs no tokens.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) create(ctx context.Context, inputs []string) (domain.BatchEmbeddingResult, error) {
	req := openai.EmbeddingRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
		Dimensions:     e.dimensions,
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		err = classify(err)
		kind := errKindAPI
		if errors.Is(err, domain.ErrRateLimited) {
			kind = errKindRateLimit
		}
		e.fail(kind, err, len(inputs))
		return domain.BatchEmbeddingResult{}, err
	}

	out, err := e.decode(resp, len(inputs))
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(elapsed.Seconds())
	if out.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(out.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(out.TotalTokens))
	}
	e.logger.Debug("embeddings created",
		zap.Int("inputs", len(inputs)),
		zap.Int("total_tokens", out.TotalTokens),
		zap.Duration("duration", elapsed),
	)
	return out, nil
}

// decode orders the vectors by Index (providers may shuffle them) and checks
// count and size.
func (e *Embedder) decode(resp openai.EmbeddingResponse, inputs int) (domain.BatchEmbeddingResult, error) {
	if len(resp.Data) != inputs {
		err := fmt.Errorf("got %d embeddings for %d inputs: %w", len(resp.Data), inputs, domain.ErrEmbeddingProviderError)
		e.fail(errKindCount, err, inputs)
		return domain.BatchEmbeddingResult{}, err
	}

	data := slices.Clone(resp.Data)
	slices.SortFunc(data, func(a, b openai.Embedding) int { return cmp.Compare(a.Index, b.Index) })

	out := domain.BatchEmbeddingResult{
		Embeddings:   make([][]float64, len(data)),
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	for i, d := range data {
		if e.dimensions > 0 && len(d.Embedding) != e.dimensions {
			err := fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError,
				domain.NewDimMismatch(i, e.dimensions, len(d.Embedding)))
			e.fail(errKindDimensions, err, inputs)
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = widen(d.Embedding)
	}
	return out, nil
}

func (e *Embedder) fail(kind string, err error, inputs int) {
	model := string(e.model)
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, kind).Inc()
	e.logger.Warn("embedding request failed",
		zap.String("kind", kind),
		zap.Int("inputs", inputs),
		zap.Error(err),
	)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// classify wraps a client error in domain.ErrEmbeddingProviderError, adding
// domain.ErrRateLimited when the provider throttled us.
func classify(err error) error {
	status, detail := 0, ""

	var reqErr *openai.RequestError
	var apiErr *openai.APIError
	switch {
	case errors.As(err, &apiErr):
		status, detail = apiErr.HTTPStatusCode, apiErr.Message
	case errors.As(err, &reqErr):
		status, detail = reqErr.HTTPStatusCode, errorDetail(reqErr.Body)
	default:
		return fmt.Errorf("embedding request failed: %w: %w", domain.ErrEmbeddingProviderError, err)
	}

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("embedding API error %d: %s: %w: %w",
			status, detail, domain.ErrRateLimited, domain.ErrEmbeddingProviderError)
	}
	return fmt.Errorf("embedding API error %d: %s: %w", status, detail, domain.ErrEmbeddingProviderError)
}

// errorDetail extracts a readable message from a non-OpenAI error body, such
// as Nebius' {"detail": "..."}. It falls back to the raw body.
func errorDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return string(body)
}
