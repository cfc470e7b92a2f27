package quiz

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking/metric"
)

// QuerySource selects how a round's query vector is produced.
type QuerySource string

// Query sources.
const (
	// SourceRandom draws every component uniformly from [0, 1).
	SourceRandom QuerySource = "random"
	// SourceDocument copies the embedding of a randomly chosen catalog document.
	SourceDocument QuerySource = "document"
	// SourceEmbedding embeds the chosen document's text with the provider.
	SourceEmbedding QuerySource = "embedding"
)

// IsValid checks if the source is one of the supported values.
func (q QuerySource) IsValid() bool {
	return q == SourceRandom || q == SourceDocument || q == SourceEmbedding
}

// DefaultRoundDuration is the countdown length of a round.
const DefaultRoundDuration = 60 * time.Second

// Config holds the game rules.
type Config struct {
	TotalRounds   int
	MaxScore      int
	TopK          int
	RoundDuration time.Duration
	Metric        metric.Metric
	QuerySource   QuerySource
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.TotalRounds <= 0 {
		c.TotalRounds = domgame.DefaultTotalRounds
	}
	if c.MaxScore <= 0 {
		c.MaxScore = domgame.DefaultMaxScore
	}
	if c.TopK <= 0 {
		c.TopK = domgame.DefaultTopK
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = DefaultRoundDuration
	}
	if c.Metric == "" {
		c.Metric = metric.Cosine
	}
	if c.QuerySource == "" {
		c.QuerySource = SourceRandom
	}
}

// Validate checks the rules after defaults are applied.
func (c *Config) Validate() error {
	if !c.Metric.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownMetric, c.Metric)
	}
	if !c.QuerySource.IsValid() {
		return fmt.Errorf("unknown query source %q", c.QuerySource)
	}
	return nil
}
