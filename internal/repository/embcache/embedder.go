// Package embcache keeps provider vectors in the KV store so that repeated
// guesses and catalog reloads do not spend tokens twice.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/db"
	"github.com/kailas-cloud/vecquiz/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "emb:"

// kv is the slice of the store the cache needs.
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config describes what the cached vectors belong to.
type Config struct {
	Model      string
	Dimensions int // 0 accepts any cached size
	TTL        time.Duration
	Lookups    *prometheus.CounterVec // label "result": hit or miss; optional
}

// CachedEmbedder serves vectors from the KV store and falls through to the
// provider on a miss. Hits cost zero tokens.
type CachedEmbedder struct {
	inner  domain.Embedder
	kv     kv
	cfg    Config
	logger *zap.Logger
}

// New wraps inner with a cache.
func New(inner domain.Embedder, store kv, cfg Config, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{inner: inner, kv: store, cfg: cfg, logger: logger}
}

// Embed implements domain.Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	res, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	c.store(ctx, key, res.Embedding)
	return res, nil
}

// BatchEmbed implements domain.BatchEmbedder. Misses are deduplicated and
// sent upstream together; token counts cover only those.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float64, len(texts))}
	keys := make([]string, len(texts))
	pending := make(map[string][]int) // key -> positions waiting for it
	var misses []string
	var missKeys []string

	for i, text := range texts {
		keys[i] = c.key(text)
		if waiting, seen := pending[keys[i]]; seen {
			pending[keys[i]] = append(waiting, i)
			continue
		}
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			out.Embeddings[i] = vec
			continue
		}
		pending[keys[i]] = []int{i}
		misses = append(misses, text)
		missKeys = append(missKeys, keys[i])
	}
	if len(misses) == 0 {
		return out, nil
	}

	res, err := domain.BatchEmbed(ctx, c.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed %d uncached texts: %w", len(misses), err)
	}
	if len(res.Embeddings) != len(misses) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed uncached texts: got %d vectors for %d texts: %w",
			len(res.Embeddings), len(misses), domain.ErrEmbeddingProviderError)
	}

	for j, key := range missKeys {
		for _, i := range pending[key] {
			out.Embeddings[i] = res.Embeddings[j]
		}
		c.store(ctx, key, res.Embeddings[j])
	}
	out.PromptTokens = res.PromptTokens
	out.TotalTokens = res.TotalTokens
	return out, nil
}

// key hashes model, dimensions and text; changing either setting starts a
// fresh keyspace.
func (c *CachedEmbedder) key(text string) string {
	h := sha256.New()
	h.Write([]byte(c.cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(c.cfg.Dimensions)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float64, bool) {
	vec, err := c.read(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.count("miss")
		return nil, false
	}
	c.count("hit")
	return vec, true
}

func (c *CachedEmbedder) read(ctx context.Context, key string) ([]float64, error) {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	vec, err := decode(data)
	if err != nil {
		return nil, err
	}
	if c.cfg.Dimensions > 0 && len(vec) != c.cfg.Dimensions {
		return nil, domain.NewDimMismatch(-1, c.cfg.Dimensions, len(vec))
	}
	return vec, nil
}

func (c *CachedEmbedder) store(ctx context.Context, key string, vec []float64) {
	if err := c.kv.SetWithTTL(ctx, key, encode(vec), c.cfg.TTL); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) count(result string) {
	if c.cfg.Lookups != nil {
		c.cfg.Lookups.WithLabelValues(result).Inc()
	}
}

// encode stores float32 little-endian. Provider vectors are float32 on the
// wire, so nothing is lost.
func encode(v []float64) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(f)))
	}
	return buf
}

func decode(data []byte) ([]float64, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt cached vector: %d bytes", len(data))
	}
	v := make([]float64, len(data)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:])))
	}
	return v, nil
}
