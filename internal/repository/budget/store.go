// Package budget persists token budget counters so that a restart does not
// hand out a fresh daily allowance.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/db"
)

// Default key lifetimes: a window counter must outlive its window.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type counters interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store keeps one integer counter per provider and window.
type Store struct {
	kv         counters
	dailyTTL   time.Duration
	monthlyTTL time.Duration
}

// New creates a budget store with the default key lifetimes.
func New(kv counters) *Store {
	return &Store{kv: kv, dailyTTL: DefaultDailyTTL, monthlyTTL: DefaultMonthlyTTL}
}

// WithTTLs overrides the key lifetimes.
func (s *Store) WithTTLs(daily, monthly time.Duration) *Store {
	s.dailyTTL, s.monthlyTTL = daily, monthly
	return s
}

// IncrBy adds tokens to a window counter.
func (s *Store) IncrBy(ctx context.Context, key string, tokens int64) error {
	if _, err := s.kv.IncrByWithTTL(ctx, key, tokens, s.ttl(key)); err != nil {
		return fmt.Errorf("budget: incr %s: %w", key, err)
	}
	return nil
}

// Get reads a window counter. A missing key is an unused window.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget: get %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget: counter %s holds %q: %w", key, raw, err)
	}
	return n, nil
}

// Keys look like vecquiz:budget:{provider}:{daily|monthly}:{period}.
func (s *Store) ttl(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthlyTTL
}
