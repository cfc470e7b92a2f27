package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
type Store interface {
	Pinger
	KVStore
	SortedSetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore holds game sessions, cached vectors and token counters.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// IncrByWithTTL increments a counter, starting its TTL on first write.
	IncrByWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// ScoredMember is a sorted set member with its score.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides sorted set operations (leaderboards, sliding windows).
type SortedSetStore interface {
	// ZAdd sets the member score unconditionally.
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZAddGT sets the member score only if it is greater than the current one.
	// Missing members are always added.
	ZAddGT(ctx context.Context, key, member string, score float64) error
	ZRem(ctx context.Context, key, member string) error
	// ZRevRangeWithScores returns members ranked high to low, stop inclusive.
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	// ZCount counts members with min <= score <= max.
	ZCount(ctx context.Context, key string, minScore, maxScore float64) (int64, error)
	// ZRemRangeByScore drops members with min <= score <= max.
	ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error
}
