package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/db"
	"github.com/kailas-cloud/vecquiz/internal/domain"
	domlb "github.com/kailas-cloud/vecquiz/internal/domain/leaderboard"
)

var (
	scoresKey = domain.KeyPrefix + "leaderboard"
	activeKey = domain.KeyPrefix + "active"
)

// store is the consumer interface for leaderboard operations (ISP).
type store interface {
	ZAdd(ctx context.Context, key, member string, score float64) error
	ZAddGT(ctx context.Context, key, member string, score float64) error
	ZRem(ctx context.Context, key, member string) error
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]db.ScoredMember, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	ZCount(ctx context.Context, key string, minScore, maxScore float64) (int64, error)
	ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error
}

// Repo implements usecase/leaderboard.Repository on two sorted sets:
// player high scores, and game IDs scored by last activity (unix millis).
type Repo struct {
	store store
}

// New creates a leaderboard repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// RecordHighScore keeps the greater of the stored and the new score.
func (r *Repo) RecordHighScore(ctx context.Context, player string, score int) error {
	if err := r.store.ZAddGT(ctx, scoresKey, player, float64(score)); err != nil {
		return fmt.Errorf("record high score: %w", err)
	}
	return nil
}

// Top returns the best limit players, highest first.
func (r *Repo) Top(ctx context.Context, limit int) ([]domlb.Entry, error) {
	members, err := r.store.ZRevRangeWithScores(ctx, scoresKey, 0, int64(limit-1))
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}
	entries := make([]domlb.Entry, len(members))
	for i, m := range members {
		entries[i] = domlb.Entry{Rank: i + 1, Player: m.Member, HighScore: int(m.Score)}
	}
	return entries, nil
}

// Best returns a player's high score; ok is false for unknown players.
func (r *Repo) Best(ctx context.Context, player string) (int, bool, error) {
	score, err := r.store.ZScore(ctx, scoresKey, player)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("best score: %w", err)
	}
	return int(score), true, nil
}

// Touch marks a game as active at the given time.
func (r *Repo) Touch(ctx context.Context, gameID string, at time.Time) error {
	if err := r.store.ZAdd(ctx, activeKey, gameID, float64(at.UnixMilli())); err != nil {
		return fmt.Errorf("touch active: %w", err)
	}
	return nil
}

// Leave drops a game from the active set.
func (r *Repo) Leave(ctx context.Context, gameID string) error {
	if err := r.store.ZRem(ctx, activeKey, gameID); err != nil {
		return fmt.Errorf("leave active: %w", err)
	}
	return nil
}

// CountActive trims entries older than since and counts the rest.
func (r *Repo) CountActive(ctx context.Context, since time.Time) (int, error) {
	cutoff := float64(since.UnixMilli())
	if err := r.store.ZRemRangeByScore(ctx, activeKey, math.Inf(-1), cutoff-1); err != nil {
		return 0, fmt.Errorf("trim active: %w", err)
	}
	n, err := r.store.ZCount(ctx, activeKey, cutoff, math.Inf(1))
	if err != nil {
		return 0, fmt.Errorf("count active: %w", err)
	}
	return int(n), nil
}
