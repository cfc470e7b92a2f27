package redis

import (
	"context"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecquiz/internal/db"
)

// ZAdd sets the member score.
func (s *Store) ZAdd(ctx context.Context, key, member string, score float64) error {
	cmd := s.b().Arbitrary("ZADD").Keys(key).Args(formatScore(score), member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZAddGT raises the member score, never lowers it (ZADD GT, Redis 6.2+).
func (s *Store) ZAddGT(ctx context.Context, key, member string, score float64) error {
	cmd := s.b().Arbitrary("ZADD").Keys(key).Args("GT", formatScore(score), member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRem removes a member.
func (s *Store) ZRem(ctx context.Context, key, member string) error {
	cmd := s.b().Arbitrary("ZREM").Keys(key).Args(member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}

// ZRevRangeWithScores returns members by descending score (ZRANGE ... REV WITHSCORES).
func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]db.ScoredMember, error) {
	cmd := s.b().Arbitrary("ZRANGE").Keys(key).
		Args(strconv.FormatInt(start, 10), strconv.FormatInt(stop, 10), "REV", "WITHSCORES").
		Build()
	zs, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}

	out := make([]db.ScoredMember, len(zs))
	for i, z := range zs {
		out[i] = db.ScoredMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}

// ZScore returns the member score or db.ErrKeyNotFound.
func (s *Store) ZScore(ctx context.Context, key, member string) (float64, error) {
	cmd := s.b().Arbitrary("ZSCORE").Keys(key).Args(member).Build()
	score, err := s.do(ctx, cmd).AsFloat64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, db.ErrKeyNotFound
		}
		return 0, &db.Error{Op: db.OpZScore, Err: err}
	}
	return score, nil
}

// ZCount counts members in the closed score interval.
func (s *Store) ZCount(ctx context.Context, key string, minScore, maxScore float64) (int64, error) {
	cmd := s.b().Arbitrary("ZCOUNT").Keys(key).Args(formatScore(minScore), formatScore(maxScore)).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCount, Err: err}
	}
	return n, nil
}

// ZRemRangeByScore drops members in the closed score interval.
func (s *Store) ZRemRangeByScore(ctx context.Context, key string, minScore, maxScore float64) error {
	cmd := s.b().Arbitrary("ZREMRANGEBYSCORE").Keys(key).
		Args(formatScore(minScore), formatScore(maxScore)).
		Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRemRangeByScore, Err: err}
	}
	return nil
}

// formatScore renders a score the way Redis parses it, infinities included.
func formatScore(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}
