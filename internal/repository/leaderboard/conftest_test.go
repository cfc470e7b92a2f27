package leaderboard

import (
	"cmp"
	"context"
	"slices"

	"github.com/kailas-cloud/vecquiz/internal/db"
)

// mockStore keeps sorted sets as member->score maps.
type mockStore struct {
	sets map[string]map[string]float64
	err  error
}

func newMockStore() *mockStore {
	return &mockStore{sets: map[string]map[string]float64{}}
}

func (m *mockStore) set(key string) map[string]float64 {
	s, ok := m.sets[key]
	if !ok {
		s = map[string]float64{}
		m.sets[key] = s
	}
	return s
}

func (m *mockStore) ZAdd(_ context.Context, key, member string, score float64) error {
	if m.err != nil {
		return m.err
	}
	m.set(key)[member] = score
	return nil
}

func (m *mockStore) ZAddGT(_ context.Context, key, member string, score float64) error {
	if m.err != nil {
		return m.err
	}
	s := m.set(key)
	if cur, ok := s[member]; !ok || score > cur {
		s[member] = score
	}
	return nil
}

func (m *mockStore) ZRem(_ context.Context, key, member string) error {
	delete(m.set(key), member)
	return m.err
}

func (m *mockStore) ZRevRangeWithScores(_ context.Context, key string, start, stop int64) ([]db.ScoredMember, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []db.ScoredMember
	for member, score := range m.set(key) {
		out = append(out, db.ScoredMember{Member: member, Score: score})
	}
	slices.SortFunc(out, func(a, b db.ScoredMember) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(b.Member, a.Member)
	})
	if start >= int64(len(out)) {
		return nil, nil
	}
	end := min(stop+1, int64(len(out)))
	return out[start:end], nil
}

func (m *mockStore) ZScore(_ context.Context, key, member string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	s, ok := m.set(key)[member]
	if !ok {
		return 0, db.ErrKeyNotFound
	}
	return s, nil
}

func (m *mockStore) ZCount(_ context.Context, key string, lo, hi float64) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	var n int64
	for _, s := range m.set(key) {
		if s >= lo && s <= hi {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ZRemRangeByScore(_ context.Context, key string, lo, hi float64) error {
	if m.err != nil {
		return m.err
	}
	s := m.set(key)
	for member, score := range s {
		if score >= lo && score <= hi {
			delete(s, member)
		}
	}
	return nil
}
