package sdk

import (
	"context"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/db"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
	domlb "github.com/kailas-cloud/vecquiz/internal/domain/leaderboard"
	gamerepo "github.com/kailas-cloud/vecquiz/internal/repository/game"
	api "github.com/kailas-cloud/vecquiz/internal/transport/chi"
	healthuc "github.com/kailas-cloud/vecquiz/internal/usecase/health"
	leaderboarduc "github.com/kailas-cloud/vecquiz/internal/usecase/leaderboard"
	quizuc "github.com/kailas-cloud/vecquiz/internal/usecase/quiz"
)

type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type memBoard struct {
	mu     sync.Mutex
	scores map[string]int
	active map[string]time.Time
}

func newMemBoard() *memBoard {
	return &memBoard{scores: map[string]int{}, active: map[string]time.Time{}}
}

func (b *memBoard) RecordHighScore(_ context.Context, player string, score int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.scores[player]; !ok || score > cur {
		b.scores[player] = score
	}
	return nil
}

func (b *memBoard) Top(_ context.Context, limit int) ([]domlb.Entry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := make([]domlb.Entry, 0, len(b.scores))
	for p, s := range b.scores {
		entries = append(entries, domlb.Entry{Player: p, HighScore: s})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].HighScore > entries[j].HighScore })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (b *memBoard) Best(_ context.Context, player string) (int, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.scores[player]
	return s, ok, nil
}

func (b *memBoard) Touch(_ context.Context, id string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active[id] = at
	return nil
}

func (b *memBoard) Leave(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, id)
	return nil
}

func (b *memBoard) CountActive(_ context.Context, since time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, at := range b.active {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

// newServer runs the real API over in-memory storage.
func newServer(t *testing.T, apiKeys ...string) *httptest.Server {
	t.Helper()
	games := gamerepo.New(&memKV{data: map[string][]byte{}}, 0)
	board := leaderboarduc.New(newMemBoard(), time.Minute)
	quiz := quizuc.New(games, domdoc.SeedCatalog(), quizuc.Config{
		TotalRounds: 2,
		TopK:        3,
		QuerySource: quizuc.SourceDocument,
	}, nil).WithLeaderboard(board)
	t.Cleanup(quiz.Shutdown)

	srv := api.NewServer(quiz, board, healthuc.New(okPinger{}, zap.NewNop()), zap.NewNop())
	ts := httptest.NewServer(api.NewRouter(srv, zap.NewNop(), api.RouterConfig{APIKeys: apiKeys}))
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := New(baseURL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}
