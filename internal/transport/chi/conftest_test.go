package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/db"
	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
	domlb "github.com/kailas-cloud/vecquiz/internal/domain/leaderboard"
	gamerepo "github.com/kailas-cloud/vecquiz/internal/repository/game"
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

// usageEmbedder reports tokens through the request usage collector like the real chain.
type usageEmbedder struct{ vec []float64 }

func (e *usageEmbedder) Embed(ctx context.Context, _ string) (domain.EmbeddingResult, error) {
	domain.UsageFromContext(ctx).AddTokens(7)
	return domain.EmbeddingResult{Embedding: e.vec, TotalTokens: 7}, nil
}

type testAPI struct {
	handler http.Handler
	quiz    *quizuc.Service
}

func newTestAPI(t *testing.T, cfg quizuc.Config) *testAPI {
	t.Helper()
	if cfg.QuerySource == "" {
		cfg.QuerySource = quizuc.SourceDocument
	}
	games := gamerepo.New(&memKV{data: map[string][]byte{}}, 0)
	board := leaderboarduc.New(&memBoard{scores: map[string]int{}, active: map[string]time.Time{}}, time.Minute)
	quiz := quizuc.New(games, domdoc.SeedCatalog(), cfg, nil).
		WithLeaderboard(board).
		WithEmbedder(&usageEmbedder{vec: []float64{0.2, 0.8, 0.4}})
	t.Cleanup(quiz.Shutdown)

	srv := NewServer(quiz, board, healthuc.New(okPinger{}, zap.NewNop()), zap.NewNop())
	return &testAPI{handler: NewRouter(srv, zap.NewNop(), RouterConfig{}), quiz: quiz}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %T: %v (status %d)", v, err, rr.Code)
	}
	return v
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	if resp := decodeBody[ErrorResponse](t, rr); resp.Code != code {
		t.Errorf("code: got %s, want %s", resp.Code, code)
	}
}
