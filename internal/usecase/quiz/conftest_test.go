package quiz

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/db"
	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
	gamerepo "github.com/kailas-cloud/vecquiz/internal/repository/game"
)

var t0 = time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)

// memKV is an in-memory key/value store for the game repository.
type memKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemKV() *memKV { return &memKV{data: map[string][]byte{}} }

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
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeBoard struct {
	mu       sync.Mutex
	recorded map[string]int
	touched  map[string]int
	left     map[string]bool
}

func newFakeBoard() *fakeBoard {
	return &fakeBoard{recorded: map[string]int{}, touched: map[string]int{}, left: map[string]bool{}}
}

func (f *fakeBoard) Record(_ context.Context, player string, score int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[player] = score
	return nil
}

func (f *fakeBoard) Touch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched[id]++
	return nil
}

func (f *fakeBoard) Leave(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left[id] = true
	return nil
}

type fakeEmbedder struct {
	vec   []float64
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: f.vec, TotalTokens: 3}, nil
}

// testCatalog: [1,0], [0,1], [0.9,0.1].
func testCatalog(t *testing.T) *domdoc.Catalog {
	t.Helper()
	vecs := map[int][]float64{1: {1, 0}, 2: {0, 1}, 3: {0.9, 0.1}}
	docs := make([]domdoc.Document, 0, 3)
	for id := 1; id <= 3; id++ {
		d, err := domdoc.New(id, "doc", vecs[id])
		if err != nil {
			t.Fatalf("document %d: %v", id, err)
		}
		docs = append(docs, d)
	}
	c, err := domdoc.NewCatalog(docs)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc   *Service
	kv    *memKV
	repo  *gamerepo.Repo
	board *fakeBoard
	clock *clock
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	if cfg.QuerySource == "" {
		cfg.QuerySource = SourceDocument
	}
	if cfg.TopK == 0 {
		cfg.TopK = 2
	}
	f := &fixture{kv: newMemKV(), board: newFakeBoard(), clock: &clock{now: t0}}
	f.repo = newGameRepo(f.kv)
	f.svc = New(f.repo, testCatalog(t), cfg, nil).
		WithLeaderboard(f.board).
		WithClock(f.clock.Now).
		WithRand(rand.New(rand.NewPCG(1, 2)))
	t.Cleanup(f.svc.Shutdown)
	return f
}

func newGameRepo(kv *memKV) *gamerepo.Repo { return gamerepo.New(kv, 0) }
