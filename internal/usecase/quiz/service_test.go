package quiz

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
	"github.com/kailas-cloud/vecquiz/internal/domain/round"
)

func startGame(t *testing.T, f *fixture) domgame.Game {
	t.Helper()
	g, err := f.svc.Start(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

func nextRound(t *testing.T, f *fixture, id string) *round.Round {
	t.Helper()
	g, err := f.svc.NextRound(context.Background(), id)
	if err != nil {
		t.Fatalf("NextRound: %v", err)
	}
	return g.Current()
}

// selectTopTwo selects the two nearest documents for the test catalog.
// Document 3 is in the top two for every query document.
func selectTopTwo(t *testing.T, f *fixture, id string, queryDoc int) {
	t.Helper()
	picks := []int{queryDoc, 3}
	if queryDoc == 3 {
		picks = []int{3, 1}
	}
	for _, doc := range picks {
		if _, _, err := f.svc.Toggle(context.Background(), id, doc); err != nil {
			t.Fatalf("Toggle(%d): %v", doc, err)
		}
	}
}

func TestStart(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)

	if g.Player() != "alice" || !g.IsActive() || g.TotalRounds() != domgame.DefaultTotalRounds {
		t.Errorf("unexpected game: player=%q active=%v rounds=%d", g.Player(), g.IsActive(), g.TotalRounds())
	}
	if _, err := f.repo.Get(context.Background(), g.ID()); err != nil {
		t.Errorf("game not persisted: %v", err)
	}
	if f.board.touched[g.ID()] != 1 {
		t.Errorf("expected one touch, got %d", f.board.touched[g.ID()])
	}
}

func TestStart_InvalidPlayer(t *testing.T) {
	f := newFixture(t, Config{})
	if _, err := f.svc.Start(context.Background(), "  "); !errors.Is(err, domain.ErrInvalidPlayer) {
		t.Errorf("expected ErrInvalidPlayer, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t, Config{})
	if _, err := f.svc.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestNextRound_DocumentSource(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)

	r := nextRound(t, f, g.ID())
	doc, ok := f.svc.Catalog().Get(r.QueryDocID())
	if !ok {
		t.Fatalf("query doc %d not in catalog", r.QueryDocID())
	}
	if !slices.Equal(r.QueryVector(), doc.Embedding()) {
		t.Errorf("query vector %v should copy document embedding %v", r.QueryVector(), doc.Embedding())
	}
	if r.Number() != 1 || !r.IsOpen() || !r.Deadline().Equal(t0.Add(DefaultRoundDuration)) {
		t.Errorf("unexpected round: number=%d open=%v deadline=%v", r.Number(), r.IsOpen(), r.Deadline())
	}
	if f.svc.timers.len() != 1 {
		t.Errorf("expected a running countdown, got %d", f.svc.timers.len())
	}

	if _, err := f.svc.NextRound(context.Background(), g.ID()); !errors.Is(err, domain.ErrRoundInProgress) {
		t.Errorf("expected ErrRoundInProgress, got %v", err)
	}
}

func TestNextRound_RandomSource(t *testing.T) {
	f := newFixture(t, Config{QuerySource: SourceRandom})
	g := startGame(t, f)

	r := nextRound(t, f, g.ID())
	if r.QueryDocID() != 0 || r.QueryText() != "" {
		t.Errorf("random query should not reference a document: %d %q", r.QueryDocID(), r.QueryText())
	}
	if len(r.QueryVector()) != 2 {
		t.Fatalf("expected 2 dimensions, got %d", len(r.QueryVector()))
	}
	for _, x := range r.QueryVector() {
		if x < 0 || x >= 1 {
			t.Errorf("component %v out of [0,1)", x)
		}
	}
}

func TestNextRound_EmbeddingSource(t *testing.T) {
	tests := []struct {
		name     string
		embedder *fakeEmbedder
		wantErr  error
	}{
		{name: "ok", embedder: &fakeEmbedder{vec: []float64{0.5, 0.5}}},
		{name: "dimension mismatch", embedder: &fakeEmbedder{vec: []float64{1, 2, 3}}, wantErr: domain.ErrVectorDimMismatch},
		{name: "provider error", embedder: &fakeEmbedder{err: domain.ErrEmbeddingProviderError}, wantErr: domain.ErrEmbeddingProviderError},
		{name: "not configured", wantErr: domain.ErrEmbedderNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{QuerySource: SourceEmbedding})
			if tt.embedder != nil {
				f.svc.WithEmbedder(tt.embedder)
			}
			g := startGame(t, f)

			got, err := f.svc.NextRound(context.Background(), g.ID())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NextRound: %v", err)
			}
			if !slices.Equal(got.Current().QueryVector(), tt.embedder.vec) {
				t.Errorf("expected embedded query, got %v", got.Current().QueryVector())
			}
		})
	}
}

func TestToggle(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	ctx := context.Background()

	if _, _, err := f.svc.Toggle(ctx, g.ID(), 1); !errors.Is(err, domain.ErrNoOpenRound) {
		t.Errorf("before a round: expected ErrNoOpenRound, got %v", err)
	}
	nextRound(t, f, g.ID())

	if _, _, err := f.svc.Toggle(ctx, g.ID(), 99); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("unknown doc: expected ErrDocumentNotFound, got %v", err)
	}

	on, got, err := f.svc.Toggle(ctx, g.ID(), 2)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	if sel := got.Current().Selected(); !slices.Equal(sel, []int{2}) {
		t.Errorf("expected [2], got %v", sel)
	}

	on, _, err = f.svc.Toggle(ctx, g.ID(), 2)
	if err != nil || on {
		t.Fatalf("second toggle: on=%v err=%v", on, err)
	}
	stored, _ := f.repo.Get(ctx, g.ID())
	if len(stored.Current().Selected()) != 0 {
		t.Errorf("stored selection should be empty, got %v", stored.Current().Selected())
	}
}

func TestToggle_AfterDeadline(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	nextRound(t, f, g.ID())
	f.clock.Advance(DefaultRoundDuration)

	_, got, err := f.svc.Toggle(context.Background(), g.ID(), 1)
	if !errors.Is(err, domain.ErrRoundExpired) {
		t.Fatalf("expected ErrRoundExpired, got %v", err)
	}
	if got.Current().IsOpen() || got.Current().Outcome() != round.Expired {
		t.Errorf("overdue round should be graded as expired, got %s", got.Current().Outcome())
	}
	if got.RoundsPlayed() != 1 {
		t.Errorf("expected 1 round played, got %d", got.RoundsPlayed())
	}
}

func TestSubmit_Grades(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	r := nextRound(t, f, g.ID())
	selectTopTwo(t, f, g.ID(), r.QueryDocID())

	got, err := f.svc.Submit(context.Background(), g.ID())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res := got.Current().Result()
	if res == nil || res.Correct != 2 || res.Points != 2 {
		t.Fatalf("expected 2 correct and 2 points, got %+v", res)
	}
	if res.Ranked[0].ID != r.QueryDocID() {
		t.Errorf("query document should rank first, got %d", res.Ranked[0].ID)
	}
	if len(res.TopK) != 2 {
		t.Errorf("expected top 2, got %v", res.TopK)
	}
	if got.Current().Outcome() != round.Submitted || got.Score() != 2 {
		t.Errorf("unexpected outcome=%s score=%d", got.Current().Outcome(), got.Score())
	}
	if f.svc.timers.len() != 0 {
		t.Error("countdown should stop on submit")
	}

	if _, err := f.svc.Submit(context.Background(), g.ID()); !errors.Is(err, domain.ErrNoOpenRound) {
		t.Errorf("second submit: expected ErrNoOpenRound, got %v", err)
	}
}

func TestSubmit_Late(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	nextRound(t, f, g.ID())
	f.clock.Advance(2 * DefaultRoundDuration)

	got, err := f.svc.Submit(context.Background(), g.ID())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Current().Outcome() != round.Expired {
		t.Errorf("late submit should count as expired, got %s", got.Current().Outcome())
	}
}

func TestGame_FinishesAndRecords(t *testing.T) {
	f := newFixture(t, Config{TotalRounds: 2, MaxScore: 3})
	g := startGame(t, f)

	var got domgame.Game
	for range 2 {
		r := nextRound(t, f, g.ID())
		selectTopTwo(t, f, g.ID(), r.QueryDocID())
		var err error
		if got, err = f.svc.Submit(context.Background(), g.ID()); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	if got.Status() != domgame.Finished || got.Score() != 3 {
		t.Fatalf("expected finished with capped score 3, got %s %d", got.Status(), got.Score())
	}
	if got.Current().Result().Points != 1 {
		t.Errorf("last round should award 1 point, got %d", got.Current().Result().Points)
	}
	if f.board.recorded["alice"] != 3 {
		t.Errorf("expected high score 3 recorded, got %v", f.board.recorded)
	}
	if !f.board.left[g.ID()] {
		t.Error("finished game should leave the active set")
	}
	if _, err := f.svc.NextRound(context.Background(), g.ID()); !errors.Is(err, domain.ErrGameOver) {
		t.Errorf("expected ErrGameOver, got %v", err)
	}
}

func TestExpire(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	ctx := context.Background()
	r := nextRound(t, f, g.ID())
	if _, _, err := f.svc.Toggle(ctx, g.ID(), r.QueryDocID()); err != nil {
		t.Fatalf("Toggle: %v", err)
	}

	if err := f.svc.Expire(ctx, g.ID(), 2); err != nil {
		t.Fatalf("Expire wrong round: %v", err)
	}
	stored, _ := f.repo.Get(ctx, g.ID())
	if !stored.HasOpenRound() {
		t.Fatal("expiring another round number must not close the current one")
	}

	if err := f.svc.Expire(ctx, g.ID(), 1); err != nil {
		t.Fatalf("Expire: %v", err)
	}
	stored, _ = f.repo.Get(ctx, g.ID())
	cur := stored.Current()
	if cur.IsOpen() || cur.Outcome() != round.Expired {
		t.Fatalf("expected expired round, got status=%s outcome=%s", cur.Status(), cur.Outcome())
	}
	if cur.Result().Correct != 1 {
		t.Errorf("selection at expiry should be graded, got %d correct", cur.Result().Correct)
	}

	if err := f.svc.Expire(ctx, g.ID(), 1); err != nil {
		t.Errorf("second expire should be a no-op, got %v", err)
	}
}

func TestGet_SettlesOverdueRound(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	nextRound(t, f, g.ID())
	f.clock.Advance(DefaultRoundDuration + time.Second)

	got, err := f.svc.Get(context.Background(), g.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.HasOpenRound() || got.RoundsPlayed() != 1 {
		t.Errorf("overdue round should be graded on read: open=%v played=%d", got.HasOpenRound(), got.RoundsPlayed())
	}
}

func TestAbandon(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	nextRound(t, f, g.ID())
	ctx := context.Background()

	got, err := f.svc.Abandon(ctx, g.ID())
	if err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if got.Status() != domgame.Abandoned {
		t.Errorf("expected abandoned, got %s", got.Status())
	}
	if f.svc.timers.len() != 0 {
		t.Error("countdown should stop on abandon")
	}
	if !f.board.left[g.ID()] {
		t.Error("abandoned game should leave the active set")
	}
	if len(f.board.recorded) != 0 {
		t.Error("abandoned game must not be recorded")
	}
	if _, err := f.svc.Get(ctx, g.ID()); !errors.Is(err, domain.ErrGameNotFound) {
		t.Errorf("expected ErrGameNotFound after abandon, got %v", err)
	}
}

func TestCountdown_ExpiresRound(t *testing.T) {
	kv := newMemKV()
	repo := newGameRepo(kv)
	svc := New(repo, testCatalog(t), Config{RoundDuration: 20 * time.Millisecond}, nil).
		WithRand(rand.New(rand.NewPCG(3, 4)))
	t.Cleanup(svc.Shutdown)
	ctx := context.Background()

	g, err := svc.Start(ctx, "bob")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := svc.NextRound(ctx, g.ID()); err != nil {
		t.Fatalf("NextRound: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stored, err := repo.Get(ctx, g.ID())
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !stored.HasOpenRound() {
			if stored.Current().Outcome() != round.Expired {
				t.Errorf("expected expired outcome, got %s", stored.Current().Outcome())
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("countdown did not grade the round")
}

func TestShutdown_StopsCountdowns(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	nextRound(t, f, g.ID())

	f.svc.Shutdown()
	if f.svc.timers.len() != 0 {
		t.Errorf("expected no countdowns, got %d", f.svc.timers.len())
	}

	g2 := startGame(t, f)
	nextRound(t, f, g2.ID())
	if f.svc.timers.len() != 0 {
		t.Error("no countdown should start after shutdown")
	}
}

func TestToggle_Serialised(t *testing.T) {
	f := newFixture(t, Config{})
	g := startGame(t, f)
	nextRound(t, f, g.ID())

	const n = 40
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := f.svc.Toggle(context.Background(), g.ID(), 1); err != nil {
				t.Errorf("Toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	stored, _ := f.repo.Get(context.Background(), g.ID())
	if sel := stored.Current().Selected(); len(sel) != 0 {
		t.Errorf("an even number of toggles should leave nothing selected, got %v", sel)
	}
	if f.svc.locks.size() != 0 {
		t.Errorf("locks should be released, %d left", f.svc.locks.size())
	}
}
