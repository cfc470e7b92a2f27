package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
	"github.com/kailas-cloud/vecquiz/internal/domain/round"
	"github.com/kailas-cloud/vecquiz/internal/logger"
	"github.com/kailas-cloud/vecquiz/internal/metrics"
)

// expireTimeout bounds the work done by a countdown callback.
const expireTimeout = 10 * time.Second

// Service runs quiz games: rounds, countdowns, grading, and leaderboard updates.
// Operations on the same game are serialised.
type Service struct {
	games    GameRepository
	catalog  *domdoc.Catalog
	cfg      Config
	board    Leaderboard
	embedder Embedder
	now      func() time.Time
	rnd      *randSource
	locks    *keyedMutex
	timers   *timerSet
	logger   *zap.Logger
}

// New creates a quiz service. cfg defaults are applied.
func New(games GameRepository, catalog *domdoc.Catalog, cfg Config, logger *zap.Logger) *Service {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		games:   games,
		catalog: catalog,
		cfg:     cfg,
		now:     time.Now,
		rnd:     &randSource{},
		locks:   newKeyedMutex(),
		timers:  newTimerSet(),
		logger:  logger,
	}
}

// WithLeaderboard enables high score recording and active player tracking.
func (s *Service) WithLeaderboard(b Leaderboard) *Service {
	s.board = b
	return s
}

// WithEmbedder sets the provider for the embedding query source and text queries.
func (s *Service) WithEmbedder(e Embedder) *Service {
	s.embedder = e
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithRand makes query generation deterministic.
func (s *Service) WithRand(r *rand.Rand) *Service {
	s.rnd = &randSource{r: r}
	return s
}

// Catalog returns the documents the quiz is played over.
func (s *Service) Catalog() *domdoc.Catalog { return s.catalog }

// Config returns the effective game rules.
func (s *Service) Config() Config { return s.cfg }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.now() }

// Start creates a game for player.
func (s *Service) Start(ctx context.Context, player string) (domgame.Game, error) {
	g, err := domgame.New(domgame.NewID(), player, s.cfg.TotalRounds, s.cfg.MaxScore, s.now())
	if err != nil {
		return domgame.Game{}, err //nolint:wrapcheck // domain sentinel passthrough
	}
	ctx, log := logger.WithGame(ctx, g.ID(), s.logger)

	if err := s.games.Save(ctx, &g); err != nil {
		return domgame.Game{}, fmt.Errorf("save game: %w", err)
	}
	s.touch(ctx, g.ID())
	metrics.GamesTotal.WithLabelValues("started").Inc()
	log.Info("game started", zap.String("player", g.Player()))
	return g, nil
}

// Get returns the game. An open round whose deadline passed is graded first.
func (s *Service) Get(ctx context.Context, id string) (domgame.Game, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx, _ = logger.WithGame(ctx, id, s.logger)
	g, err := s.load(ctx, id)
	if err != nil {
		return domgame.Game{}, err
	}
	if g.IsActive() {
		s.touch(ctx, id)
	}
	return g, nil
}

// NextRound opens the next round and starts its countdown.
func (s *Service) NextRound(ctx context.Context, id string) (domgame.Game, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx, log := logger.WithGame(ctx, id, s.logger)
	g, err := s.load(ctx, id)
	if err != nil {
		return domgame.Game{}, err
	}
	if err := g.CanStartRound(); err != nil {
		return domgame.Game{}, err //nolint:wrapcheck // domain sentinel passthrough
	}

	q, err := s.nextQuery(ctx)
	if err != nil {
		return domgame.Game{}, err
	}
	now := s.now()
	r := round.New(g.NextRoundNumber(), q.docID, q.text, q.vector, now, s.cfg.RoundDuration)
	if err := g.StartRound(r, now); err != nil {
		return domgame.Game{}, fmt.Errorf("start round: %w", err)
	}
	if err := s.games.Save(ctx, &g); err != nil {
		return domgame.Game{}, fmt.Errorf("save game: %w", err)
	}

	number := r.Number()
	s.timers.schedule(id, s.cfg.RoundDuration, func() { s.onCountdown(id, number) })
	s.touch(ctx, id)
	log.Info("round started", zap.Int("round", number), zap.Int("query_doc_id", q.docID))
	return g, nil
}

// Toggle flips docID in the current round's selection and reports whether it is now selected.
// A toggle after the deadline grades the round and fails with ErrRoundExpired.
func (s *Service) Toggle(ctx context.Context, id string, docID int) (bool, domgame.Game, error) {
	if !s.catalog.Has(docID) {
		return false, domgame.Game{}, fmt.Errorf("%w: %d", domain.ErrDocumentNotFound, docID)
	}

	unlock := s.locks.lock(id)
	defer unlock()

	ctx, _ = logger.WithGame(ctx, id, s.logger)
	g, err := s.games.Get(ctx, id)
	if err != nil {
		return false, domgame.Game{}, fmt.Errorf("get game: %w", err)
	}

	on, err := g.Toggle(docID, s.now())
	if errors.Is(err, domain.ErrRoundExpired) {
		if gerr := s.settle(ctx, &g); gerr != nil {
			return false, domgame.Game{}, gerr
		}
		return false, g, err //nolint:wrapcheck // domain sentinel passthrough
	}
	if err != nil {
		return false, domgame.Game{}, err //nolint:wrapcheck // domain sentinel passthrough
	}

	if err := s.games.Save(ctx, &g); err != nil {
		return false, domgame.Game{}, fmt.Errorf("save game: %w", err)
	}
	s.touch(ctx, id)
	return on, g, nil
}

// Submit grades the open round with the current selection.
// A submit after the deadline is graded as expired.
func (s *Service) Submit(ctx context.Context, id string) (domgame.Game, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx, _ = logger.WithGame(ctx, id, s.logger)
	g, err := s.games.Get(ctx, id)
	if err != nil {
		return domgame.Game{}, fmt.Errorf("get game: %w", err)
	}
	if !g.IsActive() {
		return domgame.Game{}, domain.ErrGameOver
	}
	if !g.HasOpenRound() {
		return domgame.Game{}, domain.ErrNoOpenRound
	}

	outcome := round.Submitted
	if g.Current().Expired(s.now()) {
		outcome = round.Expired
	}
	if err := s.complete(ctx, &g, outcome); err != nil {
		return domgame.Game{}, err
	}
	return g, nil
}

// Expire grades round number of game id as expired. It is a no-op when that
// round is no longer open, so a countdown racing a submit is harmless.
func (s *Service) Expire(ctx context.Context, id string, number int) error {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx, _ = logger.WithGame(ctx, id, s.logger)
	g, err := s.games.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get game: %w", err)
	}
	if !g.IsActive() || !g.HasOpenRound() || g.Current().Number() != number {
		return nil
	}
	return s.complete(ctx, &g, round.Expired)
}

// Abandon ends the game without recording a score and removes the session.
// The returned game carries the abandoned status.
func (s *Service) Abandon(ctx context.Context, id string) (domgame.Game, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	ctx, log := logger.WithGame(ctx, id, s.logger)
	g, err := s.games.Get(ctx, id)
	if err != nil {
		return domgame.Game{}, fmt.Errorf("get game: %w", err)
	}
	if err := g.Abandon(s.now()); err != nil {
		return domgame.Game{}, err //nolint:wrapcheck // domain sentinel passthrough
	}

	s.timers.stop(id)
	if err := s.games.Delete(ctx, id); err != nil {
		return domgame.Game{}, fmt.Errorf("delete game: %w", err)
	}
	s.leave(ctx, id)
	metrics.GamesTotal.WithLabelValues(string(domgame.Abandoned)).Inc()
	log.Info("game abandoned", zap.Int("rounds_played", g.RoundsPlayed()))
	return g, nil
}

// Shutdown stops every countdown. Rounds left open are graded lazily on next access.
func (s *Service) Shutdown() {
	if n := s.timers.stopAll(); n > 0 {
		s.logger.Info("stopped round countdowns", zap.Int("open_rounds", n))
	}
}

// load fetches the game and grades an open round whose deadline has passed.
func (s *Service) load(ctx context.Context, id string) (domgame.Game, error) {
	g, err := s.games.Get(ctx, id)
	if err != nil {
		return domgame.Game{}, fmt.Errorf("get game: %w", err)
	}
	if err := s.settle(ctx, &g); err != nil {
		return domgame.Game{}, err
	}
	return g, nil
}

// settle grades an open, overdue round as expired.
func (s *Service) settle(ctx context.Context, g *domgame.Game) error {
	if !g.IsActive() || !g.HasOpenRound() || !g.Current().Expired(s.now()) {
		return nil
	}
	return s.complete(ctx, g, round.Expired)
}

// complete grades the open round, persists the game, and updates the leaderboard.
func (s *Service) complete(ctx context.Context, g *domgame.Game, outcome round.Outcome) error {
	r := g.Current()
	res, err := s.grade(r.QueryVector(), r.Selection())
	if err != nil {
		return err
	}
	res, err = g.CompleteRound(res, outcome, s.now())
	if err != nil {
		return fmt.Errorf("complete round: %w", err)
	}
	s.timers.stop(g.ID())

	if err := s.games.Save(ctx, g); err != nil {
		return fmt.Errorf("save game: %w", err)
	}

	metrics.RoundsTotal.WithLabelValues(string(outcome)).Inc()
	metrics.RoundPoints.Observe(float64(res.Points))
	log := logger.FromContext(ctx, s.logger)
	log.Info("round graded",
		zap.Int("round", r.Number()),
		zap.String("outcome", string(outcome)),
		zap.Int("correct", res.Correct),
		zap.Int("points", res.Points),
		zap.Int("score", g.Score()),
	)

	if g.IsActive() {
		s.touch(ctx, g.ID())
		return nil
	}

	metrics.GamesTotal.WithLabelValues(string(domgame.Finished)).Inc()
	log.Info("game finished", zap.String("player", g.Player()), zap.Int("score", g.Score()))
	if s.board != nil {
		if err := s.board.Record(ctx, g.Player(), g.Score()); err != nil {
			log.Error("failed to record high score", zap.Error(err))
		}
	}
	s.leave(ctx, g.ID())
	return nil
}

// grade ranks the catalog against query and counts selected documents in the top K.
func (s *Service) grade(query []float64, selected map[int]struct{}) (round.Result, error) {
	start := time.Now()
	ranked, err := ranking.Score(s.cfg.Metric, query, s.catalog.Candidates())
	metrics.ScoringDuration.WithLabelValues(string(s.cfg.Metric)).Observe(time.Since(start).Seconds())
	if err != nil {
		return round.Result{}, fmt.Errorf("score round: %w", err)
	}
	return round.Result{
		Ranked:  ranked,
		TopK:    ranking.TopK(ranked, s.cfg.TopK),
		Correct: ranking.Grade(selected, ranked, s.cfg.TopK),
	}, nil
}

func (s *Service) onCountdown(id string, number int) {
	ctx, cancel := context.WithTimeout(context.Background(), expireTimeout)
	defer cancel()
	if err := s.Expire(ctx, id, number); err != nil && !errors.Is(err, domain.ErrGameNotFound) {
		s.logger.Error("failed to expire round",
			zap.String("game_id", id), zap.Int("round", number), zap.Error(err))
	}
}

func (s *Service) touch(ctx context.Context, id string) {
	if s.board == nil {
		return
	}
	if err := s.board.Touch(ctx, id); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to touch active set", zap.Error(err))
	}
}

func (s *Service) leave(ctx context.Context, id string) {
	if s.board == nil {
		return
	}
	if err := s.board.Leave(ctx, id); err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to leave active set", zap.Error(err))
	}
}
