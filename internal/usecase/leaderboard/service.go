package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/domain/game"
	domlb "github.com/kailas-cloud/vecquiz/internal/domain/leaderboard"
)

// DefaultActiveWindow is how long a game counts as active after its last action.
const DefaultActiveWindow = 5 * time.Minute

// Service manages player high scores and the active player counter.
type Service struct {
	repo   Repository
	window time.Duration
	now    func() time.Time
}

// New creates a leaderboard service. A non-positive window uses DefaultActiveWindow.
func New(repo Repository, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultActiveWindow
	}
	return &Service{repo: repo, window: window, now: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Window returns the active window length.
func (s *Service) Window() time.Duration { return s.window }

// Record stores score as the player's high score if it beats the previous one.
func (s *Service) Record(ctx context.Context, player string, score int) error {
	name, err := game.NormalizePlayer(player)
	if err != nil {
		return err //nolint:wrapcheck // domain sentinel passthrough
	}
	if score < 0 {
		return fmt.Errorf("%w: negative score %d", domain.ErrInvalidPlayer, score)
	}
	if err := s.repo.RecordHighScore(ctx, name, score); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}

// Top returns the leading players. limit is defaulted and clamped.
func (s *Service) Top(ctx context.Context, limit int) ([]domlb.Entry, error) {
	entries, err := s.repo.Top(ctx, domlb.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("top: %w", err)
	}
	return entries, nil
}

// Best returns the player's high score; ok is false if the player never finished a game.
func (s *Service) Best(ctx context.Context, player string) (int, bool, error) {
	name, err := game.NormalizePlayer(player)
	if err != nil {
		return 0, false, err //nolint:wrapcheck // domain sentinel passthrough
	}
	score, ok, err := s.repo.Best(ctx, name)
	if err != nil {
		return 0, false, fmt.Errorf("best: %w", err)
	}
	return score, ok, nil
}

// Touch marks the game as active now.
func (s *Service) Touch(ctx context.Context, gameID string) error {
	if err := s.repo.Touch(ctx, gameID, s.now()); err != nil {
		return fmt.Errorf("touch: %w", err)
	}
	return nil
}

// Leave removes the game from the active set.
func (s *Service) Leave(ctx context.Context, gameID string) error {
	if err := s.repo.Leave(ctx, gameID); err != nil {
		return fmt.Errorf("leave: %w", err)
	}
	return nil
}

// Active counts games with an action inside the window.
func (s *Service) Active(ctx context.Context) (int, error) {
	n, err := s.repo.CountActive(ctx, s.now().Add(-s.window))
	if err != nil {
		return 0, fmt.Errorf("active: %w", err)
	}
	return n, nil
}
