package leaderboard

import (
	"context"
	"time"

	domlb "github.com/kailas-cloud/vecquiz/internal/domain/leaderboard"
)

// Repository stores high scores and the active-game window.
type Repository interface {
	RecordHighScore(ctx context.Context, player string, score int) error
	Top(ctx context.Context, limit int) ([]domlb.Entry, error)
	Best(ctx context.Context, player string) (int, bool, error)
	Touch(ctx context.Context, gameID string, at time.Time) error
	Leave(ctx context.Context, gameID string) error
	CountActive(ctx context.Context, since time.Time) (int, error)
}
