package quiz

import (
	"context"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
)

// GameRepository persists game sessions.
type GameRepository interface {
	Save(ctx context.Context, g *domgame.Game) error
	Get(ctx context.Context, id string) (domgame.Game, error)
	Delete(ctx context.Context, id string) error
}

// Leaderboard records finished games and tracks active players.
type Leaderboard interface {
	Record(ctx context.Context, player string, score int) error
	Touch(ctx context.Context, gameID string) error
	Leave(ctx context.Context, gameID string) error
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
