package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/db"
	"github.com/kailas-cloud/vecquiz/internal/domain"
	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
)

// DefaultTTL keeps an idle session around long enough to finish a game.
const DefaultTTL = 24 * time.Hour

// store is the consumer interface for game sessions (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo implements usecase/quiz.GameRepository.
type Repo struct {
	store store
	ttl   time.Duration
}

// New creates a game repository. Non-positive ttl falls back to DefaultTTL.
func New(s store, ttl time.Duration) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repo{store: s, ttl: ttl}
}

// Save writes the game, refreshing its TTL.
func (r *Repo) Save(ctx context.Context, g *domgame.Game) error {
	data, err := json.Marshal(toDTO(g))
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	key := gameKey(g.ID())
	if err := r.store.SetWithTTL(ctx, key, data, r.ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Get loads a game by ID.
func (r *Repo) Get(ctx context.Context, id string) (domgame.Game, error) {
	key := gameKey(id)
	data, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domgame.Game{}, domain.ErrGameNotFound
		}
		return domgame.Game{}, fmt.Errorf("get %s: %w", key, err)
	}

	var dto gameDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return domgame.Game{}, fmt.Errorf("unmarshal game %s: %w", id, err)
	}
	return fromDTO(dto), nil
}

// Delete removes a game.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := gameKey(id)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func gameKey(id string) string {
	return fmt.Sprintf("%sgame:%s", domain.KeyPrefix, id)
}
