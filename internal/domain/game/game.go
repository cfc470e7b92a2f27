package game

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/domain/round"
)

// Game limits and defaults.
const (
	MaxPlayerNameLength = 64
	DefaultTotalRounds  = 5
	DefaultMaxScore     = 15
	DefaultTopK         = 3
)

// Status is the lifecycle state of a game.
type Status string

// Game statuses.
const (
	Active    Status = "active"
	Finished  Status = "finished"
	Abandoned Status = "abandoned"
)

// Game is a single player's quiz session.
type Game struct {
	id           string
	player       string
	score        int
	maxScore     int
	totalRounds  int
	roundsPlayed int
	status       Status
	current      *round.Round
	createdAt    time.Time
	updatedAt    time.Time
}

// NewID returns a fresh game identifier.
func NewID() string { return uuid.NewString() }

// New validates the player name and creates an active game.
// Non-positive totalRounds and maxScore fall back to the defaults.
func New(id, player string, totalRounds, maxScore int, now time.Time) (Game, error) {
	name, err := NormalizePlayer(player)
	if err != nil {
		return Game{}, err
	}
	if totalRounds <= 0 {
		totalRounds = DefaultTotalRounds
	}
	if maxScore <= 0 {
		maxScore = DefaultMaxScore
	}
	return Game{
		id:          id,
		player:      name,
		maxScore:    maxScore,
		totalRounds: totalRounds,
		status:      Active,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// NormalizePlayer trims the name and checks it is non-empty and at most 64 characters.
func NormalizePlayer(player string) (string, error) {
	name := strings.TrimSpace(player)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidPlayer)
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLength {
		return "", fmt.Errorf("%w: name too long (max %d)", domain.ErrInvalidPlayer, MaxPlayerNameLength)
	}
	return name, nil
}

// Reconstruct creates a Game without validation (storage hydration).
func Reconstruct(
	id, player string, score, maxScore, totalRounds, roundsPlayed int,
	status Status, current *round.Round, createdAt, updatedAt time.Time,
) Game {
	return Game{
		id: id, player: player, score: score, maxScore: maxScore,
		totalRounds: totalRounds, roundsPlayed: roundsPlayed, status: status,
		current: current, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the game identifier.
func (g *Game) ID() string { return g.id }

// Player returns the player name.
func (g *Game) Player() string { return g.player }

// Score returns the accumulated score.
func (g *Game) Score() int { return g.score }

// MaxScore returns the score ceiling.
func (g *Game) MaxScore() int { return g.maxScore }

// TotalRounds returns the number of rounds in the game.
func (g *Game) TotalRounds() int { return g.totalRounds }

// RoundsPlayed returns the number of graded rounds.
func (g *Game) RoundsPlayed() int { return g.roundsPlayed }

// Status returns the game status.
func (g *Game) Status() Status { return g.status }

// Current returns the latest round (open or graded), nil before the first round.
func (g *Game) Current() *round.Round { return g.current }

// CreatedAt returns the creation time.
func (g *Game) CreatedAt() time.Time { return g.createdAt }

// UpdatedAt returns the time of the last state change.
func (g *Game) UpdatedAt() time.Time { return g.updatedAt }

// IsActive reports whether the game accepts actions.
func (g *Game) IsActive() bool { return g.status == Active }

// HasOpenRound reports whether the current round accepts selections.
func (g *Game) HasOpenRound() bool { return g.current != nil && g.current.IsOpen() }

// NextRoundNumber returns the number the next round would get.
func (g *Game) NextRoundNumber() int { return g.roundsPlayed + 1 }

// CanStartRound checks that a new round may begin.
func (g *Game) CanStartRound() error {
	if !g.IsActive() {
		return domain.ErrGameOver
	}
	if g.HasOpenRound() {
		return domain.ErrRoundInProgress
	}
	if g.roundsPlayed >= g.totalRounds {
		return domain.ErrGameOver
	}
	return nil
}

// StartRound installs r as the current round.
func (g *Game) StartRound(r round.Round, now time.Time) error {
	if err := g.CanStartRound(); err != nil {
		return err
	}
	if r.Number() != g.NextRoundNumber() {
		return fmt.Errorf("round number %d, expected %d", r.Number(), g.NextRoundNumber())
	}
	g.current = &r
	g.updatedAt = now
	return nil
}

// Toggle flips a document in the current round's selection.
func (g *Game) Toggle(docID int, now time.Time) (bool, error) {
	if !g.IsActive() {
		return false, domain.ErrGameOver
	}
	if g.current == nil {
		return false, domain.ErrNoOpenRound
	}
	on, err := g.current.Toggle(docID, now)
	if err != nil {
		return false, err //nolint:wrapcheck // domain sentinel passthrough
	}
	g.updatedAt = now
	return on, nil
}

// CompleteRound grades the open round. Points are res.Correct capped so the
// total never exceeds the ceiling. The game finishes after the last round.
func (g *Game) CompleteRound(res round.Result, outcome round.Outcome, now time.Time) (round.Result, error) {
	if !g.IsActive() {
		return round.Result{}, domain.ErrGameOver
	}
	if !g.HasOpenRound() {
		return round.Result{}, domain.ErrNoOpenRound
	}

	res.Points = min(res.Correct, g.maxScore-g.score)
	if res.Points < 0 {
		res.Points = 0
	}
	if err := g.current.Close(res, outcome); err != nil {
		return round.Result{}, err //nolint:wrapcheck // domain sentinel passthrough
	}

	g.score += res.Points
	g.roundsPlayed++
	if g.roundsPlayed >= g.totalRounds {
		g.status = Finished
	}
	g.updatedAt = now
	return res, nil
}

// Abandon ends an active game without recording it.
func (g *Game) Abandon(now time.Time) error {
	if !g.IsActive() {
		return domain.ErrGameOver
	}
	g.status = Abandoned
	g.updatedAt = now
	return nil
}
