package game

import (
	"math"
	"time"

	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
	"github.com/kailas-cloud/vecquiz/internal/domain/round"
)

// gameDTO is the JSON document stored under vecquiz:game:{id}.
type gameDTO struct {
	ID           string    `json:"id"`
	Player       string    `json:"player"`
	Score        int       `json:"score"`
	MaxScore     int       `json:"max_score"`
	TotalRounds  int       `json:"total_rounds"`
	RoundsPlayed int       `json:"rounds_played"`
	Status       string    `json:"status"`
	Current      *roundDTO `json:"current,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type roundDTO struct {
	Number      int        `json:"number"`
	QueryDocID  int        `json:"query_doc_id"`
	QueryText   string     `json:"query_text"`
	QueryVector []float64  `json:"query_vector"`
	Selected    []int      `json:"selected"`
	StartedAt   time.Time  `json:"started_at"`
	Deadline    time.Time  `json:"deadline"`
	Status      string     `json:"status"`
	Outcome     string     `json:"outcome,omitempty"`
	Result      *resultDTO `json:"result,omitempty"`
}

type resultDTO struct {
	Ranked  []rankedDTO `json:"ranked"`
	TopK    []int       `json:"top_k"`
	Correct int         `json:"correct"`
	Points  int         `json:"points"`
}

// rankedDTO stores -Inf as a null score; JSON has no infinities.
type rankedDTO struct {
	ID       int      `json:"id"`
	Score    *float64 `json:"score"`
	Position int      `json:"position"`
}

func toDTO(g *domgame.Game) gameDTO {
	dto := gameDTO{
		ID:           g.ID(),
		Player:       g.Player(),
		Score:        g.Score(),
		MaxScore:     g.MaxScore(),
		TotalRounds:  g.TotalRounds(),
		RoundsPlayed: g.RoundsPlayed(),
		Status:       string(g.Status()),
		CreatedAt:    g.CreatedAt(),
		UpdatedAt:    g.UpdatedAt(),
	}
	if r := g.Current(); r != nil {
		dto.Current = toRoundDTO(r)
	}
	return dto
}

func toRoundDTO(r *round.Round) *roundDTO {
	dto := &roundDTO{
		Number:      r.Number(),
		QueryDocID:  r.QueryDocID(),
		QueryText:   r.QueryText(),
		QueryVector: r.QueryVector(),
		Selected:    r.Selected(),
		StartedAt:   r.StartedAt(),
		Deadline:    r.Deadline(),
		Status:      string(r.Status()),
		Outcome:     string(r.Outcome()),
	}
	if res := r.Result(); res != nil {
		ranked := make([]rankedDTO, len(res.Ranked))
		for i, h := range res.Ranked {
			ranked[i] = rankedDTO{ID: h.ID, Score: finiteOrNil(h.Score), Position: h.Position}
		}
		dto.Result = &resultDTO{Ranked: ranked, TopK: res.TopK, Correct: res.Correct, Points: res.Points}
	}
	return dto
}

func fromDTO(dto gameDTO) domgame.Game {
	var current *round.Round
	if dto.Current != nil {
		r := fromRoundDTO(dto.Current)
		current = &r
	}
	return domgame.Reconstruct(
		dto.ID, dto.Player, dto.Score, dto.MaxScore, dto.TotalRounds, dto.RoundsPlayed,
		domgame.Status(dto.Status), current, dto.CreatedAt, dto.UpdatedAt,
	)
}

func fromRoundDTO(dto *roundDTO) round.Round {
	var res *round.Result
	if dto.Result != nil {
		ranked := make([]ranking.Ranked[int], len(dto.Result.Ranked))
		for i, h := range dto.Result.Ranked {
			score := math.Inf(-1)
			if h.Score != nil {
				score = *h.Score
			}
			ranked[i] = ranking.Ranked[int]{ID: h.ID, Score: score, Position: h.Position}
		}
		res = &round.Result{
			Ranked: ranked, TopK: dto.Result.TopK,
			Correct: dto.Result.Correct, Points: dto.Result.Points,
		}
	}
	return round.Reconstruct(
		dto.Number, dto.QueryDocID, dto.QueryText, dto.QueryVector, dto.Selected,
		dto.StartedAt, dto.Deadline, round.Status(dto.Status), round.Outcome(dto.Outcome), res,
	)
}

func finiteOrNil(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}
