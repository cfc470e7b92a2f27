package chi

import (
	"math"
	"strings"
	"time"

	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
	domgame "github.com/kailas-cloud/vecquiz/internal/domain/game"
	domlb "github.com/kailas-cloud/vecquiz/internal/domain/leaderboard"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking/metric"
	"github.com/kailas-cloud/vecquiz/internal/domain/round"
	quizuc "github.com/kailas-cloud/vecquiz/internal/usecase/quiz"
	usageuc "github.com/kailas-cloud/vecquiz/internal/usecase/usage"
)

// StartGameRequest is the body of POST /games.
type StartGameRequest struct {
	Player string `json:"player"`
}

// ToggleRequest is the body of POST /games/{id}/selection.
type ToggleRequest struct {
	DocumentID int `json:"document_id"`
}

// ToggleResponse reports the document's new selection state.
type ToggleResponse struct {
	DocumentID int          `json:"document_id"`
	Selected   bool         `json:"selected"`
	Game       GameResponse `json:"game"`
}

// GameResponse is a game session snapshot.
type GameResponse struct {
	ID           string         `json:"id"`
	Player       string         `json:"player"`
	Status       string         `json:"status"`
	Score        int            `json:"score"`
	MaxScore     int            `json:"max_score"`
	TotalRounds  int            `json:"total_rounds"`
	RoundsPlayed int            `json:"rounds_played"`
	Round        *RoundResponse `json:"round,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RoundResponse is the current or last round. The query vector is only
// revealed once the round is graded.
type RoundResponse struct {
	Number      int             `json:"number"`
	Status      string          `json:"status"`
	QueryDocID  int             `json:"query_doc_id,omitempty"`
	QueryText   string          `json:"query_text,omitempty"`
	QueryVector []float64       `json:"query_vector,omitempty"`
	Selected    []int           `json:"selected"`
	StartedAt   time.Time       `json:"started_at"`
	Deadline    time.Time       `json:"deadline"`
	RemainingMs int64           `json:"remaining_ms"`
	Outcome     string          `json:"outcome,omitempty"`
	Result      *ResultResponse `json:"result,omitempty"`
}

// ResultResponse is a graded round.
type ResultResponse struct {
	Ranked  []RankedItem `json:"ranked"`
	TopK    []int        `json:"top_k"`
	Correct int          `json:"correct"`
	Points  int          `json:"points"`
}

// RankedItem is one scored candidate. Score is null for -Inf.
type RankedItem struct {
	ID       int      `json:"id"`
	Score    *float64 `json:"score"`
	Position int      `json:"position"`
}

// CandidateItem is a caller-supplied candidate for POST /score.
type CandidateItem struct {
	ID     int       `json:"id"`
	Vector []float64 `json:"vector"`
}

// ScoreRequest is the body of POST /score.
type ScoreRequest struct {
	Metric     string          `json:"metric,omitempty"`
	Query      []float64       `json:"query,omitempty"`
	QueryText  string          `json:"query_text,omitempty"`
	Candidates []CandidateItem `json:"candidates"` // null scores the catalog
	K          int             `json:"k,omitempty"`
	Selected   []int           `json:"selected,omitempty"`
}

// ScoreResponse is the ranking and optional grade.
type ScoreResponse struct {
	Metric  string       `json:"metric"`
	K       int          `json:"k"`
	Ranked  []RankedItem `json:"ranked"`
	TopK    []int        `json:"top_k"`
	Correct *int         `json:"correct,omitempty"`
}

// DocumentItem is a catalog entry.
type DocumentItem struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding"`
}

// DocumentListResponse is the catalog.
type DocumentListResponse struct {
	Items      []DocumentItem `json:"items"`
	Dimensions int            `json:"dimensions"`
}

// LeaderboardEntry is a ranked high score.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Player    string `json:"player"`
	HighScore int    `json:"high_score"`
}

// LeaderboardResponse lists the top players.
type LeaderboardResponse struct {
	Items []LeaderboardEntry `json:"items"`
}

// PlayerBestResponse is one player's high score.
type PlayerBestResponse struct {
	Player    string `json:"player"`
	HighScore int    `json:"high_score"`
}

// ActivePlayersResponse is the active player counter.
type ActivePlayersResponse struct {
	Active        int `json:"active"`
	WindowSeconds int `json:"window_seconds"`
}

// UsageResponse is the embedding token budget of one period.
// TokensRemaining is null when no limit is set.
type UsageResponse struct {
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensRemaining *int64    `json:"tokens_remaining"`
	Exhausted       bool      `json:"exhausted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func gameToResponse(g *domgame.Game, now time.Time) GameResponse {
	resp := GameResponse{
		ID:           g.ID(),
		Player:       g.Player(),
		Status:       string(g.Status()),
		Score:        g.Score(),
		MaxScore:     g.MaxScore(),
		TotalRounds:  g.TotalRounds(),
		RoundsPlayed: g.RoundsPlayed(),
		CreatedAt:    g.CreatedAt(),
		UpdatedAt:    g.UpdatedAt(),
	}
	if r := g.Current(); r != nil {
		rr := roundToResponse(r, now)
		resp.Round = &rr
	}
	return resp
}

func roundToResponse(r *round.Round, now time.Time) RoundResponse {
	resp := RoundResponse{
		Number:     r.Number(),
		Status:     string(r.Status()),
		QueryDocID: r.QueryDocID(),
		QueryText:  r.QueryText(),
		Selected:   r.Selected(),
		StartedAt:  r.StartedAt(),
		Deadline:   r.Deadline(),
		Outcome:    string(r.Outcome()),
	}
	if r.IsOpen() {
		resp.RemainingMs = r.Remaining(now).Milliseconds()
	}
	if res := r.Result(); res != nil {
		resp.QueryVector = r.QueryVector()
		resp.Result = &ResultResponse{
			Ranked:  rankedToResponse(res.Ranked),
			TopK:    res.TopK,
			Correct: res.Correct,
			Points:  res.Points,
		}
	}
	return resp
}

func rankedToResponse(ranked []ranking.Ranked[int]) []RankedItem {
	items := make([]RankedItem, len(ranked))
	for i, r := range ranked {
		items[i] = RankedItem{ID: r.ID, Score: finiteOrNil(r.Score), Position: r.Position}
	}
	return items
}

func finiteOrNil(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

func scoreRequestFromDTO(req ScoreRequest) quizuc.ScoreRequest {
	out := quizuc.ScoreRequest{
		Query:     req.Query,
		QueryText: req.QueryText,
		K:         req.K,
		Selected:  req.Selected,
	}
	out.Metric = metricFromString(req.Metric)
	// An absent field scores the catalog; an explicit [] is an error.
	if req.Candidates != nil {
		out.Candidates = make([]ranking.Candidate[int], len(req.Candidates))
		for i, c := range req.Candidates {
			out.Candidates[i] = ranking.Candidate[int]{ID: c.ID, Vector: c.Vector}
		}
	}
	return out
}

func scoreResultToResponse(res quizuc.ScoreResult) ScoreResponse {
	return ScoreResponse{
		Metric:  string(res.Metric),
		K:       res.K,
		Ranked:  rankedToResponse(res.Ranked),
		TopK:    res.TopK,
		Correct: res.Correct,
	}
}

func catalogToResponse(c *domdoc.Catalog) DocumentListResponse {
	items := make([]DocumentItem, c.Len())
	for i, d := range c.Documents() {
		items[i] = DocumentItem{ID: d.ID(), Content: d.Content(), Embedding: d.Embedding()}
	}
	return DocumentListResponse{Items: items, Dimensions: c.Dimensions()}
}

func leaderboardToResponse(entries []domlb.Entry) LeaderboardResponse {
	items := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		items[i] = LeaderboardEntry{Rank: e.Rank, Player: e.Player, HighScore: e.HighScore}
	}
	return LeaderboardResponse{Items: items}
}

func metricFromString(s string) metric.Metric {
	return metric.Metric(strings.ToLower(strings.TrimSpace(s)))
}

func usageToResponse(r usageuc.Report) UsageResponse {
	out := UsageResponse{
		Period:      string(r.Period),
		PeriodStart: r.Start,
		PeriodEnd:   r.End,
		TokensLimit: r.Limit,
		TokensUsed:  r.Used,
		Exhausted:   r.Exhausted,
	}
	if r.Remaining >= 0 {
		remaining := r.Remaining
		out.TokensRemaining = &remaining
	}
	return out
}
