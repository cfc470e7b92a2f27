package sdk

import api "github.com/kailas-cloud/vecquiz/internal/transport/chi"

// Wire types shared with the server.
type (
	Game          = api.GameResponse
	Round         = api.RoundResponse
	RoundResult   = api.ResultResponse
	RankedItem    = api.RankedItem
	Candidate     = api.CandidateItem
	ScoreRequest  = api.ScoreRequest
	Document      = api.DocumentItem
	Catalog       = api.DocumentListResponse
	LeaderEntry   = api.LeaderboardEntry
	PlayerBest    = api.PlayerBestResponse
	ActivePlayers = api.ActivePlayersResponse
	Health        = api.HealthResponse
	Usage         = api.UsageResponse
)

// Selection is the result of toggling a document.
type Selection = api.ToggleResponse

// ScoreResult is a ranking plus the embedding tokens the server spent on it.
type ScoreResult struct {
	api.ScoreResponse
	EmbeddingTokens int
}
