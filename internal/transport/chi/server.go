package chi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	healthuc "github.com/kailas-cloud/vecquiz/internal/usecase/health"
	leaderboarduc "github.com/kailas-cloud/vecquiz/internal/usecase/leaderboard"
	quizuc "github.com/kailas-cloud/vecquiz/internal/usecase/quiz"
	usageuc "github.com/kailas-cloud/vecquiz/internal/usecase/usage"
)

// maxBodyBytes caps request bodies; a score request carries vectors.
const maxBodyBytes = 1 << 20

// Server exposes the quiz, leaderboard, and health use cases over HTTP.
type Server struct {
	quiz          *quizuc.Service
	leaderboard   *leaderboarduc.Service
	health        *healthuc.Service
	usage         *usageuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	quiz *quizuc.Service,
	leaderboard *leaderboarduc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		quiz:          quiz,
		leaderboard:   leaderboard,
		health:        health,
		usage:         usageuc.New(nil),
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// WithUsage reports the embedding token budget on /usage.
func (s *Server) WithUsage(u *usageuc.Service) *Server {
	s.usage = u
	return s
}

// Routes mounts every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/documents", s.ListDocuments)
		r.Post("/score", s.Score)

		r.Post("/games", s.StartGame)
		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.GetGame)
			r.Delete("/", s.AbandonGame)
			r.Post("/rounds", s.NextRound)
			r.Post("/selection", s.ToggleSelection)
			r.Post("/submit", s.SubmitRound)
		})

		r.Get("/leaderboard", s.Leaderboard)
		r.Get("/leaderboard/active", s.ActivePlayers)
		r.Get("/leaderboard/players/{player}", s.PlayerBest)

		r.Get("/usage", s.Usage)
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalogToResponse(s.quiz.Catalog()))
}

// Score handles POST /score.
func (s *Server) Score(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if !s.decode(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.quiz.Score(ctx, scoreRequestFromDTO(req))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, scoreResultToResponse(res))
}

// StartGame handles POST /games.
func (s *Server) StartGame(w http.ResponseWriter, r *http.Request) {
	var req StartGameRequest
	if !s.decode(w, r, &req) {
		return
	}

	g, err := s.quiz.Start(r.Context(), req.Player)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/games/"+g.ID())
	writeJSON(w, http.StatusCreated, gameToResponse(&g, s.quiz.Now()))
}

// GetGame handles GET /games/{id}.
func (s *Server) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	g, err := s.quiz.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameToResponse(&g, s.quiz.Now()))
}

// AbandonGame handles DELETE /games/{id}.
func (s *Server) AbandonGame(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	g, err := s.quiz.Abandon(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameToResponse(&g, s.quiz.Now()))
}

// NextRound handles POST /games/{id}/rounds.
func (s *Server) NextRound(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	g, err := s.quiz.NextRound(ctx, id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, gameToResponse(&g, s.quiz.Now()))
}

// ToggleSelection handles POST /games/{id}/selection.
func (s *Server) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	var req ToggleRequest
	if !s.decode(w, r, &req) {
		return
	}

	on, g, err := s.quiz.Toggle(r.Context(), id, req.DocumentID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{
		DocumentID: req.DocumentID,
		Selected:   on,
		Game:       gameToResponse(&g, s.quiz.Now()),
	})
}

// SubmitRound handles POST /games/{id}/submit.
func (s *Server) SubmitRound(w http.ResponseWriter, r *http.Request) {
	id, ok := s.gameID(w, r)
	if !ok {
		return
	}
	g, err := s.quiz.Submit(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameToResponse(&g, s.quiz.Now()))
}

// Leaderboard handles GET /leaderboard?limit=N.
func (s *Server) Leaderboard(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit: "+err.Error())
		return
	}

	n := 0
	if limit != nil {
		n = *limit
	}
	entries, err := s.leaderboard.Top(r.Context(), n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardToResponse(entries))
}

// ActivePlayers handles GET /leaderboard/active.
func (s *Server) ActivePlayers(w http.ResponseWriter, r *http.Request) {
	n, err := s.leaderboard.Active(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ActivePlayersResponse{
		Active:        n,
		WindowSeconds: int(s.leaderboard.Window().Seconds()),
	})
}

// PlayerBest handles GET /leaderboard/players/{player}.
func (s *Server) PlayerBest(w http.ResponseWriter, r *http.Request) {
	var player string
	if err := runtime.BindStyledParameterWithOptions("simple", "player", chi.URLParam(r, "player"), &player,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true}); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid player: "+err.Error())
		return
	}

	score, ok, err := s.leaderboard.Best(r.Context(), player)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !ok {
		s.handleDomainError(w, r, domain.ErrPlayerNotFound)
		return
	}
	writeJSON(w, http.StatusOK, PlayerBestResponse{Player: player, HighScore: score})
}

// Usage handles GET /usage?period=day|month.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period := usageuc.PeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		period = usageuc.Period(p)
		if !period.IsValid() {
			writeError(w, http.StatusBadRequest, CodeBadRequest, `period must be "day" or "month"`)
			return
		}
	}
	writeJSON(w, http.StatusOK, usageToResponse(s.usage.Report(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// gameID binds the {id} path parameter. Malformed IDs cannot name a game.
func (s *Server) gameID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid game id")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusNotFound, CodeGameNotFound, domain.ErrGameNotFound.Error())
		return "", false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
}
