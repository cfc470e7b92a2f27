package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	api "github.com/kailas-cloud/vecquiz/internal/transport/chi"
	"github.com/kailas-cloud/vecquiz/internal/version"
)

const (
	defaultTimeout = 10 * time.Second
	apiPrefix      = "/api/v1"
	// maxErrorBody caps how much of a failed response is read.
	maxErrorBody = 64 << 10
)

// Client talks to a vecquiz server.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
	obs       *observer
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("vecquiz: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("vecquiz: base url must be http or https, got %q", baseURL)
	}

	cfg := &clientConfig{
		timeout:   defaultTimeout,
		userAgent: "vecquiz-sdk/" + version.Version,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   u,
		http:      hc,
		apiKey:    cfg.apiKey,
		userAgent: cfg.userAgent,
		obs:       obs,
	}, nil
}

// Health returns the server health report. A degraded server answers 503,
// which is reported as a Health value, not an error.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	_, err := c.do(ctx, "health", http.MethodGet, "/health", nil, &out, http.StatusServiceUnavailable)
	return out, err
}

// Documents returns the catalog.
func (c *Client) Documents(ctx context.Context) (Catalog, error) {
	var out Catalog
	_, err := c.do(ctx, "documents", http.MethodGet, apiPrefix+"/documents", nil, &out)
	return out, err
}

// Score ranks candidates (the catalog when none are given) against a query.
func (c *Client) Score(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	var out ScoreResult
	h, err := c.do(ctx, "score", http.MethodPost, apiPrefix+"/score", req, &out.ScoreResponse)
	if err != nil {
		return ScoreResult{}, err
	}
	out.EmbeddingTokens, _ = strconv.Atoi(h.Get("X-Embedding-Tokens"))
	return out, nil
}

// StartGame opens a new game for player.
func (c *Client) StartGame(ctx context.Context, player string) (Game, error) {
	var out Game
	_, err := c.do(ctx, "start_game", http.MethodPost, apiPrefix+"/games",
		api.StartGameRequest{Player: player}, &out)
	return out, err
}

// Game returns the current state of a game.
func (c *Client) Game(ctx context.Context, id string) (Game, error) {
	var out Game
	_, err := c.do(ctx, "get_game", http.MethodGet, gamePath(id, ""), nil, &out)
	return out, err
}

// NextRound starts the next round and its countdown.
func (c *Client) NextRound(ctx context.Context, id string) (Game, error) {
	var out Game
	_, err := c.do(ctx, "next_round", http.MethodPost, gamePath(id, "/rounds"), nil, &out)
	return out, err
}

// Toggle flips a document in the open round's selection.
func (c *Client) Toggle(ctx context.Context, id string, documentID int) (Selection, error) {
	var out Selection
	_, err := c.do(ctx, "toggle", http.MethodPost, gamePath(id, "/selection"),
		api.ToggleRequest{DocumentID: documentID}, &out)
	return out, err
}

// Submit grades the open round.
func (c *Client) Submit(ctx context.Context, id string) (Game, error) {
	var out Game
	_, err := c.do(ctx, "submit", http.MethodPost, gamePath(id, "/submit"), nil, &out)
	return out, err
}

// Abandon ends a game without recording its score.
func (c *Client) Abandon(ctx context.Context, id string) (Game, error) {
	var out Game
	_, err := c.do(ctx, "abandon", http.MethodDelete, gamePath(id, ""), nil, &out)
	return out, err
}

// Leaderboard returns up to limit top players. Zero uses the server default.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]LeaderEntry, error) {
	path := apiPrefix + "/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out api.LeaderboardResponse
	if _, err := c.do(ctx, "leaderboard", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// PlayerBest returns a player's high score. Players who never finished a
// game yield ErrPlayerNotFound.
func (c *Client) PlayerBest(ctx context.Context, player string) (PlayerBest, error) {
	var out PlayerBest
	_, err := c.do(ctx, "player_best", http.MethodGet, apiPrefix+"/leaderboard/players/"+url.PathEscape(player), nil, &out)
	return out, err
}

// ActivePlayers returns the number of recently active games.
func (c *Client) ActivePlayers(ctx context.Context) (ActivePlayers, error) {
	var out ActivePlayers
	_, err := c.do(ctx, "active_players", http.MethodGet, apiPrefix+"/leaderboard/active", nil, &out)
	return out, err
}

// Usage returns embedding token usage for period ("day" or "month").
func (c *Client) Usage(ctx context.Context, period string) (Usage, error) {
	path := apiPrefix + "/usage"
	if period != "" {
		path += "?period=" + url.QueryEscape(period)
	}
	var out Usage
	_, err := c.do(ctx, "usage", http.MethodGet, path, nil, &out)
	return out, err
}

func gamePath(id, suffix string) string {
	return apiPrefix + "/games/" + url.PathEscape(id) + suffix
}

// do sends one request and decodes a JSON response into out. Statuses in
// accept are decoded like 2xx.
func (c *Client) do(
	ctx context.Context, op, method, path string, in, out any, accept ...int,
) (h http.Header, err error) {
	start := time.Now()
	status := 0
	defer func() { c.obs.observe(op, start, status, err) }()

	var body io.Reader
	if in != nil {
		buf, mErr := json.Marshal(in)
		if mErr != nil {
			return nil, fmt.Errorf("vecquiz: %s: encode request: %w", op, mErr)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, fmt.Errorf("vecquiz: %s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vecquiz: %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	ok := status >= 200 && status < 300
	for _, s := range accept {
		ok = ok || status == s
	}
	if !ok {
		return resp.Header, decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.Header, fmt.Errorf("vecquiz: %s: decode response: %w", op, err)
		}
	}
	return resp.Header, nil
}

func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &body); err != nil {
		body.Message = strings.TrimSpace(string(data))
	}
	return newAPIError(resp.StatusCode, body)
}
