package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquiz/internal/config"
	"github.com/kailas-cloud/vecquiz/internal/db"
	dbRedis "github.com/kailas-cloud/vecquiz/internal/db/redis"
	"github.com/kailas-cloud/vecquiz/internal/domain"
	domdoc "github.com/kailas-cloud/vecquiz/internal/domain/document"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking/metric"
	logpkg "github.com/kailas-cloud/vecquiz/internal/logger"
	"github.com/kailas-cloud/vecquiz/internal/metrics"
	budgetrepo "github.com/kailas-cloud/vecquiz/internal/repository/budget"
	catalogrepo "github.com/kailas-cloud/vecquiz/internal/repository/catalog"
	"github.com/kailas-cloud/vecquiz/internal/repository/embcache"
	gamerepo "github.com/kailas-cloud/vecquiz/internal/repository/game"
	leaderboardrepo "github.com/kailas-cloud/vecquiz/internal/repository/leaderboard"
	chiTransport "github.com/kailas-cloud/vecquiz/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/vecquiz/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/vecquiz/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecquiz/internal/usecase/health"
	leaderboarduc "github.com/kailas-cloud/vecquiz/internal/usecase/leaderboard"
	quizuc "github.com/kailas-cloud/vecquiz/internal/usecase/quiz"
	usageuc "github.com/kailas-cloud/vecquiz/internal/usecase/usage"
	"github.com/kailas-cloud/vecquiz/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting vecquiz API server",
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// Redis and Valkey share the rueidis store; the driver only labels logs.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		Standalone: cfg.Database.Standalone,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	emb := buildEmbedders(ctx, cfg, store, logger)

	catalog, err := loadCatalog(ctx, cfg.Game, emb.document, logger)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	boardRepo := leaderboardrepo.New(store)
	boardSvc := leaderboarduc.New(boardRepo, time.Duration(cfg.Leaderboard.ActiveWindowSec)*time.Second)

	games := gamerepo.New(store, time.Duration(cfg.Storage.GameTTLSec)*time.Second)
	quizSvc := quizuc.New(games, catalog, quizuc.Config{
		TotalRounds:   cfg.Game.TotalRounds,
		MaxScore:      cfg.Game.MaxScore,
		TopK:          cfg.Game.TopK,
		RoundDuration: cfg.Game.RoundDuration(),
		Metric:        metric.Metric(cfg.Game.Metric),
		QuerySource:   quizuc.QuerySource(cfg.Game.QuerySource),
	}, logger).WithLeaderboard(boardSvc)
	if emb.query != nil {
		quizSvc.WithEmbedder(emb.query)
	}

	healthSvc := healthuc.New(store, logger)
	if emb.provider != nil {
		healthSvc.WithCheck("embedding", emb.provider)
	}
	if emb.budget != nil {
		healthSvc.WithCheck("embedding_budget", emb.budget)
	}

	var limiter *chiTransport.RateLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = chiTransport.NewRateLimiter(chiTransport.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		})
	}

	// Usage reads the same tracker the embedders charge.
	var budgetReader usageuc.BudgetReader
	if emb.budget != nil {
		budgetReader = emb.budget
	}

	server := chiTransport.NewServer(quizSvc, boardSvc, healthSvc, logger).
		WithUsage(usageuc.New(budgetReader))
	handler := chiTransport.NewRouter(server, logger, chiTransport.RouterConfig{
		APIKeys:     cfg.Auth.APIKeys,
		RateLimiter: limiter,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if limiter != nil {
		go limiter.Run(runCtx, time.Minute)
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-runCtx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	// Open rounds are graded on the next access after restart.
	quizSvc.Shutdown()

	logger.Info("Server stopped gracefully")
}

// embedders is the composition result of the embedding config.
// All fields are nil when no vectorizer is configured.
type embedders struct {
	document domain.Embedder
	query    domain.Embedder
	provider *openaiEmb.Embedder
	budget   *embeddinguc.BudgetTracker
}

func buildEmbedders(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) embedders {
	vecCfg, provName, provCfg, ok := cfg.Embedding.Vectorizer()
	if !ok {
		logger.Info("Embedding not configured")
		return embedders{}
	}

	var out embedders

	// Single BudgetTracker shared by both embedders.
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		out.budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		out.budget.WithStore(ctx, budgetrepo.New(store))
	}

	// A typed nil pointer inside the interface would defeat the nil check downstream.
	var budgetChecker embeddinguc.BudgetChecker
	if out.budget != nil {
		budgetChecker = out.budget
	}

	out.provider = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	cacheTTL := time.Duration(cfg.Storage.EmbeddingCacheTTLSec) * time.Second
	out.document = buildEmbedder(out.provider, provName, vecCfg, vecCfg.DocumentInstruction, store, cacheTTL, budgetChecker, logger)
	out.query = buildEmbedder(out.provider, provName, vecCfg, vecCfg.QueryInstruction, store, cacheTTL, budgetChecker, logger)

	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)
	return out
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
func buildEmbedder(
	base *openaiEmb.Embedder,
	provName string,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.KVStore,
	cacheTTL time.Duration,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) domain.Embedder {
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Config{
			Model:      vecCfg.Model,
			Dimensions: vecCfg.Dimensions,
			TTL:        cacheTTL,
			Lookups:    metrics.EmbeddingCacheLookups,
		}, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, provName, vecCfg.Model, budget, logger)

	// Outermost, so the cache key includes the instruction.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// loadCatalog reads the catalog and, when asked, replaces its embeddings with
// provider vectors so that embedded queries and documents share one space.
func loadCatalog(
	ctx context.Context, game config.GameConfig, embedder domain.Embedder, logger *zap.Logger,
) (*domdoc.Catalog, error) {
	catalog, err := catalogrepo.Load(game.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	if game.ReembedCatalog && embedder != nil {
		catalog, err = quizuc.PrepareCatalog(ctx, catalog, embedder)
		if err != nil {
			return nil, fmt.Errorf("embed catalog: %w", err)
		}
	}

	logger.Info("Catalog loaded",
		zap.String("file", game.CatalogFile),
		zap.Int("documents", catalog.Len()),
		zap.Int("dimensions", catalog.Dimensions()),
		zap.Bool("reembedded", game.ReembedCatalog),
	)
	return catalog, nil
}
