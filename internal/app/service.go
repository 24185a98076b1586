// Package service wires the fetch, aggregation and classification stages into
// the analysis the HTTP API and the CLI expose.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/leakscan/internal/adapters/fetch"
	"github.com/okian/leakscan/internal/adapters/gamesource"
	"github.com/okian/leakscan/internal/adapters/oracle"
	"github.com/okian/leakscan/internal/adapters/worker"
	"github.com/okian/leakscan/internal/domain/aggregate"
	"github.com/okian/leakscan/internal/domain/evalcache"
	"github.com/okian/leakscan/internal/domain/games"
	"github.com/okian/leakscan/internal/domain/leaks"
	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/types"
	"github.com/okian/leakscan/pkg/logger"
	"github.com/okian/leakscan/pkg/metrics"
)

// GameSource returns a player's raw game export.
type GameSource interface {
	FetchGames(ctx context.Context, username string, limit int) (string, error)
}

// Service runs opening-leak analyses.
type Service struct {
	mu sync.RWMutex

	// Core components
	games       GameSource
	oracleFetch *fetch.Client
	pool        *worker.Pool
	aggregator  *aggregate.Aggregator

	// Configuration
	gamesBaseURL      string
	oracleBaseURL     string
	oracleMultiPV     int
	requestTimeout    time.Duration
	maxRetries        int
	baseBackoff       time.Duration
	oracleConcurrency int
	oracleRPS         float64
	minRepeat         int
	defaults          model.Options
	evalCacheSize     int
	userAgent         string
	httpClient        *http.Client

	// State
	started   bool
	startedAt time.Time

	// Counters
	analyses      atomic.Int64
	failures      atomic.Int64
	leaksFound    atomic.Int64
	gamesAnalyzed atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		gamesBaseURL:      "https://lichess.org",
		oracleBaseURL:     "https://lichess.org",
		oracleMultiPV:     1,
		requestTimeout:    12 * time.Second,
		maxRetries:        3,
		baseBackoff:       500 * time.Millisecond,
		oracleConcurrency: 6,
		minRepeat:         3,
		defaults:          model.Options{MaxGames: 100, MaxOpeningMoves: 12, CPLossThreshold: 50},
		userAgent:         "leakscan/1.0",
		httpClient:        &http.Client{},
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the upstream clients and the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting analysis service...")

	if s.games == nil {
		gamesFetch := fetch.New(s.fetchOptions("games")...)
		s.games = gamesource.New(gamesFetch, gamesource.WithBaseURL(s.gamesBaseURL))
	}
	oracleOpts := s.fetchOptions("oracle")
	if s.oracleRPS > 0 {
		oracleOpts = append(oracleOpts, fetch.WithRateLimit(s.oracleRPS, s.oracleConcurrency))
	}
	s.oracleFetch = fetch.New(oracleOpts...)
	s.pool = worker.NewPool(s.oracleConcurrency, worker.WithName("classifier"))
	s.aggregator = aggregate.New(nil)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "analysis service started",
		logger.String("gamesBaseURL", s.gamesBaseURL),
		logger.String("oracleBaseURL", s.oracleBaseURL),
		logger.Int("oracleConcurrency", s.oracleConcurrency),
		logger.Int("minRepeat", s.minRepeat),
	)

	return nil
}

func (s *Service) fetchOptions(endpoint string) []fetch.Option {
	return []fetch.Option{
		fetch.WithHTTPClient(s.httpClient),
		fetch.WithTimeout(s.requestTimeout),
		fetch.WithMaxRetries(s.maxRetries),
		fetch.WithBaseBackoff(s.baseBackoff),
		fetch.WithUserAgent(s.userAgent),
		fetch.WithEndpoint(endpoint),
		fetch.WithLogger(s.logger.Named("fetch")),
	}
}

// Stop marks the service stopped. In-flight analyses finish on their own
// contexts.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.started = false
	s.logger.Info(context.Background(), "analysis service stopped",
		logger.Int64("analyses", s.analyses.Load()),
	)
}

// Defaults returns the options applied to fields a request leaves at zero.
func (s *Service) Defaults() model.Options { return s.defaults }

// Analyze fetches username's games, aggregates the opening positions they
// keep reaching and reports the habitual moves that lose more than
// opts.CPLossThreshold centipawns. Zero option fields take the service
// defaults and every field is clamped into range.
func (s *Service) Analyze(ctx context.Context, username string, opts model.Options) (model.Report, error) {
	start := time.Now()
	report, err := s.analyze(ctx, username, opts)
	outcome := outcomeOf(err)
	metrics.RecordAnalysis(outcome, float64(time.Since(start).Milliseconds()))

	s.analyses.Add(1)
	if err != nil {
		s.failures.Add(1)
		return model.Report{}, err
	}
	s.leaksFound.Add(int64(len(report.Leaks)))
	s.gamesAnalyzed.Add(int64(report.GamesAnalyzed))
	return report, nil
}

func (s *Service) analyze(ctx context.Context, username string, opts model.Options) (model.Report, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.Report{}, ErrNotStarted
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return model.Report{}, ErrEmptyUsername
	}
	opts = opts.Clamp(s.defaults)
	runID := uuid.NewString()
	log := s.logger.With(logger.String("run_id", runID), logger.String("username", username))

	raw, err := s.games.FetchGames(ctx, username, opts.MaxGames)
	if err != nil {
		log.Warn(ctx, "game history unavailable", logger.Error(err))
		return model.Report{}, fmt.Errorf("analyze %q: %w", username, err)
	}

	records := games.Normalize(raw)
	table, analyzed := s.aggregator.Aggregate(records, username, opts.MaxPlies())
	repeated := len(table.Repeated(s.minRepeat))
	metrics.RecordGamesAnalyzed(analyzed)
	metrics.RecordPositions(table.Len(), repeated)
	log.Debug(ctx, "positions aggregated",
		logger.Int("games", len(records)),
		logger.Int("gamesAnalyzed", analyzed),
		logger.Int("positions", table.Len()),
		logger.Int("repeated", repeated),
	)

	// Evaluations are memoized per run.
	cache := evalcache.NewInMemoryCache(evalcache.WithMaxSize(s.evalCacheSize))
	evaluator := oracle.New(s.oracleFetch, cache,
		oracle.WithBaseURL(s.oracleBaseURL),
		oracle.WithMultiPV(s.oracleMultiPV),
		oracle.WithLogger(log.Named("oracle")),
	)
	classifier := leaks.NewClassifier(evaluator,
		leaks.WithMinRepeat(s.minRepeat),
		leaks.WithRunner(s.pool),
		leaks.WithLogger(log.Named("leaks")),
	)

	found, err := classifier.Classify(ctx, table.Positions(), opts.CPLossThreshold)
	if err != nil {
		log.Warn(ctx, "classification interrupted", logger.Error(err))
		return model.Report{}, fmt.Errorf("analyze %q: %w", username, err)
	}
	metrics.RecordLeaksFound(len(found))

	log.Info(ctx, "analysis complete",
		logger.Int("gamesAnalyzed", analyzed),
		logger.Int("repeated", repeated),
		logger.Int("leaks", len(found)),
		logger.Int64("evaluations", evaluator.CacheSize()),
	)

	return model.Report{
		RunID:             runID,
		Username:          username,
		GamesAnalyzed:     analyzed,
		RepeatedPositions: repeated,
		Leaks:             found,
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyUsername), errors.Is(err, ErrNotStarted):
		return "invalid"
	case errors.Is(err, gamesource.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, fetch.ErrCanceled):
		return "canceled"
	default:
		return "upstream_error"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := types.Stats{
		Analyses:       s.analyses.Load(),
		Failures:       s.failures.Load(),
		LeaksFound:     s.leaksFound.Load(),
		GamesAnalyzed:  s.gamesAnalyzed.Load(),
		OracleWidth:    s.oracleConcurrency,
		MinRepeat:      s.minRepeat,
		DefaultOptions: types.FromOptions(s.defaults),
	}
	if s.started {
		stats.UptimeSeconds = time.Since(s.startedAt).Seconds()
	}
	return stats
}
