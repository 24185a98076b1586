// Package oracle is the evaluation-oracle client. It talks to a Lichess
// cloud-eval compatible endpoint through the fetch layer and memoizes answers
// per position for one analysis run.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/okian/leakscan/internal/adapters/fetch"
	"github.com/okian/leakscan/internal/domain/evalcache"
	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/pkg/logger"
	"github.com/okian/leakscan/pkg/metrics"
)

// Default oracle configuration constants.
const (
	defaultBaseURL = "https://lichess.org"
	defaultMultiPV = 1
	cloudEvalPath  = "/api/cloud-eval"
)

// Fetcher is the part of the fetch layer the client needs.
type Fetcher interface {
	JSON(ctx context.Context, url string, header http.Header, v any) error
}

// Client evaluates positions, caching every answer including "no data".
type Client struct {
	fetcher Fetcher
	cache   evalcache.Cache
	baseURL string
	multiPV int
	flight  singleflight.Group
	logger  logger.Logger
}

// New creates a Client. A nil cache gets a fresh unbounded one.
func New(fetcher Fetcher, cache evalcache.Cache, opts ...Option) *Client {
	if cache == nil {
		cache = evalcache.NewInMemoryCache()
	}
	c := &Client{
		fetcher: fetcher,
		cache:   cache,
		baseURL: defaultBaseURL,
		multiPV: defaultMultiPV,
		logger:  logger.Get().Named("oracle"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Evaluate returns the oracle's evaluation of pos, or nil when the oracle
// has nothing usable: unknown position, empty answer, or an upstream that
// stayed unreachable through all retries. Those outcomes are cached too.
// The only error is cancellation of ctx.
func (c *Client) Evaluate(ctx context.Context, pos model.Position) (*model.Evaluation, error) {
	if ev, ok := c.cache.Get(ctx, pos); ok {
		metrics.RecordOracleCache("hit")
		return ev, nil
	}

	v, err, shared := c.flight.Do(string(pos), func() (any, error) {
		if ev, ok := c.cache.Get(ctx, pos); ok {
			return ev, nil
		}
		ev, err := c.fetch(ctx, pos)
		if err != nil {
			return nil, err
		}
		kept := c.cache.Store(ctx, pos, ev)
		metrics.UpdateEvalCacheSize(c.cache.Size())
		return kept, nil
	})
	if shared {
		metrics.RecordOracleCache("coalesced")
	} else {
		metrics.RecordOracleCache("miss")
	}
	if err != nil {
		return nil, err
	}
	ev, _ := v.(*model.Evaluation)
	return ev, nil
}

// CacheSize reports how many positions have been answered.
func (c *Client) CacheSize() int64 {
	return c.cache.Size()
}

func (c *Client) fetch(ctx context.Context, pos model.Position) (*model.Evaluation, error) {
	u := fmt.Sprintf("%s%s?fen=%s&multiPv=%d", c.baseURL, cloudEvalPath, url.QueryEscape(string(pos)), c.multiPV)

	var resp cloudEval
	err := c.fetcher.JSON(ctx, u, nil, &resp)
	switch {
	case err == nil:
	case ctx.Err() != nil || errors.Is(err, fetch.ErrCanceled):
		return nil, fmt.Errorf("evaluate %s: %w", pos, err)
	case errors.Is(err, fetch.ErrNotFound):
		metrics.RecordOracleUnavailable("not_found")
		return nil, nil
	case errors.Is(err, fetch.ErrTransient):
		metrics.RecordOracleUnavailable("exhausted")
		c.logger.Warn(ctx, "oracle unreachable; treating position as unknown",
			logger.String("fen", string(pos)), logger.Error(err))
		return nil, nil
	default:
		metrics.RecordOracleUnavailable("upstream_error")
		c.logger.Warn(ctx, "oracle request failed; treating position as unknown",
			logger.String("fen", string(pos)), logger.Error(err))
		return nil, nil
	}

	ev, ok := resp.evaluation()
	if !ok {
		metrics.RecordOracleUnavailable("empty")
		return nil, nil
	}
	return ev, nil
}

// cloudEval mirrors the cloud-eval response. Scores are from White's view.
type cloudEval struct {
	FEN    string `json:"fen"`
	KNodes int    `json:"knodes"`
	Depth  int    `json:"depth"`
	PVs    []line `json:"pvs"`
}

type line struct {
	Moves string `json:"moves"`
	CP    *int   `json:"cp"`
	Mate  *int   `json:"mate"`
}

func (r cloudEval) evaluation() (*model.Evaluation, bool) {
	if len(r.PVs) == 0 {
		return nil, false
	}
	top := r.PVs[0]

	var score int
	switch {
	case top.Mate != nil:
		// Mate 0 does not say who is mated.
		if *top.Mate == 0 {
			return nil, false
		}
		score = model.MateToCentipawns(*top.Mate)
	case top.CP != nil:
		score = *top.CP
	default:
		return nil, false
	}

	ev := &model.Evaluation{Score: score, Depth: r.Depth}
	if fields := strings.Fields(top.Moves); len(fields) > 0 {
		ev.BestMove = fields[0]
	}
	return ev, true
}
