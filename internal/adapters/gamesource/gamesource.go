// Package gamesource downloads a player's game history from a Lichess
// compatible export endpoint.
package gamesource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/okian/leakscan/internal/adapters/fetch"
	"github.com/okian/leakscan/pkg/logger"
)

// Default client configuration constants.
const (
	defaultBaseURL = "https://lichess.org"
	exportPath     = "/api/games/user/"
)

// ErrUserNotFound is returned when the upstream does not know the player.
var ErrUserNotFound = errors.New("user not found")

// UserNotFoundError names the player that could not be found.
type UserNotFoundError struct {
	Username string
	Err      error
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUserNotFound, e.Username)
}

// Unwrap exposes ErrUserNotFound and the fetch error.
func (e *UserNotFoundError) Unwrap() []error {
	return []error{ErrUserNotFound, e.Err}
}

// TextFetcher is the part of the fetch layer the client needs.
type TextFetcher interface {
	Text(ctx context.Context, url string, header http.Header) (string, error)
}

// Client fetches raw game exports.
type Client struct {
	fetcher TextFetcher
	baseURL string
	logger  logger.Logger
}

// New creates a Client on top of fetcher.
func New(fetcher TextFetcher, opts ...Option) *Client {
	c := &Client{
		fetcher: fetcher,
		baseURL: defaultBaseURL,
		logger:  logger.Get().Named("gamesource"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FetchGames returns up to limit of username's most recent games as the raw
// export payload (NDJSON for Lichess).
func (c *Client) FetchGames(ctx context.Context, username string, limit int) (string, error) {
	u := c.exportURL(username, limit)
	header := http.Header{}
	header.Set("Accept", "application/x-ndjson")

	body, err := c.fetcher.Text(ctx, u, header)
	if err != nil {
		if errors.Is(err, fetch.ErrNotFound) {
			return "", &UserNotFoundError{Username: username, Err: err}
		}
		return "", fmt.Errorf("fetch games for %q: %w", username, err)
	}

	c.logger.Debug(ctx, "games fetched",
		logger.String("username", username),
		logger.Int("bytes", len(body)),
	)
	return body, nil
}

func (c *Client) exportURL(username string, limit int) string {
	q := url.Values{}
	q.Set("max", fmt.Sprint(limit))
	q.Set("moves", "true")
	q.Set("clocks", "false")
	q.Set("evals", "false")
	q.Set("opening", "false")
	return c.baseURL + exportPath + url.PathEscape(strings.TrimSpace(username)) + "?" + q.Encode()
}
