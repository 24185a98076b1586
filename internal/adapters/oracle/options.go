package oracle

import (
	"strings"

	"github.com/okian/leakscan/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the oracle host, e.g. "https://lichess.org".
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithMultiPV sets how many lines the oracle is asked for.
func WithMultiPV(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.multiPV = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
