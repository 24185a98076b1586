package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGamesBaseURL sets the game export host.
func WithGamesBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.gamesBaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithOracleBaseURL sets the evaluation oracle host.
func WithOracleBaseURL(u string) Option {
	return func(s *Service) {
		if u != "" {
			s.oracleBaseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithOracleMultiPV sets how many lines are requested per evaluation.
func WithOracleMultiPV(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.oracleMultiPV = n
		}
	}
}

// WithRequestTimeout bounds each upstream attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithMaxRetries sets the retry budget for transient upstream failures.
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBaseBackoff sets the first retry delay.
func WithBaseBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.baseBackoff = d
		}
	}
}

// WithOracleConcurrency sets the classifier pool width.
func WithOracleConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.oracleConcurrency = n
		}
	}
}

// WithOracleRPS paces oracle requests; zero disables pacing.
func WithOracleRPS(rps float64) Option {
	return func(s *Service) {
		if rps >= 0 {
			s.oracleRPS = rps
		}
	}
}

// WithMinRepeat sets the reach-count floor.
func WithMinRepeat(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minRepeat = n
		}
	}
}

// WithDefaults sets the options used for zero request fields.
func WithDefaults(o model.Options) Option {
	return func(s *Service) {
		s.defaults = o.Clamp(s.defaults)
	}
}

// WithEvalCacheSize caps the per-run evaluation cache; zero is unbounded.
func WithEvalCacheSize(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.evalCacheSize = n
		}
	}
}

// WithUserAgent sets the User-Agent sent upstream.
func WithUserAgent(ua string) Option {
	return func(s *Service) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithHTTPClient sets the HTTP client shared by the upstream clients.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Service) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithGameSource replaces the game history client.
func WithGameSource(g GameSource) Option {
	return func(s *Service) {
		if g != nil {
			s.games = g
		}
	}
}
