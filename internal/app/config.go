package service

import (
	"github.com/okian/leakscan/internal/config"
)

// NewFromConfig builds a Service from loaded configuration. Extra options
// are applied after the configured ones.
func NewFromConfig(cfg *config.Config, opts ...Option) *Service {
	base := []Option{
		WithGamesBaseURL(cfg.GamesBaseURL),
		WithOracleBaseURL(cfg.OracleBaseURL),
		WithOracleMultiPV(cfg.OracleMultiPV),
		WithRequestTimeout(cfg.RequestTimeout()),
		WithMaxRetries(cfg.MaxRetries),
		WithBaseBackoff(cfg.BaseBackoff()),
		WithOracleConcurrency(cfg.OracleConcurrency),
		WithOracleRPS(cfg.OracleRPS),
		WithMinRepeat(cfg.MinRepeat),
		WithDefaults(cfg.DefaultOptions()),
		WithEvalCacheSize(cfg.EvalCacheSize),
		WithUserAgent(cfg.UserAgent),
	}
	return New(append(base, opts...)...)
}
