// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load(ctx) layers file and env on top.
// - Validate before use; errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"time"

	"github.com/okian/leakscan/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// GamesBaseURL is the host serving /api/games/user/{name}.
	GamesBaseURL string `koanf:"games_base_url"`

	// OracleBaseURL is the host serving /api/cloud-eval.
	OracleBaseURL string `koanf:"oracle_base_url"`

	// OracleMultiPV is the number of lines requested per evaluation.
	OracleMultiPV int `koanf:"oracle_multi_pv"`

	// RequestTimeoutMS bounds each HTTP attempt.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// MaxRetries is the number of extra attempts for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// BaseBackoffMS is the first retry delay; it doubles per attempt.
	BaseBackoffMS int `koanf:"base_backoff_ms"`

	// OracleConcurrency bounds concurrent position assessments.
	OracleConcurrency int `koanf:"oracle_concurrency"`

	// OracleRPS paces oracle requests; 0 disables pacing.
	OracleRPS float64 `koanf:"oracle_rps"`

	// MinRepeat is the reach-count floor for a position to be assessed.
	MinRepeat int `koanf:"min_repeat"`

	// Defaults for requests that leave an option unset.
	DefaultMaxGames        int `koanf:"default_max_games"`
	DefaultMaxOpeningMoves int `koanf:"default_max_opening_moves"`
	DefaultCPLossThreshold int `koanf:"default_cp_loss_threshold"`

	// EvalCacheSize caps the per-run evaluation cache; 0 means unbounded.
	EvalCacheSize int `koanf:"eval_cache_size"`

	// UserAgent is sent with every upstream request.
	UserAgent string `koanf:"user_agent"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is how often runtime and service gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// Metric naming: {namespace}_{subsystem}_{prefix}_{name}.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels added to every series.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBucketsMS overrides the latency histogram buckets.
	MetricsBucketsMS []float64 `koanf:"metrics_buckets_ms"`
}

// MaxRetriesLimit bounds max_retries. Backoff is capped per wait, but each
// retry still costs an attempt timeout.
const MaxRetriesLimit = 10

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		GamesBaseURL:           "https://lichess.org",
		OracleBaseURL:          "https://lichess.org",
		OracleMultiPV:          1,
		RequestTimeoutMS:       12_000,
		MaxRetries:             3,
		BaseBackoffMS:          500,
		OracleConcurrency:      6,
		OracleRPS:              0,
		MinRepeat:              3,
		DefaultMaxGames:        100,
		DefaultMaxOpeningMoves: 12,
		DefaultCPLossThreshold: 50,
		EvalCacheSize:          0,
		UserAgent:              "leakscan/1.0",
		MetricsEnabled:         true,
		MetricsRefreshMS:       10_000,
		MetricsNamespace:       "leakscan",
		MetricsSubsystem:       "analyzer",
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.GamesBaseURL == "":
		return fmt.Errorf("%w: games_base_url must not be empty", ErrInvalidConfig)
	case c.OracleBaseURL == "":
		return fmt.Errorf("%w: oracle_base_url must not be empty", ErrInvalidConfig)
	case c.OracleConcurrency < 1:
		return fmt.Errorf("%w: oracle_concurrency must be positive", ErrInvalidConfig)
	case c.OracleMultiPV < 1:
		return fmt.Errorf("%w: oracle_multi_pv must be positive", ErrInvalidConfig)
	case c.RequestTimeoutMS < 1:
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxRetries < 0:
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	case c.MaxRetries > MaxRetriesLimit:
		return fmt.Errorf("%w: max_retries must be at most %d", ErrInvalidConfig, MaxRetriesLimit)
	case c.BaseBackoffMS < 0:
		return fmt.Errorf("%w: base_backoff_ms must not be negative", ErrInvalidConfig)
	case c.MinRepeat < 1:
		return fmt.Errorf("%w: min_repeat must be positive", ErrInvalidConfig)
	case c.OracleRPS < 0:
		return fmt.Errorf("%w: oracle_rps must not be negative", ErrInvalidConfig)
	case c.EvalCacheSize < 0:
		return fmt.Errorf("%w: eval_cache_size must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshMS < 1:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	return nil
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// BaseBackoff returns BaseBackoffMS as a duration.
func (c *Config) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// DefaultOptions returns the analysis defaults, clamped into bounds.
func (c *Config) DefaultOptions() model.Options {
	return model.Options{
		MaxGames:        c.DefaultMaxGames,
		MaxOpeningMoves: c.DefaultMaxOpeningMoves,
		CPLossThreshold: c.DefaultCPLossThreshold,
	}.Clamp(model.Options{MaxGames: 100, MaxOpeningMoves: 12, CPLossThreshold: 50})
}
