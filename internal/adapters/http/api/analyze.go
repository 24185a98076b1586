package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/types"
	"github.com/okian/leakscan/pkg/logger"
)

// AnalyzeHandler handles analysis requests.
type AnalyzeHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps, logger: logger.Get().Named("api")}
}

// HandleAnalyze handles GET /analyze/{username}?games=&moves=&threshold=.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	// Extract path parameter after /analyze/
	username := strings.TrimPrefix(r.URL.Path, "/analyze/")
	if strings.Contains(username, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(ErrBadRequest, "username must be a single path segment"))
		return
	}
	if strings.TrimSpace(username) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(ErrBadRequest, "missing username"))
		return
	}

	opts, err := parseOptions(r.URL.Query())
	if err != nil {
		writeFailure(w, err)
		return
	}

	report, err := h.deps.Analyze(r.Context(), username, opts)
	if err != nil {
		status, _ := statusOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn(r.Context(), "analysis failed",
				logger.String("username", username),
				logger.Int("status", status),
				logger.Error(err),
			)
		}
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.FromReport(report))
}

// parseOptions reads the optional integer query parameters. Absent values
// stay zero so the service applies its defaults; range clamping also happens
// there.
func parseOptions(q url.Values) (model.Options, error) {
	var opts model.Options
	fields := []struct {
		name string
		dst  *int
	}{
		{"games", &opts.MaxGames},
		{"moves", &opts.MaxOpeningMoves},
		{"threshold", &opts.CPLossThreshold},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return model.Options{}, WrapKind(ErrBadRequest, Wrap(err, "invalid "+f.name))
		}
		*f.dst = n
	}
	return opts, nil
}
