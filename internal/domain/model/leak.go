// Package model contains domain models passed between layers.
package model

// Verdict is the terminal state of one aggregated position in classification.
type Verdict string

const (
	VerdictBelowFloor    Verdict = "below_floor"
	VerdictApplyRejected Verdict = "apply_rejected"
	VerdictNoData        Verdict = "no_data"
	VerdictNotLeak       Verdict = "not_leak"
	VerdictLeak          Verdict = "leak"
)

// Leak is a recurring position where the habitual move loses more than the
// configured margin.
type Leak struct {
	Before     Position
	After      Position
	Move       string
	BestMove   string // empty when the oracle returned no line
	ReachCount int
	MoveCount  int
	CPLoss     int
	EvalBefore int // player's perspective
	EvalAfter  int // player's perspective
	SideToMove Color
}

// HasBestMove reports whether the oracle suggested a move.
func (l Leak) HasBestMove() bool { return l.BestMove != "" }

// Options tunes one analysis run.
type Options struct {
	MaxGames        int
	MaxOpeningMoves int
	CPLossThreshold int
}

// Bounds for Options. Out-of-range values are clamped, not rejected.
const (
	MinGames           = 1
	MaxGames           = 1000
	MinOpeningMoves    = 1
	MaxOpeningMoves    = 30
	MinCPLossThreshold = 1
	MaxCPLossThreshold = 1000
)

// Clamp fills zero fields from defaults and forces every field into bounds.
func (o Options) Clamp(defaults Options) Options {
	if o.MaxGames == 0 {
		o.MaxGames = defaults.MaxGames
	}
	if o.MaxOpeningMoves == 0 {
		o.MaxOpeningMoves = defaults.MaxOpeningMoves
	}
	if o.CPLossThreshold == 0 {
		o.CPLossThreshold = defaults.CPLossThreshold
	}
	o.MaxGames = clamp(o.MaxGames, MinGames, MaxGames)
	o.MaxOpeningMoves = clamp(o.MaxOpeningMoves, MinOpeningMoves, MaxOpeningMoves)
	o.CPLossThreshold = clamp(o.CPLossThreshold, MinCPLossThreshold, MaxCPLossThreshold)
	return o
}

// MaxPlies converts the opening-move budget into half-moves.
func (o Options) MaxPlies() int {
	return o.MaxOpeningMoves * 2
}

// Report is the outcome of one analysis run.
type Report struct {
	RunID             string
	Username          string
	GamesAnalyzed     int
	RepeatedPositions int
	Leaks             []Leak
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
