// Package types contains the JSON shapes served by the API and the CLI.
package types

import (
	"github.com/okian/leakscan/internal/domain/model"
)

// Leak is the wire form of model.Leak.
type Leak struct {
	FEN        string  `json:"fen"`
	FENAfter   string  `json:"fenAfter"`
	SideToMove string  `json:"sideToMove"`
	Move       string  `json:"move"`
	BestMove   *string `json:"bestMove"`
	ReachCount int     `json:"reachCount"`
	MoveCount  int     `json:"moveCount"`
	EvalBefore int     `json:"evalBefore"`
	EvalAfter  int     `json:"evalAfter"`
	CPLoss     int     `json:"cpLoss"`
}

// Report is the wire form of model.Report.
type Report struct {
	RunID             string `json:"runId"`
	Username          string `json:"username"`
	GamesAnalyzed     int    `json:"gamesAnalyzed"`
	RepeatedPositions int    `json:"repeatedPositions"`
	Leaks             []Leak `json:"leaks"`
}

// FromLeak converts a domain leak. A missing best move becomes null.
func FromLeak(l model.Leak) Leak {
	out := Leak{
		FEN:        string(l.Before),
		FENAfter:   string(l.After),
		SideToMove: l.SideToMove.String(),
		Move:       l.Move,
		ReachCount: l.ReachCount,
		MoveCount:  l.MoveCount,
		EvalBefore: l.EvalBefore,
		EvalAfter:  l.EvalAfter,
		CPLoss:     l.CPLoss,
	}
	if l.HasBestMove() {
		best := l.BestMove
		out.BestMove = &best
	}
	return out
}

// FromReport converts a domain report. Leaks is never nil.
func FromReport(r model.Report) Report {
	out := Report{
		RunID:             r.RunID,
		Username:          r.Username,
		GamesAnalyzed:     r.GamesAnalyzed,
		RepeatedPositions: r.RepeatedPositions,
		Leaks:             make([]Leak, 0, len(r.Leaks)),
	}
	for _, l := range r.Leaks {
		out.Leaks = append(out.Leaks, FromLeak(l))
	}
	return out
}

// Stats summarizes the service since start.
type Stats struct {
	Analyses       int64   `json:"analyses"`
	Failures       int64   `json:"failures"`
	LeaksFound     int64   `json:"leaksFound"`
	GamesAnalyzed  int64   `json:"gamesAnalyzed"`
	UptimeSeconds  float64 `json:"uptimeSeconds"`
	OracleWidth    int     `json:"oracleConcurrency"`
	MinRepeat      int     `json:"minRepeat"`
	DefaultOptions Options `json:"defaults"`
}

// Options is the wire form of model.Options.
type Options struct {
	MaxGames        int `json:"maxGames"`
	MaxOpeningMoves int `json:"maxOpeningMoves"`
	CPLossThreshold int `json:"cpLossThreshold"`
}

// FromOptions converts domain options.
func FromOptions(o model.Options) Options {
	return Options{
		MaxGames:        o.MaxGames,
		MaxOpeningMoves: o.MaxOpeningMoves,
		CPLossThreshold: o.CPLossThreshold,
	}
}
