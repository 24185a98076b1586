// Package model contains domain models passed between layers.
package model

// Mate scores are folded into the centipawn scale so that comparisons stay
// monotonic: mate in N becomes MateScore - min(N, MaxMateDistance).
const (
	MateScore       = 100_000
	MaxMateDistance = 1_000
)

// Evaluation is an oracle verdict for one position. Score is in centipawns
// from White's point of view.
type Evaluation struct {
	BestMove string // first move of the top line, empty when the oracle gave none
	Score    int
	Depth    int
}

// For returns the score from the given side's perspective.
func (e Evaluation) For(c Color) int {
	return e.Score * c.Sign()
}

// MateToCentipawns maps a signed mate distance onto the centipawn scale.
// Positive mate means White mates.
func MateToCentipawns(mate int) int {
	dist := mate
	if dist < 0 {
		dist = -dist
	}
	if dist > MaxMateDistance {
		dist = MaxMateDistance
	}
	score := MateScore - dist
	if mate < 0 {
		return -score
	}
	return score
}
