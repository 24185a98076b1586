// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"strings"
)

// GameRecord is one played game as delivered by the game-history source.
type GameRecord struct {
	ID    string   // upstream id, may be empty
	Moves []string // move tokens in ply order (SAN or coordinate)
	White string   // display name of the white player
	Black string   // display name of the black player
}

// ColorOf reports which side username played. Names are compared trimmed and
// case-insensitively; white wins when both sides match.
func (g GameRecord) ColorOf(username string) (Color, bool) {
	name := strings.TrimSpace(username)
	if name == "" {
		return White, false
	}
	if strings.EqualFold(strings.TrimSpace(g.White), name) {
		return White, true
	}
	if strings.EqualFold(strings.TrimSpace(g.Black), name) {
		return Black, true
	}
	return White, false
}

// AggregatedPosition holds repeat statistics for one position where the
// player was on move.
type AggregatedPosition struct {
	Position   Position
	SideToMove Color
	ReachCount int
	Moves      map[string]int
}

// ChosenMove returns the most frequent move and its count. Ties go to the
// lexicographically smallest token.
func (a AggregatedPosition) ChosenMove() (string, int) {
	tokens := make([]string, 0, len(a.Moves))
	for token := range a.Moves {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	best, bestCount := "", 0
	for _, token := range tokens {
		if n := a.Moves[token]; n > bestCount {
			best, bestCount = token, n
		}
	}
	return best, bestCount
}
