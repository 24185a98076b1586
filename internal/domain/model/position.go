// Package model contains domain models passed between layers.
package model

import "strings"

// StartPosition is the standard initial position.
const StartPosition Position = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is a FEN string. Equality is string equality.
type Position string

func (p Position) String() string { return string(p) }

// SideToMove reads the active colour field of the FEN.
func (p Position) SideToMove() (Color, bool) {
	fields := strings.Fields(string(p))
	if len(fields) < 2 {
		return White, false
	}
	switch fields[1] {
	case "w":
		return White, true
	case "b":
		return Black, true
	default:
		return White, false
	}
}

// Color is the side a player is on.
type Color int8

const (
	White Color = iota
	Black
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}
	return "white"
}

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// Sign is the perspective multiplier: +1 for white, -1 for black.
func (c Color) Sign() int {
	if c == Black {
		return -1
	}
	return 1
}

// ColorAtPly returns the side on move at a zero-based ply index.
func ColorAtPly(ply int) Color {
	if ply%2 == 0 {
		return White
	}
	return Black
}
