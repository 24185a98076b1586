// Package moves applies move tokens to positions using the chess rules
// library. Rejection is an ordinary result, never an error.
package moves

import (
	"regexp"
	"strings"

	"github.com/notnil/chess"

	"github.com/okian/leakscan/internal/domain/model"
)

var coordinateToken = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// Applier turns (position, token) into the next position.
type Applier interface {
	// Apply returns the resulting position, or false when the token cannot
	// be parsed or is illegal in pos.
	Apply(pos model.Position, token string) (model.Position, bool)
}

// ChessApplier implements Applier on top of github.com/notnil/chess.
type ChessApplier struct{}

// NewChessApplier creates a stateless applier.
func NewChessApplier() *ChessApplier {
	return &ChessApplier{}
}

// Apply implements Applier.
func (ChessApplier) Apply(pos model.Position, token string) (model.Position, bool) {
	p, ok := decode(pos)
	if !ok {
		return "", false
	}
	m := find(p, token)
	if m == nil {
		return "", false
	}
	return model.Position(p.Update(m).String()), true
}

func decode(pos model.Position) (*chess.Position, bool) {
	opt, err := chess.FEN(string(pos))
	if err != nil {
		return nil, false
	}
	return chess.NewGame(opt).Position(), true
}

func find(p *chess.Position, token string) *chess.Move {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}

	if lower := strings.ToLower(token); coordinateToken.MatchString(lower) {
		for _, m := range p.ValidMoves() {
			if m.String() == lower {
				return m
			}
		}
		return nil
	}

	// 0-0 and 0-0-0 show up in some exports.
	san := strings.ReplaceAll(token, "0-0", "O-O")
	m, err := chess.AlgebraicNotation{}.Decode(p, san)
	if err != nil {
		return nil
	}
	return m
}
