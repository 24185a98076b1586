// Package aggregate replays opening moves and counts how often the player
// reaches each position and which move they choose there.
package aggregate

import (
	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/moves"
)

// Table accumulates per-position statistics. It is not safe for concurrent use.
type Table struct {
	entries map[model.Position]*model.AggregatedPosition
	order   []model.Position
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[model.Position]*model.AggregatedPosition)}
}

// Record counts one visit to pos followed by token.
func (t *Table) Record(pos model.Position, side model.Color, token string) {
	e, ok := t.entries[pos]
	if !ok {
		e = &model.AggregatedPosition{
			Position:   pos,
			SideToMove: side,
			Moves:      make(map[string]int),
		}
		t.entries[pos] = e
		t.order = append(t.order, pos)
	}
	e.ReachCount++
	e.Moves[token]++
}

// Len returns the number of distinct positions.
func (t *Table) Len() int { return len(t.order) }

// Get returns a copy of the statistics for pos.
func (t *Table) Get(pos model.Position) (model.AggregatedPosition, bool) {
	e, ok := t.entries[pos]
	if !ok {
		return model.AggregatedPosition{}, false
	}
	return clone(e), true
}

// Positions returns copies of all entries in first-seen order.
func (t *Table) Positions() []model.AggregatedPosition {
	out := make([]model.AggregatedPosition, 0, len(t.order))
	for _, pos := range t.order {
		out = append(out, clone(t.entries[pos]))
	}
	return out
}

// Repeated returns entries reached at least floor times, in first-seen order.
func (t *Table) Repeated(floor int) []model.AggregatedPosition {
	out := []model.AggregatedPosition{}
	for _, pos := range t.order {
		if e := t.entries[pos]; e.ReachCount >= floor {
			out = append(out, clone(e))
		}
	}
	return out
}

func clone(e *model.AggregatedPosition) model.AggregatedPosition {
	c := *e
	c.Moves = make(map[string]int, len(e.Moves))
	for k, v := range e.Moves {
		c.Moves[k] = v
	}
	return c
}

// Aggregator replays games with an Applier.
type Aggregator struct {
	applier moves.Applier
}

// New creates an Aggregator. A nil applier selects the chess rules applier.
func New(applier moves.Applier) *Aggregator {
	if applier == nil {
		applier = moves.NewChessApplier()
	}
	return &Aggregator{applier: applier}
}

// Aggregate replays the first maxPlies plies of every game the user played
// and records each position where the user was on move. It returns the table
// and the number of games whose players matched username.
//
// Replay of a game stops at the first token that cannot be applied; plies
// before it still count and the rejected ply does not.
func (a *Aggregator) Aggregate(games []model.GameRecord, username string, maxPlies int) (*Table, int) {
	table := NewTable()
	analyzed := 0

	for _, g := range games {
		color, ok := g.ColorOf(username)
		if !ok {
			continue
		}
		analyzed++

		pos := model.StartPosition
		limit := min(maxPlies, len(g.Moves))
		for ply := 0; ply < limit; ply++ {
			token := g.Moves[ply]
			next, ok := a.applier.Apply(pos, token)
			if !ok {
				break
			}
			if model.ColorAtPly(ply) == color {
				table.Record(pos, color, token)
			}
			pos = next
		}
	}
	return table, analyzed
}
