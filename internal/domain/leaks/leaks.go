// Package leaks decides which habitual opening moves lose too much evaluation.
package leaks

import (
	"cmp"
	"context"
	"slices"

	"github.com/okian/leakscan/internal/domain/model"
	"github.com/okian/leakscan/internal/domain/moves"
	"github.com/okian/leakscan/pkg/logger"
	"github.com/okian/leakscan/pkg/metrics"
)

// Default classifier configuration constants.
const (
	defaultMinRepeat = 3
)

// Evaluator answers "how good is this position for White". A nil evaluation
// means the position is unknown.
type Evaluator interface {
	Evaluate(ctx context.Context, pos model.Position) (*model.Evaluation, error)
}

// Runner executes n indexed jobs, possibly concurrently.
type Runner interface {
	Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error
}

// Classifier turns aggregated positions into leaks.
type Classifier struct {
	evaluator Evaluator
	applier   moves.Applier
	runner    Runner
	minRepeat int
	logger    logger.Logger
}

// NewClassifier creates a Classifier backed by evaluator.
func NewClassifier(evaluator Evaluator, opts ...Option) *Classifier {
	c := &Classifier{
		evaluator: evaluator,
		applier:   moves.NewChessApplier(),
		runner:    serial{},
		minRepeat: defaultMinRepeat,
		logger:    logger.Get().Named("leaks"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// MinRepeat returns the reach-count floor.
func (c *Classifier) MinRepeat() int { return c.minRepeat }

// Classify assesses every position and returns the leaks ordered by
// CPLoss descending, then ReachCount descending, then position.
// The only error is cancellation of ctx.
func (c *Classifier) Classify(ctx context.Context, positions []model.AggregatedPosition, thresholdCP int) ([]model.Leak, error) {
	found := make([]*model.Leak, len(positions))

	err := c.runner.Run(ctx, len(positions), func(ctx context.Context, i int) error {
		leak, verdict, err := c.Assess(ctx, positions[i], thresholdCP)
		if err != nil {
			return err
		}
		metrics.RecordVerdict(string(verdict))
		if verdict == model.VerdictLeak {
			found[i] = &leak
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := []model.Leak{}
	for _, l := range found {
		if l != nil {
			out = append(out, *l)
		}
	}
	SortLeaks(out)
	return out, nil
}

// Assess classifies one position. The returned leak is filled in for the
// not_leak and leak verdicts.
func (c *Classifier) Assess(ctx context.Context, p model.AggregatedPosition, thresholdCP int) (model.Leak, model.Verdict, error) {
	if p.ReachCount < c.minRepeat {
		return model.Leak{}, model.VerdictBelowFloor, nil
	}

	move, count := p.ChosenMove()
	after, ok := c.applier.Apply(p.Position, move)
	if !ok {
		c.logger.Debug(ctx, "chosen move rejected",
			logger.String("fen", string(p.Position)),
			logger.String("move", move),
		)
		return model.Leak{}, model.VerdictApplyRejected, nil
	}

	before, err := c.evaluator.Evaluate(ctx, p.Position)
	if err != nil {
		return model.Leak{}, "", err
	}
	if before == nil {
		return model.Leak{}, model.VerdictNoData, nil
	}
	next, err := c.evaluator.Evaluate(ctx, after)
	if err != nil {
		return model.Leak{}, "", err
	}
	if next == nil {
		return model.Leak{}, model.VerdictNoData, nil
	}

	side := p.SideToMove
	leak := model.Leak{
		Before:     p.Position,
		After:      after,
		Move:       move,
		BestMove:   before.BestMove,
		ReachCount: p.ReachCount,
		MoveCount:  count,
		EvalBefore: before.For(side),
		EvalAfter:  next.For(side),
		SideToMove: side,
	}
	leak.CPLoss = leak.EvalBefore - leak.EvalAfter

	if leak.CPLoss > thresholdCP {
		c.logger.Debug(ctx, "leak found",
			logger.String("fen", string(p.Position)),
			logger.String("move", move),
			logger.Int("cp_loss", leak.CPLoss),
		)
		return leak, model.VerdictLeak, nil
	}
	return leak, model.VerdictNotLeak, nil
}

// SortLeaks orders leaks by CPLoss descending, ReachCount descending, then
// the pre-move position ascending.
func SortLeaks(ls []model.Leak) {
	slices.SortFunc(ls, func(a, b model.Leak) int {
		if c := cmp.Compare(b.CPLoss, a.CPLoss); c != 0 {
			return c
		}
		if c := cmp.Compare(b.ReachCount, a.ReachCount); c != 0 {
			return c
		}
		return cmp.Compare(a.Before, b.Before)
	})
}

// serial runs jobs one after another on the calling goroutine.
type serial struct{}

func (serial) Run(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := task(ctx, i); err != nil {
			return err
		}
	}
	return nil
}
