package risk

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/riskpulse/pkg/loan"
	"github.com/mchmarny/riskpulse/pkg/stress"
	"golang.org/x/sync/errgroup"
)

// Compare evaluates ds once per stress level, each in its own session, and
// returns the results in level order. An empty levels list means all levels.
// The first failure cancels the rest.
func Compare(ctx context.Context, ds *loan.Dataset, opts Options, levels []stress.Level) ([]*Evaluation, error) {
	if len(levels) == 0 {
		levels = stress.Levels
	}

	sessions := make([]*Session, len(levels))
	for i, level := range levels {
		o := opts
		o.Stress = level
		s, err := NewSession(o)
		if err != nil {
			return nil, err
		}
		sessions[i] = s
	}

	list := make([]*Evaluation, len(levels))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range sessions {
		g.Go(func() error {
			ev, err := s.Evaluate(ctx, ds)
			if err != nil {
				return fmt.Errorf("stress %s: %w", s.opts.Stress, err)
			}
			list[i] = ev
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("scenarios compared", "levels", len(list))
	return list, nil
}
