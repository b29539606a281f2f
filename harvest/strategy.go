package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Strategy is one way of locating or operating a UI affordance. Strategies
// are tried in priority order; the first to succeed wins.
type Strategy struct {
	Name string
	Try  func(ctx context.Context) error
}

// TryStrategies runs each strategy in order and returns nil as soon as one
// succeeds. When all fail the errors are joined so the caller can see every
// attempt.
func TryStrategies(ctx context.Context, log *slog.Logger, action string, strategies []Strategy) error {
	if len(strategies) == 0 {
		return fmt.Errorf("%s: no strategies configured", action)
	}
	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.Try(ctx)
		if err == nil {
			if log != nil {
				log.Debug("strategy succeeded", "action", action, "strategy", s.Name)
			}
			return nil
		}
		if log != nil {
			log.Debug("strategy failed", "action", action, "strategy", s.Name, "err", err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return fmt.Errorf("%s: %w", action, errors.Join(errs...))
}
