package cascade

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// progressEvery is how often warm-up logs progress, in processed inputs.
const progressEvery = 50

// WarmCache runs Predict for each input in order and returns how many
// produced a value (from any tier). Failed inputs are logged and skipped.
// It stops early when ctx is done.
func (s *Service) WarmCache(ctx context.Context, inputs [][]byte) int {
	start := time.Now()
	warmed := 0

	for i, input := range inputs {
		if ctx.Err() != nil {
			s.logger.Warn().
				Int("warmed", warmed).
				Int("total", len(inputs)).
				Msg("Warm-up stopped (context done)")
			break
		}

		if _, err := s.Predict(ctx, input); err != nil {
			s.logger.Warn().Err(err).Int("index", i).Msg("Warm-up input failed")
			continue
		}
		warmed++

		if warmed%progressEvery == 0 {
			s.logger.Info().
				Int("warmed", warmed).
				Int("total", len(inputs)).
				Msg("Warm-up progress")
		}
	}

	s.logger.Info().
		Int("warmed", warmed).
		Int("total", len(inputs)).
		Dur("duration", time.Since(start)).
		Msg("Warm-up complete")

	return warmed
}

// WarmCacheConcurrent is WarmCache with up to workers inputs in flight.
// Order of completion is unspecified.
func (s *Service) WarmCacheConcurrent(ctx context.Context, inputs [][]byte, workers int) int {
	if workers <= 1 {
		return s.WarmCache(ctx, inputs)
	}

	start := time.Now()
	var warmed atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)

	for i, input := range inputs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := s.Predict(ctx, input); err != nil {
				s.logger.Warn().Err(err).Int("index", i).Msg("Warm-up input failed")
				return nil
			}
			if n := warmed.Add(1); n%progressEvery == 0 {
				s.logger.Info().
					Int64("warmed", n).
					Int("total", len(inputs)).
					Msg("Warm-up progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	n := int(warmed.Load())
	s.logger.Info().
		Int("warmed", n).
		Int("total", len(inputs)).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Warm-up complete")

	return n
}
