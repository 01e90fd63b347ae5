package learning

import (
	"context"
	"time"
)

// WatchTimeSource produces the elapsed watch time of the open submodule.
// Watch calls emit with each new cumulative watch time, starting from start,
// until emit returns false, the source runs dry, or ctx is cancelled.
type WatchTimeSource interface {
	Watch(ctx context.Context, start int, emit func(watchTime int) bool) error
}

// Simulator approximates watch time without a media player: after a
// warm-up delay it adds a fixed number of seconds on every tick.
type Simulator struct {
	WarmUp   time.Duration
	Interval time.Duration
	Step     int
}

// NewSimulator builds a simulator from the viewer config
func NewSimulator(cfg Config) *Simulator {
	cfg = cfg.normalized()
	return &Simulator{
		WarmUp:   cfg.WarmUp,
		Interval: cfg.TickInterval,
		Step:     cfg.TickSeconds,
	}
}

// Watch ticks until emit declines or ctx is cancelled. No tick is emitted
// after cancellation.
func (s *Simulator) Watch(ctx context.Context, start int, emit func(int) bool) error {
	if s.WarmUp > 0 {
		warmUp := time.NewTimer(s.WarmUp)
		select {
		case <-ctx.Done():
			warmUp.Stop()
			return ctx.Err()
		case <-warmUp.C:
		}
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	watchTime := start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		watchTime += s.Step
		if !emit(watchTime) {
			return nil
		}
	}
}

// PlayerSource forwards playback positions (in seconds) reported by a
// real media player. Positions that do not move forward are ignored.
type PlayerSource struct {
	Positions <-chan int
}

// Watch forwards positions until the channel closes, emit declines or ctx ends
func (p PlayerSource) Watch(ctx context.Context, start int, emit func(int) bool) error {
	watchTime := start
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case pos, ok := <-p.Positions:
			if !ok {
				return nil
			}
			if pos <= watchTime {
				continue
			}
			watchTime = pos
			if !emit(watchTime) {
				return nil
			}
		}
	}
}
