package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Janitor periodically drops sessions nobody touched for a while from memory.
// Their snapshot stays behind, so the next request restores them.
type Janitor struct {
	manager  *Manager
	idle     time.Duration
	interval time.Duration
	logger   zerolog.Logger
}

func NewJanitor(manager *Manager, idle, interval time.Duration, logger zerolog.Logger) *Janitor {
	if idle <= 0 {
		idle = 2 * time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Janitor{
		manager:  manager,
		idle:     idle,
		interval: interval,
		logger:   logger.With().Str("component", "session_janitor").Logger(),
	}
}

// Run blocks until context cancellation.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			j.tick(ctx, now)
		}
	}
}

func (j *Janitor) tick(ctx context.Context, now time.Time) {
	if n := j.manager.EvictIdle(ctx, now.Add(-j.idle)); n > 0 {
		j.logger.Info().Int("evicted", n).Int("open", j.manager.Len()).Msg("idle sessions evicted")
	}
}
