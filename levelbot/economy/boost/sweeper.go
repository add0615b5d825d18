package boost

import (
	"context"
	"log/slog"
	"time"

	"github.com/levelforge/levelbot/levelbot/database/repositories"
	"github.com/levelforge/levelbot/levelbot/logger"
)

// Sweeper periodically flips the active flag on expired boost entries so
// documents do not accumulate dead inventory. It is an optimization only;
// EffectiveMultiplier never trusts the flag without its own time check.
type Sweeper struct {
	users    repositories.UserProgressionRepository
	events   repositories.EventRepository
	interval time.Duration
	stopCh   chan struct{}
}

func NewSweeper(users repositories.UserProgressionRepository, events repositories.EventRepository, interval time.Duration) *Sweeper {
	return &Sweeper{
		users:    users,
		events:   events,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.sweep(ctx)
		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.LogSystem("Boost sweeper started", slog.Duration("interval", s.interval))
}

func (s *Sweeper) Stop() {
	close(s.stopCh)
}

func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now()
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	_, err := s.users.ExpireStaleBoosts(sweepCtx, now)
	logger.LogQuery("expire_stale_boosts", time.Since(start), err)

	start = time.Now()
	_, err = s.events.DeactivateExpired(sweepCtx, now)
	logger.LogQuery("deactivate_expired_events", time.Since(start), err)
}
