package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"linkpulse-be/internal/logging"
)

const purgeTimeout = time.Minute

// Purger deletes expired short links and reports how many went.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Scheduler runs the expired-link purge on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	purger Purger
}

// NewScheduler registers the purge under spec (standard cron syntax or
// descriptors such as "@hourly").
func NewScheduler(spec string, purger Purger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		purger: purger,
	}
	if _, err := s.cron.AddFunc(spec, s.RunPurge); err != nil {
		return nil, err
	}
	return s, nil
}

// RunPurge performs one purge pass. Errors are logged, never fatal.
func (s *Scheduler) RunPurge() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := s.purger.PurgeExpired(ctx)
	if err != nil {
		logging.Logger.Error("expired link purge failed", zap.Error(err))
		return
	}
	if n > 0 {
		logging.Logger.Info("purged expired links", zap.Int64("count", n))
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running purge to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
