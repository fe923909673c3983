package scheduler

import (
	"context"
	"time"

	"cold_solutions_backend/platform/logger"
)

const (
	defaultStaleSweepInterval = 10 * time.Minute
	defaultStaleAfter         = time.Hour
	staleLeadMessage          = "analysis interrupted before completion"
)

// StaleLeadStore fails leads left In Progress by a run that never finished.
type StaleLeadStore interface {
	FailStale(ctx context.Context, cutoff time.Time, errMsg string) (int, error)
}

// StaleLeadSweeper periodically releases leads stuck In Progress after a
// worker crash so the next run can retry them.
type StaleLeadSweeper struct {
	store      StaleLeadStore
	log        *logger.Logger
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func NewStaleLeadSweeper(store StaleLeadStore, log *logger.Logger, interval, staleAfter time.Duration) *StaleLeadSweeper {
	if interval <= 0 {
		interval = defaultStaleSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &StaleLeadSweeper{
		store:      store,
		log:        log,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

func (s *StaleLeadSweeper) Run(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *StaleLeadSweeper) sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.staleAfter)

	failed, err := s.store.FailStale(ctx, cutoff, staleLeadMessage)
	if err != nil {
		s.log.Warn("stale lead sweep failed", "error", err)
		return 0
	}

	if failed > 0 {
		s.log.Info("stale lead sweep released leads", "failed", failed)
	}
	return failed
}
