package scheduler

import (
	"context"
)

// RecoverStaleSyncsJob fails sync logs that stayed in_progress past the
// recovery threshold, e.g. after a crash between open and close.
func (s *Scheduler) RecoverStaleSyncsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	cutoff := s.clock.Now().UTC().Add(-s.cfg.RecoveryThreshold)

	for {
		closed, err := s.syncLogs.FailStale(ctx, cutoff, s.cfg.RecoveryBatchSize)
		run.AddProcessed(closed)
		if err != nil {
			s.logSchedulerError(ctx, run, "sync log recovery failed", JobRecoverStaleSyncs, err)
			return err
		}
		if closed < s.cfg.RecoveryBatchSize {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
