package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/clock"
	ledgerdomain "github.com/smallbiznis/tallybridge/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/tallybridge/internal/observability/metrics"
	synclogdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Prober reports whether Tally is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Ledgers  ledgerdomain.Service
	SyncLogs synclogdomain.Service
	Prober   Prober
	Locker   JobLocker           `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Config   Config              `optional:"true"`
}

type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	ledgers  ledgerdomain.Service
	syncLogs synclogdomain.Service
	prober   Prober
	locker   JobLocker
	metrics  *obsmetrics.Metrics

	lastLedgerImport time.Time
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Ledgers == nil || p.SyncLogs == nil || p.Prober == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      cfg,
		genID:    p.GenID,
		clock:    p.Clock,
		ledgers:  p.Ledgers,
		syncLogs: p.SyncLogs,
		prober:   p.Prober,
		locker:   p.Locker,
		metrics:  p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	release, ok := s.acquire(ctx, name, timeout)
	if !ok {
		s.metrics.RecordJob(ctx, name, "skipped", 0)
		s.logger(ctx).Debug("job held by another replica", zap.String("job", name))
		return nil
	}
	defer release()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)

	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.metrics.RecordJob(ctx, name, "success", elapsed)
		return nil
	}

	// deadline is a soft timeout
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJob(ctx, name, "timeout", elapsed)
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	s.metrics.RecordJob(ctx, name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{JobRecoverStaleSyncs, s.isJobEnabled(JobRecoverStaleSyncs), func(ctx context.Context) error {
			return s.runJob(ctx, JobRecoverStaleSyncs, s.cfg.RecoveryBatchSize, 30*time.Second, s.RecoverStaleSyncsJob)
		}},
		{JobLedgerImport, s.isJobEnabled(JobLedgerImport) && s.ledgerImportDue(), func(ctx context.Context) error {
			return s.runJob(ctx, JobLedgerImport, 0, 5*time.Minute, s.LedgerImportJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// If EnabledJobs is empty, all jobs are enabled by default
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) ledgerImportDue() bool {
	if s.lastLedgerImport.IsZero() {
		return true
	}
	return !s.clock.Now().Before(s.lastLedgerImport.Add(s.cfg.LedgerImportPeriod))
}

// LedgerImportJob pulls the ledger list from Tally into the local store.
// It is skipped, without a sync log, while Tally is offline.
func (s *Scheduler) LedgerImportJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	if err := s.prober.Ping(ctx); err != nil {
		s.logger(ctx).Info("tally offline, ledger import skipped", zap.Error(err))
		return nil
	}

	s.lastLedgerImport = s.clock.Now()
	resp, err := s.ledgers.SyncFromTally(ctx)
	run.AddProcessed(resp.Count)
	if err != nil {
		s.logSchedulerError(ctx, run, "ledger import failed", JobLedgerImport, err)
		return err
	}
	return nil
}
