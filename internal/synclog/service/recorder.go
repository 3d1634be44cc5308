package service

import (
	"context"
	"strconv"

	"github.com/bwmarrin/snowflake"
	obsctx "github.com/smallbiznis/tallybridge/internal/observability/context"
	"github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"go.uber.org/zap"
)

// Recorder wraps the sync log service for orchestrators. Failures to write
// the audit trail are logged and never returned.
type Recorder struct {
	svc domain.Service
	log *zap.Logger
}

func NewRecorder(svc domain.Service, log *zap.Logger) *Recorder {
	return &Recorder{svc: svc, log: log.Named("synclog.recorder")}
}

// Run is an open sync log. A Run whose open failed is inert.
type Run struct {
	rec      *Recorder
	id       snowflake.ID
	syncType domain.SyncType
}

func (r *Recorder) Start(ctx context.Context, syncType domain.SyncType) *Run {
	run := &Run{rec: r, syncType: syncType}
	if r == nil || r.svc == nil {
		return run
	}
	id, err := r.svc.Open(ctx, syncType, UserIDFromContext(ctx))
	if err != nil {
		r.log.Warn("failed to open sync log",
			zap.String("sync_type", string(syncType)),
			zap.Error(err),
		)
		return run
	}
	run.id = id
	return run
}

func (run *Run) ID() snowflake.ID {
	if run == nil {
		return 0
	}
	return run.id
}

func (run *Run) Succeed(ctx context.Context, records int, details map[string]any) {
	run.Finish(ctx, domain.Outcome{
		Status:           domain.StatusSuccess,
		RecordsProcessed: records,
		Details:          details,
	})
}

func (run *Run) Fail(ctx context.Context, records int, message string, details map[string]any) {
	run.Finish(ctx, domain.Outcome{
		Status:           domain.StatusFailed,
		RecordsProcessed: records,
		ErrorMessage:     message,
		Details:          details,
	})
}

func (run *Run) Finish(ctx context.Context, outcome domain.Outcome) {
	if run == nil || run.id == 0 || run.rec == nil {
		return
	}
	if err := run.rec.svc.Close(ctx, run.id, outcome); err != nil {
		run.rec.log.Warn("failed to close sync log",
			zap.String("sync_log_id", run.id.String()),
			zap.String("sync_type", string(run.syncType)),
			zap.Error(err),
		)
	}
}

// UserIDFromContext returns the numeric user id of the request actor, or nil
// for system-initiated work.
func UserIDFromContext(ctx context.Context) *int64 {
	actorType, actorID := obsctx.ActorFromContext(ctx)
	if actorType != "user" || actorID == "" {
		return nil
	}
	id, err := strconv.ParseInt(actorID, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
