package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	"github.com/smallbiznis/tallybridge/internal/observability/metrics"
	"github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultListLimit = 20

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("synclog.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Open(ctx context.Context, syncType domain.SyncType, userID *int64) (snowflake.ID, error) {
	if strings.TrimSpace(string(syncType)) == "" {
		return 0, domain.ErrInvalidType
	}

	entry := domain.SyncLog{
		ID:        s.genID.Generate(),
		SyncType:  syncType,
		UserID:    userID,
		StartTime: s.clock.Now().UTC(),
		Status:    domain.StatusInProgress,
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return 0, err
	}

	return entry.ID, nil
}

func (s *Service) Close(ctx context.Context, id snowflake.ID, outcome domain.Outcome) error {
	switch outcome.Status {
	case domain.StatusSuccess, domain.StatusFailed:
	default:
		return domain.ErrInvalidStatus
	}
	if outcome.RecordsProcessed < 0 {
		return domain.ErrInvalidOutcome
	}

	current, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if current == nil {
		return domain.ErrNotFound
	}
	if current.Closed() {
		return domain.ErrAlreadyClosed
	}

	end := s.clock.Now().UTC()
	current.EndTime = &end
	current.Status = outcome.Status
	current.RecordsProcessed = outcome.RecordsProcessed
	if msg := strings.TrimSpace(outcome.ErrorMessage); msg != "" {
		current.ErrorMessage = &msg
	}
	if len(outcome.Details) > 0 {
		current.Details = datatypes.JSONMap(outcome.Details)
	}

	closed, err := s.repo.Close(ctx, s.db, current)
	if err != nil {
		return err
	}
	if !closed {
		return domain.ErrAlreadyClosed
	}

	s.metrics.RecordSyncRun(ctx, string(current.SyncType), string(current.Status), current.RecordsProcessed)
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.SyncLog, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.SyncLog{}, err
	}
	if item == nil {
		return domain.SyncLog{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		SyncType: domain.SyncType(strings.TrimSpace(req.SyncType)),
		Status:   domain.Status(strings.TrimSpace(req.Status)),
	}
	switch filter.Status {
	case "", domain.StatusInProgress, domain.StatusSuccess, domain.StatusFailed:
	default:
		return domain.ListResponse{}, domain.ErrInvalidStatus
	}
	if req.StartDate != nil {
		from := *req.StartDate
		filter.StartFrom = &from
	}
	if req.EndDate != nil {
		to := endOfDay(*req.EndDate)
		filter.StartTo = &to
	}

	page := req.Page
	if page.Limit <= 0 {
		page.Limit = defaultListLimit
	}
	page = page.Normalize()

	items, total, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return domain.ListResponse{}, err
	}

	logs := make([]domain.Response, 0, len(items))
	for _, item := range items {
		logs = append(logs, domain.Render(item))
	}

	return domain.ListResponse{
		Logs:       logs,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Recent(ctx context.Context, n int) ([]domain.Response, error) {
	if n <= 0 {
		n = 5
	}
	items, _, err := s.repo.List(ctx, s.db, domain.ListFilter{}, pagination.Page{Page: 1, Limit: n})
	if err != nil {
		return nil, err
	}
	logs := make([]domain.Response, 0, len(items))
	for _, item := range items {
		logs = append(logs, domain.Render(item))
	}
	return logs, nil
}

// FailStale closes in_progress logs started before the cutoff as failed.
func (s *Service) FailStale(ctx context.Context, before time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	stale, err := s.repo.ListOpenBefore(ctx, s.db, before, limit)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, entry := range stale {
		err := s.Close(ctx, entry.ID, domain.Outcome{
			Status:       domain.StatusFailed,
			ErrorMessage: domain.MsgInterrupted,
			Details:      map[string]any{"recovered": true},
		})
		if errors.Is(err, domain.ErrAlreadyClosed) {
			continue
		}
		if err != nil {
			return closed, err
		}
		closed++
	}
	if closed > 0 {
		logger.WithContext(ctx, s.log).Warn("closed interrupted sync logs",
			zap.Int("count", closed),
			zap.Time("before", before),
		)
	}
	return closed, nil
}

// endOfDay widens a date-only bound so the whole day is included.
func endOfDay(t time.Time) time.Time {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Add(24*time.Hour - time.Nanosecond)
	}
	return t
}
