package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/ledger/domain"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	syncdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
	synclog "github.com/smallbiznis/tallybridge/internal/synclog/service"
	"github.com/smallbiznis/tallybridge/internal/tally"
	"github.com/smallbiznis/tallybridge/internal/tally/message"
	"github.com/smallbiznis/tallybridge/pkg/db"
	"github.com/smallbiznis/tallybridge/pkg/db/option"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var sortableColumns = map[string]bool{
	"ledger_name":     true,
	"parent_group":    true,
	"opening_balance": true,
	"closing_balance": true,
	"synced_at":       true,
	"created_at":      true,
	"updated_at":      true,
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Gateway  *tally.Gateway
	Recorder *synclog.Recorder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	gateway  *tally.Gateway
	recorder *synclog.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		gateway:  p.Gateway,
		recorder: p.Recorder,
	}
}

// Create stores the ledger and then pushes it to Tally. A Tally failure is
// reported in TallySync and recorded on the row; it never fails the call.
func (s *Service) Create(ctx context.Context, req domain.CreateLedgerRequest) (domain.CreateLedgerResponse, error) {
	name := strings.TrimSpace(req.LedgerName)
	if name == "" {
		return domain.CreateLedgerResponse{}, domain.ErrInvalidName
	}

	parent := strings.TrimSpace(req.ParentGroup)
	if parent == "" {
		parent = domain.DefaultParentGroup
	}

	now := s.clock.Now().UTC()
	ledger := domain.Ledger{
		ID:             s.genID.Generate(),
		LedgerName:     name,
		LedgerAlias:    optional(req.LedgerAlias),
		ParentGroup:    parent,
		OpeningBalance: req.OpeningBalance,
		ClosingBalance: decimal.Zero,
		Address:        optional(req.Address),
		State:          optional(req.State),
		Pincode:        optional(req.Pincode),
		Mobile:         optional(req.Mobile),
		Email:          optional(req.Email),
		GSTNumber:      optional(strings.ToUpper(req.GSTNumber)),
		PANNumber:      optional(strings.ToUpper(req.PANNumber)),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, &ledger); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.CreateLedgerResponse{}, domain.ErrDuplicateName
		}
		return domain.CreateLedgerResponse{}, err
	}

	// the row exists now; its sync state and log must land even if the
	// caller goes away while Tally is answering
	finishCtx := context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, s.log).With(zap.String("ledger_id", ledger.ID.String()))
	details := map[string]any{"ledger_id": ledger.ID.String(), "ledger_name": ledger.LedgerName}
	run := s.recorder.Start(finishCtx, syncdomain.TypeLedger)

	result, err := s.gateway.CreateLedger(ctx, toMessage(ledger))
	if err != nil {
		result = tally.Result{Message: fmt.Sprintf("Failed to create ledger: %s", err.Error())}
	}

	state := domain.SyncState{UpdatedAt: s.clock.Now().UTC()}
	if result.Success {
		syncedAt := state.UpdatedAt
		guid := result.RemoteID
		state.TallyGUID = &guid
		state.SyncedAt = &syncedAt
		run.Succeed(finishCtx, 1, details)
		log.Info("ledger synced to tally")
	} else {
		msg := result.Message
		state.ErrorMessage = &msg
		run.Fail(finishCtx, 0, msg, details)
		log.Warn("ledger sync to tally failed", zap.String("reason", msg))
	}

	if err := s.repo.UpdateSyncState(finishCtx, s.db, ledger.ID, state); err != nil {
		return domain.CreateLedgerResponse{}, err
	}
	ledger.TallyGUID = state.TallyGUID
	ledger.SyncedAt = state.SyncedAt
	ledger.ErrorMessage = state.ErrorMessage
	ledger.UpdatedAt = state.UpdatedAt

	return domain.CreateLedgerResponse{Ledger: ledger, TallySync: result}, nil
}

// Delete removes the ledger from Tally when it was synced there, then always
// removes the local row.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) (domain.DeleteLedgerResponse, error) {
	ledger, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.DeleteLedgerResponse{}, err
	}
	if ledger == nil {
		return domain.DeleteLedgerResponse{}, domain.ErrNotFound
	}

	finishCtx := context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, s.log).With(zap.String("ledger_id", ledger.ID.String()))
	details := map[string]any{"ledger_id": ledger.ID.String(), "ledger_name": ledger.LedgerName}
	run := s.recorder.Start(finishCtx, syncdomain.TypeLedgerDelete)

	var result tally.Result
	switch {
	case !ledger.Synced():
		result = tally.Result{Success: true, NotFound: true, Message: domain.MsgNeverSynced}
		details["skipped"] = true
		run.Succeed(finishCtx, 0, details)
	default:
		result, err = s.gateway.DeleteLedger(ctx, ledger.LedgerName)
		switch {
		case err != nil:
			result = tally.Result{Message: fmt.Sprintf("Tally failed: %s", err.Error())}
			run.Fail(finishCtx, 0, result.Message, details)
			log.Warn("tally ledger delete failed, deleting locally", zap.Error(err))
		case !result.Success:
			run.Fail(finishCtx, 0, result.Message, details)
			log.Warn("tally rejected ledger delete, deleting locally", zap.String("reason", result.Message))
		case result.NotFound:
			details["not_found"] = true
			run.Succeed(finishCtx, 0, details)
		default:
			run.Succeed(finishCtx, 1, details)
		}
	}

	if err := s.repo.Delete(finishCtx, s.db, ledger.ID); err != nil {
		return domain.DeleteLedgerResponse{}, err
	}

	msg := domain.MsgDeletedLocalOnly
	if ledger.Synced() {
		msg = "Ledger deleted successfully. " + result.Message
	}
	return domain.DeleteLedgerResponse{Message: msg, Details: result}, nil
}

// SyncFromTally pulls the ledger list from Tally and upserts it by name.
// Records are counted as they are written; the first failure stops the run
// and earlier writes are kept.
func (s *Service) SyncFromTally(ctx context.Context) (domain.SyncLedgersResponse, error) {
	finishCtx := context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, s.log)
	run := s.recorder.Start(finishCtx, syncdomain.TypeManual)

	remote, err := s.gateway.FetchLedgers(ctx)
	if err != nil {
		run.Fail(finishCtx, 0, err.Error(), nil)
		log.Warn("failed to fetch ledgers from tally", zap.Error(err))
		return domain.SyncLedgersResponse{}, err
	}

	count := 0
	for _, item := range remote {
		if err := s.upsertRemote(ctx, item.Name, item.GUID, item.Parent, item.OpeningBalance, item.ClosingBalance); err != nil {
			run.Fail(finishCtx, count, err.Error(), map[string]any{"ledger_name": item.Name})
			log.Warn("ledger sync aborted", zap.String("ledger_name", item.Name), zap.Int("records_processed", count), zap.Error(err))
			return domain.SyncLedgersResponse{Count: count}, err
		}
		count++
	}

	run.Succeed(finishCtx, count, map[string]any{"fetched": len(remote)})
	log.Info("ledgers synced from tally", zap.Int("count", count))
	return domain.SyncLedgersResponse{Count: count}, nil
}

func (s *Service) upsertRemote(ctx context.Context, name, guid, parent string, opening, closing decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidName
	}
	if strings.TrimSpace(parent) == "" {
		parent = domain.DefaultParentGroup
	}
	if strings.TrimSpace(guid) == "" {
		guid = name
	}
	now := s.clock.Now().UTC()

	existing, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return s.repo.UpdateFromRemote(ctx, s.db, existing.ID, domain.RemoteState{
			ParentGroup:    parent,
			ClosingBalance: closing,
			TallyGUID:      guid,
			SyncedAt:       now,
		})
	}

	return s.repo.Insert(ctx, s.db, &domain.Ledger{
		ID:             s.genID.Generate(),
		LedgerName:     name,
		ParentGroup:    parent,
		OpeningBalance: opening,
		ClosingBalance: closing,
		IsActive:       true,
		TallyGUID:      &guid,
		SyncedAt:       &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Ledger, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Ledger{}, err
	}
	if item == nil {
		return domain.Ledger{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListLedgerRequest) (domain.ListLedgerResponse, error) {
	page := req.Page.Normalize()
	sort := option.WithSortBy(option.WithQuerySortBy(req.SortBy, req.SortOrder, sortableColumns))

	items, total, err := s.repo.List(ctx, s.db, domain.ListFilter{Search: req.Search}, sort, page)
	if err != nil {
		return domain.ListLedgerResponse{}, err
	}
	if items == nil {
		items = []domain.Ledger{}
	}

	return domain.ListLedgerResponse{
		Ledgers:    items,
		Pagination: pagination.BuildPageInfo(page, total),
	}, nil
}

func (s *Service) Count(ctx context.Context, activeOnly bool) (int64, error) {
	return s.repo.Count(ctx, s.db, activeOnly)
}

func toMessage(l domain.Ledger) message.Ledger {
	return message.Ledger{
		Name:           l.LedgerName,
		ParentGroup:    l.ParentGroup,
		OpeningBalance: l.OpeningBalance,
		Address:        deref(l.Address),
		State:          deref(l.State),
		Pincode:        deref(l.Pincode),
		Mobile:         deref(l.Mobile),
		Email:          deref(l.Email),
		GSTNumber:      deref(l.GSTNumber),
		PANNumber:      deref(l.PANNumber),
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
