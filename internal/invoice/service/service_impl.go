package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/invoice/domain"
	"github.com/smallbiznis/tallybridge/internal/invoice/format"
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

// generatedNumberAttempts bounds retries when a generated voucher number collides.
const generatedNumberAttempts = 3

var sortableColumns = map[string]bool{
	"date":              true,
	"voucher_number":    true,
	"party_ledger_name": true,
	"amount":            true,
	"total_amount":      true,
	"sync_status":       true,
	"created_at":        true,
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
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		gateway:  p.Gateway,
		recorder: p.Recorder,
	}
}

// Create stores the invoice as pending and pushes it to Tally as a voucher.
// The Tally outcome moves sync_status to success or failed.
func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (domain.CreateInvoiceResponse, error) {
	log := logger.WithContext(ctx, s.log)

	party := strings.TrimSpace(req.PartyLedgerName)
	if party == "" {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidParty
	}

	voucherType := domain.VoucherType(strings.TrimSpace(req.VoucherType))
	if voucherType == "" {
		voucherType = domain.VoucherSales
	}
	if !voucherType.Valid() {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidVoucherType
	}

	if req.Amount.IsNegative() || req.TaxAmount.IsNegative() {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidAmount
	}
	total := req.Amount.Add(req.TaxAmount)
	if req.TotalAmount != nil {
		total = *req.TotalAmount
	}
	if total.IsNegative() {
		return domain.CreateInvoiceResponse{}, domain.ErrInvalidAmount
	}

	now := s.clock.Now().UTC()
	date := dateOnly(now)
	if raw := strings.TrimSpace(req.Date); raw != "" {
		parsed, err := message.ParseDate(raw)
		if err != nil {
			log.Warn("invalid invoice date, using today", zap.String("date", raw))
		} else {
			date = dateOnly(parsed)
		}
	}

	invoice := domain.Invoice{
		ID:              s.genID.Generate(),
		VoucherType:     voucherType,
		VoucherNumber:   strings.TrimSpace(req.VoucherNumber),
		Date:            date,
		PartyLedgerName: party,
		Amount:          req.Amount,
		TaxAmount:       req.TaxAmount,
		TotalAmount:     total,
		Narration:       optional(req.Narration),
		SyncStatus:      domain.SyncPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.insert(ctx, &invoice, invoice.VoucherNumber == ""); err != nil {
		return domain.CreateInvoiceResponse{}, err
	}

	// the row exists now; its sync state and log must land even if the
	// caller goes away while Tally is answering
	finishCtx := context.WithoutCancel(ctx)
	log = log.With(zap.String("invoice_id", invoice.ID.String()))
	details := map[string]any{"invoice_id": invoice.ID.String(), "voucher_number": invoice.VoucherNumber}
	run := s.recorder.Start(finishCtx, syncdomain.TypeInvoice)

	result, err := s.gateway.CreateVoucher(ctx, toVoucher(invoice))
	if err != nil {
		result = tally.Result{Message: fmt.Sprintf("Failed to create invoice: %s", err.Error())}
	}

	state := domain.SyncState{UpdatedAt: s.clock.Now().UTC()}
	if result.Success {
		syncedAt := state.UpdatedAt
		guid := result.RemoteID
		state.SyncStatus = domain.SyncSuccess
		state.TallyGUID = &guid
		state.SyncedAt = &syncedAt
		run.Succeed(finishCtx, 1, details)
		log.Info("invoice synced to tally")
	} else {
		msg := result.Message
		state.SyncStatus = domain.SyncFailed
		state.ErrorMessage = &msg
		run.Fail(finishCtx, 0, msg, details)
		log.Warn("invoice sync to tally failed", zap.String("reason", msg))
	}

	if err := s.repo.UpdateSyncState(finishCtx, s.db, invoice.ID, state); err != nil {
		return domain.CreateInvoiceResponse{}, err
	}
	invoice.SyncStatus = state.SyncStatus
	invoice.TallyGUID = state.TallyGUID
	invoice.SyncedAt = state.SyncedAt
	invoice.ErrorMessage = state.ErrorMessage
	invoice.UpdatedAt = state.UpdatedAt

	return domain.CreateInvoiceResponse{Invoice: invoice, TallySync: result}, nil
}

func (s *Service) insert(ctx context.Context, invoice *domain.Invoice, generate bool) error {
	attempts := 1
	if generate {
		attempts = generatedNumberAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		if generate {
			invoice.VoucherNumber = format.GenerateVoucherNumber(invoice.Date, nil)
		}
		err = s.repo.Insert(ctx, s.db, invoice)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
	}
	return domain.ErrDuplicateNumber
}

// Delete removes the voucher from Tally when it was synced there, then
// always removes the local row.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) (domain.DeleteInvoiceResponse, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.DeleteInvoiceResponse{}, err
	}
	if invoice == nil {
		return domain.DeleteInvoiceResponse{}, domain.ErrNotFound
	}

	finishCtx := context.WithoutCancel(ctx)
	log := logger.WithContext(ctx, s.log).With(zap.String("invoice_id", invoice.ID.String()))
	details := map[string]any{"invoice_id": invoice.ID.String(), "voucher_number": invoice.VoucherNumber}
	run := s.recorder.Start(finishCtx, syncdomain.TypeInvoiceDelete)

	var result tally.Result
	if !invoice.Synced() {
		result = tally.Result{Success: true, NotFound: true, Message: domain.MsgNeverSynced}
		details["skipped"] = true
		run.Succeed(finishCtx, 0, details)
	} else {
		result, err = s.gateway.DeleteVoucher(ctx, string(invoice.VoucherType), invoice.VoucherNumber)
		switch {
		case err != nil:
			result = tally.Result{Message: fmt.Sprintf("Tally deletion failed: %s", err.Error())}
			run.Fail(finishCtx, 0, result.Message, details)
			log.Warn("tally voucher delete failed, deleting locally", zap.Error(err))
		case !result.Success:
			run.Fail(finishCtx, 0, result.Message, details)
			log.Warn("tally rejected voucher delete, deleting locally", zap.String("reason", result.Message))
		case result.NotFound:
			details["not_found"] = true
			run.Succeed(finishCtx, 0, details)
		default:
			run.Succeed(finishCtx, 1, details)
		}
	}

	if err := s.repo.Delete(finishCtx, s.db, invoice.ID); err != nil {
		return domain.DeleteInvoiceResponse{}, err
	}

	msg := domain.MsgDeletedLocalOnly
	if invoice.Synced() {
		msg = "Invoice deleted successfully. " + result.Message
	}
	return domain.DeleteInvoiceResponse{Message: msg, Details: result}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Invoice, error) {
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	filter := domain.ListFilter{SyncStatus: domain.SyncStatus(strings.TrimSpace(req.SyncStatus))}
	switch filter.SyncStatus {
	case "", domain.SyncPending, domain.SyncSuccess, domain.SyncFailed:
	default:
		return domain.ListInvoiceResponse{}, domain.ErrInvalidSyncStatus
	}
	if raw := strings.TrimSpace(req.StartDate); raw != "" {
		from, err := message.ParseDate(raw)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidDate
		}
		from = dateOnly(from)
		filter.From = &from
	}
	if raw := strings.TrimSpace(req.EndDate); raw != "" {
		to, err := message.ParseDate(raw)
		if err != nil {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidDate
		}
		to = dateOnly(to)
		filter.To = &to
	}

	page := req.Page.Normalize()
	sort := option.WithSortBy(option.WithQuerySortByDefault(req.SortBy, req.SortOrder, "date", sortableColumns))

	items, total, err := s.repo.List(ctx, s.db, filter, sort, page)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}
	if items == nil {
		items = []domain.Invoice{}
	}

	totals, err := s.repo.Totals(ctx, s.db, filter)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	return domain.ListInvoiceResponse{
		Invoices:   items,
		Pagination: pagination.BuildPageInfo(page, total),
		Totals:     totals,
	}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	counts, err := s.repo.CountByStatus(ctx, s.db)
	if err != nil {
		return domain.Stats{}, err
	}
	sum, err := s.repo.SumTotalAmount(ctx, s.db)
	if err != nil {
		return domain.Stats{}, err
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return domain.Stats{
		Total:       total,
		Pending:     counts[domain.SyncPending],
		Failed:      counts[domain.SyncFailed],
		TotalAmount: sum,
	}, nil
}

func toVoucher(i domain.Invoice) message.Voucher {
	narration := ""
	if i.Narration != nil {
		narration = *i.Narration
	}
	return message.Voucher{
		VoucherType:     string(i.VoucherType),
		VoucherNumber:   i.VoucherNumber,
		Date:            i.Date,
		PartyLedgerName: i.PartyLedgerName,
		TotalAmount:     i.TotalAmount,
		Narration:       narration,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
