package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/tallybridge/internal/invoice/domain"
	ledgerdomain "github.com/smallbiznis/tallybridge/internal/ledger/domain"
	syncdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Ledgers  ledgerdomain.Service
	Invoices invoicedomain.Service
	SyncLogs syncdomain.Service
}

type Service struct {
	log      *zap.Logger
	ledgers  ledgerdomain.Service
	invoices invoicedomain.Service
	syncLogs syncdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("dashboard.service"),
		ledgers:  p.Ledgers,
		invoices: p.Invoices,
		syncLogs: p.SyncLogs,
	}
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	totalLedgers, err := s.ledgers.Count(ctx, false)
	if err != nil {
		return domain.Stats{}, err
	}
	activeLedgers, err := s.ledgers.Count(ctx, true)
	if err != nil {
		return domain.Stats{}, err
	}
	invoices, err := s.invoices.Stats(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	recent, err := s.syncLogs.Recent(ctx, domain.RecentSyncLimit)
	if err != nil {
		return domain.Stats{}, err
	}

	return domain.Stats{
		TotalLedgers:       totalLedgers,
		ActiveLedgers:      activeLedgers,
		TotalInvoices:      invoices.Total,
		TotalInvoiceAmount: invoices.TotalAmount,
		PendingInvoices:    invoices.Pending,
		FailedInvoices:     invoices.Failed,
		SuccessRate:        SuccessRate(invoices.Total, invoices.Pending, invoices.Failed),
		RecentSyncs:        recent,
	}, nil
}

// SuccessRate is the share of invoices neither pending nor failed, as a
// percentage with two decimals.
func SuccessRate(total, pending, failed int64) string {
	if total <= 0 {
		return "0.00"
	}
	synced := decimal.NewFromInt(total - pending - failed)
	return synced.Div(decimal.NewFromInt(total)).Mul(decimal.NewFromInt(100)).StringFixed(2)
}
