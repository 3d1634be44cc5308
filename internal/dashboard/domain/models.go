package domain

import (
	"context"

	"github.com/shopspring/decimal"
	syncdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
)

const RecentSyncLimit = 5

// Stats is the dashboard summary of local records and Tally sync health.
type Stats struct {
	TotalLedgers       int64                 `json:"totalLedgers"`
	ActiveLedgers      int64                 `json:"activeLedgers"`
	TotalInvoices      int64                 `json:"totalInvoices"`
	TotalInvoiceAmount decimal.Decimal       `json:"totalInvoiceAmount"`
	PendingInvoices    int64                 `json:"pendingInvoices"`
	FailedInvoices     int64                 `json:"failedInvoices"`
	SuccessRate        string                `json:"successRate"`
	RecentSyncs        []syncdomain.Response `json:"recentSyncs"`
}

type Service interface {
	Stats(ctx context.Context) (Stats, error)
}
