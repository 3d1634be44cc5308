package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/pkg/db/option"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"gorm.io/gorm"
)

// SyncState is the Tally linkage written back after a push.
type SyncState struct {
	SyncStatus   SyncStatus
	TallyGUID    *string
	SyncedAt     *time.Time
	ErrorMessage *string
	UpdatedAt    time.Time
}

type ListFilter struct {
	From       *time.Time
	To         *time.Time
	SyncStatus SyncStatus
}

type Totals struct {
	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	TotalInvoices int64           `json:"total_invoices"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	UpdateSyncState(ctx context.Context, db *gorm.DB, id snowflake.ID, state SyncState) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, sort option.QueryOption, page pagination.Page) ([]Invoice, int64, error)
	Totals(ctx context.Context, db *gorm.DB, filter ListFilter) (Totals, error)
	CountByStatus(ctx context.Context, db *gorm.DB) (map[SyncStatus]int64, error)
	SumTotalAmount(ctx context.Context, db *gorm.DB) (decimal.Decimal, error)
}
