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
	TallyGUID    *string
	SyncedAt     *time.Time
	ErrorMessage *string
	UpdatedAt    time.Time
}

// RemoteState is what a bulk pull copies from Tally onto an existing row.
type RemoteState struct {
	ParentGroup    string
	ClosingBalance decimal.Decimal
	TallyGUID      string
	SyncedAt       time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, ledger *Ledger) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Ledger, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Ledger, error)
	UpdateSyncState(ctx context.Context, db *gorm.DB, id snowflake.ID, state SyncState) error
	UpdateFromRemote(ctx context.Context, db *gorm.DB, id snowflake.ID, state RemoteState) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, sort option.QueryOption, page pagination.Page) ([]Ledger, int64, error)
	Count(ctx context.Context, db *gorm.DB, activeOnly bool) (int64, error)
}
