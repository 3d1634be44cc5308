package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/internal/tally"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
)

const (
	MsgNeverSynced      = "Ledger was never synced to Tally"
	MsgDeletedLocalOnly = "Ledger deleted from database (was not in Tally)"
)

type CreateLedgerRequest struct {
	LedgerName     string          `json:"ledger_name" binding:"required,max=255"`
	LedgerAlias    string          `json:"ledger_alias" binding:"omitempty,max=255"`
	ParentGroup    string          `json:"parent_group" binding:"omitempty,max=255"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Address        string          `json:"address"`
	State          string          `json:"state" binding:"omitempty,max=100"`
	Pincode        string          `json:"pincode" binding:"omitempty,max=10"`
	Mobile         string          `json:"mobile" binding:"omitempty,max=20"`
	Email          string          `json:"email" binding:"omitempty,email"`
	GSTNumber      string          `json:"gst_number" binding:"omitempty,len=15"`
	PANNumber      string          `json:"pan_number" binding:"omitempty,len=10"`
}

type CreateLedgerResponse struct {
	Ledger    Ledger       `json:"ledger"`
	TallySync tally.Result `json:"tallySync"`
}

type DeleteLedgerResponse struct {
	Message string       `json:"message"`
	Details tally.Result `json:"details"`
}

type SyncLedgersResponse struct {
	Count int `json:"count"`
}

type ListFilter struct {
	Search string
}

type ListLedgerRequest struct {
	pagination.Page
	Search    string `form:"search"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=ASC DESC asc desc"`
}

type ListLedgerResponse struct {
	Ledgers    []Ledger            `json:"ledgers"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type Service interface {
	Create(ctx context.Context, req CreateLedgerRequest) (CreateLedgerResponse, error)
	Delete(ctx context.Context, id snowflake.ID) (DeleteLedgerResponse, error)
	SyncFromTally(ctx context.Context) (SyncLedgersResponse, error)
	Get(ctx context.Context, id snowflake.ID) (Ledger, error)
	List(ctx context.Context, req ListLedgerRequest) (ListLedgerResponse, error)
	Count(ctx context.Context, activeOnly bool) (int64, error)
}

var (
	ErrInvalidName   = errors.New("invalid_ledger_name")
	ErrDuplicateName = errors.New("ledger_name_exists")
	ErrNotFound      = errors.New("ledger_not_found")
)
