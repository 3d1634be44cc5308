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
	MsgProcessed        = "Invoice processed successfully"
	MsgNeverSynced      = "Invoice was never synced to Tally"
	MsgDeletedLocalOnly = "Invoice deleted from database (was not in Tally)"
)

type CreateInvoiceRequest struct {
	VoucherType     string           `json:"voucher_type" binding:"omitempty,oneof=Sales Purchase Receipt Payment Contra"`
	VoucherNumber   string           `json:"voucher_number" binding:"omitempty,max=100"`
	Date            string           `json:"date"`
	PartyLedgerName string           `json:"party_ledger_name" binding:"required,max=255"`
	Amount          decimal.Decimal  `json:"amount"`
	TaxAmount       decimal.Decimal  `json:"tax_amount"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	Narration       string           `json:"narration"`
}

type CreateInvoiceResponse struct {
	Invoice   Invoice      `json:"invoice"`
	TallySync tally.Result `json:"tallySync"`
}

type DeleteInvoiceResponse struct {
	Message string       `json:"message"`
	Details tally.Result `json:"details"`
}

type ListInvoiceRequest struct {
	pagination.Page
	StartDate  string `form:"startDate"`
	EndDate    string `form:"endDate"`
	SyncStatus string `form:"sync_status" binding:"omitempty,oneof=pending success failed"`
	SortBy     string `form:"sortBy"`
	SortOrder  string `form:"sortOrder" binding:"omitempty,oneof=ASC DESC asc desc"`
}

type ListInvoiceResponse struct {
	Invoices   []Invoice           `json:"invoices"`
	Pagination pagination.PageInfo `json:"pagination"`
	Totals     Totals              `json:"totals"`
}

// Stats are the invoice figures shown on the dashboard.
type Stats struct {
	Total       int64
	Pending     int64
	Failed      int64
	TotalAmount decimal.Decimal
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (CreateInvoiceResponse, error)
	Delete(ctx context.Context, id snowflake.ID) (DeleteInvoiceResponse, error)
	Get(ctx context.Context, id snowflake.ID) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Stats(ctx context.Context) (Stats, error)
}

var (
	ErrInvalidParty       = errors.New("invalid_party_ledger_name")
	ErrInvalidVoucherType = errors.New("invalid_voucher_type")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvalidSyncStatus  = errors.New("invalid_sync_status")
	ErrDuplicateNumber    = errors.New("voucher_number_exists")
	ErrNotFound           = errors.New("invoice_not_found")
)
