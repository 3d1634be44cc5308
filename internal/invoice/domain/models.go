// Package domain contains persistence models for invoices pushed to Tally.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type VoucherType string

const (
	VoucherSales    VoucherType = "Sales"
	VoucherPurchase VoucherType = "Purchase"
	VoucherReceipt  VoucherType = "Receipt"
	VoucherPayment  VoucherType = "Payment"
	VoucherContra   VoucherType = "Contra"
)

func (v VoucherType) Valid() bool {
	switch v {
	case VoucherSales, VoucherPurchase, VoucherReceipt, VoucherPayment, VoucherContra:
		return true
	}
	return false
}

// SyncStatus tracks the last push of an invoice to Tally.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// Invoice is a voucher stored locally and mirrored into Tally.
type Invoice struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	VoucherType     VoucherType     `gorm:"type:varchar(20);not null;default:'Sales'" json:"voucher_type"`
	VoucherNumber   string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"voucher_number"`
	Date            time.Time       `gorm:"type:date;not null;index" json:"date"`
	PartyLedgerName string          `gorm:"type:varchar(255);not null" json:"party_ledger_name"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"tax_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	Narration       *string         `gorm:"type:text" json:"narration"`
	TallyGUID       *string         `gorm:"column:tally_guid;type:varchar(255)" json:"tally_guid"`
	SyncStatus      SyncStatus      `gorm:"type:varchar(20);not null;default:'pending';index" json:"sync_status"`
	ErrorMessage    *string         `gorm:"type:text" json:"error_message"`
	SyncedAt        *time.Time      `json:"synced_at"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Synced reports whether Tally is known to hold this voucher.
func (i Invoice) Synced() bool {
	return i.SyncedAt != nil && i.TallyGUID != nil && *i.TallyGUID != ""
}
