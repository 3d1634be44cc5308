package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
)

type SyncType string

const (
	TypeLedger        SyncType = "tally_ledger"
	TypeLedgerDelete  SyncType = "tally_ledger_delete"
	TypeInvoice       SyncType = "tally_invoice"
	TypeInvoiceDelete SyncType = "tally_invoice_delete"
	TypeManual        SyncType = "manual"
)

// SyncLog is one audited push or pull against Tally. Rows are written
// in_progress and closed exactly once.
type SyncLog struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	SyncType         SyncType          `gorm:"type:varchar(50);not null;index" json:"sync_type"`
	UserID           *int64            `gorm:"index" json:"user_id,omitempty"`
	StartTime        time.Time         `gorm:"not null;index" json:"start_time"`
	EndTime          *time.Time        `json:"end_time,omitempty"`
	Status           Status            `gorm:"type:varchar(20);not null;default:'in_progress';index" json:"status"`
	RecordsProcessed int               `gorm:"not null;default:0" json:"records_processed"`
	ErrorMessage     *string           `gorm:"type:text" json:"error_message,omitempty"`
	Details          datatypes.JSONMap `gorm:"type:json" json:"details,omitempty"`
}

func (SyncLog) TableName() string { return "sync_logs" }

func (l SyncLog) Closed() bool {
	return l.Status != StatusInProgress
}
