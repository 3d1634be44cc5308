package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const DefaultParentGroup = "Sundry Debtors"

// Ledger is a party account mirrored into Tally. TallyGUID and SyncedAt
// are set only after Tally accepted the last push.
type Ledger struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	LedgerName     string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"ledger_name"`
	LedgerAlias    *string         `gorm:"type:varchar(255)" json:"ledger_alias"`
	ParentGroup    string          `gorm:"type:varchar(255);not null;default:'Sundry Debtors'" json:"parent_group"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"opening_balance"`
	ClosingBalance decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"closing_balance"`
	Address        *string         `gorm:"type:text" json:"address"`
	State          *string         `gorm:"type:varchar(100)" json:"state"`
	Pincode        *string         `gorm:"type:varchar(10)" json:"pincode"`
	Mobile         *string         `gorm:"type:varchar(20)" json:"mobile"`
	Email          *string         `gorm:"type:varchar(255)" json:"email"`
	GSTNumber      *string         `gorm:"column:gst_number;type:varchar(15)" json:"gst_number"`
	PANNumber      *string         `gorm:"column:pan_number;type:varchar(10)" json:"pan_number"`
	IsActive       bool            `gorm:"not null;default:true" json:"is_active"`
	TallyGUID      *string         `gorm:"column:tally_guid;type:varchar(255)" json:"tally_guid"`
	SyncedAt       *time.Time      `json:"synced_at"`
	ErrorMessage   *string         `gorm:"type:text" json:"error_message"`
	CreatedAt      time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null" json:"updated_at"`
}

func (Ledger) TableName() string { return "ledgers" }

// Synced reports whether Tally is known to hold this ledger.
func (l Ledger) Synced() bool {
	return l.SyncedAt != nil && l.TallyGUID != nil && *l.TallyGUID != ""
}
