package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *SyncLog) error
	// Close finalizes an in_progress row. It reports false when the row is
	// missing or was already closed.
	Close(ctx context.Context, db *gorm.DB, log *SyncLog) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SyncLog, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]SyncLog, int64, error)
	// ListOpenBefore returns in_progress rows started before the cutoff,
	// oldest first.
	ListOpenBefore(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]SyncLog, error)
}
