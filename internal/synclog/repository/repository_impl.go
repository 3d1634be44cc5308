package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.SyncLog) error {
	return db.WithContext(ctx).Create(log).Error
}

func (r *repo) Close(ctx context.Context, db *gorm.DB, log *domain.SyncLog) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.SyncLog{}).
		Where("id = ? AND status = ?", log.ID, domain.StatusInProgress).
		Updates(map[string]any{
			"status":            log.Status,
			"end_time":          log.EndTime,
			"records_processed": log.RecordsProcessed,
			"error_message":     log.ErrorMessage,
			"details":           log.Details,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SyncLog, error) {
	var log domain.SyncLog
	err := db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &log, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]domain.SyncLog, int64, error) {
	var total int64
	if err := db.WithContext(ctx).
		Model(&domain.SyncLog{}).
		Scopes(filterScope(filter)).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []domain.SyncLog
	err := db.WithContext(ctx).
		Scopes(filterScope(filter), page.Scope()).
		Order("start_time desc, id desc").
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *repo) ListOpenBefore(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]domain.SyncLog, error) {
	var logs []domain.SyncLog
	err := db.WithContext(ctx).
		Where("status = ? AND start_time < ?", domain.StatusInProgress, before).
		Order("start_time asc, id asc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func filterScope(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(stmt *gorm.DB) *gorm.DB {
		if filter.SyncType != "" {
			stmt = stmt.Where("sync_type = ?", filter.SyncType)
		}
		if filter.Status != "" {
			stmt = stmt.Where("status = ?", filter.Status)
		}
		if filter.StartFrom != nil {
			stmt = stmt.Where("start_time >= ?", *filter.StartFrom)
		}
		if filter.StartTo != nil {
			stmt = stmt.Where("start_time <= ?", *filter.StartTo)
		}
		return stmt
	}
}
