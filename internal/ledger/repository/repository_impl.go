package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/ledger/domain"
	"github.com/smallbiznis/tallybridge/pkg/db/option"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, ledger *domain.Ledger) error {
	return db.WithContext(ctx).Create(ledger).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Ledger, error) {
	return r.first(ctx, db, "id = ?", id)
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Ledger, error) {
	return r.first(ctx, db, "ledger_name = ?", name)
}

func (r *repo) first(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Ledger, error) {
	var ledger domain.Ledger
	err := db.WithContext(ctx).Where(query, args...).First(&ledger).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ledger, nil
}

func (r *repo) UpdateSyncState(ctx context.Context, db *gorm.DB, id snowflake.ID, state domain.SyncState) error {
	return db.WithContext(ctx).
		Model(&domain.Ledger{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"tally_guid":    state.TallyGUID,
			"synced_at":     state.SyncedAt,
			"error_message": state.ErrorMessage,
			"updated_at":    state.UpdatedAt,
		}).Error
}

func (r *repo) UpdateFromRemote(ctx context.Context, db *gorm.DB, id snowflake.ID, state domain.RemoteState) error {
	return db.WithContext(ctx).
		Model(&domain.Ledger{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"parent_group":    state.ParentGroup,
			"closing_balance": state.ClosingBalance,
			"tally_guid":      state.TallyGUID,
			"synced_at":       state.SyncedAt,
			"error_message":   nil,
			"updated_at":      state.SyncedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Ledger{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, sort option.QueryOption, page pagination.Page) ([]domain.Ledger, int64, error) {
	var total int64
	if err := db.WithContext(ctx).
		Model(&domain.Ledger{}).
		Scopes(searchScope(filter.Search)).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	stmt := db.WithContext(ctx).Scopes(searchScope(filter.Search), page.Scope())
	if sort != nil {
		stmt = sort.Apply(stmt)
	}

	var ledgers []domain.Ledger
	if err := stmt.Find(&ledgers).Error; err != nil {
		return nil, 0, err
	}
	return ledgers, total, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, activeOnly bool) (int64, error) {
	var total int64
	stmt := db.WithContext(ctx).Model(&domain.Ledger{})
	if activeOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if err := stmt.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func searchScope(search string) func(*gorm.DB) *gorm.DB {
	return func(stmt *gorm.DB) *gorm.DB {
		search = strings.TrimSpace(search)
		if search == "" {
			return stmt
		}
		like := "%" + search + "%"
		return stmt.Where("ledger_name LIKE ? OR ledger_alias LIKE ? OR gst_number LIKE ?", like, like, like)
	}
}
