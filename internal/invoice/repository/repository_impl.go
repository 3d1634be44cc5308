package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/internal/invoice/domain"
	"github.com/smallbiznis/tallybridge/pkg/db/option"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) UpdateSyncState(ctx context.Context, db *gorm.DB, id snowflake.ID, state domain.SyncState) error {
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sync_status":   state.SyncStatus,
			"tally_guid":    state.TallyGUID,
			"synced_at":     state.SyncedAt,
			"error_message": state.ErrorMessage,
			"updated_at":    state.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Invoice{}).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, sort option.QueryOption, page pagination.Page) ([]domain.Invoice, int64, error) {
	var total int64
	if err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Scopes(filterScope(filter)).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	stmt := db.WithContext(ctx).Scopes(filterScope(filter), page.Scope())
	if sort != nil {
		stmt = sort.Apply(stmt)
	}

	var invoices []domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB, filter domain.ListFilter) (domain.Totals, error) {
	var (
		amount, tax, grand decimal.NullDecimal
		count              int64
	)
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Scopes(filterScope(filter)).
		Select("SUM(amount), SUM(tax_amount), SUM(total_amount), COUNT(id)").
		Row().
		Scan(&amount, &tax, &grand, &count)
	if err != nil {
		return domain.Totals{}, err
	}
	return domain.Totals{
		TotalAmount:   orZero(amount),
		TotalTax:      orZero(tax),
		GrandTotal:    orZero(grand),
		TotalInvoices: count,
	}, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[domain.SyncStatus]int64, error) {
	var rows []struct {
		SyncStatus domain.SyncStatus
		Count      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Select("sync_status, COUNT(id) AS count").
		Group("sync_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.SyncStatus]int64, len(rows))
	for _, row := range rows {
		out[row.SyncStatus] = row.Count
	}
	return out, nil
}

func (r *repo) SumTotalAmount(ctx context.Context, db *gorm.DB) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Select("SUM(total_amount)").
		Row().
		Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return orZero(sum), nil
}

func filterScope(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(stmt *gorm.DB) *gorm.DB {
		if filter.From != nil {
			stmt = stmt.Where("date >= ?", *filter.From)
		}
		if filter.To != nil {
			stmt = stmt.Where("date <= ?", *filter.To)
		}
		if filter.SyncStatus != "" {
			stmt = stmt.Where("sync_status = ?", filter.SyncStatus)
		}
		return stmt
	}
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
