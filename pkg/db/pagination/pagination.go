package pagination

import "gorm.io/gorm"

const (
	DefaultLimit = 10
	MaxLimit     = 250
)

// Page is the page/limit window accepted by list endpoints.
type Page struct {
	Page  int `form:"page" json:"page" binding:"omitempty,gte=1"`
	Limit int `form:"limit" json:"limit" binding:"omitempty,gte=1,lte=250"` // Min 1, Max 250
}

// Normalize fills defaults and clamps the window to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Scope applies the window to a query.
func (p Page) Scope() func(*gorm.DB) *gorm.DB {
	p = p.Normalize()
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(p.Limit).Offset(p.Offset())
	}
}

type PageInfo struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

func BuildPageInfo(p Page, total int64) PageInfo {
	p = p.Normalize()
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return PageInfo{
		Total: total,
		Page:  p.Page,
		Limit: p.Limit,
		Pages: pages,
	}
}
