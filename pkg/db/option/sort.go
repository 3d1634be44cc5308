package option

import (
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a query before it is executed.
type QueryOption interface {
	Apply(tx *gorm.DB) *gorm.DB
}

type sortOption struct {
	column string
	desc   bool
}

// WithQuerySortBy resolves a user supplied column/direction against an allowlist.
// Unknown columns fall back to created_at DESC.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) sortOption {
	return WithQuerySortByDefault(sortBy, orderBy, "created_at", allowed)
}

// WithQuerySortByDefault is WithQuerySortBy with a caller chosen fallback column.
func WithQuerySortByDefault(sortBy, orderBy, fallback string, allowed map[string]bool) sortOption {
	column := strings.ToLower(strings.TrimSpace(sortBy))
	if !allowed[column] {
		column = fallback
	}
	desc := true
	switch strings.ToLower(strings.TrimSpace(orderBy)) {
	case "asc":
		desc = false
	case "desc", "":
		desc = true
	}
	return sortOption{column: column, desc: desc}
}

// WithSortBy wraps a resolved sort into a QueryOption.
func WithSortBy(s sortOption) QueryOption {
	return s
}

func (s sortOption) Apply(tx *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.desc {
		direction = "DESC"
	}
	return tx.Order(s.column + " " + direction).Order("id " + direction)
}
