package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(fmt.Errorf("create ledger: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: ledgers.ledger_name")))
	assert.True(t, IsDuplicateKeyErr(errors.New("Error 1062: Duplicate entry")))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection reset")))
}

func TestMigrationURL(t *testing.T) {
	cfg := Config{Type: "postgres", Host: "db", Port: "5432", Name: "tally", User: "u", Password: "p w", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%20w@db:5432/tally?sslmode=disable", MigrationURL(cfg))

	cfg.Type = "sqlite"
	assert.Empty(t, MigrationURL(cfg))
}

func TestNewTestIsolated(t *testing.T) {
	type row struct {
		ID   int64
		Name string
	}
	first, err := NewTest()
	assert.NoError(t, err)
	assert.NoError(t, first.AutoMigrate(&row{}))
	assert.NoError(t, first.Create(&row{ID: 1, Name: "a"}).Error)

	second, err := NewTest()
	assert.NoError(t, err)
	assert.False(t, second.Migrator().HasTable(&row{}))
}
