package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
)

// Outcome is what a finished sync reports when its log is closed.
type Outcome struct {
	Status           Status
	RecordsProcessed int
	ErrorMessage     string
	Details          map[string]any
}

type ListFilter struct {
	SyncType  SyncType
	Status    Status
	StartFrom *time.Time
	StartTo   *time.Time
}

type ListRequest struct {
	pagination.Page
	SyncType  string     `form:"sync_type"`
	Status    string     `form:"status" binding:"omitempty,oneof=in_progress success failed"`
	StartDate *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"endDate" time_format:"2006-01-02"`
}

type User struct {
	Username string `json:"username"`
}

// Response is the API rendering of a sync log.
type Response struct {
	SyncLog
	User User `json:"User"`
}

type ListResponse struct {
	Logs       []Response          `json:"logs"`
	Pagination pagination.PageInfo `json:"pagination"`
}

type Service interface {
	Open(ctx context.Context, syncType SyncType, userID *int64) (snowflake.ID, error)
	Close(ctx context.Context, id snowflake.ID, outcome Outcome) error
	Get(ctx context.Context, id snowflake.ID) (SyncLog, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Recent(ctx context.Context, n int) ([]Response, error)
	// FailStale closes in_progress logs started before the cutoff as
	// failed and returns how many it closed.
	FailStale(ctx context.Context, before time.Time, limit int) (int, error)
}

const MsgInterrupted = "Sync interrupted before completion"

var (
	ErrNotFound       = errors.New("sync_log_not_found")
	ErrAlreadyClosed  = errors.New("sync_log_already_closed")
	ErrInvalidStatus  = errors.New("invalid_sync_status")
	ErrInvalidType    = errors.New("invalid_sync_type")
	ErrInvalidOutcome = errors.New("invalid_sync_outcome")
)

// Render attaches the display user to a log row.
func Render(l SyncLog) Response {
	username := "System"
	if l.UserID != nil {
		username = fmt.Sprintf("User %d", *l.UserID)
	}
	return Response{SyncLog: l, User: User{Username: username}}
}
