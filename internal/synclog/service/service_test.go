package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tallybridge/internal/clock"
	obsctx "github.com/smallbiznis/tallybridge/internal/observability/context"
	"github.com/smallbiznis/tallybridge/internal/synclog/domain"
	"github.com/smallbiznis/tallybridge/internal/synclog/repository"
	"github.com/smallbiznis/tallybridge/pkg/db"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	svc   domain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.SyncLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return fixture{db: conn, clock: clk, svc: svc}
}

func TestOpenClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Open(ctx, domain.TypeLedger, nil)
	require.NoError(t, err)

	opened, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, opened.Status)
	assert.Nil(t, opened.EndTime)
	assert.Equal(t, 0, opened.RecordsProcessed)

	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.svc.Close(ctx, id, domain.Outcome{
		Status:           domain.StatusSuccess,
		RecordsProcessed: 1,
		Details:          map[string]any{"ledger_name": "Acme Corp"},
	}))

	closed, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, closed.Status)
	assert.Equal(t, 1, closed.RecordsProcessed)
	require.NotNil(t, closed.EndTime)
	assert.Equal(t, 2*time.Second, closed.EndTime.Sub(closed.StartTime))
	assert.Equal(t, "Acme Corp", closed.Details["ledger_name"])
}

func TestCloseOnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.Open(ctx, domain.TypeInvoice, nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Close(ctx, id, domain.Outcome{Status: domain.StatusFailed, ErrorMessage: "boom"}))
	err = f.svc.Close(ctx, id, domain.Outcome{Status: domain.StatusSuccess, RecordsProcessed: 1})
	assert.ErrorIs(t, err, domain.ErrAlreadyClosed)

	got, err := f.svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "boom", *got.ErrorMessage)
}

func TestCloseValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.Close(ctx, 42, domain.Outcome{Status: domain.StatusSuccess}), domain.ErrNotFound)

	id, err := f.svc.Open(ctx, domain.TypeLedger, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Close(ctx, id, domain.Outcome{Status: domain.StatusInProgress}), domain.ErrInvalidStatus)
	assert.ErrorIs(t, f.svc.Close(ctx, id, domain.Outcome{Status: domain.StatusSuccess, RecordsProcessed: -1}), domain.ErrInvalidOutcome)

	_, err = f.svc.Open(ctx, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestListFiltersAndRendersUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := int64(7)
	first, err := f.svc.Open(ctx, domain.TypeLedger, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Close(ctx, first, domain.Outcome{Status: domain.StatusSuccess, RecordsProcessed: 1}))

	f.clock.Advance(24 * time.Hour)
	second, err := f.svc.Open(ctx, domain.TypeInvoice, &user)
	require.NoError(t, err)
	require.NoError(t, f.svc.Close(ctx, second, domain.Outcome{Status: domain.StatusFailed}))

	all, err := f.svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all.Logs, 2)
	assert.Equal(t, second, all.Logs[0].ID)
	assert.Equal(t, "User 7", all.Logs[0].User.Username)
	assert.Equal(t, "System", all.Logs[1].User.Username)
	assert.Equal(t, pagination.PageInfo{Total: 2, Page: 1, Limit: 20, Pages: 1}, all.Pagination)

	failed, err := f.svc.List(ctx, domain.ListRequest{Status: "failed"})
	require.NoError(t, err)
	require.Len(t, failed.Logs, 1)
	assert.Equal(t, second, failed.Logs[0].ID)

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ranged, err := f.svc.List(ctx, domain.ListRequest{StartDate: &day, EndDate: &day})
	require.NoError(t, err)
	require.Len(t, ranged.Logs, 1)
	assert.Equal(t, first, ranged.Logs[0].ID)

	_, err = f.svc.List(ctx, domain.ListRequest{Status: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestRecent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := f.svc.Open(ctx, domain.TypeManual, nil)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	recent, err := f.svc.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
	assert.True(t, recent[0].StartTime.After(recent[4].StartTime))
}

type failingService struct {
	domain.Service
	openErr  error
	closeErr error
	closed   int
}

func (f *failingService) Open(context.Context, domain.SyncType, *int64) (snowflake.ID, error) {
	if f.openErr != nil {
		return 0, f.openErr
	}
	return 1, nil
}

func (f *failingService) Close(context.Context, snowflake.ID, domain.Outcome) error {
	f.closed++
	return f.closeErr
}

func TestRecorderSwallowsFailures(t *testing.T) {
	ctx := context.Background()

	svc := &failingService{openErr: errors.New("db down")}
	rec := NewRecorder(svc, zaptest.NewLogger(t))
	run := rec.Start(ctx, domain.TypeLedger)
	run.Succeed(ctx, 1, nil)
	assert.Equal(t, 0, svc.closed)

	svc = &failingService{closeErr: errors.New("db down")}
	rec = NewRecorder(svc, zaptest.NewLogger(t))
	run = rec.Start(ctx, domain.TypeLedger)
	assert.NotPanics(t, func() { run.Fail(ctx, 0, "x", nil) })
	assert.Equal(t, 1, svc.closed)
}

func TestUserIDFromContext(t *testing.T) {
	assert.Nil(t, UserIDFromContext(context.Background()))

	ctx := obsctx.WithActor(context.Background(), "user", "12")
	id := UserIDFromContext(ctx)
	require.NotNil(t, id)
	assert.Equal(t, int64(12), *id)

	assert.Nil(t, UserIDFromContext(obsctx.WithActor(context.Background(), "user", "abc")))
}

func TestFailStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stale, err := f.svc.Open(ctx, domain.TypeInvoice, nil)
	require.NoError(t, err)
	done, err := f.svc.Open(ctx, domain.TypeLedger, nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.Close(ctx, done, domain.Outcome{Status: domain.StatusSuccess, RecordsProcessed: 1}))

	f.clock.Advance(20 * time.Minute)
	fresh, err := f.svc.Open(ctx, domain.TypeLedger, nil)
	require.NoError(t, err)

	n, err := f.svc.FailStale(ctx, f.clock.Now().Add(-15*time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	recovered, err := f.svc.Get(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, recovered.Status)
	require.NotNil(t, recovered.ErrorMessage)
	assert.Equal(t, domain.MsgInterrupted, *recovered.ErrorMessage)
	assert.Equal(t, true, recovered.Details["recovered"])

	untouched, err := f.svc.Get(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, untouched.Status)

	n, err = f.svc.FailStale(ctx, f.clock.Now().Add(-15*time.Minute), 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}
