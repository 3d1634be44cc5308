package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/internal/clock"
	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/smallbiznis/tallybridge/internal/ledger/domain"
	"github.com/smallbiznis/tallybridge/internal/ledger/repository"
	syncdomain "github.com/smallbiznis/tallybridge/internal/synclog/domain"
	syncrepo "github.com/smallbiznis/tallybridge/internal/synclog/repository"
	synclog "github.com/smallbiznis/tallybridge/internal/synclog/service"
	"github.com/smallbiznis/tallybridge/internal/tally"
	"github.com/smallbiznis/tallybridge/internal/tally/message"
	"github.com/smallbiznis/tallybridge/internal/tally/response"
	"github.com/smallbiznis/tallybridge/internal/tally/tallytest"
	"github.com/smallbiznis/tallybridge/internal/tally/transport"
	"github.com/smallbiznis/tallybridge/pkg/db"
	"github.com/smallbiznis/tallybridge/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
	logs  syncdomain.Service
}

func newFixture(t *testing.T, tallyURL string) fixture {
	t.Helper()
	return newFixtureWithRepo(t, tallyURL, repository.Provide())
}

func newFixtureWithRepo(t *testing.T, tallyURL string, repo domain.Repository) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Ledger{}, &syncdomain.SyncLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC))
	cfg := config.TallyConfig{
		Host:           tallyURL,
		CompanyName:    "DevCompany",
		SalesAccount:   "Sales",
		RequestTimeout: time.Second,
		ProbeTimeout:   time.Second,
		MaxAttempts:    1,
	}
	gateway := tally.NewGateway(
		message.NewBuilder(cfg.CompanyName, cfg.SalesAccount, clk),
		transport.NewClient(cfg, log, nil),
		response.NewMarkerClassifier(),
		cfg,
		log,
	)

	logs := synclog.New(synclog.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: syncrepo.Provide()})
	svc := New(Params{
		DB:       conn,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     repo,
		Gateway:  gateway,
		Recorder: synclog.NewRecorder(logs, log),
	})
	return fixture{db: conn, node: node, clock: clk, svc: svc, logs: logs}
}

func (f fixture) onlyLog(t *testing.T) syncdomain.Response {
	t.Helper()
	res, err := f.logs.List(context.Background(), syncdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, res.Logs, 1)
	return res.Logs[0]
}

func (f fixture) insertSynced(t *testing.T, name string) domain.Ledger {
	t.Helper()
	now := f.clock.Now()
	guid := name
	ledger := domain.Ledger{
		ID:          f.node.Generate(),
		LedgerName:  name,
		ParentGroup: domain.DefaultParentGroup,
		IsActive:    true,
		TallyGUID:   &guid,
		SyncedAt:    &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repository.Provide().Insert(context.Background(), f.db, &ledger))
	return ledger
}

func TestCreateSyncsToTally(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Online(http.StatusOK, tallytest.Created))
	f := newFixture(t, srv.URL)

	res, err := f.svc.Create(context.Background(), domain.CreateLedgerRequest{
		LedgerName:     "Acme Corp",
		OpeningBalance: decimal.NewFromInt(-500),
	})
	require.NoError(t, err)

	assert.True(t, res.TallySync.Success)
	assert.Equal(t, tally.MsgLedgerCreated, res.TallySync.Message)
	require.NotNil(t, res.Ledger.TallyGUID)
	assert.Equal(t, "Acme Corp", *res.Ledger.TallyGUID)
	assert.NotNil(t, res.Ledger.SyncedAt)
	assert.Nil(t, res.Ledger.ErrorMessage)

	body := srv.Last()
	assert.Contains(t, body, "<PARENT>Sundry Debtors</PARENT>")
	assert.Contains(t, body, "<OPENINGBALANCE>500.00</OPENINGBALANCE>")
	assert.Contains(t, body, "<OPENINGBALANCETYPE>Cr</OPENINGBALANCETYPE>")
	assert.NotContains(t, body, "<ADDRESS.LIST>")
	assert.NotContains(t, body, "<PARTYGSTIN>")

	stored, err := f.svc.Get(context.Background(), res.Ledger.ID)
	require.NoError(t, err)
	assert.True(t, stored.Synced())
	assert.True(t, decimal.NewFromInt(-500).Equal(stored.OpeningBalance))

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.TypeLedger, entry.SyncType)
	assert.Equal(t, syncdomain.StatusSuccess, entry.Status)
	assert.Equal(t, 1, entry.RecordsProcessed)
	assert.NotNil(t, entry.EndTime)
}

func TestCreateWhenTallyUnreachable(t *testing.T) {
	f := newFixture(t, tallytest.ClosedURL(t))

	res, err := f.svc.Create(context.Background(), domain.CreateLedgerRequest{LedgerName: "Acme Corp"})
	require.NoError(t, err)

	assert.False(t, res.TallySync.Success)
	assert.True(t, strings.HasPrefix(res.TallySync.Message, "Failed to create ledger: Cannot connect to Tally"))

	stored, err := f.svc.Get(context.Background(), res.Ledger.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SyncedAt)
	assert.Nil(t, stored.TallyGUID)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, res.TallySync.Message, *stored.ErrorMessage)

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.StatusFailed, entry.Status)
	assert.Equal(t, 0, entry.RecordsProcessed)
	require.NotNil(t, entry.ErrorMessage)
}

func TestCreateRejectedByTally(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Online(http.StatusOK,
		"<RESPONSE><LINEERROR>Group 'Nowhere' does not exist</LINEERROR></RESPONSE>"))
	f := newFixture(t, srv.URL)

	res, err := f.svc.Create(context.Background(), domain.CreateLedgerRequest{LedgerName: "Acme", ParentGroup: "Nowhere"})
	require.NoError(t, err)

	assert.False(t, res.TallySync.Success)
	assert.Equal(t, "Group 'Nowhere' does not exist", res.TallySync.Message)
	require.NotNil(t, res.Ledger.ErrorMessage)
	assert.Nil(t, res.Ledger.SyncedAt)
	assert.Equal(t, syncdomain.StatusFailed, f.onlyLog(t).Status)
}

func TestCreateValidation(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Online(http.StatusOK, tallytest.Created))
	f := newFixture(t, srv.URL)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, domain.CreateLedgerRequest{LedgerName: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = f.svc.Create(ctx, domain.CreateLedgerRequest{LedgerName: "Acme"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, domain.CreateLedgerRequest{LedgerName: "Acme"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestDeleteNeverSyncedSkipsTally(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Online(http.StatusOK, tallytest.Deleted))
	f := newFixture(t, srv.URL)
	ctx := context.Background()

	ledger := domain.Ledger{
		ID:          f.node.Generate(),
		LedgerName:  "Local Only",
		ParentGroup: domain.DefaultParentGroup,
		IsActive:    true,
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}
	require.NoError(t, repository.Provide().Insert(ctx, f.db, &ledger))

	res, err := f.svc.Delete(ctx, ledger.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, srv.Count())
	assert.Equal(t, domain.MsgDeletedLocalOnly, res.Message)
	assert.Equal(t, domain.MsgNeverSynced, res.Details.Message)

	_, err = f.svc.Get(ctx, ledger.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.TypeLedgerDelete, entry.SyncType)
	assert.Equal(t, syncdomain.StatusSuccess, entry.Status)
	assert.Equal(t, 0, entry.RecordsProcessed)
	assert.Equal(t, true, entry.Details["skipped"])
}

func TestDeleteSyncedLedger(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Reply(http.StatusOK, tallytest.Deleted))
	f := newFixture(t, srv.URL)
	ctx := context.Background()
	ledger := f.insertSynced(t, "Acme Corp")

	res, err := f.svc.Delete(ctx, ledger.ID)
	require.NoError(t, err)

	assert.Equal(t, "Ledger deleted successfully. "+tally.MsgLedgerDeleted, res.Message)
	assert.True(t, res.Details.Success)
	assert.Contains(t, srv.Last(), `ACTION="Delete"`)
	assert.Equal(t, 1, f.onlyLog(t).RecordsProcessed)
}

func TestDeleteSyncedLedgerMissingInTally(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Reply(http.StatusOK, tallytest.NotFound))
	f := newFixture(t, srv.URL)
	ctx := context.Background()
	ledger := f.insertSynced(t, "Acme Corp")

	res, err := f.svc.Delete(ctx, ledger.ID)
	require.NoError(t, err)

	assert.True(t, res.Details.Success)
	assert.True(t, res.Details.NotFound)
	_, err = f.svc.Get(ctx, ledger.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.StatusSuccess, entry.Status)
	assert.Equal(t, true, entry.Details["not_found"])
}

func TestDeleteSyncedLedgerWhenTallyUnreachable(t *testing.T) {
	f := newFixture(t, tallytest.ClosedURL(t))
	ctx := context.Background()
	ledger := f.insertSynced(t, "Acme Corp")

	res, err := f.svc.Delete(ctx, ledger.ID)
	require.NoError(t, err)

	assert.False(t, res.Details.Success)
	assert.Contains(t, res.Message, "Tally failed: Cannot connect to Tally")
	_, err = f.svc.Get(ctx, ledger.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, syncdomain.StatusFailed, f.onlyLog(t).Status)
}

func TestDeleteUnknownLedger(t *testing.T) {
	f := newFixture(t, tallytest.ClosedURL(t))
	_, err := f.svc.Delete(context.Background(), 12345)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

const ledgerExport = `<ENVELOPE><BODY><DATA><COLLECTION>
<LEDGER NAME="Acme Corp"><NAME>Acme Corp</NAME><PARENT>Sundry Debtors</PARENT><CLOSINGBALANCE>1,250.00 Dr</CLOSINGBALANCE></LEDGER>
<LEDGER NAME="Globex"><NAME>Globex</NAME><PARENT>Sundry Creditors</PARENT><OPENINGBALANCE>100.00</OPENINGBALANCE><CLOSINGBALANCE>300 Cr</CLOSINGBALANCE></LEDGER>
<LEDGER NAME="Initech"><NAME>Initech</NAME><PARENT>Sundry Debtors</PARENT><CLOSINGBALANCE>75.50 Dr</CLOSINGBALANCE></LEDGER>
</COLLECTION></DATA></BODY></ENVELOPE>`

func TestSyncFromTallyUpserts(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Reply(http.StatusOK, ledgerExport))
	f := newFixture(t, srv.URL)
	ctx := context.Background()

	existing, err := f.svc.Create(ctx, domain.CreateLedgerRequest{LedgerName: "Acme Corp", ParentGroup: "Old Group"})
	require.NoError(t, err)

	res, err := f.svc.SyncFromTally(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)

	local, err := repository.Provide().Count(ctx, f.db, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), local)

	updated, err := f.svc.Get(ctx, existing.Ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sundry Debtors", updated.ParentGroup)
	assert.True(t, decimal.NewFromInt(1250).Equal(updated.ClosingBalance))
	assert.True(t, updated.Synced())
	assert.Nil(t, updated.ErrorMessage)

	list, err := f.svc.List(ctx, domain.ListLedgerRequest{Search: "Globex"})
	require.NoError(t, err)
	require.Len(t, list.Ledgers, 1)
	assert.Equal(t, "Sundry Creditors", list.Ledgers[0].ParentGroup)
	assert.True(t, decimal.NewFromInt(-300).Equal(list.Ledgers[0].ClosingBalance))

	logs, err := f.logs.List(ctx, syncdomain.ListRequest{SyncType: string(syncdomain.TypeManual)})
	require.NoError(t, err)
	require.Len(t, logs.Logs, 1)
	assert.Equal(t, syncdomain.StatusSuccess, logs.Logs[0].Status)
	assert.Equal(t, 3, logs.Logs[0].RecordsProcessed)
}

type failingInsertRepo struct {
	domain.Repository
	failOn  int
	inserts int
}

func (r *failingInsertRepo) Insert(ctx context.Context, db *gorm.DB, ledger *domain.Ledger) error {
	r.inserts++
	if r.inserts == r.failOn {
		return errors.New("disk I/O error")
	}
	return r.Repository.Insert(ctx, db, ledger)
}

func TestSyncFromTallyStopsAtFirstFailureAndKeepsEarlierWrites(t *testing.T) {
	srv := tallytest.NewServer(t, tallytest.Reply(http.StatusOK, ledgerExport))
	f := newFixtureWithRepo(t, srv.URL, &failingInsertRepo{Repository: repository.Provide(), failOn: 2})
	ctx := context.Background()
	existing := f.insertSynced(t, "Acme Corp")

	res, err := f.svc.SyncFromTally(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, res.Count)

	updated, err := f.svc.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1250).Equal(updated.ClosingBalance))

	list, err := f.svc.List(ctx, domain.ListLedgerRequest{Search: "Globex"})
	require.NoError(t, err)
	assert.Len(t, list.Ledgers, 1)

	list, err = f.svc.List(ctx, domain.ListLedgerRequest{Search: "Initech"})
	require.NoError(t, err)
	assert.Empty(t, list.Ledgers)

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.TypeManual, entry.SyncType)
	assert.Equal(t, syncdomain.StatusFailed, entry.Status)
	assert.Equal(t, 2, entry.RecordsProcessed)
	require.NotNil(t, entry.ErrorMessage)
	assert.Equal(t, "disk I/O error", *entry.ErrorMessage)
	assert.Equal(t, "Initech", entry.Details["ledger_name"])
}

// slowTally answers probes at once and holds every other envelope.
func slowTally(delay time.Duration, reply string) tallytest.Handler {
	return func(req string) (int, string) {
		if tallytest.IsProbe(req) {
			return http.StatusOK, tallytest.ProbeOK
		}
		time.Sleep(delay)
		return http.StatusOK, reply
	}
}

func TestCreateRecordsOutcomeWhenCallerGivesUp(t *testing.T) {
	srv := tallytest.NewServer(t, slowTally(300*time.Millisecond, tallytest.Created))
	f := newFixture(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := f.svc.Create(ctx, domain.CreateLedgerRequest{LedgerName: "Acme Corp"})
	require.NoError(t, err)
	assert.False(t, res.TallySync.Success)
	assert.True(t, strings.HasPrefix(res.TallySync.Message, "Failed to create ledger:"))

	stored, err := f.svc.Get(context.Background(), res.Ledger.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.SyncedAt)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, res.TallySync.Message, *stored.ErrorMessage)

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.StatusFailed, entry.Status)
	assert.NotNil(t, entry.EndTime)
}

func TestDeleteCompletesWhenCallerGivesUp(t *testing.T) {
	srv := tallytest.NewServer(t, slowTally(300*time.Millisecond, tallytest.Deleted))
	f := newFixture(t, srv.URL)
	ledger := f.insertSynced(t, "Acme Corp")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := f.svc.Delete(ctx, ledger.ID)
	require.NoError(t, err)
	assert.False(t, res.Details.Success)

	_, err = f.svc.Get(context.Background(), ledger.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.StatusFailed, entry.Status)
	assert.NotNil(t, entry.EndTime)
}

func TestSyncFromTallyUnreachable(t *testing.T) {
	f := newFixture(t, tallytest.ClosedURL(t))

	_, err := f.svc.SyncFromTally(context.Background())
	require.Error(t, err)
	assert.Equal(t, transport.KindConnectionRefused, transport.KindOf(err))

	entry := f.onlyLog(t)
	assert.Equal(t, syncdomain.TypeManual, entry.SyncType)
	assert.Equal(t, syncdomain.StatusFailed, entry.Status)
}

func TestListSearchAndPagination(t *testing.T) {
	f := newFixture(t, tallytest.ClosedURL(t))
	ctx := context.Background()

	for _, name := range []string{"Alpha Traders", "Beta Traders", "Gamma Stores"} {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Create(ctx, domain.CreateLedgerRequest{LedgerName: name})
		require.NoError(t, err)
	}

	res, err := f.svc.List(ctx, domain.ListLedgerRequest{Search: "Traders"})
	require.NoError(t, err)
	require.Len(t, res.Ledgers, 2)
	assert.Equal(t, "Beta Traders", res.Ledgers[0].LedgerName)

	res, err = f.svc.List(ctx, domain.ListLedgerRequest{SortBy: "ledger_name", SortOrder: "ASC"})
	require.NoError(t, err)
	require.Len(t, res.Ledgers, 3)
	assert.Equal(t, "Alpha Traders", res.Ledgers[0].LedgerName)

	res, err = f.svc.List(ctx, domain.ListLedgerRequest{Page: pageOf(2, 2)})
	require.NoError(t, err)
	require.Len(t, res.Ledgers, 1)
	assert.Equal(t, int64(3), res.Pagination.Total)
	assert.Equal(t, int64(2), res.Pagination.Pages)

	count, err := f.svc.Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func pageOf(page, limit int) pagination.Page {
	return pagination.Page{Page: page, Limit: limit}
}
