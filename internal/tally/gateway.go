package tally

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	"github.com/smallbiznis/tallybridge/internal/tally/message"
	"github.com/smallbiznis/tallybridge/internal/tally/response"
	"github.com/smallbiznis/tallybridge/internal/tally/transport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	MsgLedgerCreated      = "Ledger created successfully in Tally"
	MsgLedgerDeleted      = "Ledger deleted successfully from Tally"
	MsgLedgerAbsent       = "Ledger does not exist in Tally (nothing to delete)"
	MsgInvoiceCreated     = "Invoice created successfully in Tally"
	MsgInvoiceDeleted     = "Invoice deleted successfully from Tally"
	MsgInvoiceAbsent      = "Invoice does not exist in Tally (nothing to delete)"
	MsgSalesLedgerExists  = "Sales ledger already exists in Tally"
	MsgSalesLedgerCreated = "Sales ledger created in Tally"
	msgTallyReturnedError = "Tally returned an error"
)

// SalesAccountCandidates are the ledger names commonly used for sales in
// Tally companies, in lookup order.
var SalesAccountCandidates = []string{
	"Sales",
	"Sales Account",
	"Sales - Domestic",
	"Sales Income",
	"Direct Income",
	"Sales Ledger",
	"Sales A/c",
}

// Result is the outcome of one remote operation that reached Tally.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	RemoteID string `json:"tallyGuid,omitempty"`
	NotFound bool   `json:"notFound,omitempty"`
}

// Transport is the subset of transport.Client the gateway needs.
type Transport interface {
	Send(ctx context.Context, operation, payload string) (string, error)
	Probe(ctx context.Context, payload string) error
}

type Params struct {
	fx.In

	Config     config.Config
	Log        *zap.Logger
	Builder    *message.Builder
	Transport  Transport
	Classifier response.Classifier
}

// Gateway composes envelope building, transport and classification into
// the operations the ledger and invoice services call.
type Gateway struct {
	builder     *message.Builder
	transport   Transport
	classifier  response.Classifier
	log         *zap.Logger
	maxAttempts int
	backoff     time.Duration
	sleep       func(context.Context, time.Duration) error
}

func New(p Params) *Gateway {
	return NewGateway(p.Builder, p.Transport, p.Classifier, p.Config.Tally, p.Log)
}

func NewGateway(b *message.Builder, t Transport, c response.Classifier, cfg config.TallyConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = response.NewMarkerClassifier()
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Gateway{
		builder:     b,
		transport:   t,
		classifier:  c,
		log:         log.Named("tally.gateway"),
		maxAttempts: attempts,
		backoff:     cfg.RetryBackoff,
		sleep:       sleepContext,
	}
}

func (g *Gateway) Company() string { return g.builder.Company() }

func (g *Gateway) SalesAccount() string { return g.builder.SalesAccount() }

// Ping checks that the Tally listener answers the probe envelope.
func (g *Gateway) Ping(ctx context.Context) error {
	payload, err := g.builder.Probe()
	if err != nil {
		return err
	}
	return g.retry(ctx, "probe", func() error {
		return g.transport.Probe(ctx, payload)
	})
}

// CreateLedger probes Tally and imports one ledger master.
func (g *Gateway) CreateLedger(ctx context.Context, l message.Ledger) (Result, error) {
	if err := g.Ping(ctx); err != nil {
		return Result{}, err
	}
	payload, err := g.builder.LedgerCreate(l)
	if err != nil {
		return Result{}, err
	}
	body, err := g.send(ctx, "ledger_create", payload)
	if err != nil {
		return Result{}, err
	}

	res := g.classify(ctx, "ledger_create", body)
	if !res.Success {
		return Result{Message: failureMessage(res)}, nil
	}
	return Result{Success: true, Message: MsgLedgerCreated, RemoteID: strings.TrimSpace(l.Name)}, nil
}

// DeleteLedger removes a ledger master. A ledger Tally does not know is
// reported as a successful, NotFound result.
func (g *Gateway) DeleteLedger(ctx context.Context, name string) (Result, error) {
	payload, err := g.builder.LedgerDelete(name)
	if err != nil {
		return Result{}, err
	}
	return g.remove(ctx, "ledger_delete", payload, MsgLedgerDeleted, MsgLedgerAbsent)
}

// CreateVoucher probes Tally and imports one accounting voucher.
func (g *Gateway) CreateVoucher(ctx context.Context, v message.Voucher) (Result, error) {
	if err := g.Ping(ctx); err != nil {
		return Result{}, err
	}
	payload, err := g.builder.VoucherCreate(v)
	if err != nil {
		return Result{}, err
	}
	body, err := g.send(ctx, "voucher_create", payload)
	if err != nil {
		return Result{}, err
	}

	res := g.classify(ctx, "voucher_create", body)
	if !res.Success {
		return Result{Message: failureMessage(res)}, nil
	}
	return Result{Success: true, Message: MsgInvoiceCreated, RemoteID: strings.TrimSpace(v.VoucherNumber)}, nil
}

// DeleteVoucher removes a voucher by number, treating an unknown voucher as
// already deleted.
func (g *Gateway) DeleteVoucher(ctx context.Context, voucherType, number string) (Result, error) {
	payload, err := g.builder.VoucherDelete(voucherType, number)
	if err != nil {
		return Result{}, err
	}
	return g.remove(ctx, "voucher_delete", payload, MsgInvoiceDeleted, MsgInvoiceAbsent)
}

// FetchLedgers exports the ledger collection of the company.
func (g *Gateway) FetchLedgers(ctx context.Context) ([]response.RemoteLedger, error) {
	payload, err := g.builder.LedgerList()
	if err != nil {
		return nil, err
	}
	body, err := g.send(ctx, "ledger_list", payload)
	if err != nil {
		return nil, err
	}
	ledgers := response.ParseLedgers(body)
	logger.WithContext(ctx, g.log).Debug("fetched ledgers from tally", zap.Int("count", len(ledgers)))
	return ledgers, nil
}

// LedgerExists looks a ledger up by name.
func (g *Gateway) LedgerExists(ctx context.Context, name string) (bool, error) {
	payload, err := g.builder.LedgerLookup(name)
	if err != nil {
		return false, err
	}
	body, err := g.send(ctx, "ledger_lookup", payload)
	if err != nil {
		return false, err
	}
	return response.ContainsLedger(body, name), nil
}

// FindSalesAccount returns the first candidate sales ledger Tally knows,
// or the configured sales account when none matches.
func (g *Gateway) FindSalesAccount(ctx context.Context) string {
	log := logger.WithContext(ctx, g.log)
	for _, candidate := range SalesAccountCandidates {
		payload, err := g.builder.LedgerLookup(candidate)
		if err != nil {
			continue
		}
		body, err := g.transport.Send(ctx, "ledger_lookup", payload)
		if err != nil {
			log.Debug("sales account lookup failed", zap.String("candidate", candidate), zap.Error(err))
			if transport.KindOf(err) == transport.KindConnectionRefused {
				break
			}
			continue
		}
		if strings.Contains(body, "<LEDGERNAME>"+message.Escape(candidate)+"</LEDGERNAME>") ||
			strings.Contains(body, "<LEDGERNAME>"+candidate+"</LEDGERNAME>") {
			return candidate
		}
	}
	return g.builder.SalesAccount()
}

// EnsureSalesLedger creates the configured sales ledger unless Tally already has it.
func (g *Gateway) EnsureSalesLedger(ctx context.Context) (Result, error) {
	name := g.builder.SalesAccount()
	exists, err := g.LedgerExists(ctx, name)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return Result{Success: true, Message: MsgSalesLedgerExists, RemoteID: name}, nil
	}

	payload, err := g.builder.SalesLedger(name)
	if err != nil {
		return Result{}, err
	}
	body, err := g.send(ctx, "sales_ledger", payload)
	if err != nil {
		return Result{}, err
	}
	res := g.classify(ctx, "sales_ledger", body)
	if !res.Success {
		return Result{Message: failureMessage(res)}, nil
	}
	return Result{Success: true, Message: MsgSalesLedgerCreated, RemoteID: name}, nil
}

func (g *Gateway) remove(ctx context.Context, operation, payload, deletedMsg, absentMsg string) (Result, error) {
	body, err := g.send(ctx, operation, payload)
	if err != nil {
		var terr *transport.Error
		if errors.As(err, &terr) && terr.Kind == transport.KindHTTPStatus && response.IsNotFound(terr.Body) {
			return Result{Success: true, NotFound: true, Message: absentMsg}, nil
		}
		return Result{}, err
	}

	res := g.classify(ctx, operation, body)
	if res.Success {
		return Result{Success: true, Message: deletedMsg}, nil
	}
	if response.IsNotFound(res.Error) || response.IsNotFound(body) {
		return Result{Success: true, NotFound: true, Message: absentMsg}, nil
	}
	return Result{Message: failureMessage(res)}, nil
}

func (g *Gateway) send(ctx context.Context, operation, payload string) (string, error) {
	var body string
	err := g.retry(ctx, operation, func() error {
		var err error
		body, err = g.transport.Send(ctx, operation, payload)
		return err
	})
	return body, err
}

// retry runs fn up to maxAttempts times while it fails with a retryable
// transport error, doubling the backoff between attempts.
func (g *Gateway) retry(ctx context.Context, operation string, fn func() error) error {
	delay := g.backoff
	var err error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		err = fn()
		if err == nil || !transport.IsRetryable(err) || attempt == g.maxAttempts {
			return err
		}
		logger.WithContext(ctx, g.log).Info("retrying tally request",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return err
		}
		delay *= 2
	}
	return err
}

func (g *Gateway) classify(ctx context.Context, operation, body string) response.Result {
	res := g.classifier.Classify(body)
	if !res.Success {
		logger.WithContext(ctx, g.log).Warn("tally rejected request",
			zap.String("operation", operation),
			zap.String("error", res.Error),
			zap.String("body", body),
		)
	}
	return res
}

func failureMessage(res response.Result) string {
	if strings.TrimSpace(res.Error) == "" {
		return msgTallyReturnedError
	}
	return res.Error
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
