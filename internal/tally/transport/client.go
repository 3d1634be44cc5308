package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/smallbiznis/tallybridge/internal/config"
	"github.com/smallbiznis/tallybridge/internal/observability/logger"
	"github.com/smallbiznis/tallybridge/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultProbeTimeout   = 5 * time.Second
	defaultTallyPort      = "9000"
)

type Params struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

// Client posts XML envelopes to the Tally HTTP listener. It never retries.
type Client struct {
	endpoint       string
	host           string
	port           string
	requestTimeout time.Duration
	probeTimeout   time.Duration
	http           *http.Client
	log            *zap.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

func New(p Params) *Client {
	return NewClient(p.Config.Tally, p.Log, p.Metrics)
}

func NewClient(cfg config.TallyConfig, log *zap.Logger, m *metrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}

	endpoint := strings.TrimSpace(cfg.Host)
	host, port := endpoint, defaultTallyPort
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		if p := u.Port(); p != "" {
			port = p
		}
	}

	return &Client{
		endpoint:       endpoint,
		host:           host,
		port:           port,
		requestTimeout: requestTimeout,
		probeTimeout:   probeTimeout,
		http:           &http.Client{},
		log:            log.Named("tally.transport"),
		metrics:        m,
		tracer:         otel.Tracer("tallybridge/tally"),
	}
}

func (c *Client) Endpoint() string { return c.endpoint }

// Send posts a data envelope and returns the raw response body.
func (c *Client) Send(ctx context.Context, operation, payload string) (string, error) {
	return c.do(ctx, operation, payload, c.requestTimeout)
}

// Probe posts the connectivity envelope with the short probe timeout. A 2xx
// response with any body counts as reachable.
func (c *Client) Probe(ctx context.Context, payload string) error {
	body, err := c.do(ctx, "probe", payload, c.probeTimeout)
	if err != nil {
		return err
	}
	if strings.TrimSpace(body) == "" {
		return &Error{Kind: KindNoResponse, Host: c.host, Port: c.port}
	}
	return nil
}

func (c *Client) do(ctx context.Context, operation, payload string, timeout time.Duration) (string, error) {
	ctx, span := c.tracer.Start(ctx, "tally."+operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("tally.operation", operation),
		attribute.Int("tally.request_bytes", len(payload)),
	)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	body, err := c.roundTrip(ctx, payload)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	c.metrics.RecordTallyRequest(ctx, operation, outcome, elapsed)

	log := logger.WithContext(ctx, c.log).With(
		zap.String("operation", operation),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	)
	if err != nil {
		log.Warn("tally request failed", zap.String("kind", outcome), zap.Error(err))
		return "", err
	}
	log.Debug("tally response", zap.String("body", body))
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, payload string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(payload))
	if err != nil {
		return "", &Error{Kind: KindOther, Host: c.host, Port: c.port, Err: err}
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", c.classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.classify(err)
	}
	body := string(raw)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", &Error{
			Kind:       KindHTTPStatus,
			Host:       c.host,
			Port:       c.port,
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}
	return body, nil
}

func (c *Client) classify(err error) *Error {
	out := &Error{Kind: KindOther, Host: c.host, Port: c.port, Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		out.Kind = KindConnectionRefused
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, syscall.ECONNRESET):
		out.Kind = KindNoResponse
	case errors.As(err, &netErr) && netErr.Timeout():
		out.Kind = KindNoResponse
	}
	return out
}
