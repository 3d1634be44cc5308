package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	tallyRequests metric.Int64Counter
	tallyLatency  metric.Float64Histogram
	syncRuns      metric.Int64Counter
	syncRecords   metric.Int64Counter
	jobRuns       metric.Int64Counter
	jobDuration   metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tallybridge"
	}
	meter := provider.Meter(name)

	tallyRequests, err := meter.Int64Counter("tallybridge_tally_requests_total")
	if err != nil {
		return nil, err
	}
	tallyLatency, err := meter.Float64Histogram("tallybridge_tally_request_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}
	syncRuns, err := meter.Int64Counter("tallybridge_sync_runs_total")
	if err != nil {
		return nil, err
	}
	syncRecords, err := meter.Int64Counter("tallybridge_sync_records_total")
	if err != nil {
		return nil, err
	}

	jobRuns, err := meter.Int64Counter("tallybridge_scheduler_job_runs_total")
	if err != nil {
		return nil, err
	}
	jobDuration, err := meter.Float64Histogram("tallybridge_scheduler_job_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 30, 60, 120),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		tallyRequests: tallyRequests,
		tallyLatency:  tallyLatency,
		syncRuns:      syncRuns,
		syncRecords:   syncRecords,
		jobRuns:       jobRuns,
		jobDuration:   jobDuration,
	}, nil
}

// RecordTallyRequest counts one round trip to the Tally listener.
func (m *Metrics) RecordTallyRequest(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.tallyRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.tallyLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSyncRun counts a closed sync log.
func (m *Metrics) RecordSyncRun(ctx context.Context, syncType, status string, records int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("sync_type", strings.TrimSpace(syncType)),
		attribute.String("status", strings.TrimSpace(status)),
	)
	m.syncRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	if records > 0 {
		m.syncRecords.Add(ctx, int64(records), metric.WithAttributes(attrs...))
	}
}

// RecordJob counts one scheduler job execution.
func (m *Metrics) RecordJob(ctx context.Context, job, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("job", strings.TrimSpace(job)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.jobRuns.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.jobDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"operation":   {},
	"job":         {},
	"outcome":     {},
	"sync_type":   {},
	"status":      {},
	"status_code": {},
	"route":       {},
	"method":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
