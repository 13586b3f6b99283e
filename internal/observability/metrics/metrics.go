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
	allocations        metric.Int64Counter
	allocationRetries  metric.Int64Counter
	allocationFailures metric.Int64Counter
	allocationLatency  metric.Float64Histogram
	sequenceResets     metric.Int64Counter
	documentsIssued    metric.Int64Counter
	documentsDeleted   metric.Int64Counter
	duplicateNumbers   metric.Int64Counter
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
		name = "motorbook"
	}
	meter := provider.Meter(name)

	allocations, err := meter.Int64Counter("motorbook_sequence_allocations_total")
	if err != nil {
		return nil, err
	}
	allocationRetries, err := meter.Int64Counter("motorbook_sequence_allocation_retries_total")
	if err != nil {
		return nil, err
	}
	allocationFailures, err := meter.Int64Counter("motorbook_sequence_allocation_failures_total")
	if err != nil {
		return nil, err
	}
	allocationLatency, err := meter.Float64Histogram("motorbook_sequence_allocation_seconds",
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	sequenceResets, err := meter.Int64Counter("motorbook_sequence_resets_total")
	if err != nil {
		return nil, err
	}
	documentsIssued, err := meter.Int64Counter("motorbook_documents_issued_total")
	if err != nil {
		return nil, err
	}
	documentsDeleted, err := meter.Int64Counter("motorbook_documents_deleted_total")
	if err != nil {
		return nil, err
	}
	duplicateNumbers, err := meter.Int64Counter("motorbook_document_duplicate_numbers_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		allocations:        allocations,
		allocationRetries:  allocationRetries,
		allocationFailures: allocationFailures,
		allocationLatency:  allocationLatency,
		sequenceResets:     sequenceResets,
		documentsIssued:    documentsIssued,
		documentsDeleted:   documentsDeleted,
		duplicateNumbers:   duplicateNumbers,
	}, nil
}

// NewNoop returns instruments backed by the noop provider, for tests and tools.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordAllocation counts a successful allocation and its latency.
func (m *Metrics) RecordAllocation(ctx context.Context, key string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("sequence_key", strings.TrimSpace(key)))
	m.allocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.allocationLatency.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAllocationRetry counts a lost race that is about to be retried.
func (m *Metrics) RecordAllocationRetry(ctx context.Context, key string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("sequence_key", strings.TrimSpace(key)))
	m.allocationRetries.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAllocationFailure counts allocations surfaced as failed.
func (m *Metrics) RecordAllocationFailure(ctx context.Context, key, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("sequence_key", strings.TrimSpace(key)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.allocationFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordSequenceReset counts administrative counter resets.
func (m *Metrics) RecordSequenceReset(ctx context.Context, key string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("sequence_key", strings.TrimSpace(key)))
	m.sequenceResets.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDocumentIssued counts persisted documents.
func (m *Metrics) RecordDocumentIssued(ctx context.Context, documentType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("document_type", strings.TrimSpace(documentType)))
	m.documentsIssued.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDocumentsDeleted counts rows removed by cleanup.
func (m *Metrics) RecordDocumentsDeleted(ctx context.Context, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.documentsDeleted.Add(ctx, count)
}

// RecordDuplicateNumber counts unique violations on document numbers.
func (m *Metrics) RecordDuplicateNumber(ctx context.Context, documentType string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("document_type", strings.TrimSpace(documentType)))
	m.duplicateNumbers.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"sequence_key":  {},
	"document_type": {},
	"route":         {},
	"method":        {},
	"status_code":   {},
	"reason":        {},
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
