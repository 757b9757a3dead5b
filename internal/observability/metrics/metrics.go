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

type Config struct {
	Enabled  bool
	Endpoint string
	Protocol string
	Service  string
	Interval time.Duration
}

// Metrics holds the business counters. A nil *Metrics records nothing, so
// callers never need to check whether metrics are wired.
type Metrics struct {
	invoicesSaved     metric.Int64Counter
	documentsRendered metric.Int64Counter
	exportFallbacks   metric.Int64Counter
	emailsSent        metric.Int64Counter
	rateLimitDenied   metric.Int64Counter
}

// NewProvider returns a noop provider unless OTLP export is enabled.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.Protocol, cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{OnStop: provider.Shutdown})
	}
	if log != nil {
		log.Info("otlp metrics export enabled",
			zap.String("endpoint", cfg.Endpoint),
			zap.String("protocol", cfg.Protocol),
			zap.Duration("interval", interval),
		)
	}
	return provider, nil
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	service := strings.TrimSpace(cfg.Service)
	if service == "" {
		service = "bizadmin"
	}
	meter := provider.Meter(service)

	m := &Metrics{}
	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&m.invoicesSaved, "bizadmin_invoices_saved_total", "Invoices created or updated."},
		{&m.documentsRendered, "bizadmin_documents_rendered_total", "Invoice documents served, by format."},
		{&m.exportFallbacks, "bizadmin_export_fallbacks_total", "PDF exports served as HTML instead."},
		{&m.emailsSent, "bizadmin_invoice_emails_total", "Invoice emails, by outcome."},
		{&m.rateLimitDenied, "bizadmin_rate_limit_denied_total", "Requests rejected by a rate limit."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.target = counter
	}
	return m, nil
}

// RecordInvoiceSaved takes "create" or "update".
func (m *Metrics) RecordInvoiceSaved(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	add(ctx, m.invoicesSaved, attribute.String("operation", operation))
}

func (m *Metrics) RecordDocumentRendered(ctx context.Context, format string, cached bool) {
	if m == nil {
		return
	}
	add(ctx, m.documentsRendered, attribute.String("format", format), attribute.Bool("cached", cached))
}

func (m *Metrics) RecordExportFallback(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	add(ctx, m.exportFallbacks, attribute.String("reason", reason))
}

func (m *Metrics) RecordEmailSent(ctx context.Context, status string) {
	if m == nil {
		return
	}
	add(ctx, m.emailsSent, attribute.String("status", status))
}

func (m *Metrics) RecordRateLimitDenied(ctx context.Context, endpoint, reason string) {
	if m == nil {
		return
	}
	add(ctx, m.rateLimitDenied, attribute.String("endpoint", endpoint), attribute.String("reason", reason))
}

func add(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	counter.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attrs...)...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// Owner ids, invoice numbers and other unbounded values never become labels.
var allowedLabelKeys = map[attribute.Key]bool{
	"endpoint":    true,
	"status_code": true,
	"operation":   true,
	"format":      true,
	"cached":      true,
	"status":      true,
	"reason":      true,
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if !allowedLabelKeys[attr.Key] {
			continue
		}
		if attr.Value.Type() == attribute.STRING {
			attr = attr.Key.String(strings.TrimSpace(attr.Value.AsString()))
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
