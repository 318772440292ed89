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
	periodsConfirmed    metric.Int64Counter
	royaltyCalculated   metric.Int64Counter
	inboundReports      metric.Int64Counter
	mappingDemotions    metric.Int64Counter
	guaranteeShortfalls metric.Int64Counter
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
		name = "regalia"
	}
	meter := provider.Meter(name)

	periodsConfirmed, err := meter.Int64Counter("regalia_sales_periods_confirmed_total")
	if err != nil {
		return nil, err
	}
	royaltyCalculated, err := meter.Int64Counter("regalia_royalty_calculated_cents_total")
	if err != nil {
		return nil, err
	}
	inboundReports, err := meter.Int64Counter("regalia_inbound_reports_total")
	if err != nil {
		return nil, err
	}
	mappingDemotions, err := meter.Int64Counter("regalia_mapping_demotions_total")
	if err != nil {
		return nil, err
	}
	guaranteeShortfalls, err := meter.Int64Counter("regalia_guarantee_shortfalls_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		periodsConfirmed:    periodsConfirmed,
		royaltyCalculated:   royaltyCalculated,
		inboundReports:      inboundReports,
		mappingDemotions:    mappingDemotions,
		guaranteeShortfalls: guaranteeShortfalls,
	}, nil
}

// RecordPeriodConfirmed increments confirmed period counts.
func (m *Metrics) RecordPeriodConfirmed(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.periodsConfirmed.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRoyaltyCalculated accumulates calculated royalty in cents.
func (m *Metrics) RecordRoyaltyCalculated(ctx context.Context, orgID string, cents int64) {
	if m == nil || cents < 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.royaltyCalculated.Add(ctx, cents, metric.WithAttributes(attrs...))
}

// RecordInboundReport increments inbound report counts by match confidence.
func (m *Metrics) RecordInboundReport(ctx context.Context, confidence string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("confidence", strings.TrimSpace(confidence)))
	m.inboundReports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMappingDemotion increments unique-role demotion counts.
func (m *Metrics) RecordMappingDemotion(ctx context.Context, role string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("role", strings.TrimSpace(role)))
	m.mappingDemotions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordGuaranteeShortfall increments closed-year shortfall counts.
func (m *Metrics) RecordGuaranteeShortfall(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.guaranteeShortfalls.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"org_id":      {},
	"endpoint":    {},
	"status_code": {},
	"confidence":  {},
	"role":        {},
	"reason":      {},
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
