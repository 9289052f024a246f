package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cvcoach/internal/config"
	"cvcoach/internal/telemetry"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig holds configuration for observability
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// Metrics holds the coaching service instruments. A zero Metrics is valid
// and records nothing.
type Metrics struct {
	// LLM calls
	LLMDuration metric.Float64Histogram
	LLMErrors   metric.Int64Counter

	// Coaching flow
	SessionsCreated    metric.Int64Counter
	PhasesEntered      metric.Int64Counter
	ATSScores          metric.Int64Histogram
	OptimizerCompleted metric.Int64Counter

	// Rate limiting
	RateLimitHits metric.Int64Counter
}

var _ telemetry.Recorder = (*Metrics)(nil)

// ObservabilityManager manages OpenTelemetry setup
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager creates a new observability manager
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	if !obsConfig.Enabled {
		return &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}, nil
	}

	om := &ObservabilityManager{
		config:        obsConfig,
		fullConfig:    fullConfig,
		shutdownFuncs: make([]func(context.Context) error, 0),
	}

	res, err := om.createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}
	if err := om.initTracing(res); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if err := om.initMetrics(res); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return om, nil
}

func (om *ObservabilityManager) createResource() (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(om.config.ServiceName),
			semconv.ServiceVersion(om.config.ServiceVersion),
			attribute.String("service.instance.id", om.getServiceInstanceID()),
		),
	)
}

// initTracing sets up OpenTelemetry tracing
func (om *ObservabilityManager) initTracing(res *resource.Resource) error {
	var exporter trace.SpanExporter
	var err error

	switch {
	case om.config.ConsoleOutput:
		opts := []stdouttrace.Option{}
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		exporter, err = stdouttrace.New(opts...)
	case om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled:
		exporter, err = om.createOTLPExporter()
	default:
		exporter = &noOpSpanExporter{}
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	sampleRate := om.config.SampleRate
	if om.fullConfig != nil && !om.fullConfig.Observability.Tracing.Enabled {
		sampleRate = 0
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(sampleRate)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	om.tracerProvider = tp
	om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	return nil
}

// initMetrics sets up OpenTelemetry metrics
func (om *ObservabilityManager) initMetrics(res *resource.Resource) error {
	readers, err := om.setupMetricReaders()
	if err != nil {
		return err
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	mp := sdkmetric.NewMeterProvider(opts...)

	otel.SetMeterProvider(mp)
	om.meterProvider = mp
	om.shutdownFuncs = append(om.shutdownFuncs, mp.Shutdown)

	metrics, err := NewMetrics(mp.Meter(om.config.ServiceName))
	if err != nil {
		return err
	}
	om.metrics = metrics
	return nil
}

func (om *ObservabilityManager) setupMetricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.getMetricsCollectionInterval())))
	}

	if om.fullConfig != nil && om.fullConfig.Observability.OTLP.Enabled {
		reader, err := om.createOTLPMetricsReader()
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics reader: %w", err)
		}
		readers = append(readers, reader)
	}

	if om.config.Prometheus.Enabled {
		reader, mux, err := SetupPrometheusExporter(om.config.Prometheus)
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		if reader != nil {
			readers = append(readers, reader)
			srv, err := StartPrometheusServer(mux, om.config.Prometheus.Port)
			if err != nil {
				return nil, fmt.Errorf("failed to start Prometheus server: %w", err)
			}
			if srv != nil {
				om.shutdownFuncs = append(om.shutdownFuncs, srv.Shutdown)
			}
		}
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

// NewMetrics creates the coaching instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.LLMDuration, err = meter.Float64Histogram(
		"cvcoach_llm_duration_seconds",
		metric.WithDescription("Time spent waiting for the language model"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create LLM duration metric: %w", err)
	}
	if m.LLMErrors, err = meter.Int64Counter(
		"cvcoach_llm_errors_total",
		metric.WithDescription("Failed language model calls"),
	); err != nil {
		return nil, fmt.Errorf("failed to create LLM error metric: %w", err)
	}
	if m.SessionsCreated, err = meter.Int64Counter(
		"cvcoach_sessions_created_total",
		metric.WithDescription("Coaching sessions started"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sessions metric: %w", err)
	}
	if m.PhasesEntered, err = meter.Int64Counter(
		"cvcoach_phases_entered_total",
		metric.WithDescription("Phase the session ended a request in"),
	); err != nil {
		return nil, fmt.Errorf("failed to create phase metric: %w", err)
	}
	if m.ATSScores, err = meter.Int64Histogram(
		"cvcoach_ats_score",
		metric.WithDescription("ATS scores by moment (initial, target, final)"),
		metric.WithExplicitBucketBoundaries(10, 20, 30, 40, 50, 60, 70, 80, 90, 100),
	); err != nil {
		return nil, fmt.Errorf("failed to create ATS score metric: %w", err)
	}
	if m.OptimizerCompleted, err = meter.Int64Counter(
		"cvcoach_optimizer_completed_total",
		metric.WithDescription("Optimizer conversations that reached the end"),
	); err != nil {
		return nil, fmt.Errorf("failed to create optimizer metric: %w", err)
	}
	if m.RateLimitHits, err = meter.Int64Counter(
		"cvcoach_rate_limit_hits_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rate limit metric: %w", err)
	}
	return m, nil
}

// GetMetrics returns the metrics instance
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware returns HTTP middleware with OpenTelemetry instrumentation
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}
	return otelhttp.NewMiddleware(
		om.config.ServiceName,
		otelhttp.WithTracerProvider(om.tracerProvider),
		otelhttp.WithMeterProvider(om.meterProvider),
	)
}

// Tracer returns a tracer for the service
func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if !om.config.Enabled {
		return noop.NewTracerProvider().Tracer(name)
	}
	return otel.Tracer(name)
}

// Shutdown gracefully shuts down all observability components
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	for _, shutdown := range om.shutdownFuncs {
		if err := shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RecordCall turns an LLM call record into duration and error metrics
func (m *Metrics) RecordCall(ctx context.Context, rec telemetry.CallRecord) error {
	attrs := metric.WithAttributes(
		attribute.String("context", string(rec.Tag)),
		attribute.Bool("success", rec.Success),
	)
	if m.LLMDuration != nil {
		m.LLMDuration.Record(ctx, rec.Duration.Seconds(), attrs)
	}
	if !rec.Success && m.LLMErrors != nil {
		m.LLMErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("context", string(rec.Tag)),
			attribute.String("error_type", rec.ErrorType),
		))
	}
	return nil
}

// SessionCreated counts a new session
func (m *Metrics) SessionCreated(ctx context.Context) {
	if m.SessionsCreated != nil {
		m.SessionsCreated.Add(ctx, 1)
	}
}

// PhaseEntered counts the phase a request finished in
func (m *Metrics) PhaseEntered(ctx context.Context, phase string) {
	if m.PhasesEntered != nil {
		m.PhasesEntered.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", phase)))
	}
}

// ATSScored records a score; moment is initial, target or final
func (m *Metrics) ATSScored(ctx context.Context, moment string, score int, method string) {
	if m.ATSScores != nil {
		m.ATSScores.Record(ctx, int64(score), metric.WithAttributes(
			attribute.String("moment", moment),
			attribute.String("method", method),
		))
	}
}

// OptimizerDone counts a finished optimizer conversation
func (m *Metrics) OptimizerDone(ctx context.Context) {
	if m.OptimizerCompleted != nil {
		m.OptimizerCompleted.Add(ctx, 1)
	}
}

// RateLimitHit counts a rejected request
func (m *Metrics) RateLimitHit(ctx context.Context, by string) {
	if m.RateLimitHits != nil {
		m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("by", by)))
	}
}

type noOpSpanExporter struct{}

func (n *noOpSpanExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	return nil
}

func (n *noOpSpanExporter) Shutdown(ctx context.Context) error {
	return nil
}

// createOTLPExporter creates an OTLP HTTP trace exporter
func (om *ObservabilityManager) createOTLPExporter() (trace.SpanExporter, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlpConfig.Endpoint)}
	if otlpConfig.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return exporter, nil
}

// createOTLPMetricsReader creates an OTLP HTTP metrics reader
func (om *ObservabilityManager) createOTLPMetricsReader() (sdkmetric.Reader, error) {
	otlpConfig := om.fullConfig.Observability.OTLP

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlpConfig.Endpoint)}
	if otlpConfig.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(otlpConfig.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(otlpConfig.Headers))
	}

	exporter, err := otlpmetrichttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(om.getMetricsCollectionInterval())), nil
}

func (om *ObservabilityManager) getServiceInstanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return "cvcoach-1"
}

func (om *ObservabilityManager) getMetricsCollectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}
