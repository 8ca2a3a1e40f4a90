// Package telemetry exports scenario runs as OpenTelemetry spans. Each run is
// one span carrying the scenario, seed, kernel counters and reported figures;
// the stdout exporter writes them as JSON to any io.Writer or file.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/inference-sim/desim/sim/scenario"
	simtrace "github.com/inference-sim/desim/sim/trace"
)

const instrumentationName = "github.com/inference-sim/desim"

// Exporter owns a tracer provider backed by the stdout exporter.
type Exporter struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	closer   io.Closer
}

// New creates an exporter writing spans to w.
func New(serviceName, serviceVersion string, w io.Writer) (*Exporter, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating stdout span exporter: %w", err)
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry resource: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	return &Exporter{provider: tp, tracer: tp.Tracer(instrumentationName)}, nil
}

// NewFile is New writing to a freshly created file at path.
func NewFile(serviceName, serviceVersion, path string) (*Exporter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating span output: %w", err)
	}
	e, err := New(serviceName, serviceVersion, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	e.closer = f
	return e, nil
}

// Shutdown flushes pending spans and closes the output file, if any.
func (e *Exporter) Shutdown(ctx context.Context) error {
	err := e.provider.Shutdown(ctx)
	if e.closer != nil {
		if cerr := e.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Span is one scenario run in flight.
type Span struct {
	span trace.Span
}

// StartRun opens the span for a run of the named scenario.
func (e *Exporter) StartRun(ctx context.Context, name string, seed int64) (context.Context, *Span) {
	ctx, span := e.tracer.Start(ctx, "scenario "+name, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("scenario.name", name),
		attribute.Int64("scenario.seed", seed),
	)
	return ctx, &Span{span: span}
}

// RecordResult attaches the kernel counters and the scenario's figures.
func (s *Span) RecordResult(res *scenario.Result) {
	if s == nil || res == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Float64("sim.until", res.Until),
		attribute.Float64("sim.end_time", res.EndTime),
		attribute.Int64("sim.steps", res.Steps),
		attribute.Int("scenario.transcript_lines", len(res.Transcript)),
	}
	for _, st := range res.Stats {
		attrs = append(attrs, attribute.Float64("stat."+st.Name, st.Value))
	}
	s.span.SetAttributes(attrs...)
}

// RecordSummary attaches the trace summary as a span event.
func (s *Span) RecordSummary(sum *simtrace.TraceSummary) {
	if s == nil || sum == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("trace.run_id", sum.RunID),
		attribute.Int("trace.events", sum.TotalEvents),
		attribute.Int("trace.failed_events", sum.FailedEvents),
		attribute.Int64("trace.dropped_events", sum.DroppedEvents),
		attribute.Int("trace.processes_started", sum.ProcessesStarted),
		attribute.Int("trace.processes_done", sum.ProcessesDone),
		attribute.Int("trace.processes_failed", sum.ProcessesFailed),
	}
	for _, kind := range slices.Sorted(maps.Keys(sum.KindDistribution)) {
		attrs = append(attrs, attribute.Int("trace.kind."+kind, sum.KindDistribution[kind]))
	}
	s.span.AddEvent("trace summary", trace.WithAttributes(attrs...))
}

// End records err (or success) and closes the span.
func (s *Span) End(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
