package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

const (
	SpanPrefix     = "UC."
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	StatusOK       = "OK"
)

// Instrumentation carries the RED instruments and base logger shared by the
// use cases of one service.
type Instrumentation struct {
	tel observability.Observability
	log observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewInstrumentation(tel observability.Observability, service string) Instrumentation {
	if tel == nil {
		tel = observability.Nop()
	}
	return Instrumentation{
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

func (i Instrumentation) Observability() observability.Observability { return i.tel }

// Logger is the base logger with the service field bound.
func (i Instrumentation) Logger() observability.Logger { return i.log }

// Execution tracks one use case run from Begin to End.
type Execution struct {
	useCase string
	span    trace.Span
	start   time.Time
	logger  observability.Logger
	outcome string
	status  string
	fields  []observability.Field
}

// Begin opens the span and binds a use-case logger into the returned context.
func (i Instrumentation) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Execution) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := i.tel.Tracer().Start(ctx, SpanPrefix+spanName, attrs...)

	logger := logctx.FromOr(ctx, i.log).With(observability.F("use_case", useCase))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, &Execution{
		useCase: useCase,
		span:    span,
		start:   time.Now(),
		logger:  logger,
		outcome: OutcomeSuccess,
		status:  StatusOK,
	}
}

// Span exposes the use case span for attributes and events.
func (e *Execution) Span() trace.Span { return e.span }

// Logger is the use-case scoped logger.
func (e *Execution) Logger() observability.Logger { return e.logger }

// Fail marks the run as failed with an UPPER_SNAKE status and returns err.
func (e *Execution) Fail(status string, err error) error {
	e.outcome, e.status = OutcomeError, status
	return err
}

// Status overrides the status of a successful run, e.g. EVENT_PUBLISH_FAILED.
func (e *Execution) Status(status string) { e.status = status }

// Field adds a field to the final use_case_done line.
func (e *Execution) Field(k string, v any) { e.fields = append(e.fields, observability.F(k, v)) }

// End closes the span, records RED metrics and writes use_case_done.
func (i Instrumentation) End(e *Execution, err error) {
	if err != nil && e.outcome != OutcomeError {
		e.outcome, e.status = OutcomeError, "ERROR"
	}
	lat := time.Since(e.start).Seconds()

	if err != nil {
		e.span.RecordError(err)
		e.span.SetStatus(codes.Error, e.status)
	} else {
		e.span.SetStatus(codes.Ok, e.status)
	}
	e.span.End()

	i.reqCounter.Add(1,
		observability.L("use_case", e.useCase),
		observability.L("outcome", e.outcome),
	)
	i.durHistogram.Observe(lat, observability.L("use_case", e.useCase))

	fields := append([]observability.Field{
		observability.F("outcome", e.outcome),
		observability.F("status", e.status),
		observability.F("latency_seconds", lat),
	}, e.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	e.logger.Info("use_case_done", fields...)
}
