// Package audit copies every placed order into the configured audit sinks.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/Zhima-Mochi/coffeeshop/internal/application"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const auditService = "audit-worker"

// Sink is a named destination for placed orders.
type Sink struct {
	Name   string
	Writer journal.Writer
}

// RecordOrderUseCase appends one event to one sink.
type RecordOrderUseCase struct {
	sink   Sink
	inst   application.Instrumentation
	writes observability.Counter // audit_sink_writes_total{sink,outcome}
}

func NewRecordOrderUseCase(sink Sink, tel observability.Observability) *RecordOrderUseCase {
	inst := application.NewInstrumentation(tel, auditService)
	return &RecordOrderUseCase{
		sink:   sink,
		inst:   inst,
		writes: inst.Observability().Metrics().Counter(observability.MAuditSinkWrites),
	}
}

var _ application.UseCase[shop.OrderPlaced, struct{}] = (*RecordOrderUseCase)(nil)

func (uc *RecordOrderUseCase) Execute(ctx context.Context, evt shop.OrderPlaced) (_ struct{}, err error) {
	useCase := "audit." + uc.sink.Name
	ctx, exec := uc.inst.Begin(ctx, useCase, "RecordOrder",
		attribute.String("audit.sink", uc.sink.Name),
		attribute.String("shop.order_id", strconv.FormatUint(evt.OrderID, 10)),
	)
	defer func() {
		outcome := application.OutcomeSuccess
		if err != nil {
			outcome = application.OutcomeError
		}
		uc.writes.Add(1, observability.L("sink", uc.sink.Name), observability.L("outcome", outcome))
		uc.inst.End(exec, err)
	}()
	exec.Field("order_id", evt.OrderID)

	if err := uc.sink.Writer.Append(ctx, evt); err != nil {
		status := "SINK_WRITE_FAILED"
		if errors.Is(err, journal.ErrDuplicate) {
			status = "DUPLICATE_ORDER_ID"
		}
		return struct{}{}, exec.Fail(status, fmt.Errorf("audit %s: %w", uc.sink.Name, err))
	}
	return struct{}{}, nil
}
