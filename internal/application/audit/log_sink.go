package audit

import (
	"context"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability/logctx"
)

// LogWriter writes each order as a structured order_recorded line.
type LogWriter struct {
	log observability.Logger
}

func NewLogWriter(log observability.Logger) *LogWriter {
	if log == nil {
		log = observability.NopLogger()
	}
	return &LogWriter{log: log}
}

func (w *LogWriter) Append(ctx context.Context, e shop.OrderPlaced) error {
	logctx.FromOr(ctx, w.log).Info("order_recorded",
		observability.F("order_id", e.OrderID),
		observability.F("customer", e.Customer),
		observability.F("item_id", e.ItemID),
		observability.F("qty", e.Qty),
		observability.F("total", uint64(e.Total)),
		observability.F("occurred_at", e.OccurredAt),
	)
	return nil
}
