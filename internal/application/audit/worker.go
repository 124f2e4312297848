package audit

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/coffeeshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
)

// Middleware decorates an event handler, e.g. to bind an event-scoped logger.
type Middleware func(domoutbox.Handler) domoutbox.Handler

// Worker subscribes one handler per sink, so a slow sink never delays the
// others.
type Worker struct {
	useCases []*RecordOrderUseCase
	log      observability.Logger
}

func NewWorker(sinks []Sink, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	w := &Worker{log: tel.Logger().With(observability.F("service", auditService))}
	for _, s := range sinks {
		if s.Writer == nil {
			continue
		}
		w.useCases = append(w.useCases, NewRecordOrderUseCase(s, tel))
	}
	return w
}

// Start registers the sink handlers on sub, each wrapped by mws in order.
func (w *Worker) Start(sub domoutbox.Subscriber, mws ...Middleware) {
	if sub == nil {
		return
	}
	name := shop.OrderPlaced{}.EventName()
	for _, uc := range w.useCases {
		h := handler(uc)
		for i := len(mws) - 1; i >= 0; i-- {
			h = mws[i](h)
		}
		sub.Subscribe(name, h)
	}
	w.log.Info("audit_worker_started", observability.F("sinks", len(w.useCases)))
}

func handler(uc *RecordOrderUseCase) domoutbox.Handler {
	return func(ctx context.Context, e domoutbox.Event) error {
		evt, ok := e.(shop.OrderPlaced)
		if !ok {
			return nil
		}
		_, err := uc.Execute(ctx, evt)
		return err
	}
}
