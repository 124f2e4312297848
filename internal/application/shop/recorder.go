package shop

import (
	"context"
	"strconv"
	"time"

	domoutbox "github.com/Zhima-Mochi/coffeeshop/internal/domain/outbox"
	domain "github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability/logctx"
)

const (
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// OutboxRecorder hands every placed order to the event bus and keeps the
// order counters. It runs inside the processor's critical section, so when
// the publisher supports it the hand-off never waits: a full queue drops the
// event. A failed hand-off is logged and counted; the order itself is already
// committed and stays that way.
type OutboxRecorder struct {
	publisher domoutbox.Publisher
	log       observability.Logger

	placed     observability.Counter   // orders_placed_total{item_id}
	revenue    observability.Counter   // order_revenue_units_total
	pubFailed  observability.Counter   // event_publish_failed_total{event}
	extCounter observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHist    observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewOutboxRecorder(publisher domoutbox.Publisher, tel observability.Observability) *OutboxRecorder {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &OutboxRecorder{
		publisher:  publisher,
		log:        tel.Logger().With(observability.F("component", "order_recorder")),
		placed:     m.Counter(observability.MOrdersPlaced),
		revenue:    m.Counter(observability.MOrderRevenueUnits),
		pubFailed:  m.Counter(observability.MEventPublishFailed),
		extCounter: m.Counter(observability.MExternalRequests),
		extHist:    m.Histogram(observability.MExternalRequestDuration),
	}
}

var _ domain.Recorder = (*OutboxRecorder)(nil)

func (r *OutboxRecorder) Record(ctx context.Context, e domain.OrderPlaced) {
	r.placed.Add(1, observability.L("item_id", strconv.FormatUint(e.ItemID, 10)))
	r.revenue.Add(float64(e.Total))

	if r.publisher == nil {
		return
	}

	// The order is final; a caller hanging up must not lose the event.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := "success"
	err := r.publish(pubCtx, e)
	if err != nil {
		outcome = "error"
		r.pubFailed.Add(1, observability.L("event", e.EventName()))
		logctx.FromOr(ctx, r.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("order_id", e.OrderID),
			observability.F("error", err.Error()),
		)
	}

	r.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	r.extHist.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
}

func (r *OutboxRecorder) publish(ctx context.Context, e domain.OrderPlaced) error {
	if tp, ok := r.publisher.(domoutbox.TryPublisher); ok {
		return tp.TryPublish(ctx, e)
	}
	return r.publisher.Publish(ctx, e)
}
