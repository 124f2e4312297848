package shop_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appshop "github.com/Zhima-Mochi/coffeeshop/internal/application/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	domoutbox "github.com/Zhima-Mochi/coffeeshop/internal/domain/outbox"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/observability/obstest"
	"github.com/Zhima-Mochi/coffeeshop/internal/infrastructure/outbox"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = identity.MustParse("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	customer = identity.MustParse("0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc")
)

type capturePublisher struct {
	events []domoutbox.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type fixture struct {
	obs       *obstest.Harness
	ledger    *memory.TokenLedger
	processor *shop.Processor
	publisher *capturePublisher
	setPrice  *appshop.SetPriceUseCase
	buy       *appshop.PlaceOrderUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	obs := obstest.New(t)
	ledger := memory.NewTokenLedger(token.USDT, owner)
	pub := &capturePublisher{}

	p, err := shop.New(shop.Config{
		Owner:       owner,
		StoreWallet: owner,
		Ledger:      appshop.NewInstrumentedLedger(ledger, obs),
		Recorder:    appshop.NewOutboxRecorder(pub, obs),
	})
	require.NoError(t, err)

	return &fixture{
		obs:       obs,
		ledger:    ledger,
		processor: p,
		publisher: pub,
		setPrice:  appshop.NewSetPriceUseCase(p, obs),
		buy:       appshop.NewPlaceOrderUseCase(p, obs),
	}
}

func (f *fixture) fund(t *testing.T, balance, allowance token.Amount) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.ledger.Mint(ctx, owner, customer, balance))
	require.NoError(t, f.ledger.Approve(ctx, customer, f.processor.Address(), allowance))
}

func TestSetPriceUseCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.setPrice.Execute(ctx, appshop.SetPriceCommand{Caller: owner, ItemID: 7, Price: 3_000_000})
	require.NoError(t, err)
	assert.Equal(t, appshop.SetPriceResult{ItemID: 7, Price: 3_000_000}, res)
	assert.Equal(t, token.Amount(3_000_000), f.processor.PriceOf(7))

	_, err = f.setPrice.Execute(ctx, appshop.SetPriceCommand{Caller: customer, ItemID: 7, Price: 1})
	require.ErrorIs(t, err, shop.ErrUnauthorized)

	done := f.obs.Messages("use_case_done")
	require.Len(t, done, 2)
	assert.Equal(t, "OK", done[0].ContextMap()["status"])
	assert.Equal(t, "UNAUTHORIZED", done[1].ContextMap()["status"])
	assert.Equal(t, "error", done[1].ContextMap()["outcome"])
	assert.Equal(t, "not owner", done[1].ContextMap()["error"])
	assert.Equal(t, "shop.set_price", done[1].ContextMap()["use_case"])
}

func TestPlaceOrderUseCase_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.setPrice.Execute(ctx, appshop.SetPriceCommand{Caller: owner, ItemID: 7, Price: 3})
	require.NoError(t, err)
	f.fund(t, 100, 9)

	evt, err := f.buy.Execute(ctx, appshop.PlaceOrderCommand{Caller: customer, ItemID: 7, Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), evt.OrderID)
	assert.Equal(t, token.Amount(9), evt.Total)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, evt, f.publisher.events[0])

	assert.Equal(t, 1.0, counterValue(t, f.obs.Registry, "orders_placed_total", map[string]string{"item_id": "7"}))
	assert.Equal(t, 9.0, counterValue(t, f.obs.Registry, "order_revenue_units_total", nil))
	n, err := testutil.GatherAndCount(f.obs.Registry, "external_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n, "allowance, balanceOf, transferFrom and the outbox hand-off")

	done := f.obs.Messages("use_case_done")
	last := done[len(done)-1].ContextMap()
	assert.Equal(t, "shop.buy", last["use_case"])
	assert.Equal(t, "success", last["outcome"])
	assert.Equal(t, uint64(1), last["order_id"])
}

func TestPlaceOrderUseCase_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.setPrice.Execute(ctx, appshop.SetPriceCommand{Caller: owner, ItemID: 7, Price: 3})
	require.NoError(t, err)
	f.fund(t, 5, 100)

	tests := []struct {
		name   string
		cmd    appshop.PlaceOrderCommand
		want   error
		status string
	}{
		{"zero qty", appshop.PlaceOrderCommand{Caller: customer, ItemID: 7}, shop.ErrInvalidQuantity, "INVALID_QUANTITY"},
		{"unknown item", appshop.PlaceOrderCommand{Caller: customer, ItemID: 8, Qty: 1}, shop.ErrItemNotForSale, "ITEM_NOT_FOR_SALE"},
		{"poor customer", appshop.PlaceOrderCommand{Caller: customer, ItemID: 7, Qty: 2}, shop.ErrInsufficientBalance, "INSUFFICIENT_BALANCE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.buy.Execute(ctx, tt.cmd)
			require.ErrorIs(t, err, tt.want)
			done := f.obs.Messages("use_case_done")
			assert.Equal(t, tt.status, done[len(done)-1].ContextMap()["status"])
		})
	}
	assert.Empty(t, f.publisher.events)
	assert.Equal(t, uint64(1), f.processor.NextOrderID())
}

func TestPlaceOrderUseCase_CanceledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.buy.Execute(ctx, appshop.PlaceOrderCommand{Caller: customer, ItemID: 7, Qty: 1})
	require.ErrorIs(t, err, context.Canceled)
	done := f.obs.Messages("use_case_done")
	assert.Equal(t, "CONTEXT_CANCELED", done[len(done)-1].ContextMap()["status"])
}

func TestOutboxRecorder_PublishFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.publisher.err = errors.New("bus full")
	_, err := f.setPrice.Execute(ctx, appshop.SetPriceCommand{Caller: owner, ItemID: 1, Price: 2})
	require.NoError(t, err)
	f.fund(t, 10, 10)

	evt, err := f.buy.Execute(ctx, appshop.PlaceOrderCommand{Caller: customer, ItemID: 1, Qty: 1})
	require.NoError(t, err, "a failed hand-off never rolls back an order")
	assert.Equal(t, uint64(1), evt.OrderID)
	assert.Equal(t, uint64(2), f.processor.NextOrderID())

	require.Len(t, f.obs.Messages("event_publish_failed"), 1)
	n, err := testutil.GatherAndCount(f.obs.Registry, "event_publish_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOutboxRecorder_FullQueueDropsWithoutWaiting(t *testing.T) {
	obs := obstest.New(t)
	bus := outbox.NewBus(obs, outbox.WithBuffer(1)) // never started, so nothing drains
	rec := appshop.NewOutboxRecorder(bus, obs)
	ctx := context.Background()

	rec.Record(ctx, shop.OrderPlaced{OrderID: 1, Customer: customer, ItemID: 1, Qty: 1, Total: 2})

	start := time.Now()
	rec.Record(ctx, shop.OrderPlaced{OrderID: 2, Customer: customer, ItemID: 1, Qty: 1, Total: 2})
	assert.Less(t, time.Since(start), 100*time.Millisecond, "a full queue must not stall the caller")

	assert.Equal(t, 1.0, counterValue(t, obs.Registry, "event_publish_failed_total", map[string]string{"event": "order.placed"}))
	assert.Equal(t, 2.0, counterValue(t, obs.Registry, "orders_placed_total", map[string]string{"item_id": "1"}))
	require.Len(t, obs.Messages("event_publish_failed"), 1)
	assert.Equal(t, uint64(2), obs.Messages("event_publish_failed")[0].ContextMap()["order_id"])
}

func TestQuery(t *testing.T) {
	f := newFixture(t)
	q := appshop.NewQuery(f.processor)

	info := q.Info()
	assert.Equal(t, owner, info.Owner)
	assert.Equal(t, owner, info.StoreWallet)
	assert.Equal(t, f.processor.Address(), info.Address)
	assert.Equal(t, uint64(1), info.NextOrderID)
	assert.Zero(t, q.PriceOf(1))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
