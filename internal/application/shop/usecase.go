package shop

import (
	"context"
	"strconv"

	"github.com/Zhima-Mochi/coffeeshop/internal/application"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	domain "github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
	"github.com/Zhima-Mochi/coffeeshop/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	shopService     = "shop-service"
	useCaseSetPrice = "shop.set_price"
	useCaseBuy      = "shop.buy"
)

// Processor is the part of *domain.Processor the use cases drive.
type Processor interface {
	SetPrice(ctx context.Context, caller identity.Address, itemID uint64, price token.Amount) error
	Buy(ctx context.Context, caller identity.Address, itemID uint64, qty uint64) (domain.OrderPlaced, error)
}

type SetPriceCommand struct {
	Caller identity.Address
	ItemID uint64
	Price  token.Amount
}

type SetPriceResult struct {
	ItemID uint64
	Price  token.Amount
}

// SetPriceUseCase lets the owner list, reprice or withdraw an item.
type SetPriceUseCase struct {
	processor Processor
	inst      application.Instrumentation
}

func NewSetPriceUseCase(p Processor, tel observability.Observability) *SetPriceUseCase {
	return &SetPriceUseCase{
		processor: p,
		inst:      application.NewInstrumentation(tel, shopService),
	}
}

func (uc *SetPriceUseCase) Execute(ctx context.Context, cmd SetPriceCommand) (_ SetPriceResult, err error) {
	ctx, exec := uc.inst.Begin(ctx, useCaseSetPrice, "SetPrice",
		attribute.String("shop.caller", cmd.Caller.String()),
		attribute.String("shop.item_id", strconv.FormatUint(cmd.ItemID, 10)),
	)
	defer func() { uc.inst.End(exec, err) }()
	exec.Field("item_id", cmd.ItemID)
	exec.Field("price", uint64(cmd.Price))

	if err := ctx.Err(); err != nil {
		return SetPriceResult{}, exec.Fail("CONTEXT_CANCELED", err)
	}
	if err := uc.processor.SetPrice(ctx, cmd.Caller, cmd.ItemID, cmd.Price); err != nil {
		return SetPriceResult{}, exec.Fail(statusOf(err), err)
	}
	if cmd.Price == 0 {
		exec.Status("ITEM_WITHDRAWN")
	}
	return SetPriceResult{ItemID: cmd.ItemID, Price: cmd.Price}, nil
}

type PlaceOrderCommand struct {
	Caller identity.Address
	ItemID uint64
	Qty    uint64
}

// PlaceOrderUseCase runs a purchase through the processor.
type PlaceOrderUseCase struct {
	processor Processor
	inst      application.Instrumentation
}

func NewPlaceOrderUseCase(p Processor, tel observability.Observability) *PlaceOrderUseCase {
	return &PlaceOrderUseCase{
		processor: p,
		inst:      application.NewInstrumentation(tel, shopService),
	}
}

func (uc *PlaceOrderUseCase) Execute(ctx context.Context, cmd PlaceOrderCommand) (_ domain.OrderPlaced, err error) {
	ctx, exec := uc.inst.Begin(ctx, useCaseBuy, "Buy",
		attribute.String("shop.caller", cmd.Caller.String()),
		attribute.String("shop.item_id", strconv.FormatUint(cmd.ItemID, 10)),
		attribute.Int64("shop.qty", int64(min(cmd.Qty, uint64(1<<63-1)))),
	)
	defer func() { uc.inst.End(exec, err) }()
	exec.Field("item_id", cmd.ItemID)
	exec.Field("qty", cmd.Qty)

	if err := ctx.Err(); err != nil {
		return domain.OrderPlaced{}, exec.Fail("CONTEXT_CANCELED", err)
	}

	evt, err := uc.processor.Buy(ctx, cmd.Caller, cmd.ItemID, cmd.Qty)
	if err != nil {
		return domain.OrderPlaced{}, exec.Fail(statusOf(err), err)
	}

	exec.Field("order_id", evt.OrderID)
	exec.Field("total", uint64(evt.Total))
	exec.Span().SetAttributes(attribute.String("shop.order_id", strconv.FormatUint(evt.OrderID, 10)))
	exec.Span().AddEvent(evt.EventName(), trace.WithAttributes(
		attribute.String("order.total", strconv.FormatUint(uint64(evt.Total), 10)),
	))
	return evt, nil
}

func statusOf(err error) string {
	if kind := domain.KindOf(err); kind != "" {
		return string(kind)
	}
	return "ERROR"
}
