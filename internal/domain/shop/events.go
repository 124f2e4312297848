package shop

import (
	"context"
	"strconv"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
)

// OrderPlaced is the immutable audit record of a successful purchase.
// Total is always the item price multiplied by Qty.
type OrderPlaced struct {
	OrderID    uint64           `json:"order_id"`
	Customer   identity.Address `json:"customer"`
	ItemID     uint64           `json:"item_id"`
	Qty        uint64           `json:"qty"`
	Total      token.Amount     `json:"total"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func (OrderPlaced) EventName() string { return "order.placed" }

// EventID is stable across re-deliveries of the same order.
func (e OrderPlaced) EventID() string { return "order-" + strconv.FormatUint(e.OrderID, 10) }

// Recorder receives every OrderPlaced in order id order. It is called while
// the processor is still serialized, so it must not call back into it.
type Recorder interface {
	Record(ctx context.Context, e OrderPlaced)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, e OrderPlaced)

func (f RecorderFunc) Record(ctx context.Context, e OrderPlaced) { f(ctx, e) }
