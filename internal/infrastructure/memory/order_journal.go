package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/journal"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
)

// OrderJournal keeps placed orders in memory, keyed by order id.
type OrderJournal struct {
	mu     sync.RWMutex
	orders map[uint64]shop.OrderPlaced
}

func NewOrderJournal() *OrderJournal {
	return &OrderJournal{
		orders: make(map[uint64]shop.OrderPlaced),
	}
}

func (r *OrderJournal) Append(ctx context.Context, e shop.OrderPlaced) error {
	_ = ctx
	if e.OrderID == 0 {
		return fmt.Errorf("order journal: order id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.orders[e.OrderID]; ok {
		if !sameOrder(existing, e) {
			return journal.ErrDuplicate
		}
		return nil
	}
	r.orders[e.OrderID] = e
	return nil
}

func (r *OrderJournal) Get(ctx context.Context, orderID uint64) (shop.OrderPlaced, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.orders[orderID]
	if !ok {
		return shop.OrderPlaced{}, journal.ErrNotFound
	}
	return e, nil
}

func (r *OrderJournal) LastOrderID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var last uint64
	for id := range r.orders {
		if id > last {
			last = id
		}
	}
	return last, nil
}

// Len reports how many orders are journaled.
func (r *OrderJournal) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

func sameOrder(a, b shop.OrderPlaced) bool {
	return a.OrderID == b.OrderID &&
		a.Customer == b.Customer &&
		a.ItemID == b.ItemID &&
		a.Qty == b.Qty &&
		a.Total == b.Total
}
