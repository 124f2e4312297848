// Package journal is the append-only audit history of placed orders.
package journal

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
)

var (
	ErrNotFound = errors.New("journal: order not found")
	// ErrDuplicate reports an order id that is already journaled with
	// different contents. Re-appending an identical entry is not an error.
	ErrDuplicate = errors.New("journal: conflicting entry for order id")
)

// Writer appends orders. Appends are idempotent on OrderID.
type Writer interface {
	Append(ctx context.Context, e shop.OrderPlaced) error
}

// Reader looks up journaled orders.
type Reader interface {
	Get(ctx context.Context, orderID uint64) (shop.OrderPlaced, error)
}

// Sequence reports the highest order id stored, or 0 when empty. It lets a
// restarted processor continue numbering after a persisted journal.
type Sequence interface {
	LastOrderID(ctx context.Context) (uint64, error)
}

type Journal interface {
	Writer
	Reader
	Sequence
}
