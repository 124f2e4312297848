package shop

import (
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	domain "github.com/Zhima-Mochi/coffeeshop/internal/domain/shop"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
)

// Info is the public state of the processor.
type Info struct {
	Owner       identity.Address `json:"owner"`
	StoreWallet identity.Address `json:"store_wallet"`
	Address     identity.Address `json:"address"`
	NextOrderID uint64           `json:"next_order_id"`
}

// Query serves the read-only side of the processor. Reads never fail.
type Query struct {
	processor *domain.Processor
}

func NewQuery(p *domain.Processor) *Query { return &Query{processor: p} }

func (q *Query) Info() Info {
	return Info{
		Owner:       q.processor.Owner(),
		StoreWallet: q.processor.StoreWallet(),
		Address:     q.processor.Address(),
		NextOrderID: q.processor.NextOrderID(),
	}
}

func (q *Query) PriceOf(itemID uint64) token.Amount { return q.processor.PriceOf(itemID) }
