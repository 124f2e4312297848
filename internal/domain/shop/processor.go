// Package shop is the order processor: a price catalog administered by a
// single owner and a buy transition that collects exact, pre-validated
// payment through a token ledger and sequences orders.
package shop

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
)

// Config holds construction inputs. Address is the processor's own identity,
// the spender whose allowance customers grant; a random one is generated when
// it is zero. ResumeAfter is the highest order id an earlier run already
// issued; numbering continues after it so ids are never reused.
type Config struct {
	Owner       identity.Address
	StoreWallet identity.Address
	Ledger      token.Ledger
	Address     identity.Address
	Recorder    Recorder
	Clock       func() time.Time
	ResumeAfter uint64
}

// Processor owns the catalog and the order counter. Every mutating operation
// runs to completion under mu, giving all callers a single total order.
type Processor struct {
	mu          sync.RWMutex
	owner       identity.Address
	storeWallet identity.Address
	self        identity.Address
	ledger      token.Ledger
	recorder    Recorder
	now         func() time.Time

	catalog     map[uint64]token.Amount
	nextOrderID uint64
}

func New(cfg Config) (*Processor, error) {
	if cfg.Owner.IsZero() {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidConfiguration)
	}
	if cfg.StoreWallet.IsZero() {
		return nil, fmt.Errorf("%w: store wallet is required", ErrInvalidConfiguration)
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("%w: token ledger is required", ErrInvalidConfiguration)
	}

	self := cfg.Address
	if self.IsZero() {
		generated, err := identity.NewRandom()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		self = generated
	}

	now := cfg.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	// An exhausted counter stays exhausted: Buy then fails with overflow.
	next := cfg.ResumeAfter + 1
	if cfg.ResumeAfter == math.MaxUint64 {
		next = math.MaxUint64
	}

	return &Processor{
		owner:       cfg.Owner,
		storeWallet: cfg.StoreWallet,
		self:        self,
		ledger:      cfg.Ledger,
		recorder:    cfg.Recorder,
		now:         now,
		catalog:     make(map[uint64]token.Amount),
		nextOrderID: next,
	}, nil
}

// SetPrice overwrites the unit price of itemID. A price of zero withdraws the
// item from sale. Only the owner may call it.
func (p *Processor) SetPrice(_ context.Context, caller identity.Address, itemID uint64, price token.Amount) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.owner {
		return ErrUnauthorized
	}
	p.catalog[itemID] = price
	return nil
}

// Buy charges caller price(itemID)*qty, paid straight to the store wallet, and
// assigns the next order id. Checks run in a fixed order and the first
// failure wins; nothing changes unless the ledger transfer succeeds.
func (p *Processor) Buy(ctx context.Context, caller identity.Address, itemID uint64, qty uint64) (OrderPlaced, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if qty == 0 {
		return OrderPlaced{}, ErrInvalidQuantity
	}

	price := p.catalog[itemID]
	if price == 0 {
		return OrderPlaced{}, ErrItemNotForSale
	}

	total, ok := price.MulQty(qty)
	if !ok {
		return OrderPlaced{}, fmt.Errorf("%w: price %d x qty %d", ErrArithmeticOverflow, price, qty)
	}
	// The counter must be able to advance before any funds move.
	if p.nextOrderID == math.MaxUint64 {
		return OrderPlaced{}, fmt.Errorf("%w: order counter exhausted", ErrArithmeticOverflow)
	}

	allowance, err := p.ledger.Allowance(ctx, caller, p.self)
	if err != nil {
		return OrderPlaced{}, fmt.Errorf("%w: allowance: %w", ErrLedgerUnavailable, err)
	}
	if allowance < total {
		return OrderPlaced{}, ErrAllowanceTooLow
	}

	balance, err := p.ledger.BalanceOf(ctx, caller)
	if err != nil {
		return OrderPlaced{}, fmt.Errorf("%w: balance: %w", ErrLedgerUnavailable, err)
	}
	if balance < total {
		return OrderPlaced{}, ErrInsufficientBalance
	}

	if err := p.ledger.TransferFrom(ctx, p.self, caller, p.storeWallet, total); err != nil {
		return OrderPlaced{}, fmt.Errorf("%w: %w", ErrLedgerTransferFailed, err)
	}

	orderID := p.nextOrderID
	p.nextOrderID++

	evt := OrderPlaced{
		OrderID:    orderID,
		Customer:   caller,
		ItemID:     itemID,
		Qty:        qty,
		Total:      total,
		OccurredAt: p.now(),
	}
	if p.recorder != nil {
		p.recorder.Record(ctx, evt)
	}
	return evt, nil
}

func (p *Processor) Owner() identity.Address { return p.owner }

func (p *Processor) StoreWallet() identity.Address { return p.storeWallet }

// Address is the processor's spender identity.
func (p *Processor) Address() identity.Address { return p.self }

// PriceOf returns the current unit price; zero means not for sale.
func (p *Processor) PriceOf(itemID uint64) token.Amount {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.catalog[itemID]
}

// NextOrderID is the id the next successful Buy will receive.
func (p *Processor) NextOrderID() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.nextOrderID
}
