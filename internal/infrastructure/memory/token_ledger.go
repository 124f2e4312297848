package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/coffeeshop/internal/domain/identity"
	"github.com/Zhima-Mochi/coffeeshop/internal/domain/token"
)

type allowanceKey struct{ owner, spender identity.Address }

// TokenLedger is an in-process fungible token. The minter is fixed at
// construction and is the only identity allowed to mint.
type TokenLedger struct {
	mu         sync.RWMutex
	meta       token.Metadata
	minter     identity.Address
	supply     token.Amount
	balances   map[identity.Address]token.Amount
	allowances map[allowanceKey]token.Amount
}

func NewTokenLedger(meta token.Metadata, minter identity.Address) *TokenLedger {
	return &TokenLedger{
		meta:       meta,
		minter:     minter,
		balances:   make(map[identity.Address]token.Amount),
		allowances: make(map[allowanceKey]token.Amount),
	}
}

func (l *TokenLedger) Metadata() token.Metadata { return l.meta }

func (l *TokenLedger) TotalSupply(ctx context.Context) (token.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply, nil
}

func (l *TokenLedger) BalanceOf(ctx context.Context, owner identity.Address) (token.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[owner], nil
}

func (l *TokenLedger) Allowance(ctx context.Context, owner, spender identity.Address) (token.Amount, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[allowanceKey{owner, spender}], nil
}

// Approve overwrites the allowance of spender over owner's funds.
func (l *TokenLedger) Approve(ctx context.Context, owner, spender identity.Address, amount token.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if owner.IsZero() || spender.IsZero() {
		return token.ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{owner, spender}] = amount
	return nil
}

func (l *TokenLedger) Transfer(ctx context.Context, from, to identity.Address, amount token.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// TransferFrom debits from on behalf of spender. An Unlimited allowance is
// not decremented.
func (l *TokenLedger) TransferFrom(ctx context.Context, spender, from, to identity.Address, amount token.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := allowanceKey{from, spender}
	allowance := l.allowances[key]
	if allowance < amount {
		return token.ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if allowance != token.Unlimited {
		l.allowances[key] = allowance - amount
	}
	return nil
}

func (l *TokenLedger) Mint(ctx context.Context, caller, to identity.Address, amount token.Amount) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if caller != l.minter {
		return token.ErrNotMinter
	}
	if to.IsZero() {
		return token.ErrInvalidAddress
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, ok := l.supply.Add(amount)
	if !ok {
		return token.ErrOverflow
	}
	// Balances never exceed supply, so this cannot overflow.
	l.balances[to] += amount
	l.supply = supply
	return nil
}

// move must be called with mu held. It validates everything before mutating.
func (l *TokenLedger) move(from, to identity.Address, amount token.Amount) error {
	if from.IsZero() || to.IsZero() {
		return token.ErrInvalidAddress
	}
	if l.balances[from] < amount {
		return token.ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}
